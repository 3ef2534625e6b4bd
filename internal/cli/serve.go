package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/pkg/mcp"
	"github.com/yago-naga/yago3-sub001/pkg/server"
)

func newServeCmd() *cobra.Command {
	var (
		dataDir string
		port    string
		lowMem  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve runs of the data directory over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := manager.MemoryProfileDefault
			if lowMem {
				profile = manager.MemoryProfileLow
			}
			mgr := manager.NewRunManager(dataDir, profile, true)
			defer mgr.CloseAll()

			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           server.NewServer(mgr).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				slog.Info("serving", "addr", srv.Addr, "data", dataDir)
				errc <- srv.ListenAndServe()
			}()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", envOr(EnvDataDir, "./data"), "directory of runs")
	cmd.Flags().StringVar(&port, "port", envOr(EnvPort, "8080"), "listen port")
	cmd.Flags().BoolVar(&lowMem, "low-mem", false, "optimize for low-memory environments")
	return cmd
}

func newMCPCmd() *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve runs of the data directory to MCP clients on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := manager.NewRunManager(dataDir, manager.MemoryProfileDefault, true)
			defer mgr.CloseAll()
			return mcp.Run(cmd.Context(), mgr)
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", envOr(EnvDataDir, "./data"), "directory of runs")
	return cmd
}
