// Package cli wires the commands of the yago binary.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Environment variables read as flag defaults.
const (
	EnvDataDir  = "YAGO_DATA_DIR"
	EnvLogLevel = "YAGO_LOG_LEVEL"
	EnvPort     = "PORT"
)

var logLevel string

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "yago",
		Short:         "Build, merge and browse fact themes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr(EnvLogLevel, "info"), "debug, info, warn or error")

	root.AddCommand(
		newRunCmd(),
		newDeduceCmd(),
		newMergeCmd(),
		newQueryCmd(),
		newReplCmd(),
		newCheckCmd(),
		newArchiveCmd(),
		newExportCmd(),
		newServeCmd(),
		newMCPCmd(),
	)
	return root
}

func setupLogging(name string) error {
	var level slog.Level
	switch strings.ToLower(name) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
