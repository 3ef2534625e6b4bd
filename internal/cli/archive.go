package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/pkg/archive"
	"github.com/yago-naga/yago3-sub001/pkg/export"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

// selectThemes returns the named themes, or every theme of dir.
func selectThemes(dir string, names []string) ([]theme.Theme, error) {
	if len(names) == 0 {
		return theme.Discover(dir)
	}
	out := make([]theme.Theme, 0, len(names))
	for _, name := range names {
		t := theme.New(name, "")
		if !t.Available(dir) {
			return nil, fmt.Errorf("%w: %s", theme.ErrNotAvailable, name)
		}
		out = append(out, t)
	}
	return out, nil
}

func newArchiveCmd() *cobra.Command {
	var (
		lowMem bool
		sync   bool
	)
	cmd := &cobra.Command{
		Use:   "archive <run dir> [theme...]",
		Short: "Import themes of a run into its indexed archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			themes, err := selectThemes(dir, args[1:])
			if err != nil {
				return err
			}
			cfg := archive.DefaultConfig(filepath.Join(dir, manager.ArchiveDir))
			cfg.SyncWrites = sync
			if lowMem {
				cfg.BlockCacheSize = 64 << 20
				cfg.IndexCacheSize = 32 << 20
				cfg.Profile = "Safe-Serving"
			}
			a, err := archive.Open(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, t := range themes {
				n, err := a.Import(cmd.Context(), t, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", t.Name, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&lowMem, "low-mem", false, "use small caches")
	cmd.Flags().BoolVar(&sync, "sync", false, "sync every write")
	return cmd
}

func newExportCmd() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "export <run dir> [theme...]",
		Short: "Export themes of a run into a SQLite database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			themes, err := selectThemes(dir, args[1:])
			if err != nil {
				return err
			}
			if db == "" {
				db = filepath.Join(dir, "facts.db")
			}
			out, err := export.OpenSQLite(db)
			if err != nil {
				return err
			}
			defer out.Close()
			for _, t := range themes {
				n, err := out.ExportTheme(cmd.Context(), t, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", t.Name, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "database file, defaults to facts.db in the run dir")
	return cmd
}
