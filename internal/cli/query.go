package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yago-naga/yago3-sub001/pkg/datalog"
	"github.com/yago-naga/yago3-sub001/pkg/deduce"
	"github.com/yago-naga/yago3-sub001/pkg/export"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/repl"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

// loadThemes materializes the named themes of dir into one store.
func loadThemes(ctx context.Context, dir string, names []string) (*factstore.Store, error) {
	out := factstore.NewStore()
	for _, name := range names {
		if err := theme.New(name, "").LoadInto(ctx, dir, out, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func newQueryCmd() *cobra.Command {
	var (
		dir    string
		themes []string
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Answer a conjunctive query over themes",
		Example: `  yago query --dir out --themes yagoFacts 'triple(X, <isLocatedIn>, <France>)'
  yago query --dir out --themes yagoFacts --format d3 'triple(X, R, Y), X != Y'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := datalog.Compile(args[0])
			if err != nil {
				return err
			}
			store, err := loadThemes(ctx, dir, themes)
			if err != nil {
				return err
			}
			rows, err := q.Run(ctx, store, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "table":
				return writeTable(out, q.Vars, rows)
			case "json":
				return writeJSON(out, rows)
			case "d3":
				graph, err := export.NewD3Transformer(store).Transform(ctx, args[0], rows)
				if err != nil {
					return err
				}
				return writeJSON(out, graph)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "theme directory")
	f.StringSliceVar(&themes, "themes", nil, "themes to query")
	f.IntVar(&limit, "limit", datalog.DefaultLimit, "maximum number of rows")
	f.StringVar(&format, "format", "table", "table, json or d3")
	_ = cmd.MarkFlagRequired("themes")
	return cmd
}

func newReplCmd() *cobra.Command {
	var (
		dir    string
		themes []string
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Query themes interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(themes) == 0 {
				all, err := theme.Discover(dir)
				if err != nil {
					return err
				}
				for _, t := range all {
					themes = append(themes, t.Name)
				}
			}
			store, err := loadThemes(cmd.Context(), dir, themes)
			if err != nil {
				return err
			}
			return repl.Run(cmd.Context(), store, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "theme directory")
	cmd.Flags().StringSliceVar(&themes, "themes", nil, "themes to load, all by default")
	return cmd
}

func writeTable(w io.Writer, vars []string, rows []datalog.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(vars, "\t"))
	for _, row := range rows {
		values := make([]string, len(vars))
		for i, v := range vars {
			values[i] = row[v]
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d rows\n", len(rows))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCheckCmd() *cobra.Command {
	var (
		dir       string
		ruleTheme string
		facts     []string
		depth     int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the bounded closure of a rule theme with its least fixpoint",
		Long: `check evaluates the rules with the closure driver and with the Mangle
engine. Facts of the fixpoint that the closure misses are printed; they belong
to derivation chains longer than the closure depth.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := theme.New(ruleTheme, "")
			rf, err := rt.Reader(dir).Facts(ctx)
			if err != nil {
				return err
			}
			rs, err := rules.FromFacts(rf)
			if err != nil {
				return err
			}
			base, err := loadThemes(ctx, dir, facts)
			if err != nil {
				return err
			}

			ev, err := deduce.NewEvaluator(nil, nil)
			if err != nil {
				return err
			}
			res, err := ev.Closure(ctx, base, rs, deduce.ClosureOptions{Depth: depth, StopAtFixpoint: true})
			if err != nil {
				return err
			}
			want, err := datalog.Fixpoint(ctx, rs, base.Facts())
			if err != nil {
				return err
			}

			var missing []fact.Fact
			for _, f := range want {
				if !res.Facts.Contains(f) {
					missing = append(missing, f)
				}
			}
			slices.SortFunc(missing, fact.Compare)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "closure: %d facts in %d rounds, fixpoint: %d facts\n",
				res.Facts.Len(), res.Stats.Rounds, len(want))
			for _, f := range missing {
				fmt.Fprintf(out, "missing\t%s\n", f)
			}
			if len(missing) > 0 {
				return fmt.Errorf("closure misses %d facts of the fixpoint", len(missing))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "theme directory")
	f.StringVar(&ruleTheme, "rules", "", "rule theme")
	f.StringSliceVar(&facts, "facts", nil, "fact themes")
	f.IntVar(&depth, "depth", deduce.DefaultClosureDepth, "closure rounds")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}
