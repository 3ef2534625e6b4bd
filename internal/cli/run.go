package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yago-naga/yago3-sub001/pkg/stage"
)

func newRunCmd() *cobra.Command {
	var input, output, label string
	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run every stage of a pipeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := stage.LoadPipeline(args[0])
			if err != nil {
				return err
			}
			if label == "" {
				label = time.Now().UTC().Format("20060102-150405")
			}
			if err := p.Run(cmd.Context(), input, output, label); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s finished\n", label)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", ".", "directory of external themes")
	cmd.Flags().StringVar(&output, "output", envOr(EnvDataDir, "./data"), "directory receiving run directories")
	cmd.Flags().StringVar(&label, "label", "", "run label, defaults to a timestamp")
	return cmd
}

// single runs one stage with the same directory for inputs and outputs.
func single(cmd *cobra.Command, dir string, compress bool, sc stage.StageConfig) error {
	p := stage.DefaultPipeline()
	p.Name = sc.Name
	p.Compress = compress
	p.Stages = []stage.StageConfig{sc}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := p.Run(cmd.Context(), dir, dir, ""); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", sc.Output)
	return nil
}

func newDeduceCmd() *cobra.Command {
	var (
		dir      string
		compress bool
		sc       = stage.StageConfig{Name: "deduce", Kind: stage.KindRules}
	)
	cmd := &cobra.Command{
		Use:   "deduce",
		Short: "Apply a rule theme to fact themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sc.Depth > 0 || sc.StopAtFixpoint {
				sc.Kind = stage.KindClosure
			}
			return single(cmd, dir, compress, sc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "theme directory")
	f.BoolVar(&compress, "compress", false, "write s2 compressed themes")
	f.StringVar(&sc.Rules, "rules", "", "rule theme")
	f.StringSliceVar(&sc.Inputs, "facts", nil, "fact themes")
	f.StringVar(&sc.Output, "out", "", "output theme")
	f.StringVar(&sc.Sources, "sources", "", "theme receiving provenance facts")
	f.StringVar(&sc.Strategy, "strategy", "indexed", "indexed or naive")
	f.IntVar(&sc.MaxRuleSetSize, "max-rules", 0, "rules evaluated together, 0 for all")
	f.StringVar(&sc.UnboundHeads, "unbound-heads", "skip", "skip or emit")
	f.IntVar(&sc.Depth, "depth", 0, "closure rounds, 0 for a single pass")
	f.BoolVar(&sc.StopAtFixpoint, "stop-at-fixpoint", false, "end the closure once nothing new is derived")
	_ = cmd.MarkFlagRequired("rules")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var (
		dir      string
		compress bool
		sc       = stage.StageConfig{Name: "merge", Kind: stage.KindMerge}
	)
	cmd := &cobra.Command{
		Use:   "merge <theme>...",
		Short: "Merge themes in authority order, highest first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc.Inputs = args
			return single(cmd, dir, compress, sc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "theme directory")
	f.BoolVar(&compress, "compress", false, "write s2 compressed themes")
	f.StringVar(&sc.Output, "out", "", "output theme")
	f.StringVar(&sc.Accept, "accept", "all", "fact filter: all, entities, facts, literals or sources")
	f.StringSliceVar(&sc.Relations, "relations", nil, "only keep these relations")
	f.StringVar(&sc.Schema, "schema", "", "theme declaring functional relations")
	f.StringSliceVar(&sc.Exclusions, "exclude", nil, "themes of facts to remove")
	f.StringVar(&sc.Conflicts, "conflicts", "", "theme receiving rejected facts")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
