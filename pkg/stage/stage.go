// Package stage runs rule evaluations and merges as a pipeline of stages
// connected only through themes.
package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yago-naga/yago3-sub001/internal/metrics"
	"github.com/yago-naga/yago3-sub001/pkg/deduce"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/merge"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

var ErrInvalidStage = errors.New("invalid stage")

// Stage reads its input themes and writes its output themes.
type Stage interface {
	Name() string
	Inputs() []string
	Outputs() []string
	Run(ctx context.Context, env *Env) error
}

// optional is implemented by stages that tolerate missing inputs.
type optional interface {
	Optional() []string
}

// RuleStage evaluates the rules of one theme against a set of input themes
// and writes the derived facts and their provenance.
type RuleStage struct {
	StageName string
	Rules     string
	Facts     []string
	Result    string
	// Sources receives provenance; empty drops it.
	Sources  string
	Strategy deduce.Strategy
	Config   *deduce.Config
}

func (s *RuleStage) Name() string { return s.StageName }

func (s *RuleStage) Inputs() []string {
	return append([]string{s.Rules}, s.Facts...)
}

func (s *RuleStage) Optional() []string { return s.Facts }

func (s *RuleStage) Outputs() []string {
	if s.Sources == "" {
		return []string{s.Result}
	}
	return []string{s.Result, s.Sources}
}

func (s *RuleStage) validate() error {
	if s.StageName == "" || s.Rules == "" || s.Result == "" {
		return fmt.Errorf("%w: rule stage needs a name, a rule theme and a result theme", ErrInvalidStage)
	}
	return nil
}

func (s *RuleStage) Run(ctx context.Context, env *Env) error {
	return s.run(ctx, env, func(ctx context.Context, ev *deduce.Evaluator, store *factstore.Store, rs []*rules.Rule) (*deduce.Result, error) {
		return ev.Run(ctx, store, rs)
	})
}

type evalFunc func(context.Context, *deduce.Evaluator, *factstore.Store, []*rules.Rule) (*deduce.Result, error)

func (s *RuleStage) run(ctx context.Context, env *Env, eval evalFunc) error {
	if err := s.validate(); err != nil {
		return err
	}
	if !env.Available(s.Rules) {
		return fmt.Errorf("%s: rule theme %s: %w", s.StageName, s.Rules, theme.ErrNotAvailable)
	}
	ruleFacts, err := env.FactCollection(ctx, s.Rules)
	if err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}
	rs, err := rules.FromFacts(ruleFacts.ByRelation(fact.Implies))
	if err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}
	store, err := env.Load(ctx, s.Facts)
	if err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}

	cfg := deduce.DefaultConfig()
	if s.Config != nil {
		c := *s.Config
		cfg = &c
	}
	if cfg.Source == "" {
		cfg.Source = env.Theme(s.Rules).Entity()
	}
	ev, err := deduce.NewEvaluator(cfg, s.Strategy)
	if err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}
	res, err := eval(ctx, ev, store, rs)
	if err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}
	metrics.RuleFirings.WithLabelValues(s.StageName).Add(float64(res.Stats.Firings))
	metrics.DerivedFacts.WithLabelValues(s.StageName).Add(float64(res.Stats.Derived))

	if err := writeTheme(env, s.Result, res.Facts.Facts()); err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}
	if s.Sources != "" {
		if err := writeTheme(env, s.Sources, res.Sources.Facts()); err != nil {
			return fmt.Errorf("%s: %w", s.StageName, err)
		}
	}
	env.logger().Info("rule stage finished",
		"stage", s.StageName,
		"rules", len(rs),
		"facts", store.Len(),
		"derived", res.Facts.Len(),
	)
	return nil
}

// ClosureStage runs a rule stage Depth times, feeding each round's output
// back into its input.
type ClosureStage struct {
	*RuleStage
	Depth          int
	StopAtFixpoint bool
}

func (s *ClosureStage) Run(ctx context.Context, env *Env) error {
	opts := deduce.ClosureOptions{Depth: s.Depth, StopAtFixpoint: s.StopAtFixpoint}
	if opts.Depth == 0 {
		opts.Depth = deduce.DefaultClosureDepth
	}
	return s.run(ctx, env, func(ctx context.Context, ev *deduce.Evaluator, store *factstore.Store, rs []*rules.Rule) (*deduce.Result, error) {
		return ev.Closure(ctx, store, rs, opts)
	})
}

// MergeStage merges its inputs in authority order.
type MergeStage struct {
	StageName string
	// Authority lists the inputs from most to least trusted.
	Authority  []string
	Accept     merge.RelationFilter
	Schema     string
	Exclusions []string
	Output     string
	Conflicts  string
}

func (s *MergeStage) Name() string { return s.StageName }

func (s *MergeStage) Inputs() []string {
	in := append([]string{}, s.Authority...)
	if s.Schema != "" {
		in = append(in, s.Schema)
	}
	return append(in, s.Exclusions...)
}

// Optional returns every input: a merge proceeds with what exists.
func (s *MergeStage) Optional() []string { return s.Inputs() }

func (s *MergeStage) Outputs() []string {
	if s.Conflicts == "" {
		return []string{s.Output}
	}
	return []string{s.Output, s.Conflicts}
}

func (s *MergeStage) Run(ctx context.Context, env *Env) (err error) {
	if s.StageName == "" || s.Output == "" || len(s.Authority) == 0 {
		return fmt.Errorf("%w: merge stage needs a name, inputs and an output", ErrInvalidStage)
	}
	m := &merge.Merger{
		Name:     s.Output,
		Accept:   s.Accept,
		StatsDir: env.OutputDir,
		Logger:   env.logger(),
	}
	for _, name := range s.Authority {
		m.Inputs = append(m.Inputs, env.Source(name))
	}
	for _, name := range s.Exclusions {
		m.Exclusions = append(m.Exclusions, env.Source(name))
	}
	if s.Schema != "" && env.Available(s.Schema) {
		if m.Schema, err = env.FactCollection(ctx, s.Schema); err != nil {
			return fmt.Errorf("%s: %w", s.StageName, err)
		}
	}

	out, err := env.Create(s.Output)
	if err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}
	defer out.Abort()
	m.Output = out

	if s.Conflicts != "" {
		conflicts, cerr := env.Create(s.Conflicts)
		if cerr != nil {
			return fmt.Errorf("%s: %w", s.StageName, cerr)
		}
		defer conflicts.Abort()
		m.Conflicts = conflicts
		defer func() {
			if err == nil {
				err = conflicts.Close()
			}
		}()
	}

	res, err := m.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", s.StageName, err)
	}
	for _, st := range res.Stats {
		metrics.MergeOutcomes.WithLabelValues(s.Output, st.Theme, factstore.New.String()).Add(float64(st.New))
		metrics.MergeOutcomes.WithLabelValues(s.Output, st.Theme, factstore.Duplicate.String()).Add(float64(st.Duplicate))
		metrics.MergeOutcomes.WithLabelValues(s.Output, st.Theme, factstore.FunClash.String()).Add(float64(st.FunClash))
	}
	return out.Close()
}

func writeTheme(env *Env, name string, facts []fact.Fact) error {
	w, err := env.Create(name)
	if err != nil {
		return err
	}
	if err := w.WriteAll(facts); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}
