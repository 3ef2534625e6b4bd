package deduce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
)

var (
	ErrInvalidConfig = errors.New("invalid evaluator config")
)

// UnboundHeadPolicy decides what happens to a head template whose variables
// were not all bound by the body.
type UnboundHeadPolicy string

const (
	// SkipUnbound drops the template and counts it.
	SkipUnbound UnboundHeadPolicy = "skip"
	// EmitUnbound emits the template with its placeholders as literal text.
	EmitUnbound UnboundHeadPolicy = "emit"
)

// TechniquePrefix starts the extraction technique of every derived fact.
const TechniquePrefix = "RuleExtractor from "

// Config holds the knobs of an evaluation pass.
type Config struct {
	// MaxRuleSetSize caps the rules evaluated together; 0 means no cap.
	MaxRuleSetSize int

	// UnboundHeads selects the handling of unsafe head templates.
	UnboundHeads UnboundHeadPolicy

	// Source is the extraction source recorded for derived facts.
	Source string
}

// DefaultConfig returns the defaults for one rule theme.
func DefaultConfig() *Config {
	return &Config{
		MaxRuleSetSize: 0,
		UnboundHeads:   SkipUnbound,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxRuleSetSize < 0 {
		return fmt.Errorf("%w: MaxRuleSetSize must be non-negative, got %d", ErrInvalidConfig, c.MaxRuleSetSize)
	}
	switch c.UnboundHeads {
	case SkipUnbound, EmitUnbound:
	default:
		return fmt.Errorf("%w: unknown unbound head policy %q", ErrInvalidConfig, c.UnboundHeads)
	}
	return nil
}

// Stats counts what happened during a pass.
type Stats struct {
	Rules        int
	Batches      int
	Firings      int
	Derived      int
	UnboundHeads int
	UnsafeRules  int
	Rounds       int
}

// Result holds the derived facts and their provenance.
type Result struct {
	Facts   *factstore.Store
	Sources *factstore.Store
	Stats   Stats
}

// Evaluator runs rule sets against a fully loaded store.
type Evaluator struct {
	cfg      *Config
	strategy Strategy
}

// NewEvaluator creates an evaluator; a nil strategy means Indexed.
func NewEvaluator(cfg *Config, strategy Strategy) (*Evaluator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = Indexed{}
	}
	return &Evaluator{cfg: cfg, strategy: strategy}, nil
}

// Strategy returns the strategy in use.
func (e *Evaluator) Strategy() Strategy {
	return e.strategy
}

// Run evaluates all rules, batch by batch, against the same store.
// Each derived fact carries its identifier and appears once.
func (e *Evaluator) Run(ctx context.Context, store *factstore.Store, all []*rules.Rule) (*Result, error) {
	res := &Result{
		Facts:   factstore.NewStore(),
		Sources: factstore.NewStore(),
	}
	batches := rules.Split(all, e.cfg.MaxRuleSetSize)
	res.Stats.Rules = len(all)
	res.Stats.Batches = len(batches)
	for _, r := range all {
		if vars := r.UnboundHeadVariables(); len(vars) > 0 {
			res.Stats.UnsafeRules++
			slog.Warn("head variables not bound by the body",
				"rule", r.String(),
				"variables", vars,
				"policy", e.cfg.UnboundHeads,
			)
		}
	}

	for i, batch := range batches {
		slog.Debug("evaluating rule batch",
			"batch", i+1,
			"of", len(batches),
			"rules", batch.Len(),
			"strategy", e.strategy.Name(),
		)
		if err := e.strategy.Evaluate(ctx, store, batch, func(r *rules.Rule) { e.fire(res, r) }); err != nil {
			return nil, fmt.Errorf("rule batch %d: %w", i+1, err)
		}
	}

	slog.Info("rule evaluation finished",
		"strategy", e.strategy.Name(),
		"rules", res.Stats.Rules,
		"firings", res.Stats.Firings,
		"derived", res.Stats.Derived,
		"unboundHeads", res.Stats.UnboundHeads,
	)
	return res, nil
}

func (e *Evaluator) fire(res *Result, r *rules.Rule) {
	res.Stats.Firings++
	facts, unbound := r.HeadFacts()
	if len(unbound) > 0 {
		switch e.cfg.UnboundHeads {
		case EmitUnbound:
			for _, t := range unbound {
				facts = append(facts, t.Fact())
			}
		default:
			res.Stats.UnboundHeads += len(unbound)
			slog.Debug("head template left unbound",
				"rule", r.Original.String(),
				"template", unbound[0].String(),
			)
		}
	}

	technique := fact.ForString(TechniquePrefix + r.Original.String())
	for _, f := range facts {
		f = f.WithID()
		if res.Facts.Add(f, nil) == factstore.New {
			res.Stats.Derived++
		}
		if e.cfg.Source != "" {
			res.Sources.Add(fact.Meta(f.ID, fact.ExtractionSrc, e.cfg.Source).WithID(), nil)
		}
		res.Sources.Add(fact.Meta(f.ID, fact.ExtractionTech, technique).WithID(), nil)
	}
}
