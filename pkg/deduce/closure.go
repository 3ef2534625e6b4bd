package deduce

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
)

// DefaultClosureDepth is the number of rounds used when none is configured.
const DefaultClosureDepth = 2

// ClosureOptions tunes the closure driver.
type ClosureOptions struct {
	// Depth is the number of evaluation rounds; at least 1.
	Depth int

	// StopAtFixpoint ends early once a round derives nothing new.
	StopAtFixpoint bool
}

// Closure re-runs the evaluation opts.Depth times. Each round sees the base
// facts plus everything the previous round derived; the last round's result
// is returned and earlier rounds are discarded. Chains longer than the depth
// may stay incomplete.
func (e *Evaluator) Closure(ctx context.Context, base *factstore.Store, all []*rules.Rule, opts ClosureOptions) (*Result, error) {
	if opts.Depth < 1 {
		return nil, fmt.Errorf("%w: closure depth must be at least 1, got %d", ErrInvalidConfig, opts.Depth)
	}

	var res *Result
	for round := 1; round <= opts.Depth; round++ {
		input := base
		if res != nil {
			input = base.Clone()
			input.AddAll(res.Facts.All(), nil)
		}

		next, err := e.Run(ctx, input, all)
		if err != nil {
			return nil, fmt.Errorf("closure round %d: %w", round, err)
		}

		grew := res == nil || next.Facts.Len() > res.Facts.Len()
		res = next
		res.Stats.Rounds = round
		slog.Debug("closure round finished",
			"round", round,
			"depth", opts.Depth,
			"derived", res.Facts.Len(),
		)
		if opts.StopAtFixpoint && !grew {
			break
		}
	}
	return res, nil
}
