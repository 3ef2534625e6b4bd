package stage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yago-naga/yago3-sub001/internal/metrics"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

// DefaultConcurrency is the number of stages run at once within a wave.
const DefaultConcurrency = 4

// Scheduler runs stages in dependency order. Stages of one wave run in
// parallel; the first failure cancels the rest of the run.
type Scheduler struct {
	Concurrency int
}

// Plan registers the stages with the env's registry, validates the graph
// and returns the waves of stage names.
func (s *Scheduler) Plan(env *Env, stages []Stage) ([][]string, error) {
	reg := env.Registry
	for _, st := range stages {
		n := theme.Node{Name: st.Name()}
		var opt []string
		if o, ok := st.(optional); ok {
			opt = o.Optional()
		}
		for _, in := range st.Inputs() {
			if slices.Contains(opt, in) {
				n.Optional = append(n.Optional, in)
			} else {
				n.Inputs = append(n.Inputs, in)
			}
		}
		for _, out := range st.Outputs() {
			n.Outputs = append(n.Outputs, env.Theme(out))
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}

	// Inputs nobody produces must already exist in the input directory.
	for _, st := range stages {
		for _, in := range st.Inputs() {
			if reg.Produced(in) {
				continue
			}
			if t := theme.New(in, ""); t.Available(env.InputDir) {
				reg.Declare(t)
			}
		}
	}
	if err := reg.Validate(func(t theme.Theme) bool { return t.Available(env.InputDir) }); err != nil {
		return nil, err
	}
	return reg.Waves()
}

// Run plans and executes the stages.
func (s *Scheduler) Run(ctx context.Context, env *Env, stages []Stage) error {
	waves, err := s.Plan(env, stages)
	if err != nil {
		return err
	}
	byName := make(map[string]Stage, len(stages))
	for _, st := range stages {
		byName[st.Name()] = st
	}
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	log := env.logger()
	for i, wave := range waves {
		log.Info("starting wave", "wave", i+1, "of", len(waves), "stages", wave)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, name := range wave {
			st := byName[name]
			g.Go(func() error {
				start := time.Now()
				err := st.Run(gctx, env)
				metrics.ObserveStage(name, start, err)
				if err != nil {
					return fmt.Errorf("stage %s: %w", name, err)
				}
				log.Debug("stage finished", "stage", name, "elapsed", time.Since(start))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}
