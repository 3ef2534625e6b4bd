// Package merge combines fact themes in authority order under functional
// constraints.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

var ErrNoInputs = errors.New("merge has no inputs")

// Stats counts the outcomes of one input.
type Stats struct {
	Theme     string
	Skipped   bool
	New       int
	Duplicate int
	FunClash  int
	Rejected  int
}

func (s *Stats) record(o factstore.Outcome) {
	switch o {
	case factstore.New:
		s.New++
	case factstore.Duplicate:
		s.Duplicate++
	case factstore.FunClash:
		s.FunClash++
	}
}

// Line renders the stats in the statistics file format.
func (s Stats) Line() string {
	return fmt.Sprintf("%s\t%s\t%d\t%s\t%d\t%s\t%d",
		s.Theme,
		factstore.New, s.New,
		factstore.Duplicate, s.Duplicate,
		factstore.FunClash, s.FunClash)
}

// Result is the outcome of a merge.
type Result struct {
	Store    *factstore.Store
	Stats    []Stats
	Excluded int
}

// Facts returns the merged facts in insertion order, each carrying its id.
func (r *Result) Facts() []fact.Fact {
	facts := r.Store.Facts()
	for i, f := range facts {
		facts[i] = f.Triple().WithID()
	}
	return facts
}

// Merger reads its inputs from most to least trusted. The first input to
// assert a value for a functional relation wins.
type Merger struct {
	Name   string
	Inputs []Source
	// Accept selects the facts of this merge. Nil accepts all.
	Accept RelationFilter
	// Schema declares the functional relations. Nil disables clash checks.
	Schema *factstore.Store
	// Exclusions lists facts removed after all inputs were added.
	Exclusions []Source
	// Conflicts receives clashing facts and their source.
	Conflicts Sink
	// Output receives the merged facts.
	Output Sink
	// StatsDir, when set, receives _factStatistics_<Name>.tsv.
	StatsDir string
	Logger   *slog.Logger
}

func (m *Merger) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Run performs the merge.
func (m *Merger) Run(ctx context.Context) (*Result, error) {
	if len(m.Inputs) == 0 {
		return nil, fmt.Errorf("%s: %w", m.Name, ErrNoInputs)
	}
	log := m.logger().With("merger", m.Name)

	accept := m.Accept
	if accept == nil {
		accept = AcceptAll
	}
	if m.Schema == nil {
		log.Warn("no schema, functional relations are not checked")
	}
	functional := FunctionalRelations(m.Schema)

	res := &Result{Store: factstore.NewStore()}
	for _, in := range m.Inputs {
		stats, err := m.load(ctx, in, accept, functional, res.Store, log)
		if err != nil {
			return nil, err
		}
		res.Stats = append(res.Stats, stats)
	}

	for _, ex := range m.Exclusions {
		if !ex.Available() {
			log.Warn("exclusion theme not available", "theme", ex.Name())
			continue
		}
		for f, err := range ex.Read(ctx) {
			if err != nil {
				return nil, fmt.Errorf("reading exclusions %s: %w", ex.Name(), err)
			}
			if res.Store.Remove(f.Triple()) {
				res.Excluded++
			}
		}
	}

	if m.Output != nil {
		for _, f := range res.Facts() {
			if err := m.Output.Write(f); err != nil {
				return nil, fmt.Errorf("writing %s: %w", m.Name, err)
			}
		}
	}
	if m.StatsDir != "" {
		if err := m.writeStats(res.Stats); err != nil {
			return nil, err
		}
	}

	log.Info("merge finished",
		"inputs", len(m.Inputs),
		"facts", res.Store.Len(),
		"excluded", res.Excluded,
	)
	return res, nil
}

func (m *Merger) load(ctx context.Context, in Source, accept RelationFilter, functional factstore.RelationSet, store *factstore.Store, log *slog.Logger) (Stats, error) {
	stats := Stats{Theme: in.Name()}
	if !in.Available() {
		log.Warn("input theme not available, skipping", "theme", in.Name())
		stats.Skipped = true
		return stats, nil
	}
	for f, err := range in.Read(ctx) {
		if err != nil {
			return stats, fmt.Errorf("reading %s: %w", in.Name(), err)
		}
		if !accept(f) {
			stats.Rejected++
			continue
		}
		outcome := store.Add(f.Triple(), functional)
		stats.record(outcome)
		if outcome == factstore.FunClash && m.Conflicts != nil {
			if err := m.writeConflict(f, in); err != nil {
				return stats, err
			}
		}
	}
	log.Debug("input merged",
		"theme", in.Name(),
		"new", stats.New,
		"duplicate", stats.Duplicate,
		"funclash", stats.FunClash,
	)
	return stats, nil
}

func (m *Merger) writeConflict(f fact.Fact, in Source) error {
	clash := f.Triple().WithID()
	if err := m.Conflicts.Write(clash); err != nil {
		return fmt.Errorf("writing conflict: %w", err)
	}
	if err := m.Conflicts.Write(fact.Meta(clash.ID, fact.ExtractionSrc, in.Entity())); err != nil {
		return fmt.Errorf("writing conflict source: %w", err)
	}
	return nil
}

func (m *Merger) writeStats(stats []Stats) error {
	var b strings.Builder
	for _, s := range stats {
		if s.Skipped {
			continue
		}
		b.WriteString(s.Line())
		b.WriteByte('\n')
	}
	path := filepath.Join(m.StatsDir, "_factStatistics_"+m.Name+".tsv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing statistics: %w", err)
	}
	return nil
}
