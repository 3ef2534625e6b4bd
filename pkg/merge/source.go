package merge

import (
	"context"
	"iter"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

// Source is one input of a merge.
type Source interface {
	Name() string
	// Entity names the source inside provenance facts.
	Entity() string
	Available() bool
	Read(ctx context.Context) iter.Seq2[fact.Fact, error]
}

// Sink receives output facts, for example a theme writer.
type Sink interface {
	Write(f fact.Fact) error
}

type themeSource struct {
	theme theme.Theme
	dir   string
}

// FromTheme reads a theme file in dir.
func FromTheme(t theme.Theme, dir string) Source {
	return themeSource{theme: t, dir: dir}
}

func (s themeSource) Name() string    { return s.theme.Name }
func (s themeSource) Entity() string  { return s.theme.Entity() }
func (s themeSource) Available() bool { return s.theme.Available(s.dir) }

func (s themeSource) Read(ctx context.Context) iter.Seq2[fact.Fact, error] {
	return s.theme.Reader(s.dir).Read(ctx)
}

type sliceSource struct {
	name  string
	facts []fact.Fact
}

// FromFacts serves facts held in memory under the given theme name.
func FromFacts(name string, facts ...fact.Fact) Source {
	return sliceSource{name: name, facts: facts}
}

func (s sliceSource) Name() string    { return s.name }
func (s sliceSource) Entity() string  { return fact.ForTheme(s.name) }
func (s sliceSource) Available() bool { return true }

func (s sliceSource) Read(ctx context.Context) iter.Seq2[fact.Fact, error] {
	return func(yield func(fact.Fact, error) bool) {
		for _, f := range s.facts {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// Missing is a source that is never available, standing in for a theme that
// was not produced.
func Missing(name string) Source {
	return missingSource(name)
}

type missingSource string

func (s missingSource) Name() string    { return string(s) }
func (s missingSource) Entity() string  { return fact.ForTheme(string(s)) }
func (s missingSource) Available() bool { return false }

func (s missingSource) Read(context.Context) iter.Seq2[fact.Fact, error] {
	return func(func(fact.Fact, error) bool) {}
}

// Collect adds every fact a sink receives to a slice.
type Collect struct {
	Facts []fact.Fact
}

func (c *Collect) Write(f fact.Fact) error {
	c.Facts = append(c.Facts, f)
	return nil
}
