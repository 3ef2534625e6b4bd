package theme

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

// Node is one producer in the dependency graph: it reads Inputs (and
// Optional inputs, if they exist) and writes Outputs.
type Node struct {
	Name     string
	Inputs   []string
	Optional []string
	Outputs  []Theme
}

// Registry knows every theme of a run and which node produces it.
// It is built once before anything runs and validated as a whole.
type Registry struct {
	themes    map[string]Theme
	producers map[string]string
	nodes     map[string]Node
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		themes:    make(map[string]Theme),
		producers: make(map[string]string),
		nodes:     make(map[string]Node),
	}
}

// Declare records a theme that is produced outside the run.
func (r *Registry) Declare(themes ...Theme) {
	for _, t := range themes {
		if _, ok := r.themes[t.Name]; !ok {
			r.themes[t.Name] = t
		}
	}
}

// Register adds a producer. Each theme may have at most one producer.
func (r *Registry) Register(n Node) error {
	if _, dup := r.nodes[n.Name]; dup {
		return fmt.Errorf("node %q registered twice", n.Name)
	}
	for _, t := range n.Outputs {
		if other, ok := r.producers[t.Name]; ok {
			return fmt.Errorf("%w: %s is written by %s and %s", ErrDuplicateTheme, t.Name, other, n.Name)
		}
	}
	for _, t := range n.Outputs {
		r.producers[t.Name] = n.Name
		r.themes[t.Name] = t
	}
	r.nodes[n.Name] = n
	r.order = append(r.order, n.Name)
	return nil
}

// Theme looks up a theme by name.
func (r *Registry) Theme(name string) (Theme, bool) {
	t, ok := r.themes[name]
	return t, ok
}

// Producer returns the node writing the theme, or "" for external themes.
func (r *Registry) Producer(name string) string {
	return r.producers[name]
}

// Produced reports whether a node of the run writes the theme.
func (r *Registry) Produced(name string) bool {
	_, ok := r.producers[name]
	return ok
}

// Themes returns all known theme names in lexical order.
func (r *Registry) Themes() []string {
	out := make([]string, 0, len(r.themes))
	for name := range r.themes {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Validate checks the whole graph before anything runs: every required input
// is produced in the run or is an available external theme, and there are no
// cycles. Missing optional inputs are only reported.
func (r *Registry) Validate(available func(Theme) bool) error {
	var problems []error
	for _, name := range r.order {
		n := r.nodes[name]
		for _, in := range n.Inputs {
			if err := r.checkInput(in, available); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", name, err))
			}
		}
		for _, in := range n.Optional {
			if err := r.checkInput(in, available); err != nil {
				slog.Warn("optional input missing", "node", name, "theme", in, "error", err)
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid theme graph: %w", errors.Join(problems...))
	}
	_, err := r.Waves()
	return err
}

func (r *Registry) checkInput(name string, available func(Theme) bool) error {
	if r.Produced(name) {
		return nil
	}
	t, ok := r.themes[name]
	if !ok {
		if s := r.Suggest(name); s != "" {
			return fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownTheme, name, s)
		}
		return fmt.Errorf("%w %q", ErrUnknownTheme, name)
	}
	if available != nil && !available(t) {
		return fmt.Errorf("%w: %s", ErrNotAvailable, name)
	}
	return nil
}

// Waves orders the nodes so that every node comes after the producers of its
// inputs. Nodes in the same wave do not depend on each other.
func (r *Registry) Waves() ([][]string, error) {
	deps := make(map[string]map[string]bool, len(r.nodes))
	for _, name := range r.order {
		n := r.nodes[name]
		deps[name] = make(map[string]bool)
		for _, in := range slices.Concat(n.Inputs, n.Optional) {
			if p, ok := r.producers[in]; ok && p != name {
				deps[name][p] = true
			} else if ok && p == name {
				return nil, fmt.Errorf("%w: %s reads its own output %s", ErrCycle, name, in)
			}
		}
	}

	done := make(map[string]bool, len(r.nodes))
	var waves [][]string
	for len(done) < len(r.nodes) {
		var wave []string
		for _, name := range r.order {
			if done[name] {
				continue
			}
			ready := true
			for p := range deps[name] {
				if !done[p] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, name)
			}
		}
		if len(wave) == 0 {
			var stuck []string
			for _, name := range r.order {
				if !done[name] {
					stuck = append(stuck, name)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
		}
		for _, name := range wave {
			done[name] = true
		}
		waves = append(waves, wave)
	}
	return waves, nil
}

// Suggest returns the known theme name closest to name, if any is close enough.
func (r *Registry) Suggest(name string) string {
	best, bestDist := "", -1
	limit := max(2, len(name)/3)
	for _, known := range r.Themes() {
		d := levenshtein.Distance(strings.ToLower(name), strings.ToLower(known), nil)
		if d <= limit && (bestDist < 0 || d < bestDist) {
			best, bestDist = known, d
		}
	}
	return best
}
