package theme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

var (
	ErrNotAvailable   = errors.New("theme not available")
	ErrAlreadyClosed  = errors.New("theme writer already closed")
	ErrUnknownTheme   = errors.New("unknown theme")
	ErrDuplicateTheme = errors.New("theme has more than one producer")
	ErrCycle          = errors.New("theme dependency cycle")
)

const (
	plainExt      = ".tsv"
	compressedExt = ".tsv.s2"
	partialExt    = ".partial"
)

// Theme is a named, append-only set of facts materialized as a file.
type Theme struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Group       string `yaml:"group,omitempty" json:"group,omitempty"`
}

// New creates a theme.
func New(name, description string) Theme {
	return Theme{Name: name, Description: description}
}

func (t Theme) String() string {
	return t.Name
}

// Entity returns the entity that names the theme inside facts.
func (t Theme) Entity() string {
	return fact.ForTheme(t.Name)
}

// File returns the path of the theme in dir, plain or compressed.
func (t Theme) File(dir string, compressed bool) string {
	if compressed {
		return filepath.Join(dir, t.Name+compressedExt)
	}
	return filepath.Join(dir, t.Name+plainExt)
}

// Locate returns the existing file of the theme in dir.
func (t Theme) Locate(dir string) (string, bool) {
	for _, compressed := range []bool{false, true} {
		p := t.File(dir, compressed)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Available reports whether the theme was completely written to dir.
// A theme still being written lives under a partial name and is not available.
func (t Theme) Available(dir string) bool {
	_, ok := t.Locate(dir)
	return ok
}

// FactCollection loads the whole theme into a new store.
func (t Theme) FactCollection(ctx context.Context, dir string) (*factstore.Store, error) {
	store := factstore.NewStore()
	if err := t.LoadInto(ctx, dir, store, nil); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadInto adds every fact of the theme to store and returns the first read error.
func (t Theme) LoadInto(ctx context.Context, dir string, store *factstore.Store, functional factstore.RelationSet) error {
	r := t.Reader(dir)
	for f, err := range r.Read(ctx) {
		if err != nil {
			return fmt.Errorf("load theme %s: %w", t.Name, err)
		}
		store.Add(f, functional)
	}
	return nil
}

// Discover lists the available themes in dir in lexical order. Statistics
// files, whose names start with an underscore, are not themes.
func Discover(dir string) ([]Theme, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []Theme
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), compressedExt)
		if !ok {
			name, ok = strings.CutSuffix(e.Name(), plainExt)
		}
		if ok && !seen[name] {
			seen[name] = true
			out = append(out, New(name, ""))
		}
	}
	slices.SortFunc(out, func(a, b Theme) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
