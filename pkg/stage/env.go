package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/merge"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

// Env is what a stage sees of a run. External themes are read from InputDir,
// themes produced in the run live in OutputDir.
type Env struct {
	InputDir  string
	OutputDir string
	RunLabel  string
	Compress  bool
	Cache     *theme.Cache
	Registry  *theme.Registry
	Logger    *slog.Logger
}

// NewEnv creates the environment of one run with a fresh theme cache.
func NewEnv(inputDir, outputDir, runLabel string) *Env {
	return &Env{
		InputDir:  inputDir,
		OutputDir: outputDir,
		RunLabel:  runLabel,
		Cache:     theme.NewCache(theme.DefaultCacheSize),
		Registry:  theme.NewRegistry(),
		Logger:    slog.Default().With("run", runLabel),
	}
}

// Theme resolves a theme name, falling back to an undeclared theme.
func (e *Env) Theme(name string) theme.Theme {
	if e.Registry != nil {
		if t, ok := e.Registry.Theme(name); ok {
			return t
		}
	}
	return theme.New(name, "")
}

// Dir returns the directory holding the theme.
func (e *Env) Dir(name string) string {
	if e.Registry != nil && e.Registry.Produced(name) {
		return e.OutputDir
	}
	if e.Theme(name).Available(e.OutputDir) {
		return e.OutputDir
	}
	return e.InputDir
}

// Available reports whether the theme can be read.
func (e *Env) Available(name string) bool {
	return e.Theme(name).Available(e.Dir(name))
}

// Source opens the theme as a merge input.
func (e *Env) Source(name string) merge.Source {
	return merge.FromTheme(e.Theme(name), e.Dir(name))
}

// FactCollection materializes a theme through the run cache.
func (e *Env) FactCollection(ctx context.Context, name string) (*factstore.Store, error) {
	t := e.Theme(name)
	if e.Cache == nil {
		return t.FactCollection(ctx, e.Dir(name))
	}
	return e.Cache.FactCollection(ctx, t, e.Dir(name))
}

// Load reads the available themes into one fresh store; missing ones are
// skipped with a warning.
func (e *Env) Load(ctx context.Context, names []string) (*factstore.Store, error) {
	store := factstore.NewStore()
	for _, name := range names {
		if !e.Available(name) {
			e.logger().Warn("input theme not available, skipping", "theme", name)
			continue
		}
		if err := e.Theme(name).LoadInto(ctx, e.Dir(name), store, nil); err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return store, nil
}

// Create opens a writer for an output theme.
func (e *Env) Create(name string) (*theme.Writer, error) {
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return e.Theme(name).Create(e.OutputDir, e.Compress)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
