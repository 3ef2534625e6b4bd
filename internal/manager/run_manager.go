package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yago-naga/yago3-sub001/pkg/archive"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrNotArchived = errors.New("run has no archive")
)

// ArchiveDir is the directory of a run holding its archive.
const ArchiveDir = "archive"

// MemoryProfile defines the memory optimization strategy
type MemoryProfile string

const (
	MemoryProfileDefault MemoryProfile = "default"
	MemoryProfileLow     MemoryProfile = "low"
	MaxOpenArchives                    = 10
	RunListTTL                         = 1 * time.Minute
)

// RunInfo describes one run directory.
type RunInfo struct {
	ID       string    `json:"id"`
	Themes   int       `json:"themes"`
	Archived bool      `json:"archived"`
	Modified time.Time `json:"modified"`
}

// RunManager serves the runs found under a data directory: their theme
// files, materialized themes and archives.
type RunManager struct {
	baseDir       string
	archives      *lru.Cache[string, *archive.Archive]
	themes        *theme.Cache
	mu            sync.RWMutex
	profile       MemoryProfile
	readOnly      bool
	cachedList    []RunInfo
	lastListBuild time.Time
}

// NewRunManager creates a RunManager.
func NewRunManager(baseDir string, profile MemoryProfile, readOnly bool) *RunManager {
	// Evicted archives are closed.
	cache, _ := lru.NewWithEvict[string, *archive.Archive](MaxOpenArchives, func(key string, value *archive.Archive) {
		_ = value.Close()
	})
	return &RunManager{
		baseDir:  baseDir,
		archives: cache,
		themes:   theme.NewCache(theme.DefaultCacheSize),
		profile:  profile,
		readOnly: readOnly,
	}
}

// BaseDir returns the data directory.
func (rm *RunManager) BaseDir() string {
	return rm.baseDir
}

// RunDir returns the directory of a run.
func (rm *RunManager) RunDir(runID string) (string, error) {
	if runID == "" || runID != filepath.Base(runID) || runID == "." || runID == ".." {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	dir := filepath.Join(rm.baseDir, runID)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return dir, nil
}

// Themes lists the theme files of a run.
func (rm *RunManager) Themes(runID string) ([]theme.Theme, error) {
	dir, err := rm.RunDir(runID)
	if err != nil {
		return nil, err
	}
	return theme.Discover(dir)
}

// Theme resolves an available theme of a run.
func (rm *RunManager) Theme(runID, name string) (theme.Theme, string, error) {
	dir, err := rm.RunDir(runID)
	if err != nil {
		return theme.Theme{}, "", err
	}
	t := theme.New(name, "")
	if !t.Available(dir) {
		return theme.Theme{}, "", fmt.Errorf("%w: %s/%s", theme.ErrNotAvailable, runID, name)
	}
	return t, dir, nil
}

// Load materializes the named themes of a run into one store. The themes
// themselves are cached between calls.
func (rm *RunManager) Load(ctx context.Context, runID string, names []string) (*factstore.Store, error) {
	if len(names) == 1 {
		t, dir, err := rm.Theme(runID, names[0])
		if err != nil {
			return nil, err
		}
		return rm.themes.FactCollection(ctx, t, dir)
	}
	out := factstore.NewStore()
	for _, name := range names {
		t, dir, err := rm.Theme(runID, name)
		if err != nil {
			return nil, err
		}
		s, err := rm.themes.FactCollection(ctx, t, dir)
		if err != nil {
			return nil, err
		}
		out.AddAll(s.All(), nil)
	}
	return out, nil
}

// Archive retrieves the archive of a run, opening it if necessary.
func (rm *RunManager) Archive(runID string) (*archive.Archive, error) {
	if a, ok := rm.archives.Get(runID); ok {
		return a, nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if a, ok := rm.archives.Get(runID); ok {
		return a, nil
	}
	dir, err := rm.RunDir(runID)
	if err != nil {
		return nil, err
	}
	archiveDir := filepath.Join(dir, ArchiveDir)
	if rm.readOnly {
		if _, err := os.Stat(archiveDir); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotArchived, runID)
		}
	}

	cfg := archive.DefaultConfig(archiveDir)
	cfg.ReadOnly = rm.readOnly
	if rm.profile == MemoryProfileLow {
		cfg.BlockCacheSize = 64 << 20
		cfg.IndexCacheSize = 32 << 20
		cfg.Profile = "Safe-Serving"
	}

	a, err := archive.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive for run %s: %w", runID, err)
	}
	rm.archives.Add(runID, a)
	return a, nil
}

// ListRuns returns the runs of the data directory.
func (rm *RunManager) ListRuns() ([]RunInfo, error) {
	rm.mu.RLock()
	if time.Since(rm.lastListBuild) < RunListTTL && rm.cachedList != nil {
		list := make([]RunInfo, len(rm.cachedList))
		copy(list, rm.cachedList)
		rm.mu.RUnlock()
		return list, nil
	}
	rm.mu.RUnlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()

	entries, err := os.ReadDir(rm.baseDir)
	if err != nil {
		return nil, err
	}
	runs := []RunInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(rm.baseDir, entry.Name())
		themes, err := theme.Discover(dir)
		if err != nil {
			continue
		}
		info := RunInfo{ID: entry.Name(), Themes: len(themes)}
		if st, err := entry.Info(); err == nil {
			info.Modified = st.ModTime()
		}
		if st, err := os.Stat(filepath.Join(dir, ArchiveDir)); err == nil && st.IsDir() {
			info.Archived = true
		}
		runs = append(runs, info)
	}

	rm.cachedList = runs
	rm.lastListBuild = time.Now()
	list := make([]RunInfo, len(runs))
	copy(list, runs)
	return list, nil
}

// Invalidate drops cached listings and themes, e.g. after a new run.
func (rm *RunManager) Invalidate() {
	rm.mu.Lock()
	rm.cachedList = nil
	rm.mu.Unlock()
	rm.themes.Purge()
}

// CloseAll closes all open archives and releases cached themes.
func (rm *RunManager) CloseAll() {
	rm.archives.Purge()
	rm.themes.Purge()
}
