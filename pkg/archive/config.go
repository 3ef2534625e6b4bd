package archive

import (
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Config holds the configuration of an archive.
type Config struct {
	// DataDir is the directory where BadgerDB stores its data.
	DataDir string

	// InMemory enables in-memory mode (useful for testing).
	InMemory bool

	// BlockCacheSize is the size of the block cache in bytes.
	BlockCacheSize int64

	// IndexCacheSize is the size of the index cache in bytes.
	IndexCacheSize int64

	// LRUCacheSize is the size of the dictionary LRU cache.
	LRUCacheSize int

	// Compression enables ZSTD compression.
	Compression bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// ReadOnly opens an existing archive for browsing only.
	ReadOnly bool

	// Profile selects a resource profile ("Import-Heavy", "Safe-Serving").
	Profile string

	// BatchSize is the number of facts interned and written together.
	BatchSize int
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.DataDir == "" && !c.InMemory {
		return fmt.Errorf("%w: DataDir must be specified when InMemory is false", ErrInvalidConfig)
	}
	if c.BlockCacheSize <= 0 {
		return fmt.Errorf("%w: BlockCacheSize must be positive, got %d", ErrInvalidConfig, c.BlockCacheSize)
	}
	if c.IndexCacheSize <= 0 {
		return fmt.Errorf("%w: IndexCacheSize must be positive, got %d", ErrInvalidConfig, c.IndexCacheSize)
	}
	if c.LRUCacheSize < 0 {
		return fmt.Errorf("%w: LRUCacheSize must be non-negative, got %d", ErrInvalidConfig, c.LRUCacheSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: BatchSize must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	return nil
}

// DefaultConfig returns a configuration for one run's archive.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:        dataDir,
		BlockCacheSize: 256 << 20,
		IndexCacheSize: 64 << 20,
		LRUCacheSize:   100000,
		Compression:    true,
		Profile:        "Import-Heavy",
		BatchSize:      4096,
	}
}

// buildBadgerOptions converts Config to badger.Options based on Profile.
func buildBadgerOptions(cfg *Config) badger.Options {
	if cfg.InMemory {
		opts := badger.DefaultOptions("")
		opts.InMemory = true
		opts.Logger = nil
		return opts
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.DataDir, "badger"))
	opts.Logger = nil
	// Keys are written once per import, no transactional conflicts to detect.
	opts.DetectConflicts = false
	opts.BloomFalsePositive = 0.01
	opts.ReadOnly = cfg.ReadOnly

	if cfg.Compression {
		opts.Compression = options.ZSTD
	} else {
		opts.Compression = options.None
	}

	switch cfg.Profile {
	case "Safe-Serving":
		opts.ValueLogFileSize = 64 << 20
		opts.NumCompactors = 2
	case "Import-Heavy":
		fallthrough
	default:
		opts.ValueLogFileSize = 256 << 20
		opts.NumCompactors = 4
	}

	opts.BlockCacheSize = cfg.BlockCacheSize
	opts.IndexCacheSize = cfg.IndexCacheSize
	opts.SyncWrites = cfg.SyncWrites
	return opts
}
