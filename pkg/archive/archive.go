// Package archive persists finished themes in BadgerDB so that runs can be
// browsed without loading whole theme files.
package archive

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/yago-naga/yago3-sub001/pkg/dict"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/keys"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

var (
	ErrInvalidConfig = errors.New("invalid archive config")
	ErrUnknownTheme  = errors.New("theme not archived")
)

// ThemeInfo describes an archived theme.
type ThemeInfo struct {
	Name  string `json:"name"`
	Facts uint64 `json:"facts"`
}

// Archive stores facts of several themes with interned components and three
// indices per fact.
type Archive struct {
	cfg  *Config
	db   *badger.DB
	dict *dict.Encoder
}

// Open opens or creates an archive.
func Open(cfg *Config) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := badger.Open(buildBadgerOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	enc, err := dict.NewEncoder(db, cfg.LRUCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	return &Archive{cfg: cfg, db: db, dict: enc}, nil
}

// Close releases the archive.
func (a *Archive) Close() error {
	if err := a.dict.Close(); err != nil {
		a.db.Close()
		return err
	}
	return a.db.Close()
}

// Import replaces the archived content of a theme with the theme file in dir.
func (a *Archive) Import(ctx context.Context, t theme.Theme, dir string) (uint64, error) {
	if !t.Available(dir) {
		return 0, fmt.Errorf("%s: %w", t.Name, theme.ErrNotAvailable)
	}
	return a.Put(ctx, t.Name, t.Reader(dir).Read(ctx))
}

// Put replaces the archived content of a theme with the given facts.
func (a *Archive) Put(ctx context.Context, name string, facts iter.Seq2[fact.Fact, error]) (uint64, error) {
	if a.cfg.ReadOnly {
		return 0, fmt.Errorf("%w: archive is read only", ErrInvalidConfig)
	}
	themeID, err := a.dict.GetOrCreateID(name)
	if err != nil {
		return 0, err
	}
	if err := a.drop(themeID); err != nil {
		return 0, err
	}

	var total uint64
	seen := make(map[[3]dict.ID]bool)
	chunk := make([]fact.Fact, 0, a.cfg.BatchSize)
	flush := func() error {
		n, err := a.write(uint64(themeID), chunk, seen)
		total += n
		chunk = chunk[:0]
		return err
	}
	for f, err := range facts {
		if err != nil {
			return total, fmt.Errorf("archiving %s: %w", name, err)
		}
		chunk = append(chunk, f)
		if len(chunk) == cap(chunk) {
			if err := flush(); err != nil {
				return total, err
			}
			if err := ctx.Err(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keys.ThemeKey(uint64(themeID)), keys.EncodeCount(total))
	})
	if err != nil {
		return total, err
	}
	slog.Info("theme archived", "theme", name, "facts", total)
	return total, nil
}

func (a *Archive) write(themeID uint64, facts []fact.Fact, seen map[[3]dict.ID]bool) (uint64, error) {
	if len(facts) == 0 {
		return 0, nil
	}
	symbols := make([]string, 0, 3*len(facts))
	for _, f := range facts {
		symbols = append(symbols, f.Subject, f.Relation, f.Object)
	}
	ids, err := a.dict.GetIDs(symbols)
	if err != nil {
		return 0, fmt.Errorf("failed to intern facts: %w", err)
	}

	batch := a.db.NewWriteBatch()
	defer batch.Cancel()
	var n uint64
	for i := range facts {
		s, r, o := ids[3*i], ids[3*i+1], ids[3*i+2]
		if seen[[3]dict.ID{s, r, o}] {
			continue
		}
		seen[[3]dict.ID{s, r, o}] = true
		for _, index := range keys.Indices {
			if err := batch.Set(keys.Encode(index, themeID, uint64(s), uint64(r), uint64(o)), nil); err != nil {
				return n, err
			}
		}
		n++
	}
	return n, batch.Flush()
}

func (a *Archive) drop(themeID dict.ID) error {
	prefixes := make([][]byte, 0, len(keys.Indices)+1)
	for _, index := range keys.Indices {
		prefixes = append(prefixes, keys.Prefix(index, uint64(themeID), 0, 0))
	}
	prefixes = append(prefixes, keys.ThemeKey(uint64(themeID)))
	return a.db.DropPrefix(prefixes...)
}

// Themes lists the archived themes by name.
func (a *Archive) Themes() ([]ThemeInfo, error) {
	var out []ThemeInfo
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{keys.ThemePrefix}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, ok := keys.DecodeThemeKey(it.Item().Key())
			if !ok {
				continue
			}
			name, err := a.dict.GetString(dict.ID(id))
			if err != nil {
				return err
			}
			var count uint64
			if err := it.Item().Value(func(val []byte) error {
				count = keys.DecodeCount(val)
				return nil
			}); err != nil {
				return err
			}
			out = append(out, ThemeInfo{Name: name, Facts: count})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(x, y ThemeInfo) int { return cmp.Compare(x.Name, y.Name) })
	return out, nil
}

// Theme returns the info of one archived theme.
func (a *Archive) Theme(name string) (ThemeInfo, error) {
	id, err := a.dict.GetID(name)
	if errors.Is(err, dict.ErrNotFound) {
		return ThemeInfo{}, fmt.Errorf("%w: %s", ErrUnknownTheme, name)
	}
	if err != nil {
		return ThemeInfo{}, err
	}
	info := ThemeInfo{Name: name}
	err = a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keys.ThemeKey(uint64(id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownTheme, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			info.Facts = keys.DecodeCount(val)
			return nil
		})
	})
	return info, err
}
