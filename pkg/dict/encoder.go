package dict

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Key prefixes for dictionary entries in BadgerDB.
const (
	dictForwardPrefix = byte(0x80) // symbol -> ID
	dictReversePrefix = byte(0x81) // ID -> symbol
)

// Encoder is a persistent Dictionary backed by BadgerDB, fronted by LRU caches.
type Encoder struct {
	db *badger.DB

	// serialises allocation so one symbol never receives two IDs
	mu sync.Mutex

	forward *expirable.LRU[string, ID]
	reverse *expirable.LRU[ID, string]

	allocator *RangeAllocator
}

// NewEncoder creates an encoder on db. Existing entries are reused.
func NewEncoder(db *badger.DB, cacheSize int) (*Encoder, error) {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	allocator, err := NewRangeAllocator(db, DefaultBlockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create range allocator: %w", err)
	}
	return &Encoder{
		db:        db,
		forward:   expirable.NewLRU[string, ID](cacheSize, nil, 0),
		reverse:   expirable.NewLRU[ID, string](cacheSize, nil, 0),
		allocator: allocator,
	}, nil
}

// GetOrCreateID gets the ID for s, allocating one if needed.
func (e *Encoder) GetOrCreateID(s string) (ID, error) {
	ids, err := e.GetIDs([]string{s})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// GetIDs resolves a batch of symbols, allocating a contiguous range for the new ones.
func (e *Encoder) GetIDs(keys []string) ([]ID, error) {
	results := make([]ID, len(keys))

	type miss struct {
		index int
		key   string
	}
	var misses []miss
	for i, key := range keys {
		if id, ok := e.forward.Get(key); ok {
			results[i] = id
		} else {
			misses = append(misses, miss{index: i, key: key})
		}
	}
	if len(misses) == 0 {
		return results, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var toCreate []miss
	created := make(map[string]ID)
	err := e.db.View(func(txn *badger.Txn) error {
		for _, m := range misses {
			id, err := lookupForward(txn, m.key)
			if errors.Is(err, ErrNotFound) {
				toCreate = append(toCreate, m)
				continue
			}
			if err != nil {
				return err
			}
			results[m.index] = id
			e.remember(m.key, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(toCreate) == 0 {
		return results, nil
	}

	// The same new symbol may occur several times in one batch.
	var fresh []string
	for _, m := range toCreate {
		if _, seen := created[m.key]; !seen {
			created[m.key] = 0
			fresh = append(fresh, m.key)
		}
	}

	slog.Debug("dictionary allocating new IDs", "count", len(fresh))
	start, err := e.allocator.AllocateBatch(uint64(len(fresh)))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate batch: %w", err)
	}

	batch := e.db.NewWriteBatch()
	defer batch.Cancel()
	for i, key := range fresh {
		id := ID(start + uint64(i))
		created[key] = id
		if err := batch.Set(forwardKey(key), encodeID(id)); err != nil {
			return nil, err
		}
		if err := batch.Set(reverseKey(id), []byte(key)); err != nil {
			return nil, err
		}
	}
	if err := batch.Flush(); err != nil {
		return nil, err
	}

	for _, m := range toCreate {
		id := created[m.key]
		results[m.index] = id
		e.remember(m.key, id)
	}
	return results, nil
}

// GetID gets the ID for s without allocating.
func (e *Encoder) GetID(s string) (ID, error) {
	if id, ok := e.forward.Get(s); ok {
		return id, nil
	}
	var id ID
	err := e.db.View(func(txn *badger.Txn) error {
		var err error
		id, err = lookupForward(txn, s)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.remember(s, id)
	return id, nil
}

// GetString gets the symbol for id.
func (e *Encoder) GetString(id ID) (string, error) {
	if s, ok := e.reverse.Get(id); ok {
		return s, nil
	}
	var s string
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reverseKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			s = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	e.remember(s, id)
	return s, nil
}

// Close logs cache statistics. The underlying DB is owned by the caller.
func (e *Encoder) Close() error {
	slog.Info("dictionary closed",
		"forwardCacheLen", e.forward.Len(),
		"reverseCacheLen", e.reverse.Len(),
		"nextID", e.allocator.CurrentID()+1,
	)
	return nil
}

func (e *Encoder) remember(s string, id ID) {
	e.forward.Add(s, id)
	e.reverse.Add(id, s)
}

func lookupForward(txn *badger.Txn, s string) (ID, error) {
	item, err := txn.Get(forwardKey(s))
	if err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var id ID
	err = item.Value(func(val []byte) error {
		id = ID(binary.BigEndian.Uint64(val))
		return nil
	})
	return id, err
}

// forwardKey is [0x80 | symbol bytes].
func forwardKey(s string) []byte {
	key := make([]byte, 1+len(s))
	key[0] = dictForwardPrefix
	copy(key[1:], s)
	return key
}

// reverseKey is [0x81 | id(8)].
func reverseKey(id ID) []byte {
	key := make([]byte, 9)
	key[0] = dictReversePrefix
	binary.BigEndian.PutUint64(key[1:], uint64(id))
	return key
}

func encodeID(id ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}
