package dict

import (
	"encoding/binary"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const (
	// DefaultBlockSize is the number of IDs reserved on disk at once.
	DefaultBlockSize = 10000

	globalCounterKey = "__dict_global_counter"
)

// RangeAllocator hands out IDs from a block reserved in BadgerDB.
// Only the block boundary is persisted; IDs lost in an unfinished block on
// crash are never reused.
type RangeAllocator struct {
	db        *badger.DB
	blockSize uint64

	mu        sync.Mutex
	globalMax uint64 // highest ID reserved on disk
	current   uint64 // highest ID handed out
}

// NewRangeAllocator creates an allocator, resuming after the persisted counter.
func NewRangeAllocator(db *badger.DB, blockSize uint64) (*RangeAllocator, error) {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	r := &RangeAllocator{db: db, blockSize: blockSize}
	if err := r.loadGlobalCounter(); err != nil {
		return nil, err
	}
	r.current = r.globalMax
	return r, nil
}

// Allocate returns one fresh ID.
func (r *RangeAllocator) Allocate() (uint64, error) {
	return r.AllocateBatch(1)
}

// AllocateBatch reserves n consecutive IDs and returns the first one.
func (r *RangeAllocator) AllocateBatch(n uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current+n > r.globalMax {
		grow := r.blockSize
		if n > grow {
			grow = n
		}
		old := r.globalMax
		r.globalMax = r.current + grow
		if err := r.saveGlobalCounter(); err != nil {
			r.globalMax = old
			return 0, err
		}
	}
	start := r.current + 1
	r.current += n
	return start, nil
}

// CurrentID returns the highest ID handed out so far.
func (r *RangeAllocator) CurrentID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *RangeAllocator) loadGlobalCounter() error {
	return r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(globalCounterKey))
		if err == badger.ErrKeyNotFound {
			r.globalMax = 0
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) >= 8 {
				r.globalMax = binary.BigEndian.Uint64(val)
			}
			return nil
		})
	})
}

func (r *RangeAllocator) saveGlobalCounter() error {
	return r.db.Update(func(txn *badger.Txn) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, r.globalMax)
		return txn.Set([]byte(globalCounterKey), buf)
	})
}
