package theme

import (
	"context"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

// DefaultCacheSize is the number of materialized themes a pass keeps.
const DefaultCacheSize = 16

// Cache keeps materialized themes for the duration of one pass.
// Create it when the pass starts and Purge it when the pass ends.
type Cache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *factstore.Store]
}

// NewCache creates a cache holding up to size themes.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, _ := lru.New[string, *factstore.Store](size)
	return &Cache{cache: c}
}

// FactCollection returns the materialized theme, loading it on first use.
// Callers must treat the returned store as read only.
func (c *Cache) FactCollection(ctx context.Context, t Theme, dir string) (*factstore.Store, error) {
	key := filepath.Join(dir, t.Name)
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}
	s, err := t.FactCollection(ctx, dir)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, s)
	return s, nil
}

// Len returns the number of cached themes.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Purge releases every cached theme.
func (c *Cache) Purge() {
	c.cache.Purge()
}
