package logic

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of compiled conditions kept by NewCache
// when size is not positive.
const DefaultCacheSize = 1024

// Cache holds compiled programs keyed by condition string. Compile
// failures are cached too since they are deterministic. Once full, new
// programs are still compiled but not stored.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	size    int
	group   singleflight.Group
}

type cacheEntry struct {
	prog *Program
	err  error
}

// NewCache creates a cache holding at most size programs.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		size:    size,
	}
}

// Len returns the number of cached conditions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) get(key string, compile func() (*Program, error)) (*Program, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e.prog, e.err
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		prog, err := compile()
		c.mu.Lock()
		if len(c.entries) < c.size {
			c.entries[key] = cacheEntry{prog: prog, err: err}
		}
		c.mu.Unlock()
		return prog, err
	})
	prog, _ := v.(*Program)
	return prog, err
}
