package cache

import (
	"sync"
	"time"
)

// Cache is an in-memory TTL cache. Expired entries are evicted lazily on
// read instead of by a background sweeper; the working set here is small
// (one entry per active user).
type Cache struct {
	mu    sync.RWMutex
	items map[string]*item
	now   func() time.Time
}

type item struct {
	value      interface{}
	expiration time.Time
}

// New creates a new cache
func New() *Cache {
	return &Cache{
		items: make(map[string]*item),
		now:   time.Now,
	}
}

// Get retrieves a value. The second return is false for missing or expired keys.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if c.now().After(it.expiration) {
		c.Delete(key)
		return nil, false
	}
	return it.value, true
}

// Set stores a value with a TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{
		value:      value,
		expiration: c.now().Add(ttl),
	}
}

// Delete removes a key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*item)
}
