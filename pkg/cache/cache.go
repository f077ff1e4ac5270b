package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache is a small in-memory TTL cache. The hierarchy service uses it to
// answer org/HR code validation lookups without hitting Postgres on every
// registration-form keystroke. Expired entries are dropped lazily on read.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
}

// New creates an empty cache
func New() *Cache {
	return &Cache{items: map[string]entry{}}
}

// Set stores a value under key for the given TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Get returns the live value for key, dropping it if the TTL has passed
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if e.expired(time.Now()) {
		c.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]entry{}
}

// Invalidate removes all entries whose key matches a prefix
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Len reports the number of stored entries, expired or not
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
