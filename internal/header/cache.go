package header

import (
	"sync"
	"time"
)

// DefaultTTL is how long extracted headers stay memoized. Header extraction
// for workbooks means spooling the whole blob, so rapid UI round-trips
// (validate, map columns, confirm) should not repeat it.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	headers []string
	expires time.Time
}

// Cache is a process-wide expiring memo of extracted header sets, keyed by
// storage location and blob key. A miss is always safe — it just re-triggers
// extraction — so there is no invalidation beyond TTL expiry.
//
// The clock is injectable so tests can advance time deterministically.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a Cache with the given TTL. A non-positive ttl falls back
// to DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the cache's time source. Test hook.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the memoized header set for key, if present and unexpired.
func (c *Cache) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.headers, true
}

// Set memoizes a header set under key until TTL expiry.
func (c *Cache) Set(key string, headers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{headers: headers, expires: c.now().Add(c.ttl)}
}
