package cache

import (
	"sync"
	"time"
)

// entry stores a cached value and its absolute expiration timestamp.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a goroutine-safe map-backed cache where every entry expires.
// Expired entries are dropped lazily on read and in bulk by PurgeExpired.
// When MaxEntries is reached, Set purges expired entries and, if still full,
// refuses the new key.
type TTLCache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]entry[V]
	maxEntries int
	now        func() time.Time
}

// Options controls construction of a TTLCache.
type Options struct {
	// MaxEntries caps the number of stored keys. Zero means unbounded.
	MaxEntries int
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

func New[K comparable, V any](opts Options) *TTLCache[K, V] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TTLCache[K, V]{
		items:      make(map[K]entry[V]),
		maxEntries: opts.MaxEntries,
		now:        now,
	}
}

// Get returns the value and whether it was present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.dropIfExpired(key)
		return zero, false
	}
	return e.value, true
}

// dropIfExpired rechecks under the write lock so a concurrent Set is kept.
func (c *TTLCache[K, V]) dropIfExpired(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok && !c.now().Before(e.expiresAt) {
		delete(c.items, key)
	}
}

// Set stores value for ttl. Non-positive ttls are ignored.
// It reports whether the value was stored.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.purgeLocked(now)
		if len(c.items) >= c.maxEntries {
			return false
		}
	}
	c.items[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts stored entries, including expired ones not yet purged.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// PurgeExpired scans and removes expired entries.
func (c *TTLCache[K, V]) PurgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked(c.now())
}

func (c *TTLCache[K, V]) purgeLocked(now time.Time) {
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
}
