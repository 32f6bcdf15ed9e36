package cache

import (
	"sync"
	"time"
)

// Cache is an in-memory key/value store with time-based eviction.
// An entry expires once it has not been read or written for longer than
// the configured TTL. There is no size bound.
//
// Expired entries are removed lazily on read and by a background sweep that
// is only scheduled while the store holds entries. Call Dispose during
// shutdown to cancel a pending sweep.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	entries  map[K]*entry[V]
	timer    *time.Timer
	disposed bool
}

type entry[V any] struct {
	value        V
	lastAccessed time.Time
}

// New creates a cache with the given time-to-live.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return NewWithClock[K, V](ttl, time.Now)
}

// NewWithClock creates a cache that reads time from now. Used by tests.
func NewWithClock[K comparable, V any](ttl time.Duration, now func() time.Time) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:      ttl,
		interval: sweepInterval(ttl),
		now:      now,
		entries:  make(map[K]*entry[V]),
	}
}

// sweepInterval runs the sweep slightly after the TTL so that an entry
// written right before a sweep is not kept alive for two full periods.
func sweepInterval(ttl time.Duration) time.Duration {
	return ttl + ttl/10 + time.Millisecond
}

// Get returns the cached value and refreshes its last access time.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return zero, false
	}
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	now := c.now()
	if now.Sub(e.lastAccessed) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	e.lastAccessed = now
	return e.value, true
}

// Set stores a value. Writes after Dispose are ignored.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.entries[key] = &entry[V]{value: value, lastAccessed: c.now()}
	c.scheduleLocked()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Dispose cancels any pending sweep and releases the storage.
func (c *Cache[K, V]) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.entries = make(map[K]*entry[V])
	c.disposed = true
}

func (c *Cache[K, V]) scheduleLocked() {
	if c.timer != nil || c.disposed || len(c.entries) == 0 {
		return
	}
	c.timer = time.AfterFunc(c.interval, c.sweep)
}

func (c *Cache[K, V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timer = nil
	if c.disposed {
		return
	}
	c.removeExpiredLocked()
	c.scheduleLocked()
}

func (c *Cache[K, V]) removeExpiredLocked() {
	cutoff := c.now().Add(-c.ttl)
	for key, e := range c.entries {
		if e.lastAccessed.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
