// Package cache provides a size-bounded, time-expiring key/value store.
//
// TTLCache combines two independent eviction forces. Entries older than the
// TTL are treated as absent and dropped lazily when read. When a new key is
// inserted into a full cache, the least-recently-used entry is evicted first.
// Reads refresh recency; expired reads do not.
package cache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Clock supplies the current time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// TTLCache is a generic LRU cache with per-entry expiry.
// It is safe for concurrent use.
type TTLCache[K comparable, V any] struct {
	mu       sync.Mutex
	lru      *lru.Cache
	capacity int
	ttl      time.Duration
	clock    Clock

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// New creates a TTLCache holding at most capacity entries, each valid for ttl.
// A capacity <= 0 disables LRU eviction. A ttl <= 0 disables expiry.
func New[K comparable, V any](capacity int, ttl time.Duration, opts ...Option) *TTLCache[K, V] {
	o := options{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if capacity < 0 {
		capacity = 0
	}
	return &TTLCache[K, V]{
		// Capacity is enforced in Set so evictions can be counted; the
		// underlying list only tracks recency.
		lru:      lru.New(0),
		capacity: capacity,
		ttl:      ttl,
		clock:    o.clock,
	}
}

// Get returns the value for key if it is present and fresh.
// An expired entry is removed and reported as a miss.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	raw, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return zero, false
	}
	e := raw.(entry[V])
	if c.expired(e) {
		c.lru.Remove(key)
		c.misses++
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set inserts or overwrites key with the current timestamp.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity > 0 {
		if _, exists := c.lru.Get(key); !exists {
			for c.lru.Len() >= c.capacity {
				c.lru.RemoveOldest()
				c.evictions++
			}
		}
	}
	c.lru.Add(key, entry[V]{value: value, insertedAt: c.clock.Now()})
}

// Delete removes key if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Clear removes every entry. Counters are kept.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

// Len returns the number of stored entries, including expired ones that
// have not been read since they expired.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// TTL returns the configured entry lifetime.
func (c *TTLCache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *TTLCache[K, V]) expired(e entry[V]) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.clock.Now().Sub(e.insertedAt) >= c.ttl
}
