// Package cache provides short-TTL memoization of remote read results,
// so repeated reads of a hot key cost at most one round trip per TTL
// window. Confirmed-absent keys are memoized too; re-asking the peer
// for a key it just said it does not have is the same wasted round
// trip as re-asking for a value.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the default lifetime of a cached read.
const DefaultTTL = 30 * time.Second

// entry is a cached read result with its expiry deadline. absent
// records a confirmed missing key.
type entry struct {
	value     string
	absent    bool
	expiresAt time.Time
}

// Cache is a TTL read cache. Entries expire on their deadline and are
// invalidated by any local write for the same key, so a read can never
// observe a value staler than what this instance itself wrote.
type Cache struct {
	mu   sync.Mutex
	data map[string]entry
	ttl  time.Duration
}

// New creates a cache with the given TTL. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{data: make(map[string]entry), ttl: ttl}
}

// Get returns the cached read result while it is still fresh. hit
// reports whether a live entry exists at all; found is false when the
// entry records a confirmed-absent key. An expired entry is a miss and
// is removed.
func (c *Cache) Get(key string) (value string, found, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return "", false, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.data, key)
		return "", false, false
	}
	return e.value, !e.absent, true
}

// Set stores value with expiry now+TTL.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// SetAbsent records that the peer confirmed key does not exist, with
// the same expiry as a value.
func (c *Cache) SetAbsent(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{absent: true, expiresAt: time.Now().Add(c.ttl)}
}

// Invalidate drops the entry for key, if any. Called on every local
// write for that key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Sweep removes all expired entries and returns how many were dropped.
// The adapter calls this periodically so long-idle keys do not pin
// memory between reads.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	dropped := 0
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of entries, including not-yet-swept expired
// ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
