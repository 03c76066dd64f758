// Package cache memoizes per-subfolder image listings. The cache is purely
// an optimization: disabling it changes latency, never observable results.
package cache

import (
	"sync"
	"time"
)

// entry is one cached listing with its build timestamp.
type entry struct {
	images  []string
	builtAt time.Time
}

// ListingCache stores image listings keyed by subfolder name ("" = root).
// Entries are dropped by explicit invalidation or by TTL expiry; a zero TTL
// means entries never expire on their own.
type ListingCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

// New creates a ListingCache with the given TTL. ttl <= 0 disables expiry.
func New(ttl time.Duration) *ListingCache {
	return &ListingCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the cached listing for subfolder, or ok=false on a miss or an
// expired entry. The returned slice is shared and must not be mutated.
func (c *ListingCache) Get(subfolder string) ([]string, bool) {
	c.mu.RLock()
	e, ok := c.entries[subfolder]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.builtAt) >= c.ttl {
		c.Invalidate(subfolder)
		return nil, false
	}
	return e.images, true
}

// Put stores a listing for subfolder, replacing any prior entry.
func (c *ListingCache) Put(subfolder string, images []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[subfolder] = entry{images: images, builtAt: time.Now()}
}

// Invalidate drops the entry for one subfolder.
func (c *ListingCache) Invalidate(subfolder string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, subfolder)
}

// InvalidateAll drops every cached entry.
func (c *ListingCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of cached entries, expired or not.
func (c *ListingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// BuiltAt returns when the entry for subfolder was stored, if present.
func (c *ListingCache) BuiltAt(subfolder string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[subfolder]
	return e.builtAt, ok
}
