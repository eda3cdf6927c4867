// Package cache implements the three process-wide, LRU-bounded caches
// named in spec §9 ("Global state"): chunk cache, index cache, and
// query-result cache. Each is keyed by a string built from
// (sessionId, contextId, ...) so invalidation can scan for a
// (session, context) key prefix per invariant M1.
package cache

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is any cached payload; the content-hash sidecar lets a lookup
// detect a stale entry without a separate invalidation pass.
type Entry[V any] struct {
	Value       V
	ContentHash string
}

// Cache is a generic, prefix-invalidatable LRU cache.
type Cache[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[string, Entry[V]]
}

// New builds a Cache bounded to size entries.
func New[V any](size int) *Cache[V] {
	if size <= 0 {
		size = 1
	}
	l, _ := lru.New[string, Entry[V]](size)
	return &Cache[V]{lru: l}
}

// Get returns the cached value only when contentHash matches; a stale
// entry is dropped and treated as a miss.
func (c *Cache[V]) Get(key, contentHash string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if e.ContentHash != contentHash {
		c.lru.Remove(key)
		return zero, false
	}
	return e.Value, true
}

// Put stores value under key bound to contentHash.
func (c *Cache[V]) Put(key, contentHash string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, Entry[V]{Value: value, ContentHash: contentHash})
}

// InvalidatePrefix drops every entry whose key has the given prefix. Used
// on every content mutation per invariant M1, and must be idempotent and
// safe to call under a session's write lock.
func (c *Cache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}

// Len reports the current entry count, for the metrics gauge.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Key builds the canonical (session, context, ...) cache key. A bare
// (session, context) prefix built with Key(session, context) is also a
// valid InvalidatePrefix argument since Go string concatenation makes it
// a prefix of every longer key built from the same parts.
func Key(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
