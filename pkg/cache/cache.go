// Package cache provides a size-bounded, mutex-guarded LRU used for the
// process-wide color and thumbnail caches.
package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Bounded is a strict LRU cache. All access, including the compute step of
// GetOrCompute, is serialized by a single mutex so concurrent callers never
// compute the same key twice.
type Bounded[K comparable, V any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU[K, V]
}

// New creates a cache holding at most size entries
func New[K comparable, V any](size int) *Bounded[K, V] {
	if size < 1 {
		size = 1
	}
	l, err := simplelru.NewLRU[K, V](size, nil)
	if err != nil {
		// only returned for size <= 0
		panic(err)
	}
	return &Bounded[K, V]{lru: l}
}

// Get returns a cached value
func (c *Bounded[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Add inserts or replaces a value, evicting the least recently used entry
// once the bound is exceeded
func (c *Bounded[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, value)
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Errors from compute are not cached.
func (c *Bounded[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.lru.Add(key, v)
	return v, nil
}

// Remove drops a key
func (c *Bounded[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// RemoveFunc drops every key for which match returns true
func (c *Bounded[K, V]) RemoveFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.lru.Keys() {
		if match(k) {
			c.lru.Remove(k)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries
func (c *Bounded[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge empties the cache
func (c *Bounded[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
