// Package cache provides a generic, thread-safe LRU cache. The host uses
// it for derived artifacts that are expensive to rebuild per request,
// such as compiled JSON schemas.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Stats holds cumulative cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// LRU is a thread-safe least-recently-used cache.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry[V any] struct {
	key   string
	value V
}

// NewLRU creates an LRU cache holding at most maxSize entries. Sizes
// below one fall back to a default of 128.
func NewLRU[V any](maxSize int) *LRU[V] {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &LRU[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value by key and marks it as recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		var zero V
		c.misses.Add(1)
		return zero, false
	}
	c.order.MoveToFront(element)
	c.hits.Add(1)
	return element.Value.(*entry[V]).value, true
}

// Set stores a value, evicting the least recently used entry when the
// cache is full. Returns true when a new entry was created.
func (c *LRU[V]) Set(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.items[key]; exists {
		element.Value.(*entry[V]).value = value
		c.order.MoveToFront(element)
		return false
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	if len(c.items) > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(*entry[V]).key)
			c.order.Remove(oldest)
			c.evictions.Add(1)
		}
	}
	return true
}

// Delete removes an entry by key. Returns true if the key existed.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}
	delete(c.items, key)
	c.order.Remove(element)
	return true
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the current number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
	}
}
