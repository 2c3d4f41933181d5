package math32

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Cache is a generic LRU cache structure. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	capacity int
	ll       *list.List          // most recently used at the front
	cache    map[K]*list.Element // key -> list element
	mu       sync.Mutex
	hits     atomic.Int64
	misses   atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewCache creates a new LRU cache, capacity must be greater than 0.
func NewCache[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		panic("lru: capacity must be greater than 0")
	}
	return &Cache[K, V]{
		capacity: capacity,
		ll:       list.New(),
		cache:    make(map[K]*list.Element, capacity),
	}
}

// Get returns the cached value and true, or the zero value and false.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.cache[key]
	if !ok {
		c.misses.Add(1)
		return
	}

	// Reordering mutates the list, so Get takes the full lock.
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return el.Value.(*entry[K, V]).value, true
}

// Put inserts or refreshes a value, evicting the least recently used entry
// when over capacity.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.cache[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.ll.MoveToFront(el)
		return
	}

	c.cache[key] = c.ll.PushFront(&entry[K, V]{key, value})
	if c.ll.Len() > c.capacity {
		c.removeOldest()
	}
}

func (c *Cache[K, V]) removeOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.cache, el.Value.(*entry[K, V]).key)
}

// Len returns the number of elements in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity returns the capacity of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Clear drops every entry and resets the counters.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.cache = make(map[K]*list.Element, c.capacity)
	c.hits.Store(0)
	c.misses.Store(0)
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Capacity int     `json:"capacity"`
	Size     int     `json:"size"`
}

// Stats returns the current counters.
func (c *Cache[K, V]) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	stats := CacheStats{
		Hits:     hits,
		Misses:   misses,
		Capacity: c.capacity,
		Size:     c.Len(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}
