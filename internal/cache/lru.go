// Package cache provides the in-process LRU used for the short-TTL live
// lookup layer and for memoizing query embeddings.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key     string
	value   V
	expires time.Time
	element *list.Element
}

// LRU is a size-bounded cache with per-entry expiry. It is safe for
// concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry[V]
	order    *list.List
	now      func() time.Time
}

// NewLRU creates a cache holding at most capacity entries. A zero ttl keeps
// entries until they are evicted.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	return NewLRUWithClock[V](capacity, ttl, time.Now)
}

// NewLRUWithClock is NewLRU with expiry measured by now.
func NewLRUWithClock[V any](capacity int, ttl time.Duration, now func() time.Time) *LRU[V] {
	if capacity <= 0 {
		capacity = 512
	}
	if now == nil {
		now = time.Now
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry[V], capacity),
		order:    list.New(),
		now:      now,
	}
}

func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		if ent.expires.IsZero() || c.now().Before(ent.expires) {
			c.order.MoveToFront(ent.element)
			return ent.value, true
		}
		c.removeEntry(ent)
	}
	var zero V
	return zero, false
}

// Set stores value under key. A non-positive ttl uses the cache default.
func (c *LRU[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		ent.value = value
		ent.expires = c.computeExpiry(ttl)
		c.order.MoveToFront(ent.element)
		return
	}
	if len(c.items) >= c.capacity {
		c.evictOldest()
	}
	elem := c.order.PushFront(key)
	c.items[key] = &entry[V]{
		key:     key,
		value:   value,
		expires: c.computeExpiry(ttl),
		element: elem,
	}
}

func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.removeEntry(ent)
	}
}

// Purge drops every entry.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry[V], c.capacity)
	c.order.Init()
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[V]) computeExpiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *LRU[V]) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	if ent, ok := c.items[elem.Value.(string)]; ok {
		c.removeEntry(ent)
	}
}

func (c *LRU[V]) removeEntry(ent *entry[V]) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}
