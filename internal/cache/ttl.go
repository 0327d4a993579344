// Package cache provides a size-bounded, time-bounded in-memory cache.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// TTL is a concurrency-safe map whose entries expire after a fixed age and
// which evicts the oldest insertion once capacity is reached. An optional
// copy function is applied on both Set and Get so callers never share
// memory with the cached value.
type TTL[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	copyFn   func(V) V
	now      func() time.Time

	items map[K]*list.Element
	order *list.List // front = oldest insertion
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// Option configures a TTL cache.
type Option[K comparable, V any] func(*TTL[K, V])

// WithCopy sets the deep copy function applied on Set and Get.
func WithCopy[K comparable, V any](fn func(V) V) Option[K, V] {
	return func(c *TTL[K, V]) { c.copyFn = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *TTL[K, V]) { c.now = now }
}

// NewTTL creates a cache holding at most capacity entries for at most ttl.
// A capacity below one is treated as one.
func NewTTL[K comparable, V any](capacity int, ttl time.Duration, opts ...Option[K, V]) *TTL[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	c := &TTL[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it is younger than the TTL.
// Expired entries are removed on access.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.removeElement(el)
		return zero, false
	}
	return c.copy(e.value), true
}

// Set stores value under key. Re-setting a key refreshes its age and moves
// it to the back of the eviction order.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	for c.order.Len() >= c.capacity {
		c.removeElement(c.order.Front())
	}
	el := c.order.PushBack(&entry[K, V]{key: key, value: c.copy(value), storedAt: c.now()})
	c.items[key] = el
}

// Delete removes key if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the number of stored entries, including any not yet purged.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *TTL[K, V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
}

func (c *TTL[K, V]) copy(v V) V {
	if c.copyFn == nil {
		return v
	}
	return c.copyFn(v)
}
