// Package lru implements a fixed-capacity store keyed by a caller-supplied
// hash function, evicting the least recently used entry when an insertion
// would exceed the capacity.
//
// Access means Add (insert or update) and a Get that hits. A miss, Peek
// and Contains leave the eviction order untouched. Keys whose hashes
// collide address the same entry: adding under a colliding key replaces
// the stored value rather than adding a second entry.
//
// A Cache is not safe for concurrent use. Confine it to one goroutine or
// use Synchronized.
package lru

import (
	"container/list"
)

// DefaultCapacity is used when no capacity option is given.
const DefaultCapacity = 64

// Cache is a bounded LRU map from K (through its hash) to V.
type Cache[K any, V any] struct {
	capacity int
	hash     HashFunc[K]
	onEvict  EvictFunc[V]

	items map[string]*list.Element
	// front is the most recently used entry, back the eviction victim
	order *list.List
}

type entry[V any] struct {
	key   string
	value V
}

// New creates an empty cache. Without options it holds DefaultCapacity
// entries and hashes keys with DefaultHash.
func New[K any, V any](opts ...Option[K, V]) (*Cache[K, V], error) {
	c := &Cache[K, V]{
		capacity: DefaultCapacity,
		hash:     DefaultHash[K],
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Hash returns the string the cache files k under. It does not touch
// cache state.
func (c *Cache[K, V]) Hash(k K) string {
	return c.hash(k)
}

// Add stores v under k and marks it most recently used. An existing entry
// with the same hash is updated in place. Entries beyond the capacity are
// evicted before Add returns, so with capacity zero nothing is retained.
func (c *Cache[K, V]) Add(k K, v V) V {
	h := c.hash(k)

	if el, ok := c.items[h]; ok {
		el.Value.(*entry[V]).value = v
		c.order.MoveToFront(el)
	} else {
		c.items[h] = c.order.PushFront(&entry[V]{key: h, value: v})
	}

	c.evictOverflow()

	return v
}

// Get returns the value stored under k and marks it most recently used.
// ok is false on a miss, which leaves the eviction order unchanged.
func (c *Cache[K, V]) Get(k K) (value V, ok bool) {
	el, ok := c.items[c.hash(k)]
	if !ok {
		return value, false
	}

	c.order.MoveToFront(el)
	return el.Value.(*entry[V]).value, true
}

// Peek is Get without the recency update.
func (c *Cache[K, V]) Peek(k K) (value V, ok bool) {
	el, ok := c.items[c.hash(k)]
	if !ok {
		return value, false
	}
	return el.Value.(*entry[V]).value, true
}

func (c *Cache[K, V]) Contains(k K) bool {
	_, ok := c.items[c.hash(k)]
	return ok
}

// Remove deletes the entry under k and reports whether there was one.
// The eviction callback is not invoked.
func (c *Cache[K, V]) Remove(k K) bool {
	h := c.hash(k)

	el, ok := c.items[h]
	if !ok {
		return false
	}

	c.order.Remove(el)
	delete(c.items, h)
	return true
}

// Clear drops every entry. The capacity is kept.
func (c *Cache[K, V]) Clear() {
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *Cache[K, V]) Len() int {
	return c.order.Len()
}

func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// SetCapacity changes the bound. Lowering it evicts least recently used
// entries until Len() <= n and returns how many were evicted; raising it
// evicts nothing.
func (c *Cache[K, V]) SetCapacity(n int) (evicted int, err error) {
	if n < 0 {
		return 0, &ConfigError{Field: "capacity", Value: n, Err: ErrInvalidCapacity}
	}

	c.capacity = n
	return c.evictOverflow(), nil
}

// Keys returns the hashed keys from least to most recently used.
func (c *Cache[K, V]) Keys() []string {
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Oldest returns the entry the next eviction would remove.
func (c *Cache[K, V]) Oldest() (key string, value V, ok bool) {
	el := c.order.Back()
	if el == nil {
		return "", value, false
	}

	e := el.Value.(*entry[V])
	return e.key, e.value, true
}

func (c *Cache[K, V]) evictOverflow() int {
	evicted := 0
	for c.order.Len() > c.capacity {
		el := c.order.Back()
		e := el.Value.(*entry[V])

		c.order.Remove(el)
		delete(c.items, e.key)
		evicted++

		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
	return evicted
}
