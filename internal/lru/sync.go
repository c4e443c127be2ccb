package lru

import "sync"

// Synchronized guards a Cache with a mutex for use from several
// goroutines. Eviction callbacks run with the lock held and must not call
// back into the cache.
type Synchronized[K any, V any] struct {
	mu sync.Mutex
	c  *Cache[K, V]
}

func NewSynchronized[K any, V any](opts ...Option[K, V]) (*Synchronized[K, V], error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return &Synchronized[K, V]{c: c}, nil
}

func (s *Synchronized[K, V]) Hash(k K) string {
	return s.c.Hash(k)
}

func (s *Synchronized[K, V]) Add(k K, v V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Add(k, v)
}

func (s *Synchronized[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Get(k)
}

func (s *Synchronized[K, V]) Peek(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Peek(k)
}

func (s *Synchronized[K, V]) Contains(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Contains(k)
}

func (s *Synchronized[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Remove(k)
}

func (s *Synchronized[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Clear()
}

func (s *Synchronized[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Len()
}

func (s *Synchronized[K, V]) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Capacity()
}

func (s *Synchronized[K, V]) SetCapacity(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.SetCapacity(n)
}

func (s *Synchronized[K, V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Keys()
}
