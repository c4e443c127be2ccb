package lru

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCapacity = errors.New("capacity must not be negative")
	ErrNilHash         = errors.New("hash function must not be nil")
)

// ConfigError reports an option that was rejected rather than coerced.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("lru: invalid %s (%v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// HashFunc maps a key to the string the cache files it under. It must be
// pure: structurally equal keys must hash equally.
type HashFunc[K any] func(K) string

// EvictFunc is called with each entry dropped for capacity reasons.
type EvictFunc[V any] func(key string, value V)

// Hasher is implemented by keys that know their own canonical form, such
// as tile.Index and tile.Key.
type Hasher interface {
	CanonicalKey() string
}

// DefaultHash uses CanonicalKey when k implements Hasher and falls back to
// the key's default string form otherwise, so 1 and "1" hash alike.
func DefaultHash[K any](k K) string {
	switch v := any(k).(type) {
	case Hasher:
		return v.CanonicalKey()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

type Option[K any, V any] func(c *Cache[K, V]) error

// WithCapacity bounds the number of entries. Zero is legal and makes the
// cache retain nothing.
func WithCapacity[K any, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) error {
		if n < 0 {
			return &ConfigError{Field: "capacity", Value: n, Err: ErrInvalidCapacity}
		}
		c.capacity = n
		return nil
	}
}

// WithSize is an alias of WithCapacity.
func WithSize[K any, V any](n int) Option[K, V] {
	return WithCapacity[K, V](n)
}

func WithHash[K any, V any](fn HashFunc[K]) Option[K, V] {
	return func(c *Cache[K, V]) error {
		if fn == nil {
			return &ConfigError{Field: "hash", Value: nil, Err: ErrNilHash}
		}
		c.hash = fn
		return nil
	}
}

// WithOnEvict registers fn for capacity evictions. Remove and Clear do not
// call it. fn runs after the entry has left the cache.
func WithOnEvict[K any, V any](fn EvictFunc[V]) Option[K, V] {
	return func(c *Cache[K, V]) error {
		c.onEvict = fn
		return nil
	}
}
