// Package otter provides an adapter for the Otter cache library,
// implementing the onion.Cache interface for use with middleware.StaleCache.
package otter

import (
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/byte4ever/onion"
)

// adapter wraps an otter.CacheWithVariableTTL to implement onion.Cache.
type adapter[K comparable, V any] struct {
	cache otter.CacheWithVariableTTL[K, V]
}

// New creates an onion.Cache backed by an Otter cache with per-entry TTL
// support. MaxSize from [onion.CacheConfig] configures the capacity and must
// be positive.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func New[K comparable, V any](cfg onion.CacheConfig) (onion.Cache[K, V], error) {
	builder, err := otter.NewBuilder[K, V](cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("onion/otter: %w", err)
	}

	cache, err := builder.WithVariableTTL().Build()
	if err != nil {
		return nil, fmt.Errorf("onion/otter: failed to build cache: %w", err)
	}

	return &adapter[K, V]{cache: cache}, nil
}

// MustNew is like [New] but panics if the cache cannot be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K comparable, V any](cfg onion.CacheConfig) onion.Cache[K, V] {
	c, err := New[K, V](cfg)
	if err != nil {
		panic(err.Error())
	}

	return c
}

// Get retrieves a cached value by key.
//
//nolint:ireturn // generic type parameter V, not an interface
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

// Set stores a value with the given TTL.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.cache.Set(key, value, ttl)
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Delete(key)
}
