// Package ristretto provides an adapter for the Ristretto cache library,
// implementing the onion.Cache interface for use with
// middleware.StaleCache.
package ristretto

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/byte4ever/onion"
)

type (
	// Key is the subset of ristretto.Key types that are also comparable,
	// required by the onion.Cache interface.
	Key interface {
		uint64 | string | byte | int | int32 | uint32 | int64
	}

	// adapter wraps a ristretto.Cache to implement onion.Cache.
	adapter[K Key, V any] struct {
		cache *ristretto.Cache[K, V]
		wait  bool
	}
)

// New creates an onion.Cache backed by a Ristretto cache. MaxSize from
// [onion.CacheConfig] configures the capacity; every entry costs 1.
//
// Ristretto applies writes asynchronously. Set waits for the write to land
// unless the config option "async_writes" is true, so a value is visible to
// the next Get.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func New[K Key, V any](cfg onion.CacheConfig) (onion.Cache[K, V], error) {
	// nolint:mnd // Ristretto recommends 10x max size for num counters and 64
	// buffer items.
	cache, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: int64(cfg.MaxSize) * 10,
		MaxCost:     int64(cfg.MaxSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("onion/ristretto: failed to build cache: %w", err)
	}

	async, _ := onion.Lookup[bool](cfg.Options, "async_writes")

	return &adapter[K, V]{cache: cache, wait: !async}, nil
}

// MustNew is like [New] but panics if the cache cannot be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K Key, V any](cfg onion.CacheConfig) onion.Cache[K, V] {
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
	a.cache.SetWithTTL(key, value, 1, ttl)

	if a.wait {
		a.cache.Wait()
	}
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Del(key)
}
