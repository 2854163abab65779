package otter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/onion"
	"github.com/byte4ever/onion/middleware"
)

func newTestConfig() onion.CacheConfig {
	return onion.CacheConfig{
		MaxSize: 1000,
		TTL:     time.Minute,
	}
}

func TestNewRejectsInvalidCapacity(t *testing.T) {
	_, err := New[string, string](onion.CacheConfig{MaxSize: -1})
	require.Error(t, err)

	assert.Panics(t, func() { MustNew[string, string](onion.CacheConfig{MaxSize: -1}) })
}

func TestSetGetDelete(t *testing.T) {
	cache := MustNew[string, string](newTestConfig())

	cache.Set("hello", "world", time.Minute)

	got, ok := cache.Get("hello")
	require.True(t, ok)
	assert.Equal(t, "world", got)

	cache.Set("hello", "again", time.Minute)

	got, _ = cache.Get("hello")
	assert.Equal(t, "again", got)

	cache.Delete("hello")

	_, ok = cache.Get("hello")
	assert.False(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	cache := MustNew[int, int](newTestConfig())

	_, ok := cache.Get(42)
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	cache := MustNew[int, int](newTestConfig())

	const goroutines = 50

	var wg sync.WaitGroup

	wg.Add(goroutines)

	for i := range goroutines {
		go func() {
			defer wg.Done()

			cache.Set(i, i*10, time.Minute)
			cache.Get(i)
		}()
	}

	wg.Wait()
}

func TestInterfaceCompliance(t *testing.T) {
	var _ onion.Cache[string, any] = MustNew[string, any](newTestConfig())
	var _ onion.Cache[uint64, string] = MustNew[uint64, string](newTestConfig())
}

// ---------------------------------------------------------------------------
// Integration: serves stale outputs through middleware.StaleCache
// ---------------------------------------------------------------------------

func TestIntegrationWithStaleCache(t *testing.T) {
	var fail bool

	sentinel := errors.New("downstream failure")

	f := onion.MustNew("fetch",
		func(_ context.Context, req onion.Request[string]) (string, error) {
			if fail {
				return "", sentinel
			}

			return "hello-" + req.Input, nil
		},
		onion.WithMiddleware(middleware.StaleCache(
			MustNew[string, any](newTestConfig()), time.Minute,
		)),
		onion.WithErrorHook(func(context.Context, *onion.ErrorEnvelope) onion.Outcome {
			return onion.Rethrow()
		}),
	)

	got, err := f.Call(context.Background(), "key1")
	require.NoError(t, err)
	assert.Equal(t, "hello-key1", got)

	fail = true

	got, err = f.Call(context.Background(), "key1")
	require.NoError(t, err)
	assert.Equal(t, "hello-key1", got)

	_, err = f.Call(context.Background(), "unknown")
	require.ErrorIs(t, err, sentinel)

	st := f.Status()
	assert.Equal(t, int64(2), st.Succeeded)
	assert.Equal(t, int64(1), st.Failed)
}

func BenchmarkSetGet(b *testing.B) {
	cache := MustNew[string, string](newTestConfig())

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cache.Set("bench-key", "bench-value", time.Minute)
			cache.Get("bench-key")
		}
	})
}
