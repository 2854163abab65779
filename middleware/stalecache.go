package middleware

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/onion"
)

type (
	// StaleCacheOption configures [StaleCache].
	StaleCacheOption func(*staleCache)

	// KeyFunc derives the cache key of an invocation. Returning an error
	// disables caching for that invocation.
	KeyFunc func(call *onion.Call) (string, error)

	staleCache struct {
		cache            onion.Cache[string, any]
		key              KeyFunc
		onStaleServed    func(key string)
		onCacheRefreshed func(key string)
		ttl              time.Duration
	}

	cacheKey struct {
		Input any    `json:"input,omitempty"`
		Name  string `json:"name"`
		Args  []any  `json:"args,omitempty"`
	}
)

// WithKey replaces the default cache key, a JSON encoding of the function
// name and its raw input or arguments.
func WithKey(fn KeyFunc) StaleCacheOption {
	return func(sc *staleCache) {
		sc.key = fn
	}
}

// OnStaleServed sets a callback invoked when a stale cached output is served.
func OnStaleServed(fn func(key string)) StaleCacheOption {
	return func(sc *staleCache) {
		sc.onStaleServed = fn
	}
}

// OnCacheRefreshed sets a callback invoked when a cache entry is refreshed.
func OnCacheRefreshed(fn func(key string)) StaleCacheOption {
	return func(sc *staleCache) {
		sc.onCacheRefreshed = fn
	}
}

// StaleCache stores successful outputs in cache for ttl. When the rest of
// the chain fails, the cached output for the same key is served instead, as
// a short-circuit. Validation and usage errors are never masked.
func StaleCache(
	cache onion.Cache[string, any],
	ttl time.Duration,
	opts ...StaleCacheOption,
) onion.Middleware {
	sc := &staleCache{
		cache: cache,
		ttl:   ttl,
		key:   defaultKey,
	}

	for _, opt := range opts {
		opt(sc)
	}

	return sc.run
}

func (sc *staleCache) run(ctx context.Context, call *onion.Call) (onion.Result, error) {
	key, keyErr := sc.key(call)

	res, err := call.Next(ctx)
	if keyErr != nil {
		return res, err
	}

	if err == nil {
		sc.cache.Set(key, res.Output, sc.ttl)

		if sc.onCacheRefreshed != nil {
			sc.onCacheRefreshed(key)
		}

		return res, nil
	}

	if onion.IsValidation(err) || onion.IsUsage(err) {
		return res, err
	}

	cached, ok := sc.cache.Get(key)
	if !ok {
		return res, err
	}

	if sc.onStaleServed != nil {
		sc.onStaleServed(key)
	}

	return call.Done(cached), nil
}

func defaultKey(call *onion.Call) (string, error) {
	data, err := json.Marshal(cacheKey{
		Name:  call.Name(),
		Input: call.RawInput(),
		Args:  call.RawArgs(),
	})
	if err != nil {
		return "", err //nolint:wrapcheck // key errors only disable caching
	}

	return string(data), nil
}
