package onion

import (
	"fmt"
	"time"
)

type (
	// Cache is the interface that cache adapters must implement. The
	// middleware.StaleCache layer stores successful outputs in one. TTL is
	// passed per Set call; the underlying cache library handles expiration.
	Cache[K comparable, V any] interface {
		// Get retrieves a cached value by key. Returns the value and true if
		// found.
		Get(key K) (V, bool)
		// Set stores a value with the given TTL.
		Set(key K, value V, ttl time.Duration)
		// Delete removes a cached entry by key.
		Delete(key K)
	}

	// CacheConfig holds configuration for a cache instance.
	CacheConfig struct {
		// Options holds adapter-specific settings (e.g.,
		// "reset_ttl_on_access").
		Options map[string]any
		// TTL is the time-to-live for cached entries.
		TTL time.Duration
		// MaxSize is the maximum number of entries the cache can hold.
		MaxSize int
	}

	cacheConfigFile struct {
		Caches map[string]cacheConfigEntry `json:"caches" yaml:"caches"`
	}

	cacheConfigEntry struct {
		Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
		TTL     string         `json:"ttl" yaml:"ttl"`
		MaxSize int            `json:"max_size" yaml:"max_size"`
	}
)

// LoadCacheConfig reads a JSON or YAML configuration file and returns the
// CacheConfig for the named cache entry.
func LoadCacheConfig(path, name string) (CacheConfig, error) {
	var cfg cacheConfigFile
	if err := decodeFile(path, &cfg); err != nil {
		return CacheConfig{}, fmt.Errorf("onion: cache config: %w", err)
	}

	raw, ok := cfg.Caches[name]
	if !ok {
		return CacheConfig{}, fmt.Errorf(
			"onion: cache %q not found in config",
			name,
		)
	}

	cc := CacheConfig{
		Options: raw.Options,
		MaxSize: raw.MaxSize,
	}

	if raw.TTL != "" {
		ttl, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return CacheConfig{}, fmt.Errorf(
				"onion: cache %q: ttl: %w",
				name,
				err,
			)
		}

		cc.TTL = ttl
	}

	return cc, nil
}
