package middleware

import (
	"log/slog"
	"time"

	"github.com/byte4ever/onion"
)

// Pattern: Factory Function — each preset produces a ready-made option bundle
// for a common use case, avoiding boilerplate configuration.

// Standard returns options for a typical service function: the logger is
// used by the default error hook, and the chain starts with [Recover] and
// [Logging].
func Standard(logger *slog.Logger) []any {
	return []any{
		onion.WithLogger(logger),
		onion.WithMiddleware(
			Recover(logger),
			Logging(logger),
		),
	}
}

// Resilient extends [Standard] for functions calling a flaky dependency:
// outputs are cached for ttl and served when a call fails, and each call is
// bounded by timeout.
func Resilient(
	logger *slog.Logger,
	timeout time.Duration,
	cache onion.Cache[string, any],
	ttl time.Duration,
) []any {
	return append(
		Standard(logger),
		onion.WithMiddleware(
			StaleCache(cache, ttl),
			Timeout(timeout),
		),
	)
}
