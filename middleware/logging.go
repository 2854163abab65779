package middleware

import (
	"context"
	"log/slog"

	"github.com/byte4ever/onion"
)

// Logging logs the start of every invocation at debug level and its end at
// info level, or warn level when the rest of the chain fails.
func Logging(logger *slog.Logger, opts ...Option) onion.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	s := newSettings(opts)

	return func(ctx context.Context, call *onion.Call) (onion.Result, error) {
		start := s.clock.Now()
		name := slog.String("name", call.Name())
		id := slog.String("invocation_id", call.InvocationID())

		logger.LogAttrs(ctx, slog.LevelDebug, "invocation started", name, id)

		res, err := call.Next(ctx)

		elapsed := slog.Duration("duration", s.clock.Since(start))

		if err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "invocation failed",
				name, id, elapsed, slog.String("error", err.Error()),
			)

			return res, err
		}

		logger.LogAttrs(ctx, slog.LevelInfo, "invocation finished",
			name, id, elapsed,
		)

		return res, nil
	}
}
