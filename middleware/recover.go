package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/byte4ever/onion"
)

// Recover logs panics raised below it, with their stack trace, at error
// level. The engine has already turned the panic into an
// [*onion.PanicError]; Recover returns it unchanged so the error hook still
// sees it.
func Recover(logger *slog.Logger) onion.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, call *onion.Call) (onion.Result, error) {
		res, err := call.Next(ctx)

		var pe *onion.PanicError
		if errors.As(err, &pe) {
			logger.LogAttrs(ctx, slog.LevelError, "panic recovered",
				slog.String("name", call.Name()),
				slog.String("invocation_id", call.InvocationID()),
				slog.Any("value", pe.Value),
				slog.String("stack", pe.Stack),
			)
		}

		return res, err
	}
}
