package middleware

import (
	"context"

	"github.com/byte4ever/onion"
)

// Set adds values to the working context of every later layer and the
// handler.
func Set(values onion.Values) onion.Middleware {
	values = values.Clone()

	return func(ctx context.Context, call *onion.Call) (onion.Result, error) {
		return call.Next(ctx, values)
	}
}

// Enrich computes a delta per invocation and passes it downstream. An error
// from fn aborts the invocation.
func Enrich(
	fn func(ctx context.Context, call *onion.Call) (onion.Values, error),
) onion.Middleware {
	return func(ctx context.Context, call *onion.Call) (onion.Result, error) {
		delta, err := fn(ctx, call)
		if err != nil {
			return onion.Result{}, err
		}

		return call.Next(ctx, delta)
	}
}
