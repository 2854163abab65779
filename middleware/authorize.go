package middleware

import (
	"context"
	"errors"

	"github.com/byte4ever/onion"
)

// ErrUnauthorized is returned by [Authorize] when the working values do not
// pass the policy.
var ErrUnauthorized = errors.New("unauthorized")

// Authorize enforces allow on functions whose metadata sets key to true.
// Functions without the flag pass through.
func Authorize(
	key string,
	allow func(ctx context.Context, values onion.Values) bool,
) onion.Middleware {
	return func(ctx context.Context, call *onion.Call) (onion.Result, error) {
		if required, _ := onion.Lookup[bool](call.Metadata(), key); required &&
			!allow(ctx, call.Values()) {
			return onion.Result{}, ErrUnauthorized
		}

		return call.Next(ctx)
	}
}
