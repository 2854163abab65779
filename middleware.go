package onion

import (
	"context"
	"slices"
)

// Pattern: Decorator — each middleware wraps the rest of the chain, so code
// before Next runs in registration order and code after it in reverse.

// Middleware is one layer around a handler. It may call [Call.Next] and
// return its result unchanged, transform the result, short-circuit with
// [Call.Done] without calling Next, or abort by returning an error.
type Middleware func(ctx context.Context, call *Call) (Result, error)

// Chain composes middlewares into a single middleware. The first middleware
// is the outermost one.
//
// Chain(a, b, c) behaves exactly like registering a, b and c in that order.
// Chain() with zero middlewares passes through to Next. Nil entries are
// skipped.
func Chain(middlewares ...Middleware) Middleware {
	middlewares = slices.DeleteFunc(
		slices.Clone(middlewares),
		func(mw Middleware) bool { return mw == nil },
	)

	return func(ctx context.Context, call *Call) (Result, error) {
		return call.inv.advance(
			ctx,
			middlewares,
			0,
			call.values,
			func(ctx context.Context, values Values) (Result, error) {
				return call.Next(ctx, values)
			},
		)
	}
}
