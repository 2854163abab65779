package onion

import "context"

// Invoke is a convenience function that wraps handler for a single call
// without keeping a named [Func]. It builds an anonymous function with opts
// and calls it with raw. Configuration errors are returned as the call's
// error. The function is not registered unless opts include [WithRegistry].
//
//nolint:ireturn // generic type parameter O, not an interface
func Invoke[I, O any](
	ctx context.Context,
	raw any,
	handler Handler[I, O],
	opts ...any,
) (O, error) {
	f, err := New("", handler, opts...)
	if err != nil {
		var zero O
		return zero, err
	}

	return f.Call(ctx, raw)
}
