package onion

import (
	"context"
	"sync"
)

// Kind selects which configured validator [Call.Valid] runs.
type Kind string

// Validation kinds.
const (
	KindInput Kind = "input"
	KindArgs  Kind = "args"
)

// lazy memoizes one parse per invocation, failures included.
type lazy struct {
	parse func(context.Context) (any, error)
	val   any
	err   error
	once  sync.Once
}

func newLazy(parse func(context.Context) (any, error)) *lazy {
	return &lazy{parse: parse}
}

func (l *lazy) get(ctx context.Context) (any, error) {
	l.once.Do(func() {
		l.val, l.err = l.parse(ctx)
	})

	return l.val, l.err
}

// ValidInput returns the validated input of the current invocation as an I.
// It fails with [ErrNoInputSchema] when the function has no input validator.
//
//nolint:ireturn // generic type parameter I, not an interface
func ValidInput[I any](ctx context.Context, call *Call) (I, error) {
	raw, err := call.Valid(ctx, KindInput)
	if err != nil {
		var zero I
		return zero, err
	}

	return assertType[I](raw)
}

// ValidArgs returns the validated positional arguments of the current
// invocation. It fails with [ErrNoArgsSchema] when the function has no args
// validators.
func ValidArgs(ctx context.Context, call *Call) ([]any, error) {
	raw, err := call.Valid(ctx, KindArgs)
	if err != nil {
		return nil, err
	}

	args, _ := raw.([]any)

	return args, nil
}
