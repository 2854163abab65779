package onion

import (
	"context"
	"fmt"
)

type (
	// Request is what a single-input handler receives.
	Request[I any] struct {
		// Input is the validated input, or the raw input asserted to I when
		// no input validator is configured.
		Input I
		// Values is the accumulated context after every middleware.
		Values Values
		// Metadata is the function's metadata. It must not be modified.
		Metadata Metadata
	}

	// Handler is the business logic wrapped by a [Func].
	Handler[I, O any] func(ctx context.Context, req Request[I]) (O, error)

	// ArgsRequest is what a positional-arguments handler receives.
	ArgsRequest struct {
		Values   Values
		Metadata Metadata
		// Args holds the validated arguments, or a copy of the raw ones when
		// no validators are configured. It is never nil.
		Args []any
	}

	// ArgsHandler is the business logic wrapped by an [ArgsFunc].
	ArgsHandler[O any] func(ctx context.Context, req ArgsRequest) (O, error)

	// Func is a named single-input function wrapped with validation,
	// middleware and error recovery. It is safe for concurrent use.
	Func[I, O any] struct {
		e *engine
	}

	// ArgsFunc is a named function taking positional arguments. It is safe
	// for concurrent use.
	ArgsFunc[O any] struct {
		e *engine
	}

	// Bound is a [Func] with per-call values fixed in advance.
	Bound[I, O any] struct {
		f      *Func[I, O]
		values Values
	}

	// BoundArgs is an [ArgsFunc] with per-call values fixed in advance.
	BoundArgs[O any] struct {
		f      *ArgsFunc[O]
		values Values
	}
)

// ---------------------------------------------------------------------------
// Single-input mode
// ---------------------------------------------------------------------------

// New wraps handler as a named function. Options are the With* values of
// this package; [WithArgs] is rejected with [ErrModeConflict].
//
// Construction fails on nil handlers, nil validators or middlewares, unknown
// options, validators of the wrong type, and metadata rejected by
// [WithMetadataValidator].
func New[I, O any](
	name string,
	handler Handler[I, O],
	opts ...any,
) (*Func[I, O], error) {
	if handler == nil {
		return nil, fmt.Errorf("onion: %q: %w", name, ErrNoHandler)
	}

	s, err := collect(opts)
	if err != nil {
		return nil, fmt.Errorf("onion: %q: %w", name, err)
	}

	e, err := s.build(name, modeInput)
	if err != nil {
		return nil, fmt.Errorf("onion: %q: %w", name, err)
	}

	if s.hasInput {
		v, vErr := resolveValidator[I](s.input)
		if vErr != nil {
			return nil, fmt.Errorf("onion: %q: input: %w", name, vErr)
		}

		e.input = Erase(v)
	}

	if err = bindOutput[O](e, s); err != nil {
		return nil, fmt.Errorf("onion: %q: %w", name, err)
	}

	e.inputType = boxed[I]
	e.handler = func(
		ctx context.Context,
		in any,
		values Values,
		md Metadata,
	) (any, error) {
		input, aErr := assertType[I](in)
		if aErr != nil {
			return nil, invalid(TargetInput, aErr)
		}

		out, hErr := handler(ctx, Request[I]{
			Input:    input,
			Values:   values,
			Metadata: md,
		})
		if hErr != nil {
			return nil, hErr
		}

		return out, nil
	}

	s.register(e)

	return &Func[I, O]{e: e}, nil
}

// MustNew is like [New] but panics on configuration errors.
func MustNew[I, O any](name string, handler Handler[I, O], opts ...any) *Func[I, O] {
	f, err := New(name, handler, opts...)
	if err != nil {
		panic(err)
	}

	return f
}

// Name returns the function's name.
func (f *Func[I, O]) Name() string { return f.e.name }

// Metadata returns a copy of the function's metadata.
func (f *Func[I, O]) Metadata() Metadata { return f.e.metadata.Clone() }

// Status returns the function's invocation counters.
func (f *Func[I, O]) Status() FunctionStatus { return f.e.Status() }

// Call invokes the function with raw input. The input is untyped because it
// is validated, or asserted to I, by the engine.
//
//nolint:ireturn // generic type parameter O, not an interface
func (f *Func[I, O]) Call(ctx context.Context, input any) (O, error) {
	return f.CallWith(ctx, input, nil)
}

// CallWith invokes the function with per-call values merged over the base
// values.
//
//nolint:ireturn // generic type parameter O, not an interface
func (f *Func[I, O]) CallWith(ctx context.Context, input any, values Values) (O, error) {
	return typed[O](f.e.invoke(ctx, input, nil, values))
}

// Bind fixes per-call values. Later binds do not affect earlier ones.
func (f *Func[I, O]) Bind(values Values) *Bound[I, O] {
	return &Bound[I, O]{f: f, values: values.Clone()}
}

// Call invokes the bound function.
//
//nolint:ireturn // generic type parameter O, not an interface
func (b *Bound[I, O]) Call(ctx context.Context, input any) (O, error) {
	return b.f.CallWith(ctx, input, b.values)
}

// Execute is an alias of [Bound.Call].
//
//nolint:ireturn // generic type parameter O, not an interface
func (b *Bound[I, O]) Execute(ctx context.Context, input any) (O, error) {
	return b.Call(ctx, input)
}

// ---------------------------------------------------------------------------
// Args mode
// ---------------------------------------------------------------------------

// NewArgs wraps handler as a named function taking positional arguments.
// [WithInput] is rejected with [ErrModeConflict].
func NewArgs[O any](
	name string,
	handler ArgsHandler[O],
	opts ...any,
) (*ArgsFunc[O], error) {
	if handler == nil {
		return nil, fmt.Errorf("onion: %q: %w", name, ErrNoHandler)
	}

	s, err := collect(opts)
	if err != nil {
		return nil, fmt.Errorf("onion: %q: %w", name, err)
	}

	e, err := s.build(name, modeArgs)
	if err != nil {
		return nil, fmt.Errorf("onion: %q: %w", name, err)
	}

	if err = bindOutput[O](e, s); err != nil {
		return nil, fmt.Errorf("onion: %q: %w", name, err)
	}

	e.handler = func(
		ctx context.Context,
		in any,
		values Values,
		md Metadata,
	) (any, error) {
		args, _ := in.([]any)
		if args == nil {
			args = []any{}
		}

		out, hErr := handler(ctx, ArgsRequest{
			Args:     args,
			Values:   values,
			Metadata: md,
		})
		if hErr != nil {
			return nil, hErr
		}

		return out, nil
	}

	s.register(e)

	return &ArgsFunc[O]{e: e}, nil
}

// MustNewArgs is like [NewArgs] but panics on configuration errors.
func MustNewArgs[O any](name string, handler ArgsHandler[O], opts ...any) *ArgsFunc[O] {
	f, err := NewArgs(name, handler, opts...)
	if err != nil {
		panic(err)
	}

	return f
}

// Name returns the function's name.
func (f *ArgsFunc[O]) Name() string { return f.e.name }

// Metadata returns a copy of the function's metadata.
func (f *ArgsFunc[O]) Metadata() Metadata { return f.e.metadata.Clone() }

// Status returns the function's invocation counters.
func (f *ArgsFunc[O]) Status() FunctionStatus { return f.e.Status() }

// Call invokes the function with positional arguments.
//
//nolint:ireturn // generic type parameter O, not an interface
func (f *ArgsFunc[O]) Call(ctx context.Context, args ...any) (O, error) {
	return f.CallWith(ctx, nil, args...)
}

// CallWith invokes the function with per-call values merged over the base
// values.
//
//nolint:ireturn // generic type parameter O, not an interface
func (f *ArgsFunc[O]) CallWith(ctx context.Context, values Values, args ...any) (O, error) {
	if args == nil {
		args = []any{}
	}

	return typed[O](f.e.invoke(ctx, nil, args, values))
}

// Bind fixes per-call values.
func (f *ArgsFunc[O]) Bind(values Values) *BoundArgs[O] {
	return &BoundArgs[O]{f: f, values: values.Clone()}
}

// Call invokes the bound function.
//
//nolint:ireturn // generic type parameter O, not an interface
func (b *BoundArgs[O]) Call(ctx context.Context, args ...any) (O, error) {
	return b.f.CallWith(ctx, b.values, args...)
}

// Execute is an alias of [BoundArgs.Call].
//
//nolint:ireturn // generic type parameter O, not an interface
func (b *BoundArgs[O]) Execute(ctx context.Context, args ...any) (O, error) {
	return b.Call(ctx, args...)
}

//nolint:ireturn // generic type parameter O, not an interface
func typed[O any](out any, err error) (O, error) {
	if err != nil {
		var zero O
		return zero, err
	}

	return assertType[O](out)
}
