package onion

import (
	"context"
	"fmt"
	"log/slog"
)

// ---------------------------------------------------------------------------
// Option descriptors — stored as any, interpreted by New and NewArgs
// ---------------------------------------------------------------------------

type (
	// optionFunc is a non-generic option that modifies setup.
	optionFunc func(*setup) error

	// inputDesc holds a type-erased Validator[I] or Validator[any].
	inputDesc struct {
		v any
	}

	// outputDesc holds a type-erased Validator[O] or Validator[any].
	outputDesc struct {
		v any
	}

	// argsDesc holds positional argument validators.
	argsDesc struct {
		validators []Validator[any]
	}

	// setup collects configuration before the typed constructor resolves it.
	setup struct {
		clock             Clock
		input             any
		output            any
		metadataValidator Validator[Metadata]
		valuesValidator   Validator[Values]
		logger            *slog.Logger
		registry          *Registry
		onError           ErrorHook
		values            Values
		metadata          Metadata
		hooks             Hooks
		middleware        []Middleware
		args              []Validator[any]
		hasInput          bool
		hasOutput         bool
		hasArgs           bool
		lazyInput         bool
	}
)

// ---------------------------------------------------------------------------
// With* functions — all return any
// ---------------------------------------------------------------------------

// WithInput validates the raw input of a single-input function. The
// validator's type must be the function's input type I, or any, in which
// case its result is converted to I with [Decode].
func WithInput[I any](v Validator[I]) any {
	return inputDesc{v: v}
}

// WithOutput validates the handler's output, and any output recovered by
// the error hook. The validator's type must be O or any.
func WithOutput[O any](v Validator[O]) any {
	return outputDesc{v: v}
}

// WithArgs validates positional arguments of an [ArgsFunc], one validator
// per position. Use [Erase] to mix validators of different types. WithArgs()
// with no validators accepts exactly zero arguments.
func WithArgs(validators ...Validator[any]) any {
	return argsDesc{validators: validators}
}

// WithMetadata attaches metadata to the function. Repeated options merge,
// later keys winning.
func WithMetadata(md Metadata) any {
	return optionFunc(func(s *setup) error {
		if s.metadata == nil {
			s.metadata = Metadata{}
		}

		for key, val := range md {
			s.metadata[key] = val
		}

		return nil
	})
}

// WithMetadataValidator validates the metadata once, at construction time.
// The validated value replaces the configured metadata.
func WithMetadataValidator(v Validator[Metadata]) any {
	return optionFunc(func(s *setup) error {
		if isNil(v) {
			return fmt.Errorf("metadata: %w", ErrNilValidator)
		}

		s.metadataValidator = v

		return nil
	})
}

// WithValues sets the base values every invocation starts from. Values
// passed by the caller override them. Repeated options merge.
func WithValues(base Values) any {
	return optionFunc(func(s *setup) error {
		s.values = s.values.Merge(base)

		return nil
	})
}

// WithValuesValidator validates the starting values of every invocation
// before the chain runs.
func WithValuesValidator(v Validator[Values]) any {
	return optionFunc(func(s *setup) error {
		if isNil(v) {
			return fmt.Errorf("context: %w", ErrNilValidator)
		}

		s.valuesValidator = v

		return nil
	})
}

// WithMiddleware appends middlewares to the chain. Middlewares run in the
// order they are registered across all WithMiddleware options.
func WithMiddleware(middlewares ...Middleware) any {
	return optionFunc(func(s *setup) error {
		for i, mw := range middlewares {
			if mw == nil {
				return fmt.Errorf("middleware %d: %w", len(s.middleware)+i, ErrNilMiddleware)
			}
		}

		s.middleware = append(s.middleware, middlewares...)

		return nil
	})
}

// WithErrorHook sets the hook every failure is routed through. Without it,
// [DefaultErrorHook] logs and rethrows.
func WithErrorHook(h ErrorHook) any {
	return optionFunc(func(s *setup) error {
		s.onError = h

		return nil
	})
}

// WithLazyInput defers input validation until a middleware calls
// [Call.Valid] or the handler is reached. By default a configured input
// validator runs before the first middleware.
func WithLazyInput() any {
	return optionFunc(func(s *setup) error {
		s.lazyInput = true

		return nil
	})
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h Hooks) any {
	return optionFunc(func(s *setup) error {
		s.hooks = h

		return nil
	})
}

// WithLogger sets the logger used by the default error hook. It defaults to
// [slog.Default].
func WithLogger(logger *slog.Logger) any {
	return optionFunc(func(s *setup) error {
		s.logger = logger

		return nil
	})
}

// WithClock sets the clock used for invocation timing.
func WithClock(c Clock) any {
	return optionFunc(func(s *setup) error {
		s.clock = c

		return nil
	})
}

// WithRegistry registers the function with reg so its counters appear in
// [Registry.Snapshot].
func WithRegistry(reg *Registry) any {
	return optionFunc(func(s *setup) error {
		s.registry = reg

		return nil
	})
}

// ---------------------------------------------------------------------------
// setup — turn collected options into an engine
// ---------------------------------------------------------------------------

func collect(opts []any) (*setup, error) {
	s := &setup{}
	if err := s.apply(opts); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *setup) apply(opts []any) error {
	for _, opt := range opts {
		switch desc := opt.(type) {
		case nil:
		case optionFunc:
			if err := desc(s); err != nil {
				return err
			}
		case inputDesc:
			s.input, s.hasInput = desc.v, true
		case outputDesc:
			s.output, s.hasOutput = desc.v, true
		case argsDesc:
			for i, v := range desc.validators {
				if isNil(v) {
					return fmt.Errorf("args %d: %w", i, ErrNilValidator)
				}
			}

			s.args, s.hasArgs = desc.validators, true
		case []any:
			if err := s.apply(desc); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %T", ErrUnknownOption, opt)
		}
	}

	return nil
}

// build resolves defaults and the non-generic parts of the engine.
func (s *setup) build(name string, m mode) (*engine, error) {
	if (m == modeInput && s.hasArgs) || (m == modeArgs && s.hasInput) {
		return nil, ErrModeConflict
	}

	clock := s.clock
	if clock == nil {
		clock = RealClock{}
	}

	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}

	onError := s.onError
	if onError == nil {
		onError = DefaultErrorHook(logger)
	}

	md := s.metadata.Clone()

	if s.metadataValidator != nil {
		checked, err := safeParse(context.Background(), s.metadataValidator, md)
		if err != nil {
			return nil, invalid(TargetMetadata, err)
		}

		md = checked
	}

	return &engine{
		name:            name,
		mode:            m,
		clock:           clock,
		logger:          logger,
		hooks:           s.hooks,
		onError:         onError,
		stats:           &stats{},
		values:          s.values.Clone(),
		valuesValidator: s.valuesValidator,
		metadata:        md,
		middleware:      append([]Middleware(nil), s.middleware...),
		args:            s.args,
		hasArgs:         s.hasArgs,
		lazyInput:       s.lazyInput,
	}, nil
}

func (s *setup) register(e *engine) {
	if s.registry != nil {
		s.registry.Register(e)
	}
}

// resolveValidator turns an input or output descriptor into a Validator[T].
//
//nolint:ireturn // returns interface by design
func resolveValidator[T any](v any) (Validator[T], error) {
	switch val := v.(type) {
	case nil:
		return nil, ErrNilValidator
	case Validator[T]:
		if isNil(val) {
			return nil, ErrNilValidator
		}

		return val, nil
	case Validator[any]:
		if isNil(val) {
			return nil, ErrNilValidator
		}

		return Decode[T](val), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrValidatorType, v)
	}
}

func bindOutput[O any](e *engine, s *setup) error {
	e.outputType = boxed[O]

	if !s.hasOutput {
		return nil
	}

	v, err := resolveValidator[O](s.output)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	e.output = Erase(v)

	return nil
}

func boxed[T any](raw any) (any, error) {
	val, err := assertType[T](raw)
	if err != nil {
		return nil, err
	}

	return val, nil
}
