package onion

import (
	"context"
	"log/slog"
	"slices"
)

// Pattern: Fallback — every failure of an invocation lands in one error hook
// that decides whether the caller sees the error, a replacement error, or a
// recovered output.

type (
	// ErrorKind tags where a failure came from.
	ErrorKind string

	// ErrorEnvelope describes a failed invocation to an [ErrorHook].
	ErrorEnvelope struct {
		// Err is the error that stopped the invocation.
		Err error
		// RawInput is the unvalidated input (single-input mode).
		RawInput any
		// Values is the working context as last observed before the
		// failure, including keys added by middleware up to that point.
		Values Values
		// Metadata is the function's metadata. It must not be modified.
		Metadata Metadata
		// Kind tells validation failures apart from middleware and handler
		// errors.
		Kind ErrorKind
		// Name is the wrapped function's name.
		Name string
		// InvocationID identifies the failed invocation, as reported by
		// [Call.InvocationID].
		InvocationID string
		// RawArgs are the unvalidated positional arguments (args mode).
		RawArgs []any
		inv     *invocation
	}

	// ErrorHook decides what happens to a failed invocation.
	ErrorHook func(ctx context.Context, env *ErrorEnvelope) Outcome

	// Outcome is an error hook's decision. The zero value rethrows the
	// original error.
	Outcome struct {
		data any
		err  error
		kind outcomeKind
	}

	outcomeKind int
)

// Error kinds.
const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindMiddleware ErrorKind = "middleware"
	ErrorKindHandler    ErrorKind = "handler"
)

const (
	outcomeRethrow outcomeKind = iota
	outcomeTransform
	outcomeResolve
	outcomeReject
)

// Rethrow returns the original error to the caller.
func Rethrow() Outcome { return Outcome{} }

// Transform returns err to the caller instead of the original error. A nil
// err rethrows the original.
func Transform(err error) Outcome {
	return Outcome{kind: outcomeTransform, err: err}
}

// Resolve recovers the invocation with data as its output. The data still
// goes through output validation.
func Resolve(data any) Outcome {
	return Outcome{kind: outcomeResolve, data: data}
}

// Reject fails the invocation with err. A nil err rethrows the original.
func Reject(err error) Outcome {
	return Outcome{kind: outcomeReject, err: err}
}

// Recovered reports whether the outcome turns the failure into a success.
func (o Outcome) Recovered() bool { return o.kind == outcomeResolve }

// Valid runs the same cached validator as [Call.Valid] for the failed
// invocation.
func (env *ErrorEnvelope) Valid(ctx context.Context, kind Kind) (any, error) {
	return env.inv.valid(ctx, kind)
}

// DefaultErrorHook logs the failure at error level and rethrows it. It is
// installed when no [WithErrorHook] option is given.
func DefaultErrorHook(logger *slog.Logger) ErrorHook {
	return func(ctx context.Context, env *ErrorEnvelope) Outcome {
		logger.LogAttrs(ctx, slog.LevelError, "invocation failed",
			slog.String("name", env.Name),
			slog.String("invocation_id", env.InvocationID),
			slog.String("kind", string(env.Kind)),
			slog.String("error", env.Err.Error()),
		)

		return Rethrow()
	}
}

// recoverFrom runs the error hook for cause and applies its outcome.
func (e *engine) recoverFrom(
	ctx context.Context,
	inv *invocation,
	cause error,
) (any, error) {
	env := &ErrorEnvelope{
		Err:          cause,
		Kind:         inv.classify(cause),
		Values:       inv.lastValues(),
		Metadata:     e.metadata,
		RawInput:     inv.rawInput,
		RawArgs:      slices.Clone(inv.rawArgs),
		Name:         e.name,
		InvocationID: inv.id,
		inv:          inv,
	}

	e.hooks.emitError(env.Kind, cause)

	outcome := e.runErrorHook(ctx, env)

	switch outcome.kind {
	case outcomeResolve:
		out, err := e.checkOutput(ctx, outcome.data)
		if err != nil {
			return e.rethrow(err)
		}

		e.stats.recovered()
		e.hooks.emitRecovered(cause)

		return out, nil

	case outcomeTransform, outcomeReject:
		if outcome.err != nil {
			return e.rethrow(outcome.err)
		}
	}

	return e.rethrow(cause)
}

func (e *engine) rethrow(err error) (any, error) {
	e.stats.rethrown()
	e.hooks.emitRethrown(err)

	return nil, err
}

func (e *engine) runErrorHook(ctx context.Context, env *ErrorEnvelope) (o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = Transform(newPanicError(r))
		}
	}()

	return e.onError(ctx, env)
}
