package onion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// engine — the type-erased core shared by Func and ArgsFunc
// ---------------------------------------------------------------------------

type (
	mode int

	// engine holds the configuration captured at construction. It is
	// read-only once built and shared by all invocations.
	engine struct {
		clock           Clock
		input           Validator[any]
		output          Validator[any]
		valuesValidator Validator[Values]
		logger          *slog.Logger
		stats           *stats
		handler         func(ctx context.Context, in any, values Values, md Metadata) (any, error)
		inputType       func(raw any) (any, error)
		outputType      func(raw any) (any, error)
		onError         ErrorHook
		values          Values
		metadata        Metadata
		hooks           Hooks
		name            string
		middleware      []Middleware
		args            []Validator[any]
		mode            mode
		hasArgs         bool
		lazyInput       bool
	}

	// invocation is the per-call state. Nothing in it is shared between
	// calls.
	invocation struct {
		e          *engine
		rawInput   any
		validated  *lazy
		last       atomic.Pointer[Values]
		handlerErr error
		id         string
		rawArgs    []any
		mu         sync.Mutex
		handlerRan atomic.Bool
	}
)

const (
	modeInput mode = iota
	modeArgs
)

// Name returns the wrapped function's name.
func (e *engine) Name() string { return e.name }

// Status reports the invocation counters of the wrapped function.
func (e *engine) Status() FunctionStatus { return e.stats.status(e.name) }

func (e *engine) newInvocation(rawInput any, rawArgs []any) *invocation {
	inv := &invocation{
		e:        e,
		id:       uuid.NewString(),
		rawInput: rawInput,
		rawArgs:  rawArgs,
	}
	inv.validated = newLazy(inv.parse)

	return inv
}

// validates reports whether the active mode has a configured validator.
func (e *engine) validates() bool {
	if e.mode == modeArgs {
		return e.hasArgs
	}

	return e.input != nil
}

// invoke is the single entry point of every wrapped call. Any error that is
// not a usage error goes through the error hook exactly once.
func (e *engine) invoke(
	ctx context.Context,
	rawInput any,
	rawArgs []any,
	override Values,
) (any, error) {
	start := e.clock.Now()
	inv := e.newInvocation(rawInput, rawArgs)

	e.hooks.emitInvoke(e.name, inv.id)
	e.stats.invoked(start)

	out, err := e.execute(ctx, inv, overlay(e.values, override))
	if err != nil && !IsUsage(err) {
		out, err = e.recoverFrom(ctx, inv, err)
	}

	e.stats.completed(err)
	e.hooks.emitComplete(e.name, e.clock.Since(start), err)

	return out, err
}

func (e *engine) execute(
	ctx context.Context,
	inv *invocation,
	values Values,
) (any, error) {
	inv.observe(values)

	if e.valuesValidator != nil {
		checked, err := safeParse(ctx, e.valuesValidator, values)
		if err != nil {
			return nil, e.invalid(TargetContext, err)
		}

		values = checked
		inv.observe(values)
	}

	// Fast path: no chain to drive.
	if len(e.middleware) == 0 {
		res, err := e.terminal(inv)(ctx, values)
		if err != nil {
			return nil, err
		}

		return e.checkOutput(ctx, res.Output)
	}

	if !e.lazyInput && e.validates() {
		if _, err := inv.validated.get(ctx); err != nil {
			return nil, err
		}
	}

	res, err := inv.advance(ctx, e.middleware, 0, values, e.terminal(inv))
	if err != nil {
		return nil, err
	}

	if !res.Success {
		return nil, ErrNoResult
	}

	if !inv.handlerRan.Load() {
		e.stats.shortCircuited()
		e.hooks.emitShortCircuit(e.name)
	}

	return e.checkOutput(ctx, res.Output)
}

// terminal returns the step that runs the handler once the middleware list
// is exhausted.
func (e *engine) terminal(
	inv *invocation,
) func(context.Context, Values) (Result, error) {
	return func(ctx context.Context, values Values) (Result, error) {
		inv.observe(values)

		in, err := inv.handlerInput(ctx)
		if err != nil {
			return Result{}, err
		}

		inv.handlerRan.Store(true)

		out, err := e.callHandler(ctx, inv, in, values)
		if err != nil {
			return Result{}, err
		}

		return Result{Output: out, Values: values, Success: true}, nil
	}
}

func (e *engine) callHandler(
	ctx context.Context,
	inv *invocation,
	in any,
	values Values,
) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, newPanicError(r)
		}

		if err != nil {
			inv.setHandlerErr(err)
		}
	}()

	return e.handler(ctx, in, values, e.metadata)
}

func (e *engine) checkOutput(ctx context.Context, raw any) (any, error) {
	if e.output != nil {
		out, err := safeParse(ctx, e.output, raw)
		if err != nil {
			return nil, e.invalid(TargetOutput, err)
		}

		return out, nil
	}

	out, err := e.outputType(raw)
	if err != nil {
		return nil, e.invalid(TargetOutput, err)
	}

	return out, nil
}

// invalid normalizes a validator failure and reports it.
func (e *engine) invalid(target Target, err error) error {
	err = invalid(target, err)
	if IsValidation(err) {
		e.hooks.emitValidationFailed(target, err)
	}

	return err
}

// parseArgs validates positional arguments against the configured list.
// The arity must match exactly.
func (e *engine) parseArgs(ctx context.Context, raw []any) (any, error) {
	var issues []Issue

	for i := len(raw); i < len(e.args); i++ {
		issues = append(issues, Issue{
			Path:    fmt.Sprintf("/%d", i),
			Code:    CodeTooSmall,
			Message: "missing argument",
		})
	}

	if len(raw) > len(e.args) {
		issues = append(issues, Issue{
			Path: fmt.Sprintf("/%d", len(e.args)),
			Code: CodeTooBig,
			Message: fmt.Sprintf(
				"expected %d arguments, got %d", len(e.args), len(raw),
			),
		})
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Target: TargetArgs, Issues: issues}
	}

	var errs []error

	out := make([]any, len(raw))

	for i, v := range e.args {
		val, err := safeParse(ctx, v, raw[i])
		if err == nil {
			out[i] = val

			continue
		}

		errs = append(errs, err)

		var ve *ValidationError
		if !errors.As(invalid(TargetArgs, err), &ve) {
			return nil, err
		}

		for _, is := range ve.Issues {
			is.Path = fmt.Sprintf("/%d%s", i, is.Path)
			issues = append(issues, is)
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{
			Target: TargetArgs,
			Issues: issues,
			Err:    errors.Join(errs...),
		}
	}

	return out, nil
}

// ---------------------------------------------------------------------------
// invocation
// ---------------------------------------------------------------------------

// advance runs middleware i, or terminal once the list is exhausted. A panic
// in the middleware body becomes a *PanicError returned to the caller of
// this step.
func (inv *invocation) advance(
	ctx context.Context,
	mws []Middleware,
	i int,
	values Values,
	terminal func(context.Context, Values) (Result, error),
) (res Result, err error) {
	inv.observe(values)

	if i == len(mws) {
		return terminal(ctx, values)
	}

	call := &Call{
		inv:    inv,
		values: values,
		next: func(ctx context.Context, next Values) (Result, error) {
			return inv.advance(ctx, mws, i+1, next, terminal)
		},
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, newPanicError(r)
		}
	}()

	return mws[i](ctx, call)
}

// parse is the lazy cell's body: it runs the active mode's validator.
func (inv *invocation) parse(ctx context.Context) (any, error) {
	e := inv.e

	if e.mode == modeArgs {
		out, err := e.parseArgs(ctx, inv.rawArgs)
		if err != nil {
			return nil, e.invalid(TargetArgs, err)
		}

		return out, nil
	}

	out, err := safeParse(ctx, e.input, inv.rawInput)
	if err != nil {
		return nil, e.invalid(TargetInput, err)
	}

	return out, nil
}

func (inv *invocation) valid(ctx context.Context, kind Kind) (any, error) {
	e := inv.e

	switch kind {
	case KindInput:
		if e.mode != modeInput || e.input == nil {
			return nil, ErrNoInputSchema
		}
	case KindArgs:
		if e.mode != modeArgs || !e.hasArgs {
			return nil, ErrNoArgsSchema
		}
	default:
		return nil, ErrUnknownKind
	}

	return inv.validated.get(ctx)
}

// handlerInput returns what the handler receives: the cached validated value
// when a validator is configured, the raw payload otherwise.
func (inv *invocation) handlerInput(ctx context.Context) (any, error) {
	e := inv.e

	switch {
	case e.validates():
		return inv.validated.get(ctx)
	case e.mode == modeArgs:
		args := slices.Clone(inv.rawArgs)
		if args == nil {
			args = []any{}
		}

		return args, nil
	default:
		in, err := e.inputType(inv.rawInput)
		if err != nil {
			return nil, e.invalid(TargetInput, err)
		}

		return in, nil
	}
}

func (inv *invocation) observe(values Values) {
	inv.last.Store(&values)
}

func (inv *invocation) lastValues() Values {
	if p := inv.last.Load(); p != nil {
		return *p
	}

	return nil
}

func (inv *invocation) setHandlerErr(err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.handlerErr = err
}

// classify tags err for the error envelope.
func (inv *invocation) classify(err error) ErrorKind {
	if IsValidation(err) {
		return ErrorKindValidation
	}

	inv.mu.Lock()
	handlerErr := inv.handlerErr
	inv.mu.Unlock()

	if handlerErr != nil && errors.Is(err, handlerErr) {
		return ErrorKindHandler
	}

	return ErrorKindMiddleware
}
