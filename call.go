package onion

import (
	"context"
	"slices"
	"sync"
)

type (
	// Result is what travels back up the chain once the handler, or a
	// short-circuiting middleware, has produced an output.
	Result struct {
		// Output is the value produced so far. It is checked against the
		// function's output type or validator once the chain returns.
		Output any
		// Values is the working context at the point the output was
		// produced.
		Values Values
		// Success is false only for the zero Result; the engine rejects an
		// unsuccessful result returned without an error.
		Success bool
	}

	// Call is one middleware's view of the invocation in progress.
	Call struct {
		inv    *invocation
		values Values
		next   func(context.Context, Values) (Result, error)
		res    Result
		err    error
		once   sync.Once
	}
)

// RawInput returns the unvalidated input of a single-input function, or nil
// in args mode.
func (c *Call) RawInput() any { return c.inv.rawInput }

// RawArgs returns a copy of the unvalidated positional arguments, or nil in
// single-input mode.
func (c *Call) RawArgs() []any { return slices.Clone(c.inv.rawArgs) }

// Values returns the working context as this middleware sees it.
func (c *Call) Values() Values { return c.values }

// Metadata returns the function's metadata.
func (c *Call) Metadata() Metadata { return c.inv.e.metadata }

// Name returns the wrapped function's name.
func (c *Call) Name() string { return c.inv.e.name }

// InvocationID returns the identifier of the current invocation.
func (c *Call) InvocationID() string { return c.inv.id }

// Next runs the rest of the chain. Deltas are merged into the working
// context in order, later keys winning, before the next middleware runs.
//
// Only the first call advances the chain. Later calls, including concurrent
// ones, ignore their deltas and return the same result and error.
func (c *Call) Next(ctx context.Context, delta ...Values) (Result, error) {
	c.once.Do(func() {
		values := c.values
		for _, d := range delta {
			values = values.Merge(d)
		}

		c.res, c.err = c.next(ctx, values)
	})

	return c.res, c.err
}

// Valid runs the validator selected by kind against the raw input or args
// and caches the outcome for the rest of the invocation. It returns a usage
// error when no validator is configured for kind.
func (c *Call) Valid(ctx context.Context, kind Kind) (any, error) {
	return c.inv.valid(ctx, kind)
}

// Done builds a successful result without running the rest of the chain.
func (c *Call) Done(output any) Result {
	return Result{Output: output, Values: c.values, Success: true}
}
