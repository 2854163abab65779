package onion_test

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/byte4ever/onion"
)

// ---------------------------------------------------------------------------
// Chain composes middlewares in onion order
// ---------------------------------------------------------------------------

func TestChainPreservesOrder(t *testing.T) {
	var trace []string

	f := onion.MustNew("chain",
		func(_ context.Context, req onion.Request[string]) (string, error) {
			trace = append(trace, "handler")
			return req.Input, nil
		},
		onion.WithMiddleware(
			tracer(&trace, "A"),
			onion.Chain(tracer(&trace, "B"), nil, tracer(&trace, "C")),
			tracer(&trace, "D"),
		),
	)

	if _, err := f.Call(context.Background(), "x"); err != nil {
		t.Fatalf("Call() error = %v, want nil", err)
	}

	want := []string{
		"A-before", "B-before", "C-before", "D-before",
		"handler",
		"D-after", "C-after", "B-after", "A-after",
	}
	if !slices.Equal(trace, want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
}

func TestEmptyChainPassesThrough(t *testing.T) {
	f := onion.MustNew("empty", echo, onion.WithMiddleware(onion.Chain()))

	if got, err := f.Call(context.Background(), "x"); err != nil || got != "x" {
		t.Fatalf("Call() = %q, %v; want %q, nil", got, err, "x")
	}
}

func TestChainCarriesDeltas(t *testing.T) {
	set := func(key string, val any) onion.Middleware {
		return func(ctx context.Context, call *onion.Call) (onion.Result, error) {
			return call.Next(ctx, onion.Values{key: val})
		}
	}

	f := onion.MustNew("chain-values",
		func(_ context.Context, req onion.Request[string]) (string, error) {
			a, _ := onion.Lookup[string](req.Values, "a")
			b, _ := onion.Lookup[string](req.Values, "b")

			return a + b, nil
		},
		onion.WithMiddleware(onion.Chain(set("a", "1"), set("b", "2"))),
	)

	if got, _ := f.Call(context.Background(), "x"); got != "12" {
		t.Fatalf("Call() = %q, want %q", got, "12")
	}
}

// ---------------------------------------------------------------------------
// Next is memoized: no double resume
// ---------------------------------------------------------------------------

func TestNextRunsDownstreamOnce(t *testing.T) {
	var handlerCalls atomic.Int32

	f := onion.MustNew("twice",
		func(_ context.Context, req onion.Request[string]) (string, error) {
			handlerCalls.Add(1)
			return req.Input, nil
		},
		onion.WithMiddleware(func(ctx context.Context, call *onion.Call) (onion.Result, error) {
			first, err1 := call.Next(ctx)
			second, err2 := call.Next(ctx, onion.Values{"ignored": true})

			if first.Output != second.Output || first.Success != second.Success ||
				!reflect.DeepEqual(first.Values, second.Values) || err1 != err2 {
				t.Errorf("Next() results differ: %v/%v vs %v/%v", first, err1, second, err2)
			}

			return second, err2
		}),
	)

	if _, err := f.Call(context.Background(), "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if n := handlerCalls.Load(); n != 1 {
		t.Fatalf("handler calls = %d, want 1", n)
	}
}

func TestNextConcurrentCallsShareResult(t *testing.T) {
	var handlerCalls atomic.Int32

	f := onion.MustNew("race",
		func(_ context.Context, req onion.Request[string]) (string, error) {
			handlerCalls.Add(1)
			return req.Input, nil
		},
		onion.WithMiddleware(func(ctx context.Context, call *onion.Call) (onion.Result, error) {
			var wg sync.WaitGroup

			results := make([]onion.Result, 8)

			wg.Add(len(results))

			for i := range results {
				go func() {
					defer wg.Done()

					results[i], _ = call.Next(ctx)
				}()
			}

			wg.Wait()

			return results[0], nil
		}),
	)

	if got, err := f.Call(context.Background(), "x"); err != nil || got != "x" {
		t.Fatalf("Call() = %q, %v; want x, nil", got, err)
	}

	if n := handlerCalls.Load(); n != 1 {
		t.Fatalf("handler calls = %d, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// Aborts
// ---------------------------------------------------------------------------

func TestMiddlewareAbort(t *testing.T) {
	denied := errors.New("denied")

	var handlerCalled bool

	f := onion.MustNew("abort",
		func(context.Context, onion.Request[string]) (string, error) {
			handlerCalled = true
			return "", nil
		},
		onion.WithMiddleware(func(context.Context, *onion.Call) (onion.Result, error) {
			return onion.Result{}, denied
		}),
		quiet(),
	)

	if _, err := f.Call(context.Background(), "x"); !errors.Is(err, denied) {
		t.Fatalf("Call() error = %v, want %v", err, denied)
	}

	if handlerCalled {
		t.Fatal("handler called after abort")
	}
}

func TestMiddlewareWithoutResult(t *testing.T) {
	f := onion.MustNew("noresult", echo,
		onion.WithMiddleware(func(context.Context, *onion.Call) (onion.Result, error) {
			return onion.Result{}, nil
		}),
		quiet(),
	)

	if _, err := f.Call(context.Background(), "x"); !errors.Is(err, onion.ErrNoResult) {
		t.Fatalf("Call() error = %v, want ErrNoResult", err)
	}
}

func TestMiddlewareSwallowsError(t *testing.T) {
	f := onion.MustNew("swallow",
		func(context.Context, onion.Request[string]) (string, error) {
			return "", errors.New("boom")
		},
		onion.WithMiddleware(func(ctx context.Context, call *onion.Call) (onion.Result, error) {
			if _, err := call.Next(ctx); err != nil {
				return call.Done("fallback"), nil
			}

			return onion.Result{}, errors.New("unexpected success")
		}),
	)

	if got, err := f.Call(context.Background(), "x"); err != nil || got != "fallback" {
		t.Fatalf("Call() = %q, %v; want fallback, nil", got, err)
	}
}

// ---------------------------------------------------------------------------
// Panics become *PanicError
// ---------------------------------------------------------------------------

func TestPanicInMiddleware(t *testing.T) {
	var outerErr error

	f := onion.MustNew("panic", echo,
		onion.WithMiddleware(
			func(ctx context.Context, call *onion.Call) (onion.Result, error) {
				res, err := call.Next(ctx)
				outerErr = err

				return res, err
			},
			func(context.Context, *onion.Call) (onion.Result, error) {
				panic("inner")
			},
		),
		quiet(),
	)

	_, err := f.Call(context.Background(), "x")
	if !onion.IsPanic(err) {
		t.Fatalf("Call() error = %v, want *PanicError", err)
	}

	if !onion.IsPanic(outerErr) {
		t.Fatalf("outer middleware saw %v, want *PanicError", outerErr)
	}
}

func TestPanicInHandlerAndValidator(t *testing.T) {
	boom := errors.New("boom")

	handler := onion.MustNew("handler-panic",
		func(context.Context, onion.Request[string]) (string, error) {
			panic(boom)
		},
		quiet(),
	)

	_, err := handler.Call(context.Background(), "x")
	if !onion.IsPanic(err) || !errors.Is(err, boom) {
		t.Fatalf("Call() error = %v, want *PanicError wrapping boom", err)
	}

	validator := onion.MustNew("validator-panic", echo,
		onion.WithInput(onion.ValidatorFunc[string](func(context.Context, any) (string, error) {
			panic("bad validator")
		})),
		quiet(),
	)

	_, err = validator.Call(context.Background(), "x")

	var pe *onion.PanicError
	if !errors.As(err, &pe) || pe.Value != "bad validator" || pe.Stack == "" {
		t.Fatalf("Call() error = %v, want *PanicError with stack", err)
	}
}
