package middleware

import (
	"context"
	"time"

	"github.com/byte4ever/onion"
)

// Pattern: Timeout — races the rest of the chain against a timer, returning
// onion.ErrTimeout if it does not complete in time. Distinguishes between
// timeout and parent context cancellation.

// Timeout bounds the rest of the chain to d. On expiry the context passed
// downstream is cancelled and [onion.ErrTimeout] is returned; a cancelled
// parent context returns the parent's error instead.
func Timeout(d time.Duration, opts ...Option) onion.Middleware {
	s := newSettings(opts)

	return func(ctx context.Context, call *onion.Call) (onion.Result, error) {
		// If the parent context is already done, return its error immediately.
		if err := ctx.Err(); err != nil {
			return onion.Result{}, err //nolint:wrapcheck // preserving context error identity
		}

		downstream, cancel := context.WithCancel(ctx)
		defer cancel()

		type outcome struct {
			err error
			res onion.Result
		}

		ch := make(chan outcome, 1)

		go func() {
			res, err := call.Next(downstream)
			ch <- outcome{res: res, err: err}
		}()

		timer := s.clock.NewTimer(d)
		defer timer.Stop()

		select {
		case o := <-ch:
			return o.res, o.err
		case <-ctx.Done():
			return onion.Result{}, ctx.Err() //nolint:wrapcheck // preserving context error identity
		case <-timer.C():
			return onion.Result{}, onion.ErrTimeout
		}
	}
}
