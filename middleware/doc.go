// Package middleware provides ready-made layers for onion functions.
//
// Every layer is an [onion.Middleware] built only on the public [onion.Call]
// contract: it reads the working values and metadata, calls Next at most once
// and passes, transforms, short-circuits or aborts the result. Register them
// with [onion.WithMiddleware]; registration order is the onion order.
//
//	f, err := onion.New("create-user", handler,
//		onion.WithMiddleware(
//			middleware.Recover(logger),
//			middleware.Logging(logger),
//			middleware.Timeout(2*time.Second),
//		),
//	)
package middleware

import (
	"github.com/byte4ever/onion"
)

type (
	// Option configures the time-aware layers ([Logging], [Timeout]).
	Option func(*settings)

	settings struct {
		clock onion.Clock
	}
)

// WithClock sets the clock used for durations and timers. It defaults to
// [onion.RealClock].
func WithClock(c onion.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

func newSettings(opts []Option) settings {
	s := settings{clock: onion.RealClock{}}

	for _, opt := range opts {
		opt(&s)
	}

	if s.clock == nil {
		s.clock = onion.RealClock{}
	}

	return s
}
