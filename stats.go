package onion

import (
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// StatusReporter interface
// ---------------------------------------------------------------------------.

type (
	// StatusReporter is implemented by every wrapped function built with
	// [WithRegistry]. The interface is non-generic so functions with
	// different type parameters share one [Registry].
	StatusReporter interface {
		// Name returns the wrapped function's name.
		Name() string
		// Status returns a snapshot of the function's counters.
		Status() FunctionStatus
	}

	// FunctionStatus is a point-in-time view of a wrapped function's
	// invocation counters.
	FunctionStatus struct {
		LastInvoked   time.Time `json:"last_invoked"`
		Name          string    `json:"name"`
		Invocations   int64     `json:"invocations"`
		Succeeded     int64     `json:"succeeded"`
		Failed        int64     `json:"failed"`
		Recovered     int64     `json:"recovered"`
		Rethrown      int64     `json:"rethrown"`
		ShortCircuits int64     `json:"short_circuits"`
	}

	// stats holds lock-free counters updated by every invocation.
	stats struct {
		lastInvokedNano atomic.Int64
		invocations     atomic.Int64
		succeeded       atomic.Int64
		failed          atomic.Int64
		recoveredCount  atomic.Int64
		rethrownCount   atomic.Int64
		shortCircuits   atomic.Int64
	}
)

func (s *stats) invoked(at time.Time) {
	s.invocations.Add(1)
	s.lastInvokedNano.Store(at.UnixNano())
}

func (s *stats) completed(err error) {
	if err != nil {
		s.failed.Add(1)

		return
	}

	s.succeeded.Add(1)
}

func (s *stats) recovered()      { s.recoveredCount.Add(1) }
func (s *stats) rethrown()       { s.rethrownCount.Add(1) }
func (s *stats) shortCircuited() { s.shortCircuits.Add(1) }

func (s *stats) status(name string) FunctionStatus {
	st := FunctionStatus{
		Name:          name,
		Invocations:   s.invocations.Load(),
		Succeeded:     s.succeeded.Load(),
		Failed:        s.failed.Load(),
		Recovered:     s.recoveredCount.Load(),
		Rethrown:      s.rethrownCount.Load(),
		ShortCircuits: s.shortCircuits.Load(),
	}

	if nano := s.lastInvokedNano.Load(); nano != 0 {
		st.LastInvoked = time.Unix(0, nano).UTC()
	}

	return st
}
