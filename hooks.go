package onion

import "time"

// Hooks holds optional callback functions for invocation lifecycle events.
// All fields are nil by default; callers set only the hooks they care
// about. A Hooks value must not be mutated once passed to [WithHooks]; emit
// methods read the function fields without synchronisation.
//
// Pattern: Observer — decouples lifecycle event emission from consumers
// (logging, metrics, alerting) without the engine knowing about observers.
type Hooks struct {
	OnInvoke           func(name, invocationID string)
	OnValidationFailed func(target Target, err error)
	OnShortCircuit     func(name string)
	OnError            func(kind ErrorKind, err error)
	OnRecovered        func(err error)
	OnRethrown         func(err error)
	OnComplete         func(name string, elapsed time.Duration, err error)
}

func (h *Hooks) emitInvoke(name, invocationID string) {
	if h.OnInvoke != nil {
		h.OnInvoke(name, invocationID)
	}
}

func (h *Hooks) emitValidationFailed(target Target, err error) {
	if h.OnValidationFailed != nil {
		h.OnValidationFailed(target, err)
	}
}

func (h *Hooks) emitShortCircuit(name string) {
	if h.OnShortCircuit != nil {
		h.OnShortCircuit(name)
	}
}

func (h *Hooks) emitError(kind ErrorKind, err error) {
	if h.OnError != nil {
		h.OnError(kind, err)
	}
}

func (h *Hooks) emitRecovered(err error) {
	if h.OnRecovered != nil {
		h.OnRecovered(err)
	}
}

func (h *Hooks) emitRethrown(err error) {
	if h.OnRethrown != nil {
		h.OnRethrown(err)
	}
}

func (h *Hooks) emitComplete(name string, elapsed time.Duration, err error) {
	if h.OnComplete != nil {
		h.OnComplete(name, elapsed, err)
	}
}
