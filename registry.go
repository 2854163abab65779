package onion

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Registry — named functions and their loaded configuration
// ---------------------------------------------------------------------------.

type (
	// Snapshot is the status of every function registered with a registry.
	Snapshot struct {
		Functions []FunctionStatus `json:"functions"`
	}

	// Registry tracks [StatusReporter] instances and holds configuration
	// loaded by [LoadConfig]. There is no package-level registry; functions
	// register only when built with [WithRegistry].
	Registry struct {
		reporters atomic.Pointer[[]StatusReporter]
		configs   map[string]FunctionConfig
		options   map[string][]any
		mu        sync.Mutex
	}
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		configs: map[string]FunctionConfig{},
		options: map[string][]any{},
	}

	var empty []StatusReporter

	r.reporters.Store(&empty)

	return r
}

// Register adds a StatusReporter to the registry.
// It is safe for concurrent use but intended for initialization only.
func (r *Registry) Register(sr StatusReporter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.reporters.Load()
	// Copy-on-write so concurrent Snapshot calls never see a partial slice.
	updated := make([]StatusReporter, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, sr)
	r.reporters.Store(&updated)
}

// Snapshot collects the status of every registered function in
// registration order.
func (r *Registry) Snapshot() Snapshot {
	reporters := *r.reporters.Load()

	snap := Snapshot{
		Functions: make([]FunctionStatus, 0, len(reporters)),
	}

	for _, sr := range reporters {
		snap.Functions = append(snap.Functions, sr.Status())
	}

	return snap
}

// Status returns the status of the first registered function named name.
func (r *Registry) Status(name string) (FunctionStatus, bool) {
	for _, sr := range *r.reporters.Load() {
		if sr.Name() == name {
			return sr.Status(), true
		}
	}

	return FunctionStatus{}, false
}

// Config returns the loaded configuration for name.
func (r *Registry) Config(name string) (FunctionConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fc, ok := r.configs[name]

	return fc, ok
}

// configured returns the options built from the loaded configuration.
func (r *Registry) configured(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.options[name]
}
