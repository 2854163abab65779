package onion

import "maps"

type (
	// Values is the key-value state accumulated during one invocation. A
	// Values map handed to middleware or a handler is read-only; extend it by
	// passing a delta to [Call.Next].
	Values map[string]any

	// Metadata is static per-function data fixed at construction time.
	// Middleware reads it to make policy decisions.
	Metadata map[string]any
)

// Merge returns a new map holding v overridden by delta. Only top-level keys
// are replaced; nested maps are not merged. Neither v nor delta is modified.
// When delta is empty, v itself is returned.
func (v Values) Merge(delta Values) Values {
	if len(delta) == 0 {
		return v
	}

	merged := make(Values, len(v)+len(delta))

	for key, val := range v {
		merged[key] = val
	}

	for key, val := range delta {
		merged[key] = val
	}

	return merged
}

// overlay returns a fresh map holding base overridden by override. Unlike
// Merge it always allocates, so the result belongs to a single invocation.
func overlay(base, override Values) Values {
	out := make(Values, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)

	return out
}

// Clone returns a shallow copy of v. A nil map clones to nil.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}

	out := make(Values, len(v))
	for key, val := range v {
		out[key] = val
	}

	return out
}

// Clone returns a shallow copy of m. A nil map clones to nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}

	out := make(Metadata, len(m))
	for key, val := range m {
		out[key] = val
	}

	return out
}

// Lookup returns the value stored under key when it exists and has type T.
func Lookup[T any, M ~map[string]any](m M, key string) (T, bool) {
	raw, ok := m[key]
	if !ok {
		var zero T
		return zero, false
	}

	val, ok := raw.(T)

	return val, ok
}
