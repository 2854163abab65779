package onion

import (
	"context"
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
)

// Pattern: Adapter — every validation library is reduced to one Parse
// operation; adapters are chosen explicitly when a function is configured.

type (
	// Validator checks a raw value and returns its validated form. Parse may
	// transform the value (coercion, defaults); the engine calls it at most
	// once per target per invocation.
	Validator[T any] interface {
		Parse(ctx context.Context, raw any) (T, error)
	}

	// ValidatorFunc adapts a plain function to [Validator].
	ValidatorFunc[T any] func(ctx context.Context, raw any) (T, error)
)

// Parse calls f(ctx, raw).
//
//nolint:ireturn // generic type parameter T, not an interface
func (f ValidatorFunc[T]) Parse(ctx context.Context, raw any) (T, error) {
	return f(ctx, raw)
}

// TypeOf returns a validator that only checks raw has Go type T.
//
//nolint:ireturn // returns interface by design
func TypeOf[T any]() Validator[T] {
	return ValidatorFunc[T](func(_ context.Context, raw any) (T, error) {
		return assertType[T](raw)
	})
}

// Check returns a validator that asserts raw has type T and then runs pred.
// A non-nil error from pred becomes a single custom issue.
//
//nolint:ireturn // returns interface by design
func Check[T any](pred func(T) error) Validator[T] {
	return ValidatorFunc[T](func(_ context.Context, raw any) (T, error) {
		val, err := assertType[T](raw)
		if err != nil {
			return val, err
		}

		if err = pred(val); err != nil {
			var zero T

			return zero, &ValidationError{
				Issues: []Issue{{Code: CodeCustom, Message: err.Error()}},
				Err:    err,
			}
		}

		return val, nil
	})
}

// Erase turns a typed validator into one producing any. It is how positional
// argument validators of different types share a single list.
//
//nolint:ireturn // returns interface by design
func Erase[T any](v Validator[T]) Validator[any] {
	if va, ok := any(v).(Validator[any]); ok {
		return va
	}

	return ValidatorFunc[any](func(ctx context.Context, raw any) (any, error) {
		val, err := v.Parse(ctx, raw)
		if err != nil {
			return nil, err
		}

		return val, nil
	})
}

// Decode wraps a loosely typed validator so its result is converted to T.
// Values that are not already a T are converted by reflection when the types
// are convertible, and by a JSON round trip otherwise.
//
//nolint:ireturn // returns interface by design
func Decode[T any](v Validator[any]) Validator[T] {
	return ValidatorFunc[T](func(ctx context.Context, raw any) (T, error) {
		val, err := v.Parse(ctx, raw)
		if err != nil {
			var zero T
			return zero, err
		}

		return convert[T](val)
	})
}

// assertType returns raw as a T. A nil raw is accepted when T is nilable.
//
//nolint:ireturn // generic type parameter T, not an interface
func assertType[T any](raw any) (T, error) {
	if val, ok := raw.(T); ok {
		return val, nil
	}

	var zero T

	want := reflect.TypeFor[T]()
	if raw == nil && nilable(want) {
		return zero, nil
	}

	return zero, &ValidationError{
		Issues: []Issue{{
			Code:    CodeInvalidType,
			Message: fmt.Sprintf("expected %s, got %T", want, raw),
		}},
	}
}

// convert is assertType with reflection conversion and a JSON fallback.
//
//nolint:ireturn // generic type parameter T, not an interface
func convert[T any](raw any) (T, error) {
	if val, err := assertType[T](raw); err == nil {
		return val, nil
	}

	var out T

	want := reflect.TypeFor[T]()
	if rv := reflect.ValueOf(raw); rv.IsValid() &&
		rv.Type().ConvertibleTo(want) &&
		rv.Kind() == want.Kind() {
		return rv.Convert(want).Interface().(T), nil //nolint:forcetypeassert // Convert guarantees T
	}

	data, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(data, &out)
	}

	if err != nil {
		return out, &ValidationError{
			Issues: []Issue{{
				Code:    CodeInvalidType,
				Message: fmt.Sprintf("cannot convert %T to %s: %v", raw, want, err),
			}},
			Err: err,
		}
	}

	return out, nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// isNil reports whether v is nil or wraps a nil func, pointer or map.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	if nilable(rv.Type()) {
		return rv.IsNil()
	}

	return false
}

// safeParse runs v and converts a panic into a *PanicError.
//
//nolint:ireturn // generic type parameter T, not an interface
func safeParse[T any](ctx context.Context, v Validator[T], raw any) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()

	return v.Parse(ctx, raw)
}
