package onion

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------.

type (
	// EngineError identifies errors produced by the invocation engine itself,
	// as opposed to errors from middleware, validators or the handler.
	//nolint:iface // exported for consumer error classification.
	EngineError interface {
		error
		// IsEngine reports whether this error originates from the engine.
		IsEngine() bool
	}

	// Target names the slot a validator was attached to.
	Target string

	// Issue describes one reason a value failed validation.
	Issue struct {
		// Path is a JSON-pointer-like location inside the value ("" for the
		// value itself, "/0" for the first positional argument).
		Path string `json:"path"`
		// Code is a short machine-readable reason, see the Code* constants.
		Code string `json:"code"`
		// Message is a human-readable explanation.
		Message string `json:"message"`
	}

	// ValidationError is returned when input, args, output, metadata or
	// values fail their configured validator.
	ValidationError struct {
		// Err is the error returned by the validator, if any.
		Err    error
		Target Target
		Issues []Issue
	}

	// PanicError wraps a value recovered from a panicking middleware,
	// handler, validator or error hook.
	PanicError struct {
		// Value is the original value passed to panic().
		Value any
		// Stack is the stack trace captured at the point of recovery.
		Stack string
	}

	// engineError is the concrete type backing all configuration and
	// execution sentinels.
	engineError string

	// usageError backs sentinels for API misuse inside middleware. Usage
	// errors are never routed through the error hook.
	usageError string
)

// Validation targets.
const (
	TargetInput    Target = "input"
	TargetArgs     Target = "args"
	TargetOutput   Target = "output"
	TargetMetadata Target = "metadata"
	TargetContext  Target = "context"
)

// Issue codes produced by the engine and its adapters.
const (
	CodeInvalidType = "invalid_type"
	CodeTooSmall    = "too_small"
	CodeTooBig      = "too_big"
	CodeCustom      = "custom"
)

// Sentinel engine errors.
var (
	// ErrNoHandler is returned by constructors given a nil handler.
	ErrNoHandler error = engineError("handler is required")
	// ErrNilValidator is returned when a nil validator is configured.
	ErrNilValidator error = engineError("validator is nil")
	// ErrNilMiddleware is returned when a nil middleware is registered.
	ErrNilMiddleware error = engineError("middleware is nil")
	// ErrValidatorType is returned when a validator's value type does not
	// match the function's input or output type.
	ErrValidatorType error = engineError("validator type does not match function type")
	// ErrModeConflict is returned when input and args validators are mixed.
	ErrModeConflict error = engineError("input and args modes are mutually exclusive")
	// ErrUnknownOption is returned for option values no constructor
	// understands.
	ErrUnknownOption error = engineError("unknown option")
	// ErrNoResult is returned when a middleware returns an unsuccessful
	// result without an error.
	ErrNoResult error = engineError("middleware returned without a successful result")
	// ErrNoSchemaCompiler is returned when a configuration declares schemas
	// but no [SchemaCompiler] was supplied.
	ErrNoSchemaCompiler error = engineError("schema compiler is required")
	// ErrTimeout is returned by timeout middleware when the rest of the
	// chain does not finish in time.
	ErrTimeout error = engineError("timeout")
)

// Sentinel usage errors.
var (
	// ErrNoInputSchema is returned by Valid(KindInput) when no input
	// validator is configured.
	ErrNoInputSchema error = usageError(
		"no input schema defined: Valid(input) requires WithInput",
	)
	// ErrNoArgsSchema is returned by Valid(KindArgs) when no args validators
	// are configured.
	ErrNoArgsSchema error = usageError(
		"no args schema defined: Valid(args) requires WithArgs",
	)
	// ErrUnknownKind is returned by Valid for a kind other than KindInput or
	// KindArgs.
	ErrUnknownKind error = usageError("unknown validation kind")
)

func (e engineError) Error() string { return string(e) }

// IsEngine reports whether the error is an engine error.
func (engineError) IsEngine() bool { return true }

func (e usageError) Error() string { return string(e) }

// IsUsage reports whether the error is a usage error.
func (usageError) IsUsage() bool { return true }

// Error joins the issues into a single line.
func (e *ValidationError) Error() string {
	var sb strings.Builder

	sb.WriteString("invalid ")
	sb.WriteString(string(e.Target))

	for i, is := range e.Issues {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}

		if is.Path != "" {
			sb.WriteString(is.Path)
			sb.WriteString(": ")
		}

		sb.WriteString(is.Message)
	}

	return sb.String()
}

// Unwrap returns the validator's original error.
func (e *ValidationError) Unwrap() error { return e.Err }

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: string(debug.Stack())}
}

// IsValidation reports whether err is or wraps a [*ValidationError].
func IsValidation(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}

// IsUsage reports whether err is or wraps a usage error such as
// [ErrNoInputSchema]. Usage errors bypass the error hook.
func IsUsage(err error) bool {
	var ue interface{ IsUsage() bool }

	return errors.As(err, &ue) && ue.IsUsage()
}

// IsPanic reports whether err is or wraps a [*PanicError].
func IsPanic(err error) bool {
	var pe *PanicError

	return errors.As(err, &pe)
}

// invalid normalizes err into a *ValidationError for target. Usage errors
// are returned unchanged.
func invalid(target Target, err error) error {
	if IsUsage(err) {
		return err
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Target == target {
			return ve
		}

		cp := *ve
		cp.Target = target

		return &cp
	}

	return &ValidationError{
		Target: target,
		Issues: []Issue{{Code: CodeCustom, Message: err.Error()}},
		Err:    err,
	}
}
