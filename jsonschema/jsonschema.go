// Package jsonschema adapts JSON Schema (draft 2020-12 by default) to
// [onion.Validator].
//
// Schemas are the source of truth for data contracts. Instances are encoded
// to JSON, validated, then decoded into the target Go type, so missing
// required fields are caught before decoding fills them with zero values.
//
//	v := jsonschema.MustNew[CreateUser](`{
//	    "type": "object",
//	    "required": ["name"],
//	    "properties": {"name": {"type": "string", "minLength": 1}}
//	}`)
//	f, err := onion.New("create-user", handler, onion.WithInput(v))
//
// [NewCompiler] returns an [onion.SchemaCompiler] for schemas declared in
// configuration files loaded by [onion.LoadConfig].
package jsonschema

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/byte4ever/onion"
)

const uriPrefix = "urn:onion:schema:"

type (
	// Validator validates instances against a compiled schema and decodes
	// them into T.
	Validator[T any] struct {
		schema *jschema.Schema
	}

	// Compiler compiles schemas by identifier. It is safe for concurrent
	// use; each identifier can be compiled once.
	Compiler struct {
		inner *jschema.Compiler
		mu    sync.Mutex
	}

	// Option configures a [Compiler].
	Option func(*jschema.Compiler)
)

// AssertFormat makes the "format" keyword an assertion instead of an
// annotation.
func AssertFormat() Option {
	return func(c *jschema.Compiler) {
		c.AssertFormat()
	}
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	inner := jschema.NewCompiler()

	for _, opt := range opts {
		opt(inner)
	}

	return &Compiler{inner: inner}
}

// Compile implements [onion.SchemaCompiler]. The returned validator decodes
// valid instances into their generic JSON form (maps, slices, float64).
//
//nolint:ireturn // returns interface by design
func (c *Compiler) Compile(id string, schemaJSON []byte) (onion.Validator[any], error) {
	s, err := c.compile(id, schemaJSON)
	if err != nil {
		return nil, err
	}

	return &Validator[any]{schema: s}, nil
}

func (c *Compiler) compile(id string, schemaJSON []byte) (*jschema.Schema, error) {
	uri := uriPrefix + url.PathEscape(id)

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: parsing schema %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err = c.inner.AddResource(uri, doc); err != nil {
		return nil, fmt.Errorf("jsonschema: adding resource %s: %w", id, err)
	}

	compiled, err := c.inner.Compile(uri)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: compiling schema %s: %w", id, err)
	}

	return compiled, nil
}

// New compiles schemaJSON into a validator producing T.
func New[T any](schemaJSON string, opts ...Option) (*Validator[T], error) {
	s, err := NewCompiler(opts...).compile("inline", []byte(schemaJSON))
	if err != nil {
		return nil, err
	}

	return &Validator[T]{schema: s}, nil
}

// MustNew is like [New] but panics on error.
func MustNew[T any](schemaJSON string, opts ...Option) *Validator[T] {
	v, err := New[T](schemaJSON, opts...)
	if err != nil {
		panic(err)
	}

	return v
}

// Parse validates raw and decodes it into T. raw may be a JSON document as
// []byte or [json.RawMessage], or any Go value, which is encoded first.
// Schema violations are reported as an [*onion.ValidationError] with one
// issue per failing keyword.
//
//nolint:ireturn // generic type parameter T, not an interface
func (v *Validator[T]) Parse(_ context.Context, raw any) (T, error) {
	var out T

	data, err := encode(raw)
	if err != nil {
		return out, invalidType(err)
	}

	inst, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return out, invalidType(err)
	}

	if err = v.schema.Validate(inst); err != nil {
		return out, toValidationError(err)
	}

	if err = json.Unmarshal(data, &out); err != nil {
		return out, invalidType(err)
	}

	return out, nil
}

func encode(raw any) ([]byte, error) {
	switch val := raw.(type) {
	case []byte:
		return val, nil
	case json.RawMessage:
		return val, nil
	default:
		return json.Marshal(raw) //nolint:wrapcheck // wrapped by invalidType
	}
}

func invalidType(err error) error {
	return &onion.ValidationError{
		Issues: []onion.Issue{{
			Code:    onion.CodeInvalidType,
			Message: err.Error(),
		}},
		Err: err,
	}
}

func toValidationError(err error) error {
	ve, ok := err.(*jschema.ValidationError) //nolint:errorlint // Validate returns the concrete type
	if !ok {
		return &onion.ValidationError{
			Issues: []onion.Issue{{Code: onion.CodeCustom, Message: err.Error()}},
			Err:    err,
		}
	}

	var issues []onion.Issue

	for _, unit := range ve.BasicOutput().Errors {
		if unit.Error == nil {
			continue
		}

		issues = append(issues, onion.Issue{
			Path:    unit.InstanceLocation,
			Code:    code(unit.KeywordLocation),
			Message: unit.Error.String(),
		})
	}

	if len(issues) == 0 {
		issues = []onion.Issue{{Code: onion.CodeCustom, Message: ve.Error()}}
	}

	return &onion.ValidationError{Issues: issues, Err: err}
}

// code maps the failing keyword to an issue code.
func code(keywordLocation string) string {
	keyword := path.Base(keywordLocation)

	switch {
	case keyword == "type":
		return onion.CodeInvalidType
	case strings.HasPrefix(keyword, "min"), keyword == "exclusiveMinimum":
		return onion.CodeTooSmall
	case strings.HasPrefix(keyword, "max"), keyword == "exclusiveMaximum":
		return onion.CodeTooBig
	case keyword == "." || keyword == "/":
		return onion.CodeCustom
	default:
		return keyword
	}
}
