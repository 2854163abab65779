package jsonschema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/onion"
)

const userSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"age": {"type": "integer", "minimum": 0, "maximum": 150}
	}
}`

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestParseDecodesIntoType(t *testing.T) {
	v := MustNew[user](userSchema)

	got, err := v.Parse(context.Background(), map[string]any{"name": "ada", "age": 36})
	require.NoError(t, err)
	assert.Equal(t, user{Name: "ada", Age: 36}, got)
}

func TestParseAcceptsRawJSON(t *testing.T) {
	v := MustNew[user](userSchema)

	got, err := v.Parse(context.Background(), []byte(`{"name":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Name)
}

func TestParseReportsIssues(t *testing.T) {
	v := MustNew[user](userSchema)

	_, err := v.Parse(context.Background(), map[string]any{"age": 200})
	require.Error(t, err)

	var ve *onion.ValidationError
	require.True(t, errors.As(err, &ve))
	require.NotEmpty(t, ve.Issues)

	codes := make([]string, 0, len(ve.Issues))
	for _, is := range ve.Issues {
		codes = append(codes, is.Code)
		assert.NotEmpty(t, is.Message, "issue %s at %q", is.Code, is.Path)
	}

	assert.Contains(t, codes, "required")
	assert.Contains(t, codes, onion.CodeTooBig)
}

func TestParseWrongType(t *testing.T) {
	v := MustNew[string](`{"type": "string"}`)

	_, err := v.Parse(context.Background(), 123)
	require.Error(t, err)

	var ve *onion.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Issues, findIssue(ve.Issues, "", onion.CodeInvalidType))
}

func TestParseUnencodable(t *testing.T) {
	v := MustNew[any](`{}`)

	_, err := v.Parse(context.Background(), make(chan int))
	require.Error(t, err)
	assert.True(t, onion.IsValidation(err))
}

func TestNewRejectsBadSchema(t *testing.T) {
	_, err := New[any](`{"type": 12}`)
	require.Error(t, err)

	_, err = New[any](`not json`)
	require.Error(t, err)
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() { MustNew[any](`{"type": 12}`) })
}

func TestCompilerImplementsSchemaCompiler(t *testing.T) {
	var c onion.SchemaCompiler = NewCompiler()

	v, err := c.Compile("create-user/input_schema", []byte(userSchema))
	require.NoError(t, err)

	got, err := v.Parse(context.Background(), map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "x"}, got)

	_, err = c.Compile("create-user/input_schema", []byte(userSchema))
	require.Error(t, err, "identifiers compile once")
}

func TestAssertFormat(t *testing.T) {
	const schema = `{"type": "string", "format": "email"}`

	loose := MustNew[string](schema)
	strict := MustNew[string](schema, AssertFormat())

	_, err := loose.Parse(context.Background(), "not-an-email")
	require.NoError(t, err)

	_, err = strict.Parse(context.Background(), "not-an-email")
	require.Error(t, err)
}

func TestWithOnionFunc(t *testing.T) {
	f := onion.MustNew("create-user",
		func(_ context.Context, req onion.Request[user]) (string, error) {
			return "created " + req.Input.Name, nil
		},
		onion.WithInput(MustNew[user](userSchema)),
		onion.WithErrorHook(func(context.Context, *onion.ErrorEnvelope) onion.Outcome {
			return onion.Rethrow()
		}),
	)

	got, err := f.Call(context.Background(), map[string]any{"name": "grace"})
	require.NoError(t, err)
	assert.Equal(t, "created grace", got)

	_, err = f.Call(context.Background(), map[string]any{"name": ""})
	require.Error(t, err)

	var ve *onion.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, onion.TargetInput, ve.Target)
	assert.Contains(t, ve.Issues, findIssue(ve.Issues, "/name", onion.CodeTooSmall))
}

func findIssue(issues []onion.Issue, path, code string) onion.Issue {
	for _, is := range issues {
		if is.Path == path && is.Code == code {
			return is
		}
	}

	return onion.Issue{Path: path, Code: code, Message: "<missing>"}
}
