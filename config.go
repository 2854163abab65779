package onion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type (
	// SchemaCompiler turns a JSON schema document into a validator. The
	// jsonschema sub-package provides one.
	SchemaCompiler interface {
		Compile(id string, schema []byte) (Validator[any], error)
	}

	// ConfigOption customizes [LoadConfig].
	ConfigOption func(*loadSetup)

	loadSetup struct {
		compiler SchemaCompiler
	}

	// configFile is the top-level structure of a JSON or YAML file.
	configFile struct {
		Functions map[string]FunctionConfig `json:"functions" yaml:"functions"`
	}

	// FunctionConfig holds the decoded configuration for a single wrapped
	// function. Embed it in your own app config structs for JSON or YAML
	// unmarshaling, then call [BuildOptions] to obtain options for [New] or
	// [NewArgs].
	//
	// Schemas are kept as decoded documents so that JSON and YAML sources
	// produce the same value. They are compiled by a [SchemaCompiler].
	FunctionConfig struct {
		// Metadata is attached with [WithMetadata].
		// Optional. Example: {"requires_auth": true}.
		Metadata Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
		// Context holds the base values, see [WithValues].
		// Optional. Example: {"tenant": "default"}.
		Context Values `json:"context,omitempty" yaml:"context,omitempty"`
		// LazyInput enables [WithLazyInput].
		// Optional.
		LazyInput *bool `json:"lazy_input,omitempty" yaml:"lazy_input,omitempty"`
		// InputSchema validates the input of a single-input function.
		// Optional.
		InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
		// OutputSchema validates the output.
		// Optional.
		OutputSchema map[string]any `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`
		// MetadataSchema validates Metadata once, when the function is built.
		// Optional.
		MetadataSchema map[string]any `json:"metadata_schema,omitempty" yaml:"metadata_schema,omitempty"`
		// ContextSchema validates the starting values of every invocation.
		// Optional.
		ContextSchema map[string]any `json:"context_schema,omitempty" yaml:"context_schema,omitempty"`
		// ArgsSchemas switches the function to positional arguments, one
		// schema per position. An empty list accepts exactly zero arguments.
		// Optional; mutually exclusive with InputSchema.
		ArgsSchemas []map[string]any `json:"args_schemas,omitempty" yaml:"args_schemas,omitempty"`
	}
)

// WithSchemaCompiler sets the compiler used for the schemas of a loaded
// configuration.
func WithSchemaCompiler(c SchemaCompiler) ConfigOption {
	return func(s *loadSetup) {
		s.compiler = c
	}
}

// LoadConfig reads a JSON or YAML configuration file and stores the function
// configurations in a [Registry]. Files ending in .yaml or .yml are decoded
// as YAML, anything else as JSON. Wrapped functions are not created until
// [NewFromConfig] or [NewArgsFromConfig] is called, so the caller provides
// the type parameters and the handler.
//
// Every function's options are built eagerly so schema errors surface at
// load time.
func LoadConfig(path string, opts ...ConfigOption) (*Registry, error) {
	var ls loadSetup
	for _, opt := range opts {
		opt(&ls)
	}

	var cfg configFile
	if err := decodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("onion: config: %w", err)
	}

	reg := NewRegistry()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	for name, fc := range cfg.Functions {
		built, err := buildOptions(name, &fc, ls.compiler)
		if err != nil {
			return nil, fmt.Errorf("onion: function %q: %w", name, err)
		}

		reg.configs[name] = fc
		reg.options[name] = built
	}

	return reg, nil
}

// BuildOptions converts a [FunctionConfig] into option values suitable for
// [New] or [NewArgs]. compiler may be nil when fc declares no schema.
func BuildOptions(fc *FunctionConfig, compiler SchemaCompiler) ([]any, error) {
	return buildOptions("function", fc, compiler)
}

func buildOptions(name string, fc *FunctionConfig, compiler SchemaCompiler) ([]any, error) {
	var opts []any

	if len(fc.Metadata) > 0 {
		opts = append(opts, WithMetadata(fc.Metadata))
	}

	if len(fc.Context) > 0 {
		opts = append(opts, WithValues(fc.Context))
	}

	if fc.LazyInput != nil && *fc.LazyInput {
		opts = append(opts, WithLazyInput())
	}

	if fc.InputSchema != nil && fc.ArgsSchemas != nil {
		return nil, ErrModeConflict
	}

	compile := func(id string, doc map[string]any) (Validator[any], error) {
		if compiler == nil {
			return nil, fmt.Errorf("%s: %w", id, ErrNoSchemaCompiler)
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}

		v, err := compiler.Compile(name+"/"+id, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}

		return v, nil
	}

	if fc.InputSchema != nil {
		v, err := compile("input_schema", fc.InputSchema)
		if err != nil {
			return nil, err
		}

		opts = append(opts, WithInput(v))
	}

	if fc.ArgsSchemas != nil {
		args := make([]Validator[any], 0, len(fc.ArgsSchemas))

		for i, doc := range fc.ArgsSchemas {
			v, err := compile(fmt.Sprintf("args_schemas/%d", i), doc)
			if err != nil {
				return nil, err
			}

			args = append(args, v)
		}

		opts = append(opts, WithArgs(args...))
	}

	if fc.OutputSchema != nil {
		v, err := compile("output_schema", fc.OutputSchema)
		if err != nil {
			return nil, err
		}

		opts = append(opts, WithOutput(v))
	}

	if fc.MetadataSchema != nil {
		v, err := compile("metadata_schema", fc.MetadataSchema)
		if err != nil {
			return nil, err
		}

		opts = append(opts, WithMetadataValidator(Decode[Metadata](v)))
	}

	if fc.ContextSchema != nil {
		v, err := compile("context_schema", fc.ContextSchema)
		if err != nil {
			return nil, err
		}

		opts = append(opts, WithValuesValidator(Decode[Values](v)))
	}

	return opts, nil
}

// NewFromConfig builds the function named name from a config-loaded
// [Registry] and registers it there. If the name is not found, only opts
// apply. User options come after the configured ones, so they take
// precedence.
func NewFromConfig[I, O any](
	reg *Registry,
	name string,
	handler Handler[I, O],
	opts ...any,
) (*Func[I, O], error) {
	return New(name, handler, fromConfig(reg, name, opts)...)
}

// NewArgsFromConfig is [NewFromConfig] for positional-argument functions.
func NewArgsFromConfig[O any](
	reg *Registry,
	name string,
	handler ArgsHandler[O],
	opts ...any,
) (*ArgsFunc[O], error) {
	return NewArgs(name, handler, fromConfig(reg, name, opts)...)
}

func fromConfig(reg *Registry, name string, opts []any) []any {
	all := make([]any, 0, len(opts)+2)
	all = append(all, WithRegistry(reg), reg.configured(name))

	return append(all, opts...)
}

// decodeFile reads path as YAML or JSON depending on its extension.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}

	if err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return nil
}
