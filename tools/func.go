package tools

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/encoding"
	"github.com/effective-security/toolloop/pkg/schema"
	"github.com/invopop/jsonschema"
)

// FuncOption configures a function tool.
type FuncOption func(*funcOptions)

type funcOptions struct {
	mode         encoding.Mode
	instructions bool
}

// WithResultMode sets the encoding of the result.
func WithResultMode(mode encoding.Mode) FuncOption {
	return func(o *funcOptions) {
		o.mode = mode
	}
}

// WithFormatInstructions appends the result format instructions to the description.
func WithFormatInstructions() FuncOption {
	return func(o *funcOptions) {
		o.instructions = true
	}
}

// Func is a tool backed by a typed function.
type Func[I any, O any] struct {
	name        string
	description string
	params      *jsonschema.Schema
	enc         encoding.SchemaEncoder
	fn          func(context.Context, *I) (*O, error)
}

var _ Tool[struct{}, string] = (*Func[struct{}, string])(nil)

// NewFunc returns a tool which decodes the input into I,
// and encodes the result O as text.
// I must be a struct, its JSON schema is used as the tool parameters.
func NewFunc[I any, O any](name, description string, fn func(context.Context, *I) (*O, error), opts ...FuncOption) (*Func[I, O], error) {
	if name == "" {
		return nil, errors.WithMessage(ErrInvalidTool, "name is required")
	}
	if fn == nil {
		return nil, errors.WithMessagef(ErrInvalidTool, "%q: function is required", name)
	}

	o := funcOptions{mode: encoding.ModeDefault}
	for _, opt := range opts {
		opt(&o)
	}

	sc, err := schema.For[I]()
	if err != nil {
		return nil, errors.WithMessagef(err, "%q: failed to create schema", name)
	}

	var out O
	enc, err := encoding.PredefinedSchemaEncoder(o.mode, out)
	if err != nil {
		return nil, errors.WithMessagef(err, "%q", name)
	}

	if o.instructions {
		description += enc.GetFormatInstructions()
	}

	return &Func[I, O]{
		name:        name,
		description: description,
		params:      sc.Parameters,
		enc:         enc,
		fn:          fn,
	}, nil
}

func (f *Func[I, O]) Name() string {
	return f.name
}

func (f *Func[I, O]) Description() string {
	return f.description
}

func (f *Func[I, O]) Parameters() *jsonschema.Schema {
	return f.params
}

// Run executes the function
func (f *Func[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	return f.fn(ctx, req)
}

// Call decodes the input, runs the function and returns the encoded result.
func (f *Func[I, O]) Call(ctx context.Context, input map[string]any) (any, error) {
	req, err := DecodeInput[I](input)
	if err != nil {
		return nil, err
	}
	res, err := f.fn(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return "", nil
	}
	bs, err := f.enc.Marshal(res)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal output")
	}
	return string(bs), nil
}
