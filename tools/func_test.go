package tools_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/encoding"
	"github.com/effective-security/toolloop/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type AddRequest struct {
	A int `json:"a" validate:"gte=0" jsonschema:"title=A,description=First operand"`
	B int `json:"b" validate:"gte=0" jsonschema:"title=B,description=Second operand"`
}

type AddResult struct {
	Sum int `json:"sum" yaml:"sum" fake:"3"`
}

func add(_ context.Context, req *AddRequest) (*AddResult, error) {
	return &AddResult{Sum: req.A + req.B}, nil
}

func TestNewFunc(t *testing.T) {
	ctx := context.Background()

	f, err := tools.NewFunc("add", "Adds two numbers.", add)
	require.NoError(t, err)

	assert.Equal(t, "add", f.Name())
	assert.Equal(t, "Adds two numbers.", f.Description())
	require.NotNil(t, f.Parameters())
	assert.Equal(t, "object", f.Parameters().Type)
	assert.Equal(t, []string{"a", "b"}, f.Parameters().Required)

	res, err := f.Call(ctx, map[string]any{"a": 1, "b": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, `{"sum":3}`, res)

	out, err := f.Run(ctx, &AddRequest{A: 2, B: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Sum)

	_, err = f.Call(ctx, map[string]any{"a": -1, "b": 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))
}

func TestNewFunc_Modes(t *testing.T) {
	ctx := context.Background()

	f, err := tools.NewFunc("add", "Adds two numbers.", add,
		tools.WithResultMode(encoding.ModeYAML),
		tools.WithFormatInstructions(),
	)
	require.NoError(t, err)
	assert.Equal(t, "Adds two numbers.\nThe result is YAML, for example:\n```yaml\nsum: 3\n```\n", f.Description())

	res, err := f.Call(ctx, map[string]any{"a": 1, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, "sum: 2\n", res)

	echo := func(_ context.Context, req *AddRequest) (*string, error) {
		s := "ok"
		return &s, nil
	}
	txt, err := tools.NewFunc("echo", "Echo.", echo, tools.WithResultMode(encoding.ModePlainText))
	require.NoError(t, err)
	res, err = txt.Call(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func TestNewFunc_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := tools.NewFunc("", "x", add)
	assert.True(t, errors.Is(err, tools.ErrInvalidTool))

	_, err = tools.NewFunc[AddRequest, AddResult]("add", "x", nil)
	assert.True(t, errors.Is(err, tools.ErrInvalidTool))

	_, err = tools.NewFunc("add", "x", add, tools.WithResultMode("xml"))
	assert.True(t, errors.Is(err, encoding.ErrUnsupportedMode))

	scalar := func(_ context.Context, _ *string) (*string, error) { return nil, nil }
	_, err = tools.NewFunc("scalar", "x", scalar)
	assert.ErrorContains(t, err, "failed to create schema")

	failing, err := tools.NewFunc("fail", "x", func(_ context.Context, _ *AddRequest) (*AddResult, error) {
		return nil, errors.New("service unavailable")
	})
	require.NoError(t, err)
	_, err = failing.Call(ctx, map[string]any{"a": 1, "b": 1})
	assert.EqualError(t, err, "service unavailable")

	empty, err := tools.NewFunc("empty", "x", func(_ context.Context, _ *AddRequest) (*AddResult, error) {
		return nil, nil
	})
	require.NoError(t, err)
	res, err := empty.Call(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "", res)
}
