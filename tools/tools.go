package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/encoding"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/invopop/jsonschema"
)

//go:generate mockgen -destination=../mocks/mocktools/tools_mock.gen.go -package mocktools github.com/effective-security/toolloop/tools ITool

// ErrFailedUnmarshalInput is returned when the tool input does not match the schema.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input")

// ITool is a tool for the llm agent to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool, unique within a registry.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the JSON schema of the tool input.
	Parameters() *jsonschema.Schema

	// Call executes the tool with the input requested by the model.
	// The returned value is rendered as text for the model.
	// If the tool fails to parse the input, it should return ErrFailedUnmarshalInput error.
	Call(ctx context.Context, input map[string]any) (any, error)
}

// Tool is a tool with typed input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// DecodeInput decodes the model provided input into I,
// and validates it with `validate` struct tags.
func DecodeInput[I any](input map[string]any) (*I, error) {
	var req I
	enc, err := encoding.PredefinedSchemaEncoder(encoding.ModeJSON, req)
	if err != nil {
		return nil, err
	}

	js, err := json.Marshal(input)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to unmarshal input"), ErrFailedUnmarshalInput)
	}
	if err = encoding.Decode(enc, js, &req); err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "failed to unmarshal input"), ErrFailedUnmarshalInput)
	}
	return &req, nil
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions returns the names and descriptions of the tools
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		d.Tools = append(d.Tools, toolDescription{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(d))
}
