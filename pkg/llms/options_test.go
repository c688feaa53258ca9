package llms_test

import (
	"testing"

	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestCallOptions(t *testing.T) {
	tool := llms.NewFunctionTool("weather", "returns weather", nil)
	opts := llms.NewCallOptions(llms.CallOptions{Model: "default", MaxTokens: 10},
		llms.WithModel("m1"),
		llms.WithSystemPrompt("be brief"),
		llms.WithTemperature(0.2),
		llms.WithTopK(3),
		llms.WithTopP(0.9),
		llms.WithStopWords([]string{"STOP"}),
		llms.WithTools([]llms.Tool{tool}),
		llms.WithMetadata(map[string]any{"user": "u1"}),
	)
	assert.Equal(t, "m1", opts.Model)
	assert.Equal(t, 10, opts.MaxTokens)
	assert.Equal(t, "be brief", opts.SystemPrompt)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, 3, opts.TopK)
	assert.Equal(t, 0.9, opts.TopP)
	assert.Equal(t, []string{"STOP"}, opts.StopWords)
	assert.Equal(t, "u1", opts.Metadata["user"])
	assert.Len(t, opts.Tools, 1)
	assert.Equal(t, "function", opts.Tools[0].Type)
	assert.Equal(t, "weather", opts.Tools[0].Function.Name)
}
