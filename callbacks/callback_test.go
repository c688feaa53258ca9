package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/assistants"
	"github.com/effective-security/toolloop/callbacks"
	"github.com/effective-security/toolloop/chatmodel"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop", "callbacks_test")

type fakeModel struct {
	responses []llms.Message
	calls     int
}

func (m *fakeModel) GetName() string                     { return "fake-model" }
func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderAnthropic }

func (m *fakeModel) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	msg := m.responses[m.calls]
	m.calls++
	return &llms.ContentResponse{
		Message: msg,
		Usage:   llms.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5},
	}, nil
}

type fakeTool struct {
	name string
	err  error
}

func (t *fakeTool) Name() string                   { return t.name }
func (t *fakeTool) Description() string            { return "desc" }
func (t *fakeTool) Parameters() *jsonschema.Schema { return nil }
func (t *fakeTool) Call(_ context.Context, input map[string]any) (any, error) {
	if t.err != nil {
		return nil, t.err
	}
	return "result of " + t.name, nil
}

func newModel() *fakeModel {
	return &fakeModel{
		responses: []llms.Message{
			llms.MessageFromParts(llms.RoleAI,
				llms.ToolCall{ID: "c1", Name: "search", Input: map[string]any{"q": "go"}},
				llms.ToolCall{ID: "c2", Name: "broken"},
				llms.ToolCall{ID: "c3", Name: "missing"},
			),
			llms.MessageFromTextParts(llms.RoleAI, "final answer"),
		},
	}
}

func newRegistry() *tools.Registry {
	return tools.MustRegistry(
		&fakeTool{name: "search"},
		&fakeTool{name: "broken", err: errors.New("backend down")},
	)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)

	e, err := assistants.NewExecutor(newModel(),
		assistants.WithName("agent"),
		assistants.WithCallback(cb),
		assistants.WithSequentialDispatch(),
	)
	require.NoError(t, err)

	_, err = e.Run(context.Background(), "test input", newRegistry(), 3)
	require.NoError(t, err)

	res := buf.String()
	assert.Contains(t, res, "Loop Start: agent\nInput: test input\n")
	assert.Contains(t, res, "LLM Call: agent: fake-model model, 1 messages\n")
	assert.Contains(t, res, "HUMAN: test input\n")
	assert.Contains(t, res, "LLM Call End: agent: fake-model model, 3 parts, 5 tokens\n")
	assert.Contains(t, res, "Tool Start: search (agent) c1\nInput: {\"q\":\"go\"}\n")
	assert.Contains(t, res, "Tool End: search (agent) c1\nOutput: result of search\n")
	assert.Contains(t, res, "Tool Error: broken (agent) c2: backend down\n")
	assert.Contains(t, res, "Tool Not Found: missing (agent) c3\n")
	assert.Contains(t, res, "Recursion: agent: 1\n")
	assert.Contains(t, res, "Loop End: agent, 1 recursions, 4 messages\nfinal answer\n")

	buf.Reset()
	cb.OnLoopError(context.Background(), "agent", "x", errors.New("failed"))
	assert.Equal(t, "Loop Error: agent: failed\n", buf.String())
}

func TestFanout(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	sp := callbacks.NewScratchpad(callbacks.ModeDefault)
	fan := callbacks.NewFanout(
		callbacks.NewPrinter(&buf1, callbacks.ModeDefault),
		callbacks.NewPackageLogger(logger),
	)
	fan.Add(callbacks.NewPrinter(&buf2, callbacks.ModeDefault))
	fan.Add(sp)

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("t1", "c1", nil))
	sp.StartRun(ctx)

	e, err := assistants.NewExecutor(newModel(), assistants.WithCallback(fan), assistants.WithSequentialDispatch())
	require.NoError(t, err)
	_, err = e.Run(ctx, "test input", newRegistry(), 3)
	require.NoError(t, err)

	assert.Equal(t, buf1.String(), buf2.String())
	assert.Contains(t, buf1.String(), "Tool Error: broken")
	assert.NotContains(t, buf1.String(), "Output:")

	stats, _ := sp.EndRun(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, uint32(2), stats.LLMCalls)
	assert.Equal(t, uint32(2), stats.ToolCalls)
	assert.Equal(t, uint32(1), stats.ToolCallsFailed)
	assert.Equal(t, uint32(1), stats.ToolNotFound)

	// PackageLogger handles failures too
	fan.OnLoopError(ctx, "agent", "x", errors.New("failed"))
}
