package assistants

import (
	"context"

	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/tools"
)

// Callback receives the events of the tool loop.
// The tool events may be delivered concurrently.
type Callback interface {
	OnLoopStart(ctx context.Context, agent string, input string)
	OnLoopEnd(ctx context.Context, agent string, input string, res *Result)
	OnLoopError(ctx context.Context, agent string, input string, err error)

	OnLLMCallStart(ctx context.Context, agent string, llm llms.Model, messages []llms.Message)
	OnLLMCallEnd(ctx context.Context, agent string, llm llms.Model, resp *llms.ContentResponse)
	// OnRecursion is called after a dispatch round completed, count is the number of completed rounds.
	OnRecursion(ctx context.Context, agent string, count int)

	OnToolStart(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall)
	OnToolEnd(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, resp llms.ToolCallResponse)
	OnToolError(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, err error)
	OnToolNotFound(ctx context.Context, agent string, call llms.ToolCall)
}

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnLoopStart(context.Context, string, string)           {}
func (l *NoopCallback) OnLoopEnd(context.Context, string, string, *Result)    {}
func (l *NoopCallback) OnLoopError(context.Context, string, string, error)    {}
func (l *NoopCallback) OnRecursion(context.Context, string, int)              {}
func (l *NoopCallback) OnToolNotFound(context.Context, string, llms.ToolCall) {}
func (l *NoopCallback) OnLLMCallStart(context.Context, string, llms.Model, []llms.Message) {
}
func (l *NoopCallback) OnLLMCallEnd(context.Context, string, llms.Model, *llms.ContentResponse) {
}
func (l *NoopCallback) OnToolStart(context.Context, tools.ITool, string, llms.ToolCall) {}
func (l *NoopCallback) OnToolEnd(context.Context, tools.ITool, string, llms.ToolCall, llms.ToolCallResponse) {
}
func (l *NoopCallback) OnToolError(context.Context, tools.ITool, string, llms.ToolCall, error) {}
