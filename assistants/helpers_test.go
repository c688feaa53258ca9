package assistants_test

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/assistants"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/tools"
	"github.com/invopop/jsonschema"
)

type generateFn func(ctx context.Context, messages []llms.Message) (*llms.ContentResponse, error)

// scriptedModel replies with the scripted responses in order,
// the last one is repeated.
type scriptedModel struct {
	provider llms.ProviderType

	lock    sync.Mutex
	script  []generateFn
	calls   [][]llms.Message
	options []llms.CallOptions
}

func newScriptedModel(script ...generateFn) *scriptedModel {
	return &scriptedModel{
		provider: llms.ProviderOpenAI,
		script:   script,
	}
}

func (m *scriptedModel) GetName() string {
	return "scripted"
}

func (m *scriptedModel) GetProviderType() llms.ProviderType {
	return m.provider
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.lock.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, messages)
	m.options = append(m.options, llms.NewCallOptions(llms.CallOptions{}, options...))
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	fn := m.script[idx]
	m.lock.Unlock()
	return fn(ctx, messages)
}

func (m *scriptedModel) Calls() [][]llms.Message {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.calls
}

func (m *scriptedModel) Options() []llms.CallOptions {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.options
}

func reply(msg llms.Message) generateFn {
	return func(context.Context, []llms.Message) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{
			Message: msg,
			Usage:   llms.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		}, nil
	}
}

func text(s string) generateFn {
	return reply(llms.MessageFromTextParts(llms.RoleAI, s))
}

func calls(list ...llms.ToolCall) generateFn {
	parts := make([]llms.ContentPart, 0, len(list))
	for _, tc := range list {
		parts = append(parts, tc)
	}
	return reply(llms.MessageFromParts(llms.RoleAI, parts...))
}

func fail(err error) generateFn {
	return func(context.Context, []llms.Message) (*llms.ContentResponse, error) {
		return nil, err
	}
}

// funcTool is a tool backed by a plain function
type funcTool struct {
	name string
	fn   func(ctx context.Context, input map[string]any) (any, error)

	lock  sync.Mutex
	count int
}

func newTool(name string, fn func(ctx context.Context, input map[string]any) (any, error)) *funcTool {
	return &funcTool{name: name, fn: fn}
}

func (t *funcTool) Name() string                   { return t.name }
func (t *funcTool) Description() string            { return "test tool " + t.name }
func (t *funcTool) Parameters() *jsonschema.Schema { return &jsonschema.Schema{Type: "object"} }

func (t *funcTool) Call(ctx context.Context, input map[string]any) (any, error) {
	t.lock.Lock()
	t.count++
	t.lock.Unlock()
	return t.fn(ctx, input)
}

func (t *funcTool) Count() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.count
}

func echoTool() *funcTool {
	return newTool("echo", func(_ context.Context, input map[string]any) (any, error) {
		return input["text"], nil
	})
}

func failingTool() *funcTool {
	return newTool("broken", func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("service unavailable")
	})
}

// recorder counts the callback events
type recorder struct {
	assistants.NoopCallback

	lock       sync.Mutex
	events     map[string]int
	recursions []int
	notFound   []string
	result     *assistants.Result
	err        error
}

func newRecorder() *recorder {
	return &recorder{events: map[string]int{}}
}

func (r *recorder) add(event string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events[event]++
}

func (r *recorder) Count(event string) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.events[event]
}

func (r *recorder) OnLoopStart(context.Context, string, string) { r.add("loop_start") }

func (r *recorder) OnLoopEnd(_ context.Context, _ string, _ string, res *assistants.Result) {
	r.add("loop_end")
	r.result = res
}

func (r *recorder) OnLoopError(_ context.Context, _ string, _ string, err error) {
	r.add("loop_error")
	r.err = err
}

func (r *recorder) OnLLMCallStart(context.Context, string, llms.Model, []llms.Message) {
	r.add("llm_start")
}

func (r *recorder) OnLLMCallEnd(context.Context, string, llms.Model, *llms.ContentResponse) {
	r.add("llm_end")
}

func (r *recorder) OnRecursion(_ context.Context, _ string, count int) {
	r.add("recursion")
	r.lock.Lock()
	r.recursions = append(r.recursions, count)
	r.lock.Unlock()
}

func (r *recorder) OnToolStart(context.Context, tools.ITool, string, llms.ToolCall) {
	r.add("tool_start")
}

func (r *recorder) OnToolEnd(context.Context, tools.ITool, string, llms.ToolCall, llms.ToolCallResponse) {
	r.add("tool_end")
}

func (r *recorder) OnToolError(context.Context, tools.ITool, string, llms.ToolCall, error) {
	r.add("tool_error")
}

func (r *recorder) OnToolNotFound(_ context.Context, _ string, call llms.ToolCall) {
	r.add("tool_not_found")
	r.lock.Lock()
	r.notFound = append(r.notFound, call.Name)
	r.lock.Unlock()
}
