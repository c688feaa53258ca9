// Package callbacks provides handlers for the events of the tool loop.
package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/toolloop/assistants"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var (
	_ assistants.Callback = (*Printer)(nil)
	_ assistants.Callback = (*PackageLogger)(nil)
	_ assistants.Callback = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []assistants.Callback
}

func NewFanout(callbacks ...assistants.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

// Add appends a callback, must not be called after the Fanout is in use.
func (l *Fanout) Add(callback assistants.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnLoopStart(ctx context.Context, agent string, input string) {
	for _, callback := range l.callbacks {
		callback.OnLoopStart(ctx, agent, input)
	}
}

func (l *Fanout) OnLoopEnd(ctx context.Context, agent string, input string, res *assistants.Result) {
	for _, callback := range l.callbacks {
		callback.OnLoopEnd(ctx, agent, input, res)
	}
}

func (l *Fanout) OnLoopError(ctx context.Context, agent string, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnLoopError(ctx, agent, input, err)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, agent string, llm llms.Model, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, agent, llm, messages)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, agent string, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, agent, llm, resp)
	}
}

func (l *Fanout) OnRecursion(ctx context.Context, agent string, count int) {
	for _, callback := range l.callbacks {
		callback.OnRecursion(ctx, agent, count)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, agent, call)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, resp llms.ToolCallResponse) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, agent, call, resp)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, agent, call, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, agent string, call llms.ToolCall) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, agent, call)
	}
}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnLoopStart(_ context.Context, agent string, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Loop Start: %s\n", agent)
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnLoopEnd(_ context.Context, agent string, _ string, res *assistants.Result) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Loop End: %s, %d recursions, %d messages\n", agent, res.State.RecursionCount, len(res.State.History))
	if l.Mode == ModeVerbose {
		fmt.Fprintln(l.Out, res.Message.GetContent())
	}
}

func (l *Printer) OnLoopError(_ context.Context, agent string, _ string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Loop Error: %s: %s\n", agent, err.Error())
}

func (l *Printer) OnLLMCallStart(_ context.Context, agent string, llm llms.Model, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s: %s model, %d messages\n", agent, llm.GetName(), len(messages))
	if l.Mode == ModeVerbose {
		llmutils.PrintMessages(l.Out, messages)
	}
}

func (l *Printer) OnLLMCallEnd(_ context.Context, agent string, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call End: %s: %s model, %d parts, %d tokens\n", agent, llm.GetName(), len(resp.Message.Parts), resp.Usage.TotalTokens)
}

func (l *Printer) OnRecursion(_ context.Context, agent string, count int) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Recursion: %s: %d\n", agent, count)
}

func (l *Printer) OnToolStart(_ context.Context, tool tools.ITool, agent string, call llms.ToolCall) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s (%s) %s\n", tool.Name(), agent, call.ID)
	fmt.Fprintf(l.Out, "Input: %s\n", llmutils.ToJSON(call.Input))
}

func (l *Printer) OnToolEnd(_ context.Context, tool tools.ITool, agent string, call llms.ToolCall, resp llms.ToolCallResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s (%s) %s\n", tool.Name(), agent, call.ID)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", resp.Content)
	}
}

func (l *Printer) OnToolError(_ context.Context, tool tools.ITool, agent string, call llms.ToolCall, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s (%s) %s: %s\n", tool.Name(), agent, call.ID, err.Error())
}

func (l *Printer) OnToolNotFound(_ context.Context, agent string, call llms.ToolCall) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s (%s) %s\n", call.Name, agent, call.ID)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnLoopStart(ctx context.Context, agent string, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "loop_start",
		"agent", agent,
		"input", slices.StringUpto(input, 128),
	)
}

func (l *PackageLogger) OnLoopEnd(ctx context.Context, agent string, _ string, res *assistants.Result) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "loop_end",
		"agent", agent,
		"recursions", res.State.RecursionCount,
		"messages", len(res.State.History),
		"total_tokens", res.Usage.TotalTokens,
	)
}

func (l *PackageLogger) OnLoopError(ctx context.Context, agent string, _ string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "loop_error",
		"agent", agent,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, agent string, llm llms.Model, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"agent", agent,
		"model", llm.GetName(),
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, agent string, llm llms.Model, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"agent", agent,
		"model", llm.GetName(),
		"stop_reason", resp.StopReason,
		"tool_calls", len(resp.Message.ToolCalls()),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
}

func (l *PackageLogger) OnRecursion(ctx context.Context, agent string, count int) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "recursion",
		"agent", agent,
		"count", count,
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"agent", agent,
		"tool", tool.Name(),
		"tool_call_id", call.ID,
		"input", llmutils.ToJSON(call.Input),
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, resp llms.ToolCallResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"agent", agent,
		"tool", tool.Name(),
		"tool_call_id", call.ID,
		"output", slices.StringUpto(resp.Content, 256),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"agent", agent,
		"tool", tool.Name(),
		"tool_call_id", call.ID,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, agent string, call llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"agent", agent,
		"tool", call.Name,
		"tool_call_id", call.ID,
	)
}
