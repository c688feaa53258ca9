package assistants

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/effective-security/toolloop/pkg/metricskey"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/xlog"
)

type toolCallResult struct {
	response llms.ToolCallResponse
	index    int // Index in the original toolCalls slice
}

// dispatch executes the tool calls and returns the responses
// in the order of the calls, after all calls completed.
func (e *Executor) dispatch(ctx context.Context, registry *tools.Registry, toolCalls []llms.ToolCall) []llms.ToolCallResponse {
	results := make([]llms.ToolCallResponse, len(toolCalls))

	if e.cfg.Sequential || len(toolCalls) == 1 {
		for i, tc := range toolCalls {
			results[i] = e.invoke(ctx, registry, tc)
		}
		return results
	}

	// buffered to never block the senders
	resultChan := make(chan toolCallResult, len(toolCalls))

	var wg sync.WaitGroup
	wg.Add(len(toolCalls))

	for i, toolCall := range toolCalls {
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			resultChan <- toolCallResult{
				response: e.invoke(ctx, registry, tc),
				index:    index,
			}
		}(i, toolCall)
	}

	wg.Wait()
	close(resultChan)

	for result := range resultChan {
		results[result.index] = result.response
	}
	return results
}

// invoke executes a single tool call,
// failures are returned as error responses.
func (e *Executor) invoke(ctx context.Context, registry *tools.Registry, tc llms.ToolCall) llms.ToolCallResponse {
	agent := e.cfg.Name
	cb := e.cfg.CallbackHandler
	toolName := tc.Name

	resp := llms.ToolCallResponse{
		ToolCallID: tc.ID,
		Name:       toolName,
	}

	tool, ok := registry.Lookup(toolName)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		if cb != nil {
			cb.OnToolNotFound(ctx, agent, tc)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", agent,
			"status", "tool_not_found",
			"tool_name", toolName,
			"tool_call_id", tc.ID,
			"available_tools", strings.Join(registry.Names(), ", "),
		)
		resp.Content = UnknownToolContent
		resp.IsError = true
		return resp
	}

	if cb != nil {
		cb.OnToolStart(ctx, tool, agent, tc)
	}

	started := time.Now()
	out, err := callTool(ctx, tool, tc.Input)
	metricskey.PerfToolCall.MeasureSince(started, toolName)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		if cb != nil {
			cb.OnToolError(ctx, tool, agent, tc, err)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", agent,
			"status", "tool_call_failed",
			"tool_name", toolName,
			"tool_call_id", tc.ID,
			"err", err.Error(),
		)
		resp.Content = err.Error()
		resp.IsError = true
		return resp
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	resp.Content = llmutils.ToContent(out)

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", agent,
		"status", "tool_call_response",
		"tool_name", toolName,
		"tool_call_id", tc.ID,
		"content_length", len(resp.Content),
	)

	if cb != nil {
		cb.OnToolEnd(ctx, tool, agent, tc, resp)
	}
	return resp
}

// callTool recovers a panic of the tool as an error.
func callTool(ctx context.Context, tool tools.ITool, input map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			metricskey.StatsToolCallsPanicked.IncrCounter(1, tool.Name())
			err = errors.Newf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	if input == nil {
		input = map[string]any{}
	}
	return tool.Call(ctx, input)
}
