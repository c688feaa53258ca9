package assistants

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/effective-security/toolloop/pkg/metricskey"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// Executor drives the request, response and tool dispatch cycle
// of a single conversational turn.
// It keeps no per-run state, and can be shared by concurrent runs.
type Executor struct {
	llm llms.Model
	cfg *Config
}

// Result is the outcome of a completed run.
type Result struct {
	// Message is the final assistant message.
	Message llms.Message
	// State is the final state of the loop, including the full history.
	State LoopState
	// Usage is the token usage summed over the LLM calls of the run.
	Usage llms.Usage
}

// NewExecutor returns an executor for the model.
func NewExecutor(llm llms.Model, opts ...Option) (*Executor, error) {
	if llm == nil {
		return nil, errors.New("llm model is required")
	}
	return &Executor{
		llm: llm,
		cfg: NewConfig(opts...),
	}, nil
}

// Config returns the configuration of the executor.
func (e *Executor) Config() *Config {
	return e.cfg
}

// Run seeds a conversation with the user input, and alternates LLM calls and
// tool dispatch rounds until the model responds without tool requests.
// At most maxRecursions dispatch rounds are performed.
func (e *Executor) Run(ctx context.Context, input string, registry *tools.Registry, maxRecursions int) (*llms.Message, error) {
	res, err := e.Execute(ctx, nil, input, registry, maxRecursions)
	if err != nil {
		return nil, err
	}
	return &res.Message, nil
}

// Execute is Run with prior conversation history,
// the user input is appended after the prior messages.
func (e *Executor) Execute(ctx context.Context, prior []llms.Message, input string, registry *tools.Registry, maxRecursions int) (*Result, error) {
	if maxRecursions < 0 {
		return nil, errors.WithMessagef(ErrInvalidMaxRecursions, "%d", maxRecursions)
	}
	if registry == nil {
		return nil, errors.WithStack(ErrNilRegistry)
	}

	agent := e.cfg.Name
	started := time.Now()
	defer metricskey.PerfAssistantRun.MeasureSince(started, agent)

	cb := e.cfg.CallbackHandler
	if cb != nil {
		cb.OnLoopStart(ctx, agent, input)
	}

	res, err := e.execute(ctx, prior, input, registry, maxRecursions)
	if err != nil {
		e.countError(err)
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agent,
			"status", "run_failed",
			"input", slices.StringUpto(input, 64),
			"err", err.Error(),
		)
		if cb != nil {
			cb.OnLoopError(ctx, agent, input, err)
		}
		return nil, err
	}

	metricskey.StatsLoopSucceeded.IncrCounter(1, agent)
	if cb != nil {
		cb.OnLoopEnd(ctx, agent, input, res)
	}
	return res, nil
}

func (e *Executor) execute(ctx context.Context, prior []llms.Message, input string, registry *tools.Registry, maxRecursions int) (*Result, error) {
	agent := e.cfg.Name

	state := NewLoopState(maxRecursions, prior...)
	state.Append(llms.MessageFromTextParts(llms.RoleHuman, input))

	var extra []llms.CallOption
	if registry.Len() > 0 {
		extra = append(extra, llms.WithTools(registry.Specs()))
	}
	callOpts := e.cfg.GetCallOptions(extra...)

	var usage llms.Usage
	for {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		resp, err := e.generate(ctx, state.History, callOpts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, cancelled(ctxErr)
			}
			return nil, errors.WithMessagef(err, "agent %s: failed to generate content", agent)
		}
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		msg := resp.Message
		if len(msg.Parts) == 0 {
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", agent,
				"status", "malformed_response",
				"stop_reason", resp.StopReason,
				"recursion", state.RecursionCount,
			)
			return nil, errors.WithMessagef(ErrMalformedResponse, "agent %s: no content", agent)
		}
		msg.Role = llms.RoleAI
		assignToolCallIDs(&msg)
		state.Append(msg)

		calls := msg.ToolCalls()
		if len(calls) == 0 {
			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", agent,
				"status", "completed",
				"recursions", state.RecursionCount,
				"messages", len(state.History),
			)
			return &Result{
				Message: msg.Clone(),
				State:   state.Snapshot(),
				Usage:   usage,
			}, nil
		}

		if state.LimitReached() {
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", agent,
				"status", "recursion_limit_exceeded",
				"max_recursions", state.MaxRecursions,
				"tool_calls", len(calls),
			)
			return nil, &RecursionLimitError{
				Agent:         agent,
				MaxRecursions: state.MaxRecursions,
				History:       llms.CloneMessages(state.History),
			}
		}

		results := e.dispatch(ctx, registry, calls)
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		reply := llms.MessageFromToolResponses(results...)
		if err := llms.ValidateToolResults(msg, reply); err != nil {
			return nil, errors.WithMessagef(err, "agent %s", agent)
		}
		state.Append(reply)
		state.RecursionCount++

		metricskey.StatsLoopRecursions.IncrCounter(1, agent)
		if cb := e.cfg.CallbackHandler; cb != nil {
			cb.OnRecursion(ctx, agent, state.RecursionCount)
		}
	}
}

// generate calls the model with a copy of the history.
func (e *Executor) generate(ctx context.Context, history []llms.Message, callOpts []llms.CallOption) (*llms.ContentResponse, error) {
	agent := e.cfg.Name
	model := e.llm.GetName()
	messages := llms.CloneMessages(history)

	cb := e.cfg.CallbackHandler
	if cb != nil {
		cb.OnLLMCallStart(ctx, agent, e.llm, messages)
	}

	bytesSent := llmutils.CountMessagesContentSize(messages)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), agent, model)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), agent, model)

	started := time.Now()
	resp, err := e.llm.GenerateContent(ctx, messages, callOpts...)
	metricskey.PerfLLMCall.MeasureSince(started, agent, model)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.WithMessagef(ErrMalformedResponse, "agent %s: empty response", agent)
	}

	metricskey.StatsLLMInputTokens.IncrCounter(float64(resp.Usage.InputTokens), agent, model)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(resp.Usage.OutputTokens), agent, model)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(resp.Usage.TotalTokens), agent, model)

	if cb != nil {
		cb.OnLLMCallEnd(ctx, agent, e.llm, resp)
	}
	return resp, nil
}

func (e *Executor) countError(err error) {
	agent := e.cfg.Name
	switch {
	case errors.Is(err, ErrCancelled):
		metricskey.StatsLoopCancelled.IncrCounter(1, agent)
	case errors.Is(err, ErrRecursionLimitExceeded):
		metricskey.StatsLoopRecursionLimitExceeded.IncrCounter(1, agent)
	case errors.Is(err, ErrMalformedResponse):
		metricskey.StatsLoopMalformedResponses.IncrCounter(1, agent)
	default:
		metricskey.StatsLoopFailed.IncrCounter(1, agent)
	}
}

// assignToolCallIDs sets IDs for the tool calls the model did not identify,
// and for repeated IDs, so that every call of msg has a unique ID.
func assignToolCallIDs(msg *llms.Message) {
	used := make(map[string]bool)
	for _, p := range msg.Parts {
		if tc, ok := p.(llms.ToolCall); ok && tc.ID != "" {
			used[tc.ID] = true
		}
	}

	seen := make(map[string]bool)
	for i, p := range msg.Parts {
		tc, ok := p.(llms.ToolCall)
		if !ok {
			continue
		}
		if tc.ID != "" && !seen[tc.ID] {
			seen[tc.ID] = true
			continue
		}
		id := fmt.Sprintf("%s_%d", tc.Name, i)
		for n := 1; used[id]; n++ {
			id = fmt.Sprintf("%s_%d_%d", tc.Name, i, n)
		}
		used[id] = true
		seen[id] = true
		tc.ID = id
		msg.Parts[i] = tc
	}
}
