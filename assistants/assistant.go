package assistants

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/chatmodel"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/metricskey"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

// Assistant is an agent instance: a model with fixed system instructions,
// a tool registry and a recursion bound.
type Assistant struct {
	executor *Executor
	registry *tools.Registry
	cfg      *Config
}

var _ IAssistant = (*Assistant)(nil)

// NewAssistant returns an agent.
// The configured MaxRecursions must be positive.
func NewAssistant(llm llms.Model, registry *tools.Registry, options ...Option) (*Assistant, error) {
	if registry == nil {
		return nil, errors.WithStack(ErrNilRegistry)
	}

	exec, err := NewExecutor(llm, options...)
	if err != nil {
		return nil, err
	}
	cfg := exec.Config()
	if cfg.MaxRecursions <= 0 {
		return nil, errors.WithMessagef(ErrInvalidMaxRecursions, "%d: must be positive", cfg.MaxRecursions)
	}
	if registry.Len() > 0 && !llm.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
		return nil, errors.Newf("assistant %s: the LLM does not support function calling", cfg.Name)
	}
	cfg.Description = values.StringsCoalesce(cfg.Description, "An AI assistant that can use tools.")

	return &Assistant{
		executor: exec,
		registry: registry,
		cfg:      cfg,
	}, nil
}

// Name returns the name of the Agent.
func (a *Assistant) Name() string {
	return a.cfg.Name
}

// Description returns the description of the Agent, to be used in the prompt of other Agents or LLMs.
func (a *Assistant) Description() string {
	return a.cfg.Description
}

// Registry returns the tools of the Agent.
func (a *Assistant) Registry() *tools.Registry {
	return a.registry
}

// MaxRecursions returns the bound of dispatch rounds per run.
func (a *Assistant) MaxRecursions() int {
	return a.cfg.MaxRecursions
}

// Run executes one turn.
// When a store is configured, the history of the chat from the context is
// prepended, and the input and the final answer are persisted on success.
func (a *Assistant) Run(ctx context.Context, input string) (*llms.Message, error) {
	res, err := a.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	return &res.Message, nil
}

// Execute is Run that returns the full result of the loop.
func (a *Assistant) Execute(ctx context.Context, input string) (*Result, error) {
	started := time.Now()
	defer metricskey.PerfAssistantCall.MeasureSince(started, a.Name())

	var prior []llms.Message
	st := a.cfg.Store
	if st != nil {
		prior = st.Messages(ctx)
		logger.ContextKV(ctx, xlog.DEBUG,
			"assistant", a.Name(),
			"chat_id", chatmodel.GetChatID(ctx),
			"message_history", len(prior))
	}

	res, err := a.executor.Execute(ctx, prior, input, a.registry, a.cfg.MaxRecursions)
	if err != nil {
		metricskey.StatsAssistantCallsFailed.IncrCounter(1, a.Name())
		return nil, err
	}
	metricskey.StatsAssistantCallsSucceeded.IncrCounter(1, a.Name())

	if st != nil {
		err = st.Add(ctx,
			llms.MessageFromTextParts(llms.RoleHuman, input),
			res.Message,
		)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"assistant", a.Name(),
				"status", "failed_to_add_message_history",
				"err", err.Error(),
			)
		} else {
			logger.ContextKV(ctx, xlog.DEBUG,
				"assistant", a.Name(),
				"chat_id", chatmodel.GetChatID(ctx),
				"status", "added_message_history",
				"human", slices.StringUpto(input, 64),
				"ai", slices.StringUpto(res.Message.GetContent(), 64),
			)
		}
	}
	return res, nil
}
