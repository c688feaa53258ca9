package main

import (
	"context"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/assistants"
	"github.com/effective-security/toolloop/callbacks"
	"github.com/effective-security/toolloop/chatmodel"
	"github.com/effective-security/toolloop/pkg/llmfactory"
	"github.com/effective-security/toolloop/pkg/prompts"
	"github.com/effective-security/toolloop/store"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/toolloop/tools/tavily"
	"github.com/effective-security/toolloop/tools/weather"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop", "cmd")

// allTools selects all configured tools for an agent
const allTools = "*"

const defaultSystemPrompt = `You are {{ .Agent }}, a helpful assistant.
Use the tools when the question needs data you do not have.
{{ .Tools }}`

// app holds the agents built from the configuration
type app struct {
	cfg          *Config
	orchestrator *assistants.Orchestrator
	scratchpad   *callbacks.Scratchpad
	verbose      bool
	errOut       io.Writer
	closers      []io.Closer
}

func newApp(cfg *Config, verbose bool, errOut io.Writer) (*app, error) {
	a := &app{
		cfg:     cfg,
		verbose: verbose,
		errOut:  errOut,
	}

	mode := callbacks.ModeDefault
	if verbose {
		mode = callbacks.ModeVerbose
	}
	a.scratchpad = callbacks.NewScratchpad(mode)
	fanout := callbacks.NewFanout(callbacks.NewPackageLogger(logger), a.scratchpad)
	if verbose {
		fanout.Add(callbacks.NewPrinter(errOut, mode))
	}

	var st store.MessageStore
	if cfg.Redis != nil {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis URL")
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client)

		var storeOpts []store.RedisOption
		if cfg.Redis.MaxMessages != 0 {
			storeOpts = append(storeOpts, store.WithMaxMessages(cfg.Redis.MaxMessages))
		}
		st = store.NewRedisStore(client, cfg.Redis.Prefix, storeOpts...)
	}

	available, err := newTools(&cfg.Tools)
	if err != nil {
		a.Close()
		return nil, err
	}

	factory := llmfactory.New(&cfg.LLM)
	var agents []assistants.IAssistant
	for _, ac := range cfg.Agents {
		agent, err := newAgent(factory, ac, available, fanout, st)
		if err != nil {
			a.Close()
			return nil, errors.WithMessagef(err, "agent %q", ac.Name)
		}
		agents = append(agents, agent)
	}

	a.orchestrator, err = assistants.NewOrchestrator(assistants.OrchestratorConfig{
		Agents:  agents,
		Default: cfg.DefaultAgent,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newTools returns the configured tools by name.
func newTools(cfg *ToolsConfig) (map[string]tools.ITool, error) {
	res := map[string]tools.ITool{}
	if cfg.Weather != nil {
		var opts []weather.Option
		if cfg.Weather.BaseURL != "" {
			opts = append(opts, weather.WithBaseURL(cfg.Weather.BaseURL))
		}
		if cfg.Weather.MaxRetries > 0 {
			opts = append(opts, weather.WithRetry(cfg.Weather.MaxRetries, 10*time.Second))
		}
		t, err := weather.New(opts...)
		if err != nil {
			return nil, err
		}
		res[t.Name()] = t
	}
	if cfg.WebSearch != nil {
		var opts []tavily.Option
		if cfg.WebSearch.APIKey != "" {
			opts = append(opts, tavily.WithAPIKey(cfg.WebSearch.APIKey))
		}
		if cfg.WebSearch.BaseURL != "" {
			opts = append(opts, tavily.WithBaseURL(cfg.WebSearch.BaseURL))
		}
		t, err := tavily.New(opts...)
		if err != nil {
			return nil, err
		}
		res[t.Name()] = t
	}
	return res, nil
}

func newAgent(
	factory llmfactory.Factory,
	cfg *AgentConfig,
	available map[string]tools.ITool,
	cb assistants.Callback,
	st store.MessageStore,
) (*assistants.Assistant, error) {
	var list []tools.ITool
	if len(cfg.Tools) == 1 && cfg.Tools[0] == allTools {
		for _, name := range slices.Sorted(maps.Keys(available)) {
			list = append(list, available[name])
		}
	} else {
		for _, name := range cfg.Tools {
			t, ok := available[name]
			if !ok {
				return nil, errors.Newf("tool %q is not configured", name)
			}
			list = append(list, t)
		}
	}
	registry, err := tools.NewRegistry(list...)
	if err != nil {
		return nil, err
	}

	tmpl := cfg.SystemPrompt
	if tmpl == "" {
		tmpl = defaultSystemPrompt
	}
	systemPrompt, err := prompts.Render(tmpl, map[string]any{
		"Agent": cfg.Name,
		"Tools": tools.GetDescriptions(registry.Tools()...),
	}, nil)
	if err != nil {
		return nil, err
	}

	model, err := factory.AgentModel(cfg.Name, cfg.Models...)
	if err != nil {
		return nil, err
	}

	opts := []assistants.Option{
		assistants.WithName(cfg.Name),
		assistants.WithSystemPrompt(systemPrompt),
		assistants.WithCallback(cb),
	}
	if cfg.Description != "" {
		opts = append(opts, assistants.WithDescription(cfg.Description))
	}
	if cfg.MaxRecursions > 0 {
		opts = append(opts, assistants.WithMaxRecursions(cfg.MaxRecursions))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, assistants.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, assistants.WithTemperature(*cfg.Temperature))
	}
	if cfg.Sequential {
		opts = append(opts, assistants.WithSequentialDispatch())
	}
	if st != nil {
		opts = append(opts, assistants.WithStore(st))
	}
	return assistants.NewAssistant(model, registry, opts...)
}

// Ask runs one turn of the chat with the agent, and returns the answer text.
// An empty chatID starts a new chat.
func (a *app) Ask(ctx context.Context, agentName, chatID, question string) (string, error) {
	chatCtx := chatmodel.NewChatContext(a.cfg.TenantID, chatID, nil)
	ctx = chatmodel.WithChatContext(ctx, chatCtx)

	a.scratchpad.StartRun(ctx)
	msg, err := a.orchestrator.Dispatch(ctx, agentName, question)
	_, pad := a.scratchpad.EndRun(ctx)
	if a.verbose && len(pad) > 0 {
		_, _ = a.errOut.Write(pad)
	}
	if err != nil {
		return "", err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "answered",
		"chat_id", chatCtx.GetChatID(),
		"run_id", chatCtx.RunID(),
	)
	return msg.GetContent(), nil
}

// Close releases the resources of the app.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.KV(xlog.WARNING, "reason", "close", "err", err.Error())
		}
	}
	a.closers = nil
}
