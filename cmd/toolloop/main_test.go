package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/effective-security/toolloop/pkg/llmfactory"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecast = `{
	"latitude": 48.86,
	"longitude": 2.35,
	"current_units": {"temperature_2m": "°C", "wind_speed_10m": "km/h"},
	"current": {"time": "2025-06-01T12:00", "temperature_2m": 21.5, "wind_speed_10m": 11.2, "weather_code": 2}
}`

// scriptedLLM requests the weather tool once, then answers with the tool result
type scriptedLLM struct {
	name string

	lock    sync.Mutex
	calls   int
	prompts []string
	results []llms.ToolCallResponse
}

func (m *scriptedLLM) GetName() string {
	return m.name
}

func (m *scriptedLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

func (m *scriptedLLM) GenerateContent(_ context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	opts := llms.NewCallOptions(llms.CallOptions{}, options...)
	m.prompts = append(m.prompts, opts.SystemPrompt)
	m.calls++

	last := messages[len(messages)-1]
	if results := last.ToolCallResponses(); len(results) > 0 {
		m.results = append(m.results, results...)
		return &llms.ContentResponse{
			Message: llms.MessageFromTextParts(llms.RoleAI, "It is sunny enough in Paris."),
		}, nil
	}
	if len(opts.Tools) == 0 {
		return &llms.ContentResponse{
			Message: llms.MessageFromTextParts(llms.RoleAI, "I have no tools."),
		}, nil
	}
	return &llms.ContentResponse{
		Message: llms.MessageFromParts(llms.RoleAI, llms.ToolCall{
			ID:    "call_1",
			Name:  "GetWeather",
			Input: map[string]any{"latitude": 48.86, "longitude": 2.35},
		}),
	}, nil
}

func useScriptedLLM(t *testing.T) map[string]*scriptedLLM {
	created := map[string]*scriptedLLM{}
	var lock sync.Mutex
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		lock.Lock()
		defer lock.Unlock()
		name := cfg.FindModel(preferredModels...)
		m := &scriptedLLM{name: name}
		created[name] = m
		return m, nil
	}
	t.Cleanup(func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	})
	return created
}

func writeConfig(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "toolloop.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("testdata/toolloop.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "weather", cfg.DefaultAgent)
	assert.Equal(t, "cli", cfg.TenantID)
	assert.Equal(t, 3, cfg.Agents[0].MaxRecursions)
	require.NotNil(t, cfg.Agents[0].Temperature)
	assert.Equal(t, 0.2, *cfg.Agents[0].Temperature)
	assert.Equal(t, []string{"GetWeather"}, cfg.Agents[0].Tools)
	assert.True(t, cfg.Agents[1].Sequential)
	require.NotNil(t, cfg.Tools.Weather)
	assert.Equal(t, 2, cfg.Tools.Weather.MaxRetries)
	assert.Nil(t, cfg.Tools.WebSearch)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, 20, cfg.Redis.MaxMessages)
	assert.Len(t, cfg.LLM.Providers, 2)

	_, err = LoadConfig("testdata/missing.yaml")
	require.Error(t, err)

	tcases := []struct {
		name string
		yaml string
		err  string
	}{
		{
			name: "no agents",
			yaml: "tools: {}\n",
			err:  "invalid configuration",
		},
		{
			name: "no agent name",
			yaml: "agents:\n  - description: test\n",
			err:  "invalid configuration",
		},
		{
			name: "negative recursions",
			yaml: "agents:\n  - name: a1\n    max_recursions: -1\n",
			err:  "invalid configuration",
		},
		{
			name: "duplicate agent",
			yaml: "agents:\n  - name: a1\n  - name: a1\n",
			err:  `agent "a1": duplicate name`,
		},
		{
			name: "unknown default agent",
			yaml: "default_agent: a2\nagents:\n  - name: a1\n",
			err:  `default agent "a2" not found`,
		},
		{
			name: "invalid llm",
			yaml: "agents:\n  - name: a1\nllm:\n  providers:\n    - name: p1\n",
			err:  `invalid llm configuration: provider "p1": type is required`,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func weatherConfig(serverURL string) string {
	return fmt.Sprintf(`
llm:
  providers:
    - name: OPENAI
      type: OPENAI
      token: fakekey
      default_model: gpt-4o
      available_models: [gpt-4o, gpt-4o-mini]
agents:
  - name: weather
    system_prompt: "You are {{ .Agent }}."
    models: [gpt-4o-mini]
    tools: ["*"]
    max_recursions: 2
  - name: chat
    max_recursions: 1
tools:
  weather:
    base_url: %s
    max_retries: 1
`, serverURL)
}

func TestRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(forecast))
	}))
	defer server.Close()

	models := useScriptedLLM(t)
	file := writeConfig(t, weatherConfig(server.URL))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), runArgs{
		config:   file,
		question: "What is the weather in Paris?",
	}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "It is sunny enough in Paris.\n", stdout.String())

	m := models["gpt-4o-mini"]
	require.NotNil(t, m)
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, []string{"You are weather.", "You are weather."}, m.prompts)
	require.Len(t, m.results, 1)
	assert.Equal(t, "call_1", m.results[0].ToolCallID)
	assert.False(t, m.results[0].IsError)
	assert.Contains(t, m.results[0].Content, "partly cloudy")
}

func TestRun_AgentWithoutTools(t *testing.T) {
	models := useScriptedLLM(t)
	file := writeConfig(t, weatherConfig("http://localhost:1"))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), runArgs{
		config:   file,
		agent:    "chat",
		verbose:  true,
		question: "hello",
	}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "I have no tools.\n", stdout.String())
	assert.Contains(t, stderr.String(), "*** Run Started ***")

	m := models["gpt-4o"]
	require.NotNil(t, m)
	assert.Equal(t, 1, m.calls)
	assert.Contains(t, m.prompts[0], "You are chat, a helpful assistant.")
}

func TestRun_Errors(t *testing.T) {
	useScriptedLLM(t)
	file := writeConfig(t, weatherConfig("http://localhost:1"))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), runArgs{
		config:   file,
		agent:    "unknown",
		question: "hello",
	}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"unknown"`)

	err = run(context.Background(), runArgs{
		config:   "testdata/missing.yaml",
		question: "hello",
	}, &stdout, &stderr)
	require.Error(t, err)

	badTool := writeConfig(t, "agents:\n  - name: a1\n    tools: [WebSearch]\n")
	err = run(context.Background(), runArgs{
		config:   badTool,
		question: "hello",
	}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent "a1": tool "WebSearch" is not configured`)
}

func TestCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := newCommand(&stdout, &stderr).Run(context.Background(), []string{"toolloop", "--config", "testdata/toolloop.yaml"})
	require.Error(t, err)
	assert.Equal(t, "question is required", err.Error())
}
