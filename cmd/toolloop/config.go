package main

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llmfactory"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Config is the configuration of the CLI.
type Config struct {
	// LLM specifies the LLM providers.
	LLM llmfactory.Config `json:"llm" yaml:"llm"`
	// Agents specifies the agents, names must be unique.
	Agents []*AgentConfig `json:"agents" yaml:"agents" validate:"required,min=1,dive,required"`
	// DefaultAgent is the agent used when none is requested,
	// the first agent is used if empty.
	DefaultAgent string `json:"default_agent,omitempty" yaml:"default_agent,omitempty"`
	// TenantID scopes the persisted chats.
	TenantID string `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	// Tools specifies the tools available to the agents.
	Tools ToolsConfig `json:"tools" yaml:"tools"`
	// Redis specifies the store of the chats, the chats are not persisted if empty.
	Redis *RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// AgentConfig is the configuration of an agent.
type AgentConfig struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// SystemPrompt is a template with `.Agent` and `.Tools` values.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// Models is the list of preferred models, used when llm.agent_models has no entry for the agent.
	Models []string `json:"models,omitempty" yaml:"models,omitempty"`
	// Tools is the list of tool names available to the agent,
	// use ["*"] for all configured tools.
	Tools         []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	MaxRecursions int      `json:"max_recursions,omitempty" yaml:"max_recursions,omitempty" validate:"gte=0"`
	MaxTokens     int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	// Sequential dispatches the tool calls one at a time.
	Sequential bool `json:"sequential,omitempty" yaml:"sequential,omitempty"`
}

// ToolsConfig specifies the tools, a tool is available when configured.
type ToolsConfig struct {
	Weather   *WeatherConfig   `json:"weather,omitempty" yaml:"weather,omitempty"`
	WebSearch *WebSearchConfig `json:"web_search,omitempty" yaml:"web_search,omitempty"`
}

// WeatherConfig is the configuration of the weather tool.
type WeatherConfig struct {
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxRetries int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"gte=0"`
}

// WebSearchConfig is the configuration of the web search tool.
type WebSearchConfig struct {
	// APIKey is the Tavily API key, TAVILY_API_KEY is used if empty.
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// RedisConfig is the configuration of the chat store.
type RedisConfig struct {
	// URL is the redis URL, for example redis://localhost:6379/0
	URL         string `json:"url" yaml:"url" validate:"required"`
	Prefix      string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	MaxMessages int    `json:"max_messages,omitempty" yaml:"max_messages,omitempty"`
}

var validate = validator.New()

// Validate returns error if the configuration is invalid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if err := c.LLM.Validate(); err != nil {
		return errors.WithMessage(err, "invalid llm configuration")
	}
	names := map[string]bool{}
	for _, a := range c.Agents {
		if names[a.Name] {
			return errors.Newf("agent %q: duplicate name", a.Name)
		}
		names[a.Name] = true
	}
	if c.DefaultAgent != "" && !names[c.DefaultAgent] {
		return errors.Newf("default agent %q not found", c.DefaultAgent)
	}
	return nil
}

// LoadConfig loads the configuration from file,
// the environment variables in the file are expanded.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
		return nil, errors.WithMessagef(err, "failed to load %s", file)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
