package llmfactory

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
)

// Config is the configuration of LLM providers.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// AgentModels specifies the mapping of agents to models.
	// key is the agent name, value is the list of preferred models.
	// Use `default: [<model_name>]` as the default models for agents.
	AgentModels map[string][]string `json:"agent_models" yaml:"agent_models"`
}

// ProviderConfig is the configuration of a single provider.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name"`
	// Type specifies the type of API to use:
	// OPENAI|AZURE|AZURE_AD|ANTHROPIC|GOOGLEAI|BEDROCK|PERPLEXITY
	Type            string   `json:"type" yaml:"type"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIVersion is required for Azure.
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	// Region is the AWS region for Bedrock, or the GCP location for Vertex AI.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Project is the GCP project for Vertex AI.
	Project string `json:"project,omitempty" yaml:"project,omitempty"`
	// MaxRetries is the number of retries of failed requests.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// FindModel returns the first of models available from the provider,
// or the default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// GetType returns the normalized provider type.
func (c *ProviderConfig) GetType() string {
	t := strings.ToUpper(c.Type)
	if t == "OPEN_AI" {
		return "OPENAI"
	}
	return t
}

// Validate returns error if the configuration is invalid.
func (c *Config) Validate() error {
	names := map[string]bool{}
	for i, p := range c.Providers {
		if p == nil {
			return errors.Errorf("provider [%d]: empty", i)
		}
		if p.Name == "" {
			return errors.Errorf("provider [%d]: name is required", i)
		}
		if names[p.Name] {
			return errors.Errorf("provider %q: duplicate name", p.Name)
		}
		names[p.Name] = true
		if p.Type == "" {
			return errors.Errorf("provider %q: type is required", p.Name)
		}
		if p.MaxRetries < 0 {
			return errors.Errorf("provider %q: max_retries must not be negative", p.Name)
		}
	}
	if c.DefaultProvider != "" && !names[c.DefaultProvider] {
		return errors.Errorf("default provider %q not found", c.DefaultProvider)
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
