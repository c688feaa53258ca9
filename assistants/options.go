package assistants

import (
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/store"
)

const (
	// DefaultName is the agent name used in logs and metrics when none is configured.
	DefaultName = "assistant"
	// DefaultMaxRecursions is the bound of dispatch rounds used by Assistant.
	DefaultMaxRecursions = 5
)

// Option is a function that can be used to modify the behavior of the Agent Config.
type Option func(*Config)

type Config struct {
	// Name is the name of the agent, used in logs, metrics and callbacks.
	Name string
	// Description is the description of the agent.
	Description string
	// SystemPrompt is the fixed instruction text sent with every LLM call.
	SystemPrompt string

	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// StopWords is a list of words to stop on to use in an LLM call.
	StopWords    []string
	stopWordsSet bool

	// TopK is the number of tokens to consider for top-k sampling in an LLM call.
	TopK    int
	topkSet bool

	// TopP is the cumulative probability for top-p sampling in an LLM call.
	TopP    float64
	toppSet bool

	// CallbackHandler receives the loop events.
	// It is called concurrently when tools are dispatched concurrently.
	CallbackHandler Callback

	// Sequential dispatches the tool calls of a response one at a time.
	Sequential bool

	//
	// Below are the options for the Assistant, not used by the Executor
	//

	// MaxRecursions is the bound of dispatch rounds per run.
	MaxRecursions int
	// Store persists the conversation across runs of the same chat.
	Store store.MessageStore
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:          DefaultName,
		MaxRecursions: DefaultMaxRecursions,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithName sets the name of the agent.
func WithName(name string) Option {
	return func(o *Config) {
		o.Name = name
	}
}

// WithDescription sets the description of the agent.
func WithDescription(description string) Option {
	return func(o *Config) {
		o.Description = description
	}
}

// WithSystemPrompt sets the fixed instructions of the agent.
func WithSystemPrompt(prompt string) Option {
	return func(o *Config) {
		o.SystemPrompt = prompt
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithStopWords is an option for setting the stop words for LLM.Call.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

// WithTopK will add an option to use top-k sampling for LLM.Call.
func WithTopK(topK int) Option {
	return func(o *Config) {
		o.TopK = topK
		o.topkSet = true
	}
}

// WithTopP	will add an option to use top-p sampling for LLM.Call.
func WithTopP(topP float64) Option {
	return func(o *Config) {
		o.TopP = topP
		o.toppSet = true
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithSequentialDispatch dispatches the tool calls of a response one at a time,
// in the order requested by the model.
func WithSequentialDispatch() Option {
	return func(o *Config) {
		o.Sequential = true
	}
}

// WithMaxRecursions sets the bound of dispatch rounds for the Assistant.
func WithMaxRecursions(maxRecursions int) Option {
	return func(o *Config) {
		o.MaxRecursions = maxRecursions
	}
}

// WithStore sets the message store for the Assistant.
func WithStore(store store.MessageStore) Option {
	return func(o *Config) {
		o.Store = store
	}
}

// GetCallOptions returns the LLM call options of the config.
func (c *Config) GetCallOptions(extra ...llms.CallOption) []llms.CallOption {
	var callOptions []llms.CallOption
	if c.SystemPrompt != "" {
		callOptions = append(callOptions, llms.WithSystemPrompt(c.SystemPrompt))
	}
	if c.modelSet {
		callOptions = append(callOptions, llms.WithModel(c.Model))
	}
	if c.maxTokensSet {
		callOptions = append(callOptions, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		callOptions = append(callOptions, llms.WithTemperature(c.Temperature))
	}
	if c.stopWordsSet {
		callOptions = append(callOptions, llms.WithStopWords(c.StopWords))
	}
	if c.topkSet {
		callOptions = append(callOptions, llms.WithTopK(c.TopK))
	}
	if c.toppSet {
		callOptions = append(callOptions, llms.WithTopP(c.TopP))
	}
	return append(callOptions, extra...)
}
