package bedrock

import "github.com/effective-security/toolloop/pkg/llms/bedrock/internal/bedrockclient"

// Anthropic models available on Bedrock with tool use support.
const (
	ModelAnthropicClaude3Haiku     = "anthropic.claude-3-haiku-20240307-v1:0"
	ModelAnthropicClaude35Haiku    = "anthropic.claude-3-5-haiku-20241022-v1:0"
	ModelAnthropicClaude35SonnetV2 = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	ModelAnthropicClaude37Sonnet   = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"
)

// InvokeModelAPI is the subset of the Bedrock runtime client used by the LLM.
type InvokeModelAPI = bedrockclient.InvokeModelAPI

// Option is an option for the Bedrock LLM.
type Option func(*options)

type options struct {
	modelID    string
	region     string
	maxRetries int
	client     InvokeModelAPI
}

// WithModel allows setting a custom model id.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithRegion sets the AWS region of the default client.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithMaxRetries sets the number of retries of the default client.
func WithMaxRetries(maxRetries int) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
	}
}

// WithClient allows setting a custom bedrockruntime client,
// or any implementation of InvokeModel.
func WithClient(client InvokeModelAPI) Option {
	return func(o *options) {
		o.client = client
	}
}
