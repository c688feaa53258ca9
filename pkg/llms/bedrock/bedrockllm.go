package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llms/bedrock/internal/bedrockclient"
)

const defaultModel = ModelAnthropicClaude35SonnetV2

// ErrUnsupportedProvider is returned when the model family does not support tool use.
var ErrUnsupportedProvider = bedrockclient.ErrUnsupportedProvider

// LLM is a Bedrock LLM implementation.
type LLM struct {
	modelID string
	client  *bedrockclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Bedrock LLM implementation.
// Without WithClient, the runtime client is created from
// the default AWS configuration.
func New(opts ...Option) (*LLM, error) {
	o, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client:  c,
		modelID: o.modelID,
	}, nil
}

func newClient(opts ...Option) (*options, *bedrockclient.Client, error) {
	options := &options{
		modelID: defaultModel,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.client == nil {
		var cfgOpts []func(*config.LoadOptions) error
		if options.region != "" {
			cfgOpts = append(cfgOpts, config.WithRegion(options.region))
		}
		if options.maxRetries > 0 {
			cfgOpts = append(cfgOpts, config.WithRetryMaxAttempts(options.maxRetries+1))
		}
		cfg, err := config.LoadDefaultConfig(context.Background(), cfgOpts...)
		if err != nil {
			return options, nil, err
		}
		options.client = bedrockruntime.NewFromConfig(cfg)
	}

	return options, bedrockclient.NewClient(options.client), nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// GenerateContent implements llms.Model.
func (l *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{Model: l.modelID}, options...)
	return l.client.CreateCompletion(ctx, opts.Model, messages, opts)
}
