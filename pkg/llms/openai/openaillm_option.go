package openai

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/effective-security/toolloop/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/x/values"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	tokenEnvVarName        = "OPENAI_API_KEY"      //nolint:gosec
	modelEnvVarName        = "OPENAI_MODEL"        //nolint:gosec
	baseURLEnvVarName      = "OPENAI_BASE_URL"     //nolint:gosec
	organizationEnvVarName = "OPENAI_ORGANIZATION" //nolint:gosec
)

type ProviderType = openaiclient.ProviderType

const (
	ProviderOpenAI     = openaiclient.ProviderOpenAI
	ProviderAzure      = openaiclient.ProviderAzure
	ProviderAzureAD    = openaiclient.ProviderAzureAD
	ProviderPerplexity = openaiclient.ProviderPerplexity
)

const (
	DefaultAPIVersion = "2024-10-21"
	DefaultMaxRetries = 3
)

type options struct {
	token        string
	model        string
	baseURL      string
	organization string
	provider     ProviderType
	httpClient   *http.Client
	maxRetries   int
	retryWaitMax time.Duration

	// required when provider is Azure or AzureAD
	apiVersion string
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the OpenAI API token to the client. If not set, the token
// is read from the OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the OpenAI model to the client. If not set, the model
// is read from the OPENAI_MODEL environment variable.
// Required when ApiType is Azure.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the OpenAI base url to the client. If not set, the base url
// is read from the OPENAI_BASE_URL environment variable. If still not set in ENV
// VAR OPENAI_BASE_URL, then the default value is https://api.openai.com/v1 is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client. If not set, the
// organization is read from the OPENAI_ORGANIZATION.
func WithOrganization(organization string) Option {
	return func(opts *options) {
		opts.organization = organization
	}
}

// WithProvider passes the api type to the client. If not set, the default value
// is ProviderOpenAI.
func WithProvider(apiType ProviderType) Option {
	return func(opts *options) {
		opts.provider = apiType
	}
}

// WithAPIVersion passes the api version to the client. If not set, the default value
// is DefaultAPIVersion.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *options) {
		opts.apiVersion = apiVersion
	}
}

// WithHTTPClient allows setting a custom HTTP client.
// If not set, a retrying client is used.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithRetry sets the number of retries and the max wait between them,
// for the default HTTP client.
func WithRetry(maxRetries int, waitMax time.Duration) Option {
	return func(opts *options) {
		opts.maxRetries = maxRetries
		opts.retryWaitMax = waitMax
	}
}

func newClient(opts ...Option) (*options, *openaiclient.Client, error) {
	options := &options{
		token:        os.Getenv(tokenEnvVarName),
		model:        os.Getenv(modelEnvVarName),
		baseURL:      os.Getenv(baseURLEnvVarName),
		organization: os.Getenv(organizationEnvVarName),
		provider:     ProviderOpenAI,
		maxRetries:   DefaultMaxRetries,
		retryWaitMax: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	if openaiclient.IsAzure(options.provider) {
		options.apiVersion = values.StringsCoalesce(options.apiVersion, DefaultAPIVersion)
	}

	if len(options.token) == 0 {
		return options, nil, ErrMissingToken
	}

	if options.httpClient == nil {
		options.httpClient = newRetryClient(options.maxRetries, options.retryWaitMax)
	}

	cli, err := openaiclient.New(options.provider, options.model, options.token,
		options.baseURL, options.organization, options.apiVersion, options.httpClient)
	return options, cli, err
}

func newRetryClient(maxRetries int, waitMax time.Duration) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = maxRetries
	c.RetryWaitMin = waitMax / 30
	c.RetryWaitMax = waitMax
	c.Logger = nil
	c.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return c.StandardClient()
}
