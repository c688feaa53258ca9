package openaiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop", "openai")

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultChatModel = "gpt-4o-mini"
	DefaultMaxTokens = 16384
)

// ErrEmptyResponse is returned when the OpenAI API returns an empty response.
var ErrEmptyResponse = errors.New("empty response")

type ProviderType string

const (
	ProviderOpenAI     ProviderType = "OPENAI"
	ProviderAzure      ProviderType = "AZURE"
	ProviderAzureAD    ProviderType = "AZURE_AD"
	ProviderPerplexity ProviderType = "PERPLEXITY"
)

// Client is a client for the OpenAI chat completions API.
type Client struct {
	Model    string
	Provider ProviderType

	baseURL string
	// required when Provider is ProviderAzure or ProviderAzureAD
	apiVersion string

	sdk openai.Client
}

// New returns a new OpenAI client.
// Retries are left to httpClient, the SDK does not retry on its own.
func New(provider ProviderType, model, token, baseURL, organization, apiVersion string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	c := &Client{
		Model:      model,
		Provider:   provider,
		baseURL:    strings.TrimSuffix(values.StringsCoalesce(baseURL, DefaultBaseURL), "/"),
		apiVersion: apiVersion,
	}

	sdkOpts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	switch provider {
	case ProviderAzure:
		sdkOpts = append(sdkOpts,
			option.WithHeaderDel("Authorization"),
			option.WithHeader("api-key", token),
		)
	default:
		sdkOpts = append(sdkOpts, option.WithAPIKey(token))
	}

	if IsAzure(provider) {
		if c.apiVersion == "" {
			return nil, errors.New("api version is required for Azure")
		}
		sdkOpts = append(sdkOpts, option.WithQuery("api-version", c.apiVersion))
	} else {
		sdkOpts = append(sdkOpts, option.WithBaseURL(c.baseURL+"/"))
	}
	if organization != "" {
		sdkOpts = append(sdkOpts, option.WithOrganization(organization))
	}

	c.sdk = openai.NewClient(sdkOpts...)
	return c, nil
}

// CreateChat creates chat request.
func (c *Client) CreateChat(ctx context.Context, r *openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	if r.Model == "" {
		r.Model = openai.ChatModel(values.StringsCoalesce(c.Model, DefaultChatModel))
	}

	var reqOpts []option.RequestOption
	if IsAzure(c.Provider) {
		reqOpts = append(reqOpts, option.WithBaseURL(c.deploymentURL(string(r.Model))))
	}

	started := time.Now()
	resp, err := c.sdk.Chat.Completions.New(ctx, *r, reqOpts...)

	logger.ContextKV(ctx, xlog.DEBUG,
		"provider", c.Provider,
		"model", r.Model,
		"messages", len(r.Messages),
		"tools", len(r.Tools),
		"elapsed", time.Since(started).String(),
	)

	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, errors.WithMessagef(err, "API returned unexpected status code: %d", apiErr.StatusCode)
		}
		return nil, errors.Wrap(err, "send request")
	}
	if len(resp.Choices) == 0 || isEmptyChoice(&resp.Choices[0]) {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

// isEmptyChoice reports a choice that carries neither content nor tool calls,
// such as a `null` element in the choices list.
func isEmptyChoice(c *openai.ChatCompletionChoice) bool {
	return c.Message.Content == "" &&
		c.Message.Refusal == "" &&
		len(c.Message.ToolCalls) == 0 &&
		c.FinishReason == ""
}

func IsAzure(apiType ProviderType) bool {
	return apiType == ProviderAzure || apiType == ProviderAzureAD
}

// deploymentURL returns the base URL of the Azure deployment serving model.
// azure example url:
// /openai/deployments/{model}/chat/completions?api-version={api_version}
func (c *Client) deploymentURL(model string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/", c.baseURL, model)
}
