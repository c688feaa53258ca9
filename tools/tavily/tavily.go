// Package tavily provides a web search tool backed by the Tavily API.
package tavily

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/toolloop/pkg/schema"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop/tools", "tavily")

// ToolName is the default name of the tool
const ToolName = "WebSearch"

// EnvAPIKey is the environment variable with the API key
const EnvAPIKey = "TAVILY_API_KEY"

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query string `json:"Query" yaml:"Query" jsonschema:"title=Query,description=The query to search web." validate:"required"`
}

// SearchResult represents the structure for a search response
type SearchResult struct {
	Results []tavilyModels.SearchResult `json:"results" yaml:"Results"`
	Answer  string                      `json:"answer,omitempty" yaml:"Answer"`
}

// Option configures the tool
type Option func(*Tool)

// WithAPIKey sets the API key, the default is taken from TAVILY_API_KEY
func WithAPIKey(apiKey string) Option {
	return func(t *Tool) {
		t.apiKey = apiKey
	}
}

// WithBaseURL sets the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(t *Tool) {
		t.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// WithName sets the name of the tool
func WithName(name string) Option {
	return func(t *Tool) {
		t.name = name
	}
}

// Tool is a tool that provides a web search functionality
type Tool struct {
	name       string
	params     *jsonschema.Schema
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ tools.Tool[SearchRequest, SearchResult] = (*Tool)(nil)

// New returns the tool, the API key is required.
func New(opts ...Option) (*Tool, error) {
	sc, err := schema.For[SearchRequest]()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}

	t := &Tool{
		name:   ToolName,
		params: sc.Parameters,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.apiKey = values.StringsCoalesce(t.apiKey, os.Getenv(EnvAPIKey))
	if t.apiKey == "" {
		return nil, errors.Newf("%s is not set", EnvAPIKey)
	}
	return t, nil
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return "A tool that provides a web search functionality. Returns an answer and the list of relevant web pages."
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return t.params
}

// Run performs the search
func (t *Tool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	searchResp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         req.Query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"query", req.Query,
		"results", len(searchResp.Results),
	)

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}

// Call decodes the input and performs the search,
// the result is rendered as text by its String method.
func (t *Tool) Call(ctx context.Context, input map[string]any) (any, error) {
	req, err := tools.DecodeInput[SearchRequest](input)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, req)
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}

	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}

	return buf.String()
}
