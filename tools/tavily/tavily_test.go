package tavily_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/toolloop/tools/tavily"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req tavilyModels.SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is capital of France", req.Query)
		assert.Equal(t, "basic", req.SearchDepth)

		resp := tavily.SearchResult{
			Results: []tavilyModels.SearchResult{
				{Title: "Test Result", URL: "https://example.com", Content: "Test content", Score: 0.9},
			},
		}
		if req.IncludeAnswer {
			resp.Answer = "Paris"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNew(t *testing.T) {
	t.Setenv(tavily.EnvAPIKey, "")
	_, err := tavily.New()
	assert.EqualError(t, err, "TAVILY_API_KEY is not set")

	tool, err := tavily.New(tavily.WithAPIKey("key"), tavily.WithName("search"))
	require.NoError(t, err)
	assert.Equal(t, "search", tool.Name())

	t.Setenv(tavily.EnvAPIKey, "envkey")
	tool, err = tavily.New()
	require.NoError(t, err)
	assert.Equal(t, tavily.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "web search")

	expParams := `{
	"properties": {
		"Query": {
			"type": "string",
			"title": "Query",
			"description": "The query to search web."
		}
	},
	"type": "object",
	"required": [
		"Query"
	]
}`
	assert.Equal(t, expParams, llmutils.ToJSONIndent(tool.Parameters()))
}

func TestTool(t *testing.T) {
	ctx := context.Background()
	server := newServer(t)

	tool, err := tavily.New(
		tavily.WithAPIKey("testkey"),
		tavily.WithBaseURL(server.URL),
		tavily.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	_, err = tool.Call(ctx, map[string]any{"Query": ""})
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))

	_, err = tool.Run(ctx, &tavily.SearchRequest{})
	assert.EqualError(t, err, "invalid request: empty query")

	resp, err := tool.Run(ctx, &tavily.SearchRequest{Query: "What is capital of France"})
	require.NoError(t, err)
	exp := `ANSWER: Paris
- URL: https://example.com
  TITLE: Test Result
  SCORE: 0.900000
  CONTENT: Test content
`
	assert.Equal(t, exp, resp.String())

	out, err := tool.Call(ctx, map[string]any{"Query": "What is capital of France"})
	require.NoError(t, err)
	assert.Equal(t, exp, llmutils.ToContent(out))
}
