package googleai

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llms/googleai/internal/genaiutils"
	"github.com/effective-security/xlog"
	"google.golang.org/genai"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop", "googleai")

var (
	ErrNoContentInResponse   = errors.New("no content in generation response")
	ErrUnknownPartInResponse = errors.New("unknown part type in generation response")
)

const (
	RoleModel = "model"
	RoleUser  = "user"
)

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(
	ctx context.Context,
	messages []llms.Message,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{
		Model:       g.opts.DefaultModel,
		MaxTokens:   g.opts.DefaultMaxTokens,
		Temperature: g.opts.DefaultTemperature,
		TopP:        g.opts.DefaultTopP,
		TopK:        g.opts.DefaultTopK,
	}, options...)

	callCfg := &genai.GenerateContentConfig{
		StopSequences:   opts.StopWords,
		CandidateCount:  int32(g.opts.DefaultCandidateCount),
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genaiutils.Float32Ptr(float32(opts.Temperature)),
		TopP:            genaiutils.Float32Ptr(float32(opts.TopP)),
		TopK:            genaiutils.Float32Ptr(float32(opts.TopK)),
	}
	if opts.SystemPrompt != "" {
		callCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemPrompt}},
		}
	}

	threshold := g.opts.HarmThreshold
	for _, category := range []genai.HarmCategory{
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
	} {
		callCfg.SafetySettings = append(callCfg.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: threshold,
		})
	}

	var err error
	if callCfg.Tools, err = genaiutils.ConvertTools(opts.Tools); err != nil {
		return nil, err
	}

	history, err := ConvertMessages(messages)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, history, callCfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", opts.Model,
		"candidates", len(resp.Candidates),
		"elapsed", time.Since(started).String(),
	)

	if len(resp.Candidates) == 0 {
		return nil, ErrNoContentInResponse
	}
	return convertCandidate(resp.Candidates[0], resp.UsageMetadata)
}

// convertCandidate converts the first candidate to the assistant message.
func convertCandidate(candidate *genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	msg := llms.Message{Role: llms.RoleAI}

	if candidate.Content != nil {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			switch {
			case part.Thought:
				// reasoning summaries are not part of the conversation
			case part.Text != "":
				text.WriteString(part.Text)
			case part.FunctionCall != nil:
				args := part.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				msg.Parts = append(msg.Parts, llms.ToolCall{
					ID:    part.FunctionCall.ID,
					Name:  part.FunctionCall.Name,
					Input: args,
				})
			default:
				return nil, errors.WithMessage(ErrUnknownPartInResponse, "not text or tool")
			}
		}
		if text.Len() > 0 {
			msg.Parts = append([]llms.ContentPart{llms.TextPart(text.String())}, msg.Parts...)
		}
	}

	resp := &llms.ContentResponse{
		Message:    msg,
		StopReason: string(candidate.FinishReason),
	}
	if usage != nil {
		resp.Usage = llms.Usage{
			InputTokens:  int64(usage.PromptTokenCount),
			OutputTokens: int64(usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount),
			TotalTokens:  int64(usage.TotalTokenCount),
		}
	}
	return resp, nil
}

// ConvertMessages converts the conversation to genai contents.
func ConvertMessages(messages []llms.Message) ([]*genai.Content, error) {
	history := make([]*genai.Content, 0, len(messages))
	for i, mc := range messages {
		content, err := convertContent(mc)
		if err != nil {
			return nil, errors.WithMessagef(err, "message %d", i)
		}
		history = append(history, content)
	}
	return history, nil
}

// convertContent converts a message to genai content.
func convertContent(content llms.Message) (*genai.Content, error) {
	c := &genai.Content{
		Parts: make([]*genai.Part, 0, len(content.Parts)),
	}

	switch content.Role {
	case llms.RoleAI:
		c.Role = RoleModel
	case llms.RoleHuman:
		c.Role = RoleUser
	default:
		return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "%q", content.Role)
	}

	for _, part := range content.Parts {
		out := new(genai.Part)
		switch p := part.(type) {
		case llms.TextContent:
			out.Text = p.Text
		case llms.ToolCall:
			out.FunctionCall = &genai.FunctionCall{
				ID:   p.ID,
				Name: p.Name,
				Args: p.Input,
			}
		case llms.ToolCallResponse:
			key := "output"
			if p.IsError {
				key = "error"
			}
			out.FunctionResponse = &genai.FunctionResponse{
				ID:       p.ToolCallID,
				Name:     p.Name,
				Response: map[string]any{key: p.Content},
			}
		default:
			return nil, errors.Errorf("unsupported content part: %T", part)
		}
		c.Parts = append(c.Parts, out)
	}
	return c, nil
}
