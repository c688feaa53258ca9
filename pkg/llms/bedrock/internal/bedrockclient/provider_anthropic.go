package bedrockclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/effective-security/xlog"
)

// Ref: https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-anthropic-claude-messages.html
// Also: https://docs.anthropic.com/claude/reference/messages_post

// anthropicInputContent is a content block of a message.
type anthropicInputContent struct {
	// The type of the content. Required.
	// One of: "text", "tool_use", "tool_result"
	Type string `json:"type"`
	// The text content. Required if type is "text"
	Text string `json:"text,omitempty"`
	// Tool use fields
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
	// Tool result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicInputMessage struct {
	// One of: ["user", "assistant"]
	Role    string                  `json:"role"`
	Content []anthropicInputContent `json:"content"`
}

// anthropicTool represents a tool that can be used by the model
type anthropicTool struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	InputSchema anthropicInputSchema `json:"input_schema"`
}

// anthropicInputSchema represents the JSON schema for tool input
type anthropicInputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// anthropicInput is the body of the InvokeModel request.
type anthropicInput struct {
	AnthropicVersion string                   `json:"anthropic_version"`
	MaxTokens        int                      `json:"max_tokens"`
	System           string                   `json:"system,omitempty"`
	Messages         []*anthropicInputMessage `json:"messages"`
	Temperature      float64                  `json:"temperature,omitempty"`
	TopP             float64                  `json:"top_p,omitempty"`
	TopK             int                      `json:"top_k,omitempty"`
	StopSequences    []string                 `json:"stop_sequences,omitempty"`
	Tools            []anthropicTool          `json:"tools,omitempty"`
}

// anthropicOutputContent represents a content block in the output
type anthropicOutputContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// anthropicOutput is the generated output.
type anthropicOutput struct {
	ID      string                   `json:"id"`
	Type    string                   `json:"type"`
	Role    string                   `json:"role"`
	Content []anthropicOutputContent `json:"content"`
	// One of: ["end_turn", "max_tokens", "stop_sequence", "tool_use"]
	StopReason   string `json:"stop_reason"`
	StopSequence string `json:"stop_sequence"`
	Usage        struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Finish reason for the completion of the generation.
const (
	AnthropicCompletionReasonEndTurn      = "end_turn"
	AnthropicCompletionReasonMaxTokens    = "max_tokens"
	AnthropicCompletionReasonStopSequence = "stop_sequence"
	AnthropicCompletionReasonToolUse      = "tool_use"
)

// The latest version of the model.
const (
	AnthropicLatestVersion = "bedrock-2023-05-31"
)

// Role attribute for the anthropic message.
const (
	AnthropicRoleUser      = "user"
	AnthropicRoleAssistant = "assistant"
)

// Type attribute for the anthropic message.
const (
	AnthropicMessageTypeText       = "text"
	AnthropicMessageTypeToolUse    = "tool_use"
	AnthropicMessageTypeToolResult = "tool_result"
)

func createAnthropicCompletion(ctx context.Context,
	client InvokeModelAPI,
	modelID string,
	messages []llms.Message,
	options llms.CallOptions,
) (*llms.ContentResponse, error) {
	inputContents, err := processInputMessagesAnthropic(messages)
	if err != nil {
		return nil, err
	}

	input := anthropicInput{
		AnthropicVersion: AnthropicLatestVersion,
		MaxTokens:        getMaxTokens(options.MaxTokens, 2048),
		System:           options.SystemPrompt,
		Messages:         inputContents,
		Temperature:      options.Temperature,
		TopP:             options.TopP,
		TopK:             options.TopK,
		StopSequences:    options.StopWords,
		Tools:            anthropicTools(options.Tools),
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, errors.Wrap(err, "marshal input")
	}

	started := time.Now()
	resp, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Accept:      aws.String("*/*"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrap(err, "bedrock: failed to invoke model")
	}

	var output anthropicOutput
	if err = json.Unmarshal(resp.Body, &output); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", modelID,
		"id", output.ID,
		"stop_reason", output.StopReason,
		"input_tokens", output.Usage.InputTokens,
		"output_tokens", output.Usage.OutputTokens,
		"elapsed", time.Since(started).String(),
	)

	if stopReason := output.StopReason; stopReason != AnthropicCompletionReasonEndTurn &&
		stopReason != AnthropicCompletionReasonStopSequence &&
		stopReason != AnthropicCompletionReasonToolUse {
		return nil, errors.New("completed due to " + stopReason + ". Maybe try increasing max tokens")
	}

	msg := llms.Message{Role: llms.RoleAI}
	for _, c := range output.Content {
		switch c.Type {
		case AnthropicMessageTypeText:
			if c.Text != "" {
				msg.Parts = append(msg.Parts, llms.TextPart(c.Text))
			}
		case AnthropicMessageTypeToolUse:
			args, err := llmutils.ParseToolInput(string(c.Input))
			if err != nil {
				return nil, errors.WithMessagef(err, "tool use %s (%s)", c.ID, c.Name)
			}
			msg.Parts = append(msg.Parts, llms.ToolCall{
				ID:    c.ID,
				Name:  c.Name,
				Input: args,
			})
		}
	}

	return &llms.ContentResponse{
		Message:    msg,
		StopReason: output.StopReason,
		Usage: llms.Usage{
			InputTokens:  output.Usage.InputTokens,
			OutputTokens: output.Usage.OutputTokens,
			TotalTokens:  output.Usage.InputTokens + output.Usage.OutputTokens,
		},
	}, nil
}

func anthropicTools(list []llms.Tool) []anthropicTool {
	var tools []anthropicTool
	for _, tool := range list {
		if tool.Function == nil {
			continue
		}
		schema := anthropicInputSchema{Type: "object"}
		if params := tool.Function.Parameters; params != nil {
			if params.Properties != nil {
				schema.Properties = make(map[string]any)
				for pair := params.Properties.Oldest(); pair != nil; pair = pair.Next() {
					schema.Properties[pair.Key] = pair.Value
				}
			}
			schema.Required = params.Required
		}
		tools = append(tools, anthropicTool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: schema,
		})
	}
	return tools
}

// processInputMessagesAnthropic converts the conversation to the messages of the request.
// Consecutive messages of the same role are merged.
func processInputMessagesAnthropic(messages []llms.Message) ([]*anthropicInputMessage, error) {
	inputContents := make([]*anthropicInputMessage, 0, len(messages))
	for i, message := range messages {
		role, err := getAnthropicRole(message.Role)
		if err != nil {
			return nil, errors.WithMessagef(err, "message %d", i)
		}

		var results, content []anthropicInputContent
		for _, part := range message.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				content = append(content, anthropicInputContent{
					Type: AnthropicMessageTypeText,
					Text: p.Text,
				})
			case llms.ToolCall:
				if message.Role != llms.RoleAI {
					return nil, errors.Errorf("message %d: tool call in %s message", i, message.Role)
				}
				input := p.Input
				if input == nil {
					input = map[string]any{}
				}
				content = append(content, anthropicInputContent{
					Type:  AnthropicMessageTypeToolUse,
					ID:    p.ID,
					Name:  p.Name,
					Input: input,
				})
			case llms.ToolCallResponse:
				if message.Role != llms.RoleHuman {
					return nil, errors.Errorf("message %d: tool result in %s message", i, message.Role)
				}
				results = append(results, anthropicInputContent{
					Type:      AnthropicMessageTypeToolResult,
					ToolUseID: p.ToolCallID,
					Content:   p.Content,
					IsError:   p.IsError,
				})
			default:
				return nil, errors.Errorf("message %d: unsupported content part: %T", i, part)
			}
		}
		// tool results go first in a user turn
		content = append(results, content...)
		if len(content) == 0 {
			continue
		}

		if n := len(inputContents); n > 0 && inputContents[n-1].Role == role {
			inputContents[n-1].Content = append(inputContents[n-1].Content, content...)
			continue
		}
		inputContents = append(inputContents, &anthropicInputMessage{
			Role:    role,
			Content: content,
		})
	}
	return inputContents, nil
}

// process the role of the message to anthropic supported role.
func getAnthropicRole(role llms.Role) (string, error) {
	switch role {
	case llms.RoleAI:
		return AnthropicRoleAssistant, nil
	case llms.RoleHuman:
		return AnthropicRoleUser, nil
	default:
		return "", errors.WithMessagef(llms.ErrUnexpectedRole, "%q", role)
	}
}
