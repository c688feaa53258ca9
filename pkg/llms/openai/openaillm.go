package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

var (
	// ErrEmptyResponse is returned when the API returns no choices.
	ErrEmptyResponse = openaiclient.ErrEmptyResponse
	// ErrMissingToken is returned when the API token is not provided.
	ErrMissingToken = errors.New("missing the OpenAI API key, set it in the OPENAI_API_KEY environment variable")
)

// ChatMessage is a message of the chat completions request.
type ChatMessage = openai.ChatCompletionMessageParamUnion

// LLM is the chat completions adapter.
type LLM struct {
	client *openaiclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	_, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client: c,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	if o.client.Model == "" {
		return openaiclient.DefaultChatModel
	}
	return o.client.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	if o.client.Provider == ProviderPerplexity {
		return llms.ProviderPerplexity
	}
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{}, options...)

	chatMsgs, err := ToChatMessages(opts.SystemPrompt, messages)
	if err != nil {
		return nil, err
	}

	req := &openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(opts.Model),
		Messages: chatMsgs,
	}
	if opts.Temperature > 0 {
		req.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		req.TopP = openai.Float(opts.TopP)
	}
	if opts.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if len(opts.StopWords) > 0 {
		req.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}
	if len(opts.Metadata) > 0 {
		req.Metadata = make(shared.Metadata, len(opts.Metadata))
		for k, v := range opts.Metadata {
			req.Metadata[k] = fmt.Sprint(v)
		}
	}
	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert llms tool to openai tool")
		}
		req.Tools = append(req.Tools, t)
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, err
	}

	c := result.Choices[0]
	msg := llms.Message{Role: llms.RoleAI}
	if text := c.Message.Content; text != "" {
		msg.Parts = append(msg.Parts, llms.TextPart(text))
	}
	for _, tc := range c.Message.ToolCalls {
		if tc.Type != "" && tc.Type != toolTypeFunction {
			return nil, errors.Errorf("tool call %s: unsupported type %q", tc.ID, tc.Type)
		}
		input, err := llmutils.ParseToolInput(tc.Function.Arguments)
		if err != nil {
			return nil, errors.WithMessagef(err, "tool call %s (%s)", tc.ID, tc.Function.Name)
		}
		msg.Parts = append(msg.Parts, llms.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	return &llms.ContentResponse{
		Message:    msg,
		StopReason: string(c.FinishReason),
		Usage: llms.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
			TotalTokens:  result.Usage.TotalTokens,
		},
	}, nil
}

const toolTypeFunction = "function"

// ToChatMessages converts the conversation to the chat completions format.
// Tool results are sent as separate tool messages, ahead of any text
// of the same user turn.
func ToChatMessages(systemPrompt string, messages []llms.Message) ([]ChatMessage, error) {
	chatMsgs := make([]ChatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		chatMsgs = append(chatMsgs, openai.SystemMessage(systemPrompt))
	}

	for i, mc := range messages {
		var text []string
		var toolCalls []openai.ChatCompletionMessageToolCallUnionParam
		var toolMsgs []ChatMessage

		for _, part := range mc.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				text = append(text, p.Text)
			case llms.ToolCall:
				if mc.Role != llms.RoleAI {
					return nil, errors.Errorf("message %d: tool call in %s message", i, mc.Role)
				}
				args, err := json.Marshal(p.Input)
				if err != nil {
					return nil, errors.Wrapf(err, "message %d: failed to marshal tool input", i)
				}
				if p.Input == nil {
					args = []byte("{}")
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: p.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      p.Name,
							Arguments: string(args),
						},
					},
				})
			case llms.ToolCallResponse:
				if mc.Role != llms.RoleHuman {
					return nil, errors.Errorf("message %d: tool response in %s message", i, mc.Role)
				}
				toolMsgs = append(toolMsgs, openai.ToolMessage(p.Content, p.ToolCallID))
			default:
				return nil, errors.Errorf("message %d: unsupported content part: %T", i, part)
			}
		}

		switch mc.Role {
		case llms.RoleAI:
			assistant := &openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if len(text) > 0 {
				assistant.Content.OfString = openai.String(strings.Join(text, "\n"))
			}
			chatMsgs = append(chatMsgs, ChatMessage{OfAssistant: assistant})
		case llms.RoleHuman:
			chatMsgs = append(chatMsgs, toolMsgs...)
			if len(text) > 0 {
				chatMsgs = append(chatMsgs, openai.UserMessage(strings.Join(text, "\n")))
			}
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "message %d: %q", i, mc.Role)
		}
	}
	return chatMsgs, nil
}

// toolFromTool converts an llms.Tool to a function tool.
func toolFromTool(t llms.Tool) (openai.ChatCompletionToolUnionParam, error) {
	if t.Type != toolTypeFunction || t.Function == nil {
		return openai.ChatCompletionToolUnionParam{}, errors.Errorf("tool type %v not supported", t.Type)
	}
	def := shared.FunctionDefinitionParam{
		Name: t.Function.Name,
	}
	if t.Function.Description != "" {
		def.Description = openai.String(t.Function.Description)
	}
	if t.Function.Parameters != nil {
		js, err := json.Marshal(t.Function.Parameters)
		if err != nil {
			return openai.ChatCompletionToolUnionParam{}, errors.Wrap(err, "marshal parameters")
		}
		var params shared.FunctionParameters
		if err := json.Unmarshal(js, &params); err != nil {
			return openai.ChatCompletionToolUnionParam{}, errors.Wrap(err, "unmarshal parameters")
		}
		def.Parameters = params
	}
	return openai.ChatCompletionFunctionTool(def), nil
}
