package llms

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnexpectedRole is returned when a message role is of an unexpected type.
var ErrUnexpectedRole = errors.New("unexpected role")

// ErrToolResultMismatch is returned when tool results do not resolve
// the tool calls of the preceding assistant message.
var ErrToolResultMismatch = errors.New("tool results do not match tool calls")

// Role is the type of chat message.
type Role string

const (
	// RoleHuman is a message sent by the user, including tool results.
	RoleHuman Role = "human"
	// RoleAI is a message sent by the model.
	RoleAI Role = "ai"
)

// Message is one turn of the conversation: a role and an ordered,
// non-empty sequence of content parts.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// ContentPart is a content block of a message.
// The set of implementations is closed: TextContent, ToolCall and ToolCallResponse.
type ContentPart interface {
	isPart()
}

// TextContent is content with some text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string {
	return tc.Text
}

func (TextContent) isPart() {}

// ToolCall is a call to a tool, as requested by the model.
type ToolCall struct {
	// ID is the unique identifier of the tool call, assigned by the model.
	ID string `json:"id"`
	// Name is the name of the tool to call.
	Name string `json:"name"`
	// Input is the structured input of the tool.
	Input map[string]any `json:"input,omitempty"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), input: %d fields", tc.ID, tc.Name, len(tc.Input))
}

func (ToolCall) isPart() {}

// ToolCallResponse is the response returned by a tool call.
type ToolCallResponse struct {
	// ToolCallID is the ID of the tool call this response is for.
	ToolCallID string `json:"tool_call_id"`
	// Name is the name of the tool that was called.
	Name string `json:"name"`
	// Content is the textual content of the response.
	Content string `json:"content"`
	// IsError is true if the tool was not found or failed.
	IsError bool `json:"is_error,omitempty"`
}

func (tc ToolCallResponse) String() string {
	return fmt.Sprintf("ToolCallResponse: %s (%s), error: %t, response size: %d", tc.ToolCallID, tc.Name, tc.IsError, len(tc.Content))
}

func (ToolCallResponse) isPart() {}

// TextPart creates TextContent from a given string.
func TextPart(s string) TextContent {
	return TextContent{Text: s}
}

// MessageFromParts is a helper function to create a Message with a role and a
// list of parts.
func MessageFromParts(role Role, parts ...ContentPart) Message {
	return Message{
		Role:  role,
		Parts: parts,
	}
}

// MessageFromTextParts is a helper function to create a Message with a role and a
// list of text parts.
func MessageFromTextParts(role Role, parts ...string) Message {
	result := Message{
		Role:  role,
		Parts: make([]ContentPart, 0, len(parts)),
	}
	for _, part := range parts {
		result.Parts = append(result.Parts, TextPart(part))
	}
	return result
}

// MessageFromToolResponses creates a user message carrying tool results.
func MessageFromToolResponses(responses ...ToolCallResponse) Message {
	result := Message{
		Role:  RoleHuman,
		Parts: make([]ContentPart, 0, len(responses)),
	}
	for _, r := range responses {
		result.Parts = append(result.Parts, r)
	}
	return result
}

// ToolCalls returns the tool calls of the message, in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolCallResponses returns the tool results of the message, in order.
func (m Message) ToolCallResponses() []ToolCallResponse {
	var list []ToolCallResponse
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallResponse); ok {
			list = append(list, tc)
		}
	}
	return list
}

// HasToolCalls returns true if the message requests at least one tool.
func (m Message) HasToolCalls() bool {
	for _, p := range m.Parts {
		if _, ok := p.(ToolCall); ok {
			return true
		}
	}
	return false
}

// GetContent returns the text parts of the message joined by new lines.
func (m Message) GetContent() string {
	var buf strings.Builder
	for _, p := range m.Parts {
		if typ, ok := p.(TextContent); ok {
			if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
				buf.WriteString("\n")
			}
			buf.WriteString(typ.Text)
		}
	}
	return buf.String()
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := Message{
		Role:  m.Role,
		Parts: make([]ContentPart, len(m.Parts)),
	}
	for i, p := range m.Parts {
		if tc, ok := p.(ToolCall); ok {
			tc.Input = cloneMap(tc.Input)
			p = tc
		}
		c.Parts[i] = p
	}
	return c
}

// CloneMessages returns a deep copy of the messages.
func CloneMessages(list []Message) []Message {
	if list == nil {
		return nil
	}
	res := make([]Message, len(list))
	for i, m := range list {
		res[i] = m.Clone()
	}
	return res
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = cloneValue(v)
	}
	return res
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		res := make([]any, len(t))
		for i, item := range t {
			res[i] = cloneValue(item)
		}
		return res
	default:
		return v
	}
}

// ValidateToolResults checks that results resolves every tool call of the
// assistant message exactly once, and references no other IDs.
func ValidateToolResults(assistant, results Message) error {
	if assistant.Role != RoleAI {
		return errors.WithMessagef(ErrUnexpectedRole, "expected %s, got %s", RoleAI, assistant.Role)
	}
	if results.Role != RoleHuman {
		return errors.WithMessagef(ErrUnexpectedRole, "expected %s, got %s", RoleHuman, results.Role)
	}

	pending := map[string]int{}
	for _, tc := range assistant.ToolCalls() {
		pending[tc.ID]++
	}
	for _, p := range results.Parts {
		r, ok := p.(ToolCallResponse)
		if !ok {
			return errors.WithMessagef(ErrToolResultMismatch, "unexpected part %T", p)
		}
		if pending[r.ToolCallID] == 0 {
			return errors.WithMessagef(ErrToolResultMismatch, "unknown or duplicate id %q", r.ToolCallID)
		}
		pending[r.ToolCallID]--
	}
	for id, n := range pending {
		if n > 0 {
			return errors.WithMessagef(ErrToolResultMismatch, "unresolved id %q", id)
		}
	}
	return nil
}
