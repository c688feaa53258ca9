package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Part types used in the JSON representation of a message.
const (
	PartTypeText         = "text"
	PartTypeToolCall     = "tool_call"
	PartTypeToolResponse = "tool_response"
)

// ContentPartJSON represents the JSON structure for content parts
type ContentPartJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *ToolCall         `json:"tool_call,omitempty"`
	ToolResponse *ToolCallResponse `json:"tool_response,omitempty"`
}

// MessageJSON represents the JSON structure for Message
type MessageJSON struct {
	Role  Role              `json:"role"`
	Parts []ContentPartJSON `json:"parts"`
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	js := MessageJSON{
		Role:  m.Role,
		Parts: make([]ContentPartJSON, 0, len(m.Parts)),
	}
	for _, part := range m.Parts {
		switch p := part.(type) {
		case TextContent:
			js.Parts = append(js.Parts, ContentPartJSON{Type: PartTypeText, Text: p.Text})
		case ToolCall:
			js.Parts = append(js.Parts, ContentPartJSON{Type: PartTypeToolCall, ToolCall: &p})
		case ToolCallResponse:
			js.Parts = append(js.Parts, ContentPartJSON{Type: PartTypeToolResponse, ToolResponse: &p})
		default:
			return nil, errors.Errorf("unsupported content part: %T", part)
		}
	}
	return json.Marshal(js)
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var js MessageJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}

	switch js.Role {
	case RoleHuman, RoleAI:
	default:
		return errors.WithMessagef(ErrUnexpectedRole, "%q", js.Role)
	}

	m.Role = js.Role
	m.Parts = make([]ContentPart, 0, len(js.Parts))
	for i, p := range js.Parts {
		switch p.Type {
		case PartTypeText:
			m.Parts = append(m.Parts, TextContent{Text: p.Text})
		case PartTypeToolCall:
			if p.ToolCall == nil {
				return errors.Errorf("part %d: missing tool_call", i)
			}
			m.Parts = append(m.Parts, *p.ToolCall)
		case PartTypeToolResponse:
			if p.ToolResponse == nil {
				return errors.Errorf("part %d: missing tool_response", i)
			}
			m.Parts = append(m.Parts, *p.ToolResponse)
		default:
			return errors.Errorf("part %d: unsupported type %q", i, p.Type)
		}
	}
	return nil
}
