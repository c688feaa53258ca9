// Package store persists the conversation of a chat across runs.
// The chat scope is taken from the chat context, see chatmodel.
package store

import (
	"context"
	"time"

	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop", "store")

// DefaultMaxMessages is the number of most recent messages kept per chat.
const DefaultMaxMessages = 50

// MessageStore is the history of the chat from the context.
type MessageStore interface {
	// Messages returns the stored messages in order,
	// or nil if the context has no chat.
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the chat.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset deletes the chat.
	Reset(ctx context.Context) error
}

// ChatStore is a MessageStore that also tracks chat metadata per tenant.
type ChatStore interface {
	MessageStore

	// UpdateChat creates or updates the chat from context with the title and metadata.
	UpdateChat(ctx context.Context, title string, metadata map[string]any) error
	// ListChats returns the IDs of the chats for the tenant from context.
	ListChats(ctx context.Context) ([]string, error)
	// GetChatInfo returns the chat info with messages,
	// empty id means the chat from context.
	GetChatInfo(ctx context.Context, id string) (*ChatInfo, error)
	// GetChatTitle returns the title of the chat,
	// or empty string if the chat does not exist.
	GetChatTitle(ctx context.Context, id string) (string, error)
}

// ChatInfo describes a chat.
type ChatInfo struct {
	TenantID  string         `json:"tenant_id"`
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Messages  []llms.Message `json:"messages,omitempty"`
}

const defaultTitle = "New Chat"

// TimeNowFn is used to stamp chat updates
var TimeNowFn = time.Now

func trimMessages(list []llms.Message, max int) []llms.Message {
	if max > 0 && len(list) > max {
		return list[len(list)-max:]
	}
	return list
}
