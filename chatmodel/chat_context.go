// Package chatmodel carries the chat scope of a run in context.Context:
// the tenant, the chat and the run identifiers.
package chatmodel

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/google/uuid"
)

// ErrInvalidChatContext is returned when the context has no chat context.
var ErrInvalidChatContext = errors.New("invalid chat context")

// ChatContext is the context for the chat agent,
// It contains the tenant ID, chat ID and run ID
type ChatContext interface {
	GetTenantID() string
	GetChatID() string
	SetChatID(chatID string)
	// RunID is unique per chat context instance
	RunID() string
	// AppData returns immutable app data
	AppData() any
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	lock     sync.RWMutex
	tenantID string
	chatID   string
	runID    string
	metadata sync.Map
	appData  any
}

func (c *chatContext) GetTenantID() string {
	return c.tenantID
}

func (c *chatContext) GetChatID() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.chatID
}

func (c *chatContext) SetChatID(chatID string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.chatID = chatID
}

func (c *chatContext) RunID() string {
	return c.runID
}

func (c *chatContext) AppData() any {
	return c.appData
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext returns a chat context,
// empty IDs are generated.
func NewChatContext(tenantID, chatID string, appData any) ChatContext {
	return &chatContext{
		tenantID: values.StringsCoalesce(tenantID, NewChatID()),
		chatID:   values.StringsCoalesce(chatID, NewChatID()),
		runID:    NewChatID(),
		appData:  appData,
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// NewFromContext returns a new background context with the ChatContext of ctx,
// to be used by work that outlives the request.
func NewFromContext(ctx context.Context) context.Context {
	if c := GetChatContext(ctx); c != nil {
		return WithChatContext(context.Background(), c)
	}
	return context.Background()
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetChatID(ctx context.Context) string {
	if v := GetChatContext(ctx); v != nil {
		return v.GetChatID()
	}
	return ""
}

// SetChatID sets the chat ID of the ChatContext in ctx.
func SetChatID(ctx context.Context, chatID string) (context.Context, error) {
	c := GetChatContext(ctx)
	if c == nil {
		return ctx, errors.WithStack(ErrInvalidChatContext)
	}
	c.SetChatID(chatID)
	return ctx, nil
}

// GetTenantAndChatID returns the tenant and chat IDs from the context.
func GetTenantAndChatID(ctx context.Context) (tenantID string, chatID string, err error) {
	c := GetChatContext(ctx)
	if c == nil {
		return "", "", errors.WithStack(ErrInvalidChatContext)
	}
	tenantID, chatID = c.GetTenantID(), c.GetChatID()
	if tenantID == "" || chatID == "" {
		return "", "", errors.WithMessage(ErrInvalidChatContext, "missing tenant or chat ID")
	}
	return tenantID, chatID, nil
}

// NewChatID generates a new random ID.
func NewChatID() string {
	return uuid.NewString()
}
