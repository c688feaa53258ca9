package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/chatmodel"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// Redis keys:
//
//	/<prefix>/chatstore/<tenantID>/messages/<chatID>  list of JSON messages
//	/<prefix>/chatstore/<tenantID>/info/<chatID>      JSON ChatInfo without messages
//	/<prefix>/chatstore/<tenantID>/chats              set of chat IDs
type redisStore struct {
	client      redis.UniversalClient
	prefix      string
	maxMessages int
}

// RedisOption configures the Redis store
type RedisOption func(*redisStore)

// WithMaxMessages sets the number of most recent messages kept per chat,
// zero or negative keeps all.
func WithMaxMessages(max int) RedisOption {
	return func(s *redisStore) {
		s.maxMessages = max
	}
}

// RedisStore is a ChatStore backed by Redis
type RedisStore interface {
	ChatStore
	// Cleanup deletes chats of the tenant not updated within olderThan,
	// and returns the number of deleted chats.
	Cleanup(ctx context.Context, tenantID string, olderThan time.Duration) (uint32, error)
}

// NewRedisStore returns a store with keys under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, opts ...RedisOption) RedisStore {
	s := &redisStore{
		client:      client,
		prefix:      prefix,
		maxMessages: DefaultMaxMessages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (m *redisStore) messagesKey(tenantID, chatID string) string {
	return path.Join(m.prefix, "chatstore", tenantID, "messages", chatID)
}

func (m *redisStore) infoKey(tenantID, chatID string) string {
	return path.Join(m.prefix, "chatstore", tenantID, "info", chatID)
}

func (m *redisStore) chatsKey(tenantID string) string {
	return path.Join(m.prefix, "chatstore", tenantID, "chats")
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "GetTenantAndChatID", "err", err.Error())
		return nil
	}
	return m.messages(ctx, tenantID, chatID)
}

func (m *redisStore) messages(ctx context.Context, tenantID, chatID string) []llms.Message {
	data, err := m.client.LRange(ctx, m.messagesKey(tenantID, chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "LRange", "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msgs ...llms.Message) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	items := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		items = append(items, data)
	}

	key := m.messagesKey(tenantID, chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, items...)
	if m.maxMessages > 0 {
		pipe.LTrim(ctx, key, int64(-m.maxMessages), -1)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}

	return m.UpdateChat(ctx, "", nil)
}

func (m *redisStore) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}
	return m.deleteChat(ctx, tenantID, chatID)
}

func (m *redisStore) deleteChat(ctx context.Context, tenantID, chatID string) error {
	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.messagesKey(tenantID, chatID))
	pipe.Del(ctx, m.infoKey(tenantID, chatID))
	pipe.SRem(ctx, m.chatsKey(tenantID), chatID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to delete chat %s in Redis", chatID)
	}
	return nil
}

func (m *redisStore) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	chat, err := m.getOrCreateInfo(ctx, tenantID, chatID)
	if err != nil {
		return err
	}
	if title != "" {
		chat.Title = title
	}
	if len(metadata) > 0 && chat.Metadata == nil {
		chat.Metadata = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		chat.Metadata[k] = v
	}
	chat.UpdatedAt = TimeNowFn()

	return m.saveInfo(ctx, chat, false)
}

func (m *redisStore) saveInfo(ctx context.Context, chat *ChatInfo, isNew bool) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.infoKey(chat.TenantID, chat.ChatID), data, 0)
	if isNew {
		pipe.SAdd(ctx, m.chatsKey(chat.TenantID), chat.ChatID)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store chat info in Redis")
	}
	return nil
}

func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	tenantID, _, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := m.client.SMembers(ctx, m.chatsKey(tenantID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	return ids, nil
}

func (m *redisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = chatID
	}

	info, err := m.getOrCreateInfo(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	info.Messages = m.messages(ctx, tenantID, id)
	return info, nil
}

func (m *redisStore) GetChatTitle(ctx context.Context, id string) (string, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = chatID
	}

	info, err := m.getInfo(ctx, tenantID, id)
	if err != nil || info == nil {
		return "", err
	}
	return info.Title, nil
}

// getInfo returns nil if the chat does not exist
func (m *redisStore) getInfo(ctx context.Context, tenantID, chatID string) (*ChatInfo, error) {
	data, err := m.client.Get(ctx, m.infoKey(tenantID, chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get chat info from Redis")
	}

	chat := new(ChatInfo)
	if err = json.Unmarshal([]byte(data), chat); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return chat, nil
}

func (m *redisStore) getOrCreateInfo(ctx context.Context, tenantID, chatID string) (*ChatInfo, error) {
	chat, err := m.getInfo(ctx, tenantID, chatID)
	if err != nil || chat != nil {
		return chat, err
	}

	now := TimeNowFn()
	chat = &ChatInfo{
		TenantID:  tenantID,
		ChatID:    chatID,
		Title:     defaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]any),
	}
	if err = m.saveInfo(ctx, chat, true); err != nil {
		return nil, errors.WithMessage(err, "failed to initialize new chat info")
	}
	return chat, nil
}

func (m *redisStore) Cleanup(ctx context.Context, tenantID string, olderThan time.Duration) (uint32, error) {
	ids, err := m.client.SMembers(ctx, m.chatsKey(tenantID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, errors.Wrap(err, "failed to list chats from Redis")
	}

	deleted := uint32(0)
	cutoff := TimeNowFn().Add(-olderThan)
	for _, chatID := range ids {
		chat, err := m.getInfo(ctx, tenantID, chatID)
		if err != nil {
			return deleted, err
		}
		if chat != nil && !chat.UpdatedAt.Before(cutoff) {
			continue
		}
		if err = m.deleteChat(ctx, tenantID, chatID); err != nil {
			return deleted, err
		}
		deleted++
	}
	logger.ContextKV(ctx, xlog.DEBUG, "tenant", tenantID, "deleted", deleted)
	return deleted, nil
}
