package store

import (
	"context"
	"sort"
	"sync"

	"github.com/effective-security/toolloop/chatmodel"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/xlog"
)

type memoryChat struct {
	info     ChatInfo
	messages []llms.Message
}

type inMemory struct {
	mu          sync.RWMutex
	maxMessages int
	// tenant => chat => chat
	storage map[string]map[string]*memoryChat
}

// NewMemoryStore returns a store that keeps chats in process memory.
func NewMemoryStore() ChatStore {
	return &inMemory{
		maxMessages: DefaultMaxMessages,
		storage:     make(map[string]map[string]*memoryChat),
	}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "GetTenantAndChatID", "err", err.Error())
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	chat := m.storage[tenantID][chatID]
	if chat == nil {
		return nil
	}
	return llms.CloneMessages(chat.messages)
}

func (m *inMemory) Add(ctx context.Context, msgs ...llms.Message) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	chat := m.chat(tenantID, chatID)
	chat.messages = trimMessages(append(chat.messages, llms.CloneMessages(msgs)...), m.maxMessages)
	chat.info.UpdatedAt = TimeNowFn()
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage[tenantID], chatID)
	return nil
}

func (m *inMemory) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	chat := m.chat(tenantID, chatID)
	if title != "" {
		chat.info.Title = title
	}
	for k, v := range metadata {
		chat.info.Metadata[k] = v
	}
	chat.info.UpdatedAt = TimeNowFn()
	return nil
}

func (m *inMemory) ListChats(ctx context.Context) ([]string, error) {
	tenantID, _, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]string, 0, len(m.storage[tenantID]))
	for id := range m.storage[tenantID] {
		list = append(list, id)
	}
	sort.Strings(list)
	return list, nil
}

func (m *inMemory) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = chatID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	chat := m.chat(tenantID, id)
	info := chat.info
	info.Metadata = make(map[string]any, len(chat.info.Metadata))
	for k, v := range chat.info.Metadata {
		info.Metadata[k] = v
	}
	info.Messages = llms.CloneMessages(chat.messages)
	return &info, nil
}

func (m *inMemory) GetChatTitle(ctx context.Context, id string) (string, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = chatID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if chat := m.storage[tenantID][id]; chat != nil {
		return chat.info.Title, nil
	}
	return "", nil
}

// chat returns the chat, created on first use.
// The caller must hold the write lock.
func (m *inMemory) chat(tenantID, chatID string) *memoryChat {
	chats := m.storage[tenantID]
	if chats == nil {
		chats = make(map[string]*memoryChat)
		m.storage[tenantID] = chats
	}
	chat := chats[chatID]
	if chat == nil {
		now := TimeNowFn()
		chat = &memoryChat{
			info: ChatInfo{
				TenantID:  tenantID,
				ChatID:    chatID,
				Title:     defaultTitle,
				CreatedAt: now,
				UpdatedAt: now,
				Metadata:  make(map[string]any),
			},
		}
		chats[chatID] = chat
	}
	return chat
}
