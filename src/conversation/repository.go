package conversation

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

type ConversationHistory struct {
	Messages []*schema.Message `json:"messages"`
}

// Repository stores chat history per session
type Repository interface {
	Load(ctx context.Context, sessionID string) (*ConversationHistory, error)
	Save(ctx context.Context, sessionID string, history *ConversationHistory) error
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error
	GetContextForModel(ctx context.Context, sessionID string, strategy ContextStrategy) (string, error)
	Clear(ctx context.Context, sessionID string) error
}

// MemoryRepository keeps history in process when no Redis is configured
type MemoryRepository struct {
	mu      sync.RWMutex
	history map[string][]*schema.Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{history: make(map[string][]*schema.Message)}
}

func (m *MemoryRepository) Load(_ context.Context, sessionID string) (*ConversationHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := make([]*schema.Message, len(m.history[sessionID]))
	copy(msgs, m.history[sessionID])
	return &ConversationHistory{Messages: msgs}, nil
}

func (m *MemoryRepository) Save(_ context.Context, sessionID string, history *ConversationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if history == nil {
		delete(m.history, sessionID)
		return nil
	}
	msgs := make([]*schema.Message, len(history.Messages))
	copy(msgs, history.Messages)
	m.history[sessionID] = msgs
	return nil
}

func (m *MemoryRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[sessionID] = append(m.history[sessionID], message)
	return nil
}

func (m *MemoryRepository) GetContextForModel(ctx context.Context, sessionID string, strategy ContextStrategy) (string, error) {
	history, err := m.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return strategy.BuildContext(history.Messages), nil
}

func (m *MemoryRepository) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.history, sessionID)
	return nil
}
