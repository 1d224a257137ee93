package conversation

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

type Service struct {
	repo Repository
}

// NewService uses an in-memory repository when repo is nil
func NewService(repo Repository) *Service {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Service{repo: repo}
}

// ProcessMessage records the user turn and returns the context the models see
func (s *Service) ProcessMessage(ctx context.Context, sessionID, query string, strategy ContextStrategy) (string, error) {
	if err := s.repo.AddMessage(ctx, sessionID, schema.UserMessage(query)); err != nil {
		return "", err
	}

	conversationContext, err := s.repo.GetContextForModel(ctx, sessionID, strategy)
	if err != nil {
		return "", err
	}

	var fullContext strings.Builder
	fullContext.WriteString(conversationContext)
	fullContext.WriteString("\n<current_message_to_analyze>\n")
	fullContext.WriteString("UserMessage(" + query + ")\n")
	fullContext.WriteString("</current_message_to_analyze>")

	return fullContext.String(), nil
}

// SaveResponse saves the assistant's response to conversation history
func (s *Service) SaveResponse(ctx context.Context, sessionID, response string) error {
	return s.repo.AddMessage(ctx, sessionID, schema.AssistantMessage(response, nil))
}

// GetHistory returns the full conversation history
func (s *Service) GetHistory(ctx context.Context, sessionID string) (*ConversationHistory, error) {
	return s.repo.Load(ctx, sessionID)
}

func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.repo.Clear(ctx, sessionID)
}
