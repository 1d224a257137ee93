package nodes

import (
	"context"

	"infra_crew/internal/core"
	"infra_crew/pkg"
	"infra_crew/src/conversation"

	"github.com/rs/zerolog/log"
)

// RoutingNode records the user turn and loads the session history
type RoutingNode struct {
	history  *conversation.Service
	strategy conversation.ContextStrategy
}

// NewRoutingNode creates a new routing node
func NewRoutingNode(history *conversation.Service, config core.Config) *RoutingNode {
	return &RoutingNode{
		history:  history,
		strategy: conversation.NewResponseContextStrategy(config.Conversation.ResponseTurns),
	}
}

func (r *RoutingNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	contextText, err := r.history.ProcessMessage(ctx, input.SessionID, input.UserMessage, r.strategy)
	if err != nil {
		// history is best effort; the turn still gets answered
		log.Warn().Err(err).Str("session_id", input.SessionID).Msg("Failed to record user message")
		return core.NodeOutput{
			Data:  map[string]any{"session_updated": false},
			Error: err,
		}, nil
	}

	stored, err := r.history.GetHistory(ctx, input.SessionID)
	if err != nil {
		return core.NodeOutput{Data: map[string]any{"conversation_context": contextText}, Error: err}, nil
	}

	messages := make([]pkg.ConversationMessage, 0, len(stored.Messages))
	for _, m := range stored.Messages {
		messages = append(messages, pkg.ConversationMessage{Role: string(m.Role), Content: m.Content})
	}

	log.Debug().Str("session_id", input.SessionID).Int("messages", len(messages)).Msg("🔀 Routing completed")

	return core.NodeOutput{
		Data: map[string]any{
			"conversation_context": contextText,
			"history":              messages,
			"session_updated":      true,
		},
	}, nil
}

func (r *RoutingNode) GetName() string {
	return "routing"
}

func (r *RoutingNode) GetType() core.NodeType {
	return core.NodeTypeRouting
}
