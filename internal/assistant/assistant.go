package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"

	"infra_crew/internal/config"
	"infra_crew/internal/core"
	"infra_crew/internal/nodes"
	"infra_crew/internal/tools"
	"infra_crew/pkg"
	"infra_crew/src/conversation"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
)

var ErrEmptyMessage = errors.New("message is empty")

// Assistant answers chat turns by running the routing, intent, tools and
// response graph. Per-session sly data survives between turns.
type Assistant struct {
	processor core.GraphProcessor
	history   *conversation.Service

	mu       sync.Mutex
	sessions map[string]pkg.SlyData
}

// New wires the turn graph. chat may be nil for the deterministic path.
func New(ctx context.Context, cfg core.Config, history *conversation.Service, registry *tools.Registry, chat model.BaseChatModel) (*Assistant, error) {
	if history == nil {
		history = conversation.NewService(nil)
	}
	if cfg.Graph.DefaultFlow.StartNode == "" {
		cfg.Graph.DefaultFlow = config.DefaultFlow()
	}

	intent, err := nodes.NewIntentNode(ctx, chat, cfg.Conversation.IntentTurns)
	if err != nil {
		return nil, err
	}
	response, err := nodes.NewResponseNode(ctx, history, chat)
	if err != nil {
		return nil, err
	}

	processor := core.NewGraphProcessor(cfg)
	for _, n := range []core.Node{
		nodes.NewRoutingNode(history, cfg),
		intent,
		nodes.NewToolsNode(registry),
		response,
	} {
		if err := processor.AddNode(n); err != nil {
			return nil, err
		}
	}

	return &Assistant{
		processor: processor,
		history:   history,
		sessions:  make(map[string]pkg.SlyData),
	}, nil
}

// Chat runs one turn and returns the reply with its gui and say blocks
func (a *Assistant) Chat(ctx context.Context, sessionID, text string) (string, error) {
	out, err := a.Turn(ctx, sessionID, text)
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

// Turn is Chat with the full processor output
func (a *Assistant) Turn(ctx context.Context, sessionID, text string) (*core.ProcessorOutput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = pkg.DefaultSessionID
	}

	out, err := a.processor.Execute(ctx, core.ProcessorInput{
		UserMessage: text,
		SessionID:   sessionID,
		Sly:         a.slyFor(sessionID),
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.sessions[sessionID] = out.Sly
	a.mu.Unlock()

	log.Info().
		Str("session_id", sessionID).
		Str("intent", out.Intent).
		Strs("tools", out.ToolsExecuted).
		Int64("ms", out.ProcessingTime).
		Msg("💬 Turn completed")
	return out, nil
}

// SetSessionData seeds sly data for a session, e.g. the project it works on
func (a *Assistant) SetSessionData(sessionID string, sly pkg.SlyData) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.sessions[sessionID]
	if current == nil {
		current = pkg.SlyData{"session_id": sessionID}
	}
	for k, v := range sly {
		current[k] = v
	}
	a.sessions[sessionID] = current
}

// Reset forgets the session's history and sly data
func (a *Assistant) Reset(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()
	return a.history.Reset(ctx, sessionID)
}

// History returns the stored turns for a session
func (a *Assistant) History(ctx context.Context, sessionID string) ([]pkg.ConversationMessage, error) {
	h, err := a.history.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]pkg.ConversationMessage, 0, len(h.Messages))
	for _, m := range h.Messages {
		out = append(out, pkg.ConversationMessage{Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}

// slyFor returns a copy so concurrent turns never share a map
func (a *Assistant) slyFor(sessionID string) pkg.SlyData {
	a.mu.Lock()
	defer a.mu.Unlock()

	sly := pkg.SlyData{"session_id": sessionID}
	for k, v := range a.sessions[sessionID] {
		sly[k] = v
	}
	return sly
}
