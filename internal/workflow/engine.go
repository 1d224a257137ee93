// Package workflow wraps AAOSA delegation into stored sessions and renders
// the markdown reports the boss agent hands back to the user.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"infra_crew/internal/aaosa"
	"infra_crew/internal/storage"

	"github.com/rs/zerolog/log"
)

const (
	ModeMultiAgent  = "multi_agent_aaosa"
	ModeSingleAgent = "single_agent_fallback"
	ModeError       = "error"

	AzureLandingZone    = "azure_landing_zone"
	SoftwareDevelopment = "software_development"
)

// Result is the outcome of one Execute call
type Result struct {
	Success           bool                  `json:"success"`
	SessionID         string                `json:"session_id"`
	WorkflowType      string                `json:"workflow_type"`
	Otrace            []string              `json:"otrace,omitempty"`
	DelegationResults []aaosa.Response      `json:"delegation_results,omitempty"`
	Mode              string                `json:"mode"`
	TotalDelegations  int                   `json:"total_delegations,omitempty"`
	Message           string                `json:"message,omitempty"`
	Error             string                `json:"error,omitempty"`
	Workflow          *aaosa.WorkflowResult `json:"workflow_result,omitempty"`
}

// SessionStatus is the stored view of a finished workflow
type SessionStatus struct {
	SessionID    string    `json:"session_id"`
	WorkflowType string    `json:"workflow_type"`
	Timestamp    time.Time `json:"timestamp"`
	Mode         string    `json:"mode"`
	Otrace       []string  `json:"otrace"`
	Status       string    `json:"status"`
}

// SessionSummary is one row of List
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	WorkflowType string    `json:"workflow_type"`
	Timestamp    time.Time `json:"timestamp"`
	Mode         string    `json:"mode"`
	AgentsCount  int       `json:"agents_count"`
}

// Engine runs workflows. Without a delegation engine it runs in single-agent mode.
type Engine struct {
	delegation *aaosa.Engine
	store      storage.SessionStore
	now        func() time.Time
}

// NewEngine builds an engine. A nil store keeps sessions in memory.
func NewEngine(delegation *aaosa.Engine, store storage.SessionStore) *Engine {
	if store == nil {
		store = storage.NewMemorySessionStore()
	}
	return &Engine{delegation: delegation, store: store, now: time.Now}
}

// AAOSAEnabled reports whether workflows are delegated
func (e *Engine) AAOSAEnabled() bool {
	return e.delegation != nil
}

// NewSessionID returns workflow_YYYYMMDD_HHMMSS
func (e *Engine) NewSessionID() string {
	return "workflow_" + e.now().Format("20060102_150405")
}

// Execute runs workflowType for userInput and stores the session. The
// returned Result is always non-nil; on failure it carries Mode "error".
func (e *Engine) Execute(ctx context.Context, workflowType, userInput, sessionID string) (*Result, error) {
	if sessionID == "" {
		sessionID = e.NewSessionID()
	}
	logger := log.With().Str("session_id", sessionID).Str("workflow_type", workflowType).Logger()
	logger.Info().Msg("Starting workflow")

	if e.delegation == nil {
		logger.Warn().Msg("Executing in single-agent mode")
		otrace := []string{aaosa.Boss}
		session := &storage.WorkflowSession{
			SessionID:    sessionID,
			WorkflowType: workflowType,
			UserInput:    userInput,
			Timestamp:    e.now(),
			Mode:         ModeSingleAgent,
			Otrace:       otrace,
		}
		if err := e.store.Save(ctx, session); err != nil {
			return failed(sessionID, workflowType, err), err
		}
		return &Result{
			Success:      true,
			SessionID:    sessionID,
			WorkflowType: workflowType,
			Otrace:       otrace,
			Mode:         ModeSingleAgent,
			Message:      "Executed in single-agent mode - AAOSA delegation not available",
		}, nil
	}

	run, err := e.delegation.ExecuteWorkflow(ctx, workflowType, userInput, sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("Workflow failed")
		return failed(sessionID, workflowType, err), err
	}

	session := &storage.WorkflowSession{
		SessionID:        sessionID,
		WorkflowType:     workflowType,
		UserInput:        userInput,
		Timestamp:        e.now(),
		Mode:             ModeMultiAgent,
		Otrace:           run.Otrace,
		TotalDelegations: len(run.DelegationTrace),
	}
	if err := e.store.Save(ctx, session); err != nil {
		logger.Error().Err(err).Msg("Failed to store workflow session")
		return failed(sessionID, workflowType, err), err
	}

	logger.Info().Int("agents", len(run.Otrace)).Msg("Workflow completed")
	return &Result{
		Success:           true,
		SessionID:         sessionID,
		WorkflowType:      workflowType,
		Otrace:            run.Otrace,
		DelegationResults: run.DelegationResults,
		Mode:              ModeMultiAgent,
		TotalDelegations:  len(run.DelegationTrace),
		Message:           run.Message,
		Workflow:          run,
	}, nil
}

func failed(sessionID, workflowType string, err error) *Result {
	return &Result{
		SessionID:    sessionID,
		WorkflowType: workflowType,
		Mode:         ModeError,
		Error:        err.Error(),
	}
}

// HandleAzureLandingZone runs the azure_landing_zone workflow
func (e *Engine) HandleAzureLandingZone(ctx context.Context, requirements, sessionID string) (*Result, error) {
	return e.Execute(ctx, AzureLandingZone, requirements, sessionID)
}

// HandleSoftwareDevelopment runs the software_development workflow
func (e *Engine) HandleSoftwareDevelopment(ctx context.Context, description, sessionID string) (*Result, error) {
	return e.Execute(ctx, SoftwareDevelopment, description, sessionID)
}

// SessionNotFoundError names the missing session
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("No session found with ID: %s", e.SessionID)
}

func (e *SessionNotFoundError) Unwrap() error {
	return storage.ErrSessionNotFound
}

type ttlExtender interface {
	ExtendTTL(ctx context.Context, sessionID string) error
}

// Status returns a stored session. Missing sessions yield a *SessionNotFoundError.
func (e *Engine) Status(ctx context.Context, sessionID string) (*SessionStatus, error) {
	session, err := e.store.Get(ctx, sessionID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	// a looked-at session stays alive for another TTL
	if ext, ok := e.store.(ttlExtender); ok {
		if err := ext.ExtendTTL(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to extend session TTL")
		}
	}

	otrace := session.Otrace
	if len(otrace) == 0 {
		otrace = []string{"unknown"}
	}
	return &SessionStatus{
		SessionID:    session.SessionID,
		WorkflowType: session.WorkflowType,
		Timestamp:    session.Timestamp,
		Mode:         session.Mode,
		Otrace:       otrace,
		Status:       "completed",
	}, nil
}

// List summarises every stored session in store order
func (e *Engine) List(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		count := len(s.Otrace)
		if count == 0 {
			count = 1 // "unknown"
		}
		out = append(out, SessionSummary{
			SessionID:    s.SessionID,
			WorkflowType: s.WorkflowType,
			Timestamp:    s.Timestamp,
			Mode:         s.Mode,
			AgentsCount:  count,
		})
	}
	return out, nil
}
