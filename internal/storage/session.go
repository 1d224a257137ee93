package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSessionNotFound is returned when a workflow session id is unknown or expired
var ErrSessionNotFound = errors.New("session not found")

// WorkflowSession is the persisted record of one workflow execution
type WorkflowSession struct {
	SessionID        string    `json:"session_id"`
	WorkflowType     string    `json:"workflow_type"`
	UserInput        string    `json:"user_input"`
	Timestamp        time.Time `json:"timestamp"`
	Mode             string    `json:"mode"`
	Otrace           []string  `json:"otrace"`
	TotalDelegations int       `json:"total_delegations"`
}

// SessionStore persists workflow sessions
type SessionStore interface {
	Save(ctx context.Context, session *WorkflowSession) error
	Get(ctx context.Context, sessionID string) (*WorkflowSession, error)
	// List returns sessions in the order they were first saved
	List(ctx context.Context) ([]*WorkflowSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessionStore is the in-process store used when Redis is not configured
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*WorkflowSession
	order    []string
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*WorkflowSession),
	}
}

// Save inserts or replaces a session, keeping its original position
func (m *MemorySessionStore) Save(ctx context.Context, session *WorkflowSession) error {
	if err := ValidateSession(session); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.SessionID]; !exists {
		m.order = append(m.order, session.SessionID)
	}
	copied := *session
	m.sessions[session.SessionID] = &copied
	return nil
}

// Get returns a copy of the stored session
func (m *MemorySessionStore) Get(ctx context.Context, sessionID string) (*WorkflowSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	copied := *session
	return &copied, nil
}

// List returns all sessions in insertion order
func (m *MemorySessionStore) List(ctx context.Context) ([]*WorkflowSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*WorkflowSession, 0, len(m.order))
	for _, id := range m.order {
		copied := *m.sessions[id]
		out = append(out, &copied)
	}
	return out, nil
}

// Delete removes a session
func (m *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return nil
	}
	delete(m.sessions, sessionID)
	for i, id := range m.order {
		if id == sessionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ValidateSession checks that a session can be stored
func ValidateSession(session *WorkflowSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.SessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if session.WorkflowType == "" {
		return fmt.Errorf("session %s has empty workflow type", session.SessionID)
	}
	return nil
}
