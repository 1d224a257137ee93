package pkg

import (
	"strings"
	"time"
)

// Shared types passed between the assistant graph, coded tools and storage

// ConversationMessage represents a message in conversation history
type ConversationMessage struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// SlyData is the per-session side channel handed to every coded tool.
// Keys the tools understand are session_id, project_name and scenario.
type SlyData map[string]any

const (
	DefaultSessionID   = "default_session"
	DefaultProjectName = "default_project"
)

// String returns the value stored under key when it is a non-empty string
func (s SlyData) String(key string) string {
	if s == nil {
		return ""
	}
	if v, ok := s[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// SessionID returns the session the tool call belongs to
func (s SlyData) SessionID() string {
	if id := s.String("session_id"); id != "" {
		return id
	}
	return DefaultSessionID
}

// ProjectName returns the active project for the session
func (s SlyData) ProjectName() string {
	if name := s.String("project_name"); name != "" {
		return name
	}
	return DefaultProjectName
}

// ToolCall is a planned invocation of a coded tool
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the rendered outcome of a ToolCall
type ToolResult struct {
	Name   string `json:"name"`
	Output string `json:"output"`
	Failed bool   `json:"failed"`
}

// MemoryFact is a single remembered fact under a topic
type MemoryFact struct {
	Topic     string    `json:"topic"`
	Fact      string    `json:"fact"`
	Timestamp time.Time `json:"timestamp"`
}
