package core

import (
	"context"

	"infra_crew/pkg"
)

// Node represents a single processing unit in the assistant turn graph
type Node interface {
	Execute(ctx context.Context, input NodeInput) (NodeOutput, error)
	GetName() string
	GetType() NodeType
}

// NodeType defines the different types of nodes in the graph
type NodeType string

const (
	NodeTypeRouting  NodeType = "routing"
	NodeTypeIntent   NodeType = "intent"
	NodeTypeTools    NodeType = "tools"
	NodeTypeResponse NodeType = "response"
)

// Complete is the sentinel node name that ends a turn
const Complete = "complete"

// NodeInput contains the input data for a node
type NodeInput struct {
	UserMessage         string                    `json:"user_message"`
	SessionID           string                    `json:"session_id"`
	Sly                 pkg.SlyData               `json:"sly_data"`
	ConversationContext string                    `json:"conversation_context"`
	History             []pkg.ConversationMessage `json:"history"`
	Intent              string                    `json:"intent,omitempty"`
	ToolCalls           []pkg.ToolCall            `json:"tool_calls,omitempty"`
	ToolResults         []pkg.ToolResult          `json:"tool_results,omitempty"`
	Metadata            map[string]any            `json:"metadata"`
}

// NodeOutput contains the output data from a node
type NodeOutput struct {
	Data     map[string]any `json:"data"`
	NextNode string         `json:"next_node,omitempty"`
	Error    error          `json:"error,omitempty"`
	Complete bool           `json:"complete"`
}

// GraphProcessor orchestrates the execution of nodes in a graph flow
type GraphProcessor interface {
	Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error)
	AddNode(node Node) error
	GetNode(name string) (Node, error)
	SetFlow(flow GraphFlow) error
}

// ProcessorInput is the main input for the graph processor
type ProcessorInput struct {
	UserMessage string      `json:"user_message"`
	SessionID   string      `json:"session_id"`
	Sly         pkg.SlyData `json:"sly_data"`
}

// ProcessorOutput is the main output from the graph processor
type ProcessorOutput struct {
	Response       string           `json:"response"`
	Intent         string           `json:"intent,omitempty"`
	SessionUpdated bool             `json:"session_updated"`
	ToolsExecuted  []string         `json:"tools_executed,omitempty"`
	ToolResults    []pkg.ToolResult `json:"tool_results,omitempty"`
	Sly            pkg.SlyData      `json:"sly_data"`
	ProcessingTime int64            `json:"processing_time_ms"`
	Metadata       map[string]any   `json:"metadata"`
}

// GraphFlow defines the execution flow between nodes
type GraphFlow struct {
	StartNode string                 `json:"start_node" yaml:"start_node"`
	Edges     map[string][]GraphEdge `json:"edges" yaml:"edges"` // node_name -> possible next nodes
}

// GraphEdge represents a connection between two nodes with conditions
type GraphEdge struct {
	To        string         `json:"to" yaml:"to"`
	Condition map[string]any `json:"condition,omitempty" yaml:"condition,omitempty"`
	Priority  int            `json:"priority" yaml:"priority"`
}

// Config holds all configuration for the graph processor
type Config struct {
	Conversation ConversationConfig `json:"conversation"`
	Graph        GraphConfig        `json:"graph"`
}

// ConversationConfig sizes the history window each node sees
type ConversationConfig struct {
	IntentTurns   int `json:"intent_turns"`
	ResponseTurns int `json:"response_turns"`
}

// GraphConfig holds graph flow configuration
type GraphConfig struct {
	DefaultFlow GraphFlow `json:"default_flow"`
	MaxSteps    int       `json:"max_steps"`
}
