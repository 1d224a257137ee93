package core

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"infra_crew/pkg"

	"github.com/rs/zerolog/log"
)

const defaultMaxSteps = 16

// DefaultGraphProcessor implements the GraphProcessor interface
type DefaultGraphProcessor struct {
	nodes    map[string]Node
	flow     GraphFlow
	maxSteps int
}

// NewGraphProcessor creates a new graph processor
func NewGraphProcessor(config Config) GraphProcessor {
	maxSteps := config.Graph.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &DefaultGraphProcessor{
		nodes:    make(map[string]Node),
		flow:     config.Graph.DefaultFlow,
		maxSteps: maxSteps,
	}
}

// Execute runs the graph flow with the given input
func (g *DefaultGraphProcessor) Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error) {
	startTime := time.Now()

	log.Debug().Str("session_id", input.SessionID).Msg("🚀 Starting graph execution")

	nodeInput := NodeInput{
		UserMessage: input.UserMessage,
		SessionID:   input.SessionID,
		Sly:         input.Sly,
		Metadata:    make(map[string]any),
	}
	if nodeInput.Sly == nil {
		nodeInput.Sly = pkg.SlyData{}
	}

	currentNode := g.flow.StartNode
	output := &ProcessorOutput{
		Metadata: make(map[string]any),
	}

	var executionPath []string

	for currentNode != "" && currentNode != Complete {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(executionPath) >= g.maxSteps {
			return nil, fmt.Errorf("graph exceeded %d steps at node %s", g.maxSteps, currentNode)
		}
		executionPath = append(executionPath, currentNode)

		node, exists := g.nodes[currentNode]
		if !exists {
			return nil, fmt.Errorf("node not found: %s", currentNode)
		}

		nodeOutput, err := node.Execute(ctx, nodeInput)
		if err != nil {
			log.Error().Err(err).Str("node", currentNode).Msg("❌ Error executing node")
			return nil, fmt.Errorf("error executing node %s: %w", currentNode, err)
		}

		// Node errors are recorded and the turn carries on
		if nodeOutput.Error != nil {
			log.Warn().Err(nodeOutput.Error).Str("node", currentNode).Msg("Node returned error")
			output.Metadata["errors"] = append(getStringSlice(output.Metadata, "errors"), nodeOutput.Error.Error())
		}

		g.processNodeOutput(currentNode, nodeOutput, output, &nodeInput)

		if nodeOutput.Complete {
			break
		}

		nextNode := nodeOutput.NextNode
		if nextNode == "" {
			nextNode = g.getNextNode(currentNode, nodeOutput)
		}
		currentNode = nextNode
	}

	processingTime := time.Since(startTime)
	output.ProcessingTime = processingTime.Milliseconds()
	output.Sly = nodeInput.Sly
	output.Metadata["execution_path"] = executionPath

	log.Debug().
		Str("session_id", input.SessionID).
		Strs("path", executionPath).
		Dur("elapsed", processingTime).
		Msg("🏁 Graph execution completed")

	return output, nil
}

// AddNode adds a node to the processor
func (g *DefaultGraphProcessor) AddNode(node Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	nodeName := node.GetName()
	if nodeName == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	g.nodes[nodeName] = node
	log.Debug().Str("node", nodeName).Str("type", string(node.GetType())).Msg("Added node")
	return nil
}

// GetNode retrieves a node by name
func (g *DefaultGraphProcessor) GetNode(name string) (Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node not found: %s", name)
	}
	return node, nil
}

// SetFlow sets the execution flow
func (g *DefaultGraphProcessor) SetFlow(flow GraphFlow) error {
	if flow.StartNode == "" {
		return fmt.Errorf("start node cannot be empty")
	}

	g.flow = flow
	return nil
}

// processNodeOutput merges node data into the turn output and the next node's input
func (g *DefaultGraphProcessor) processNodeOutput(nodeName string, nodeOutput NodeOutput, globalOutput *ProcessorOutput, nodeInput *NodeInput) {
	for key, value := range nodeOutput.Data {
		switch key {
		case "response":
			if s, ok := value.(string); ok {
				globalOutput.Response = s
			}
		case "intent":
			if s, ok := value.(string); ok {
				globalOutput.Intent = s
				nodeInput.Intent = s
			}
		case "session_updated":
			if updated, ok := value.(bool); ok {
				globalOutput.SessionUpdated = updated
			}
		case "conversation_context":
			if s, ok := value.(string); ok {
				nodeInput.ConversationContext = s
			}
		case "history":
			if h, ok := value.([]pkg.ConversationMessage); ok {
				nodeInput.History = h
			}
		case "tool_calls":
			if calls, ok := value.([]pkg.ToolCall); ok {
				nodeInput.ToolCalls = calls
			}
		case "tool_results":
			if results, ok := value.([]pkg.ToolResult); ok {
				nodeInput.ToolResults = results
				globalOutput.ToolResults = results
				globalOutput.ToolsExecuted = make([]string, 0, len(results))
				for _, r := range results {
					globalOutput.ToolsExecuted = append(globalOutput.ToolsExecuted, r.Name)
				}
			}
		case "sly_data":
			if sly, ok := value.(pkg.SlyData); ok {
				for k, v := range sly {
					nodeInput.Sly[k] = v
				}
			}
		default:
			globalOutput.Metadata[fmt.Sprintf("%s_%s", nodeName, key)] = value
			nodeInput.Metadata[key] = value
		}
	}
}

// getNextNode determines the next node based on flow edges and conditions
func (g *DefaultGraphProcessor) getNextNode(currentNode string, nodeOutput NodeOutput) string {
	edges, exists := g.flow.Edges[currentNode]
	if !exists || len(edges) == 0 {
		return Complete
	}

	for _, edge := range sortEdgesByPriority(edges) {
		if evaluateCondition(edge.Condition, nodeOutput) {
			return edge.To
		}
	}

	return Complete
}

// sortEdgesByPriority sorts edges by priority (lower number = higher priority)
func sortEdgesByPriority(edges []GraphEdge) []GraphEdge {
	sorted := make([]GraphEdge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// evaluateCondition reports whether every condition key equals the node's data
func evaluateCondition(condition map[string]any, nodeOutput NodeOutput) bool {
	for key, expectedValue := range condition {
		actualValue, exists := nodeOutput.Data[key]
		if !exists || !reflect.DeepEqual(actualValue, expectedValue) {
			return false
		}
	}
	return true
}

func getStringSlice(metadata map[string]any, key string) []string {
	if value, exists := metadata[key]; exists {
		if slice, ok := value.([]string); ok {
			return slice
		}
	}
	return []string{}
}
