package core

import (
	"context"
	"errors"
	"testing"

	"infra_crew/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct {
	name string
	run  func(NodeInput) NodeOutput
}

func (s stubNode) Execute(_ context.Context, in NodeInput) (NodeOutput, error) {
	return s.run(in), nil
}
func (s stubNode) GetName() string   { return s.name }
func (s stubNode) GetType() NodeType { return NodeType(s.name) }

func flow() GraphFlow {
	return GraphFlow{
		StartNode: "intent",
		Edges: map[string][]GraphEdge{
			"intent": {
				{To: "response", Priority: 2},
				{To: "tools", Condition: map[string]any{"need_tools": true}, Priority: 1},
			},
			"tools":    {{To: "response", Priority: 1}},
			"response": {{To: Complete, Priority: 1}},
		},
	}
}

func newProcessor(t *testing.T, needTools bool) GraphProcessor {
	t.Helper()
	g := NewGraphProcessor(Config{Graph: GraphConfig{DefaultFlow: flow()}})
	require.NoError(t, g.AddNode(stubNode{name: "intent", run: func(NodeInput) NodeOutput {
		return NodeOutput{Data: map[string]any{
			"intent":     "terraform",
			"need_tools": needTools,
			"tool_calls": []pkg.ToolCall{{Name: "TerraformBuilder"}},
		}}
	}}))
	require.NoError(t, g.AddNode(stubNode{name: "tools", run: func(in NodeInput) NodeOutput {
		results := make([]pkg.ToolResult, 0, len(in.ToolCalls))
		for _, c := range in.ToolCalls {
			results = append(results, pkg.ToolResult{Name: c.Name, Output: "ok"})
		}
		return NodeOutput{Data: map[string]any{"tool_results": results}}
	}}))
	require.NoError(t, g.AddNode(stubNode{name: "response", run: func(in NodeInput) NodeOutput {
		return NodeOutput{Data: map[string]any{"response": in.Intent + ":" + in.Sly.ProjectName()}, Complete: true}
	}}))
	return g
}

func TestExecuteFollowsConditionalEdges(t *testing.T) {
	out, err := newProcessor(t, true).Execute(context.Background(), ProcessorInput{
		UserMessage: "build terraform",
		SessionID:   "s1",
		Sly:         pkg.SlyData{"project_name": "shop"},
	})
	require.NoError(t, err)
	assert.Equal(t, "terraform:shop", out.Response)
	assert.Equal(t, []string{"TerraformBuilder"}, out.ToolsExecuted)
	assert.Equal(t, []string{"intent", "tools", "response"}, out.Metadata["execution_path"])
	assert.Equal(t, true, out.Metadata["intent_need_tools"])
}

func TestExecuteSkipsToolsWhenConditionFails(t *testing.T) {
	out, err := newProcessor(t, false).Execute(context.Background(), ProcessorInput{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"intent", "response"}, out.Metadata["execution_path"])
	assert.Empty(t, out.ToolsExecuted)
	assert.Equal(t, "terraform:"+pkg.DefaultProjectName, out.Response)
}

func TestExecuteErrors(t *testing.T) {
	g := NewGraphProcessor(Config{Graph: GraphConfig{DefaultFlow: GraphFlow{StartNode: "missing"}}})
	_, err := g.Execute(context.Background(), ProcessorInput{})
	assert.EqualError(t, err, "node not found: missing")

	assert.Error(t, g.SetFlow(GraphFlow{}))
	assert.Error(t, g.AddNode(nil))

	loop := NewGraphProcessor(Config{Graph: GraphConfig{MaxSteps: 3, DefaultFlow: GraphFlow{
		StartNode: "a",
		Edges:     map[string][]GraphEdge{"a": {{To: "a"}}},
	}}})
	require.NoError(t, loop.AddNode(stubNode{name: "a", run: func(NodeInput) NodeOutput {
		return NodeOutput{Error: errors.New("soft")}
	}}))
	_, err = loop.Execute(context.Background(), ProcessorInput{})
	assert.EqualError(t, err, "graph exceeded 3 steps at node a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newProcessor(t, true).Execute(ctx, ProcessorInput{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortEdgesByPriorityIsStable(t *testing.T) {
	sorted := sortEdgesByPriority([]GraphEdge{{To: "b", Priority: 2}, {To: "a", Priority: 1}, {To: "c", Priority: 2}})
	assert.Equal(t, []string{"a", "b", "c"}, []string{sorted[0].To, sorted[1].To, sorted[2].To})
}
