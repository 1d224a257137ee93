package nodes

import (
	"context"
	"strings"

	"infra_crew/internal/core"
	"infra_crew/internal/tools"
	"infra_crew/pkg"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/tool"
	"github.com/rs/zerolog/log"
)

// ToolsNode runs the planned calls through the eino-wrapped coded tools
type ToolsNode struct {
	registry *tools.Registry
}

func NewToolsNode(registry *tools.Registry) *ToolsNode {
	return &ToolsNode{registry: registry}
}

func (t *ToolsNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	if len(input.ToolCalls) == 0 {
		return core.NodeOutput{Data: map[string]any{"tool_results": []pkg.ToolResult{}}}, nil
	}

	sly := input.Sly
	if sly == nil {
		sly = pkg.SlyData{}
	}
	if sly.String("session_id") == "" && input.SessionID != "" {
		sly = mergeSly(sly, pkg.SlyData{"session_id": input.SessionID})
	}

	bound, err := tools.EinoTools(t.registry, sly)
	if err != nil {
		return core.NodeOutput{Error: err}, nil
	}
	byName := make(map[string]tool.InvokableTool, len(bound))
	for _, bt := range bound {
		info, err := bt.Info(ctx)
		if err != nil {
			return core.NodeOutput{Error: err}, nil
		}
		byName[info.Name] = bt
	}

	results := make([]pkg.ToolResult, 0, len(input.ToolCalls))
	for _, call := range input.ToolCalls {
		results = append(results, t.run(ctx, byName, call))
	}

	return core.NodeOutput{Data: map[string]any{"tool_results": results}}, nil
}

func (t *ToolsNode) run(ctx context.Context, byName map[string]tool.InvokableTool, call pkg.ToolCall) pkg.ToolResult {
	bt, ok := byName[call.Name]
	if !ok {
		return pkg.ToolResult{Name: call.Name, Output: "Error: unknown tool " + call.Name, Failed: true}
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	payload, err := sonic.MarshalString(args)
	if err != nil {
		return pkg.ToolResult{Name: call.Name, Output: "Error: " + err.Error(), Failed: true}
	}

	out, err := bt.InvokableRun(ctx, payload)
	if err != nil {
		log.Warn().Err(err).Str("tool", call.Name).Msg("❌ Tool failed")
		return pkg.ToolResult{Name: call.Name, Output: "Error: " + err.Error(), Failed: true}
	}

	log.Debug().Str("tool", call.Name).Int("bytes", len(out)).Msg("✅ Tool executed")
	return pkg.ToolResult{Name: call.Name, Output: out, Failed: strings.HasPrefix(out, "Error:")}
}

func (t *ToolsNode) GetName() string {
	return "tools"
}

func (t *ToolsNode) GetType() core.NodeType {
	return core.NodeTypeTools
}
