package aaosa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Bridge reaches live agents. CallAgent errors make the engine fall back to simulation.
type Bridge interface {
	CallAgent(ctx context.Context, agent Agent, inquiry string, mode Mode) (Response, error)
	Probe(ctx context.Context, agent Agent) error
}

// Heartbeater is a cheaper liveness check than a generate call
type Heartbeater interface {
	Heartbeat(ctx context.Context) error
}

var (
	determineTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(`You are the {agent} agent of a software delivery team.
Your responsibility: {instructions}.
Decide whether the inquiry below is yours to handle.
Reply with a single JSON object and nothing else:
{{"relevant": true or false, "strength": 0-10, "claim": "All" or "Partial", "requirements": ["missing input", ...]}}`),
		schema.UserMessage("{inquiry}"),
	)

	fulfillTemplate = prompt.FromMessages(schema.FString,
		schema.SystemMessage(`You are the {agent} agent of a software delivery team.
Your responsibility: {instructions}.
Complete the inquiry and report the deliverable in the first person, in at most five sentences.`),
		schema.UserMessage("{inquiry}"),
	)
)

// LLMBridge plays each agent role with a single chat model
type LLMBridge struct {
	model     model.BaseChatModel
	heartbeat Heartbeater
}

// NewLLMBridge wraps m. heartbeat may be nil, in which case Probe issues a tiny generate call.
func NewLLMBridge(m model.BaseChatModel, heartbeat Heartbeater) *LLMBridge {
	return &LLMBridge{model: m, heartbeat: heartbeat}
}

func agentVars(agent Agent, inquiry string) map[string]any {
	instructions := agent.Instructions
	if instructions == "" {
		instructions = "general assistance"
	}
	return map[string]any{
		"agent":        agent.Name,
		"instructions": instructions,
		"inquiry":      inquiry,
	}
}

// CallAgent runs one Determine or Fulfill call
func (b *LLMBridge) CallAgent(ctx context.Context, agent Agent, inquiry string, mode Mode) (Response, error) {
	var tpl prompt.ChatTemplate
	switch mode {
	case ModeDetermine:
		tpl = determineTemplate
	case ModeFulfill:
		tpl = fulfillTemplate
	default:
		return Response{}, fmt.Errorf("Unknown AAOSA mode: %s", mode)
	}

	messages, err := tpl.Format(ctx, agentVars(agent, inquiry))
	if err != nil {
		return Response{}, fmt.Errorf("format %s prompt: %w", mode, err)
	}
	reply, err := b.model.Generate(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("%s call to %s failed: %w", mode, agent.Name, err)
	}
	text := strings.TrimSpace(reply.Content)
	if text == "" {
		return Response{}, fmt.Errorf("%s returned an empty %s response", agent.Name, mode)
	}

	if mode == ModeFulfill {
		return FulfillResponse(agent.Name, inquiry, text), nil
	}
	return parseVerdict(agent.Name, inquiry, text)
}

type verdict struct {
	Relevant     bool     `json:"relevant"`
	Strength     *int     `json:"strength"`
	Claim        string   `json:"claim"`
	Requirements []string `json:"requirements"`
}

// parseVerdict reads the first JSON object in text, tolerating code fences and prose
func parseVerdict(agent, inquiry, text string) (Response, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Response{}, fmt.Errorf("no JSON verdict in %s response", agent)
	}

	var v verdict
	if err := sonic.UnmarshalString(text[start:end+1], &v); err != nil {
		return Response{}, fmt.Errorf("invalid verdict from %s: %w", agent, err)
	}

	resp := DetermineResponse(agent, inquiry, v.Relevant)
	if v.Strength != nil {
		resp.Strength = *v.Strength
	}
	if v.Claim == "All" || v.Claim == "Partial" {
		resp.Claim = v.Claim
	}
	if v.Requirements != nil {
		resp.Requirements = v.Requirements
	}
	return resp, nil
}

// Probe checks that the agent can answer
func (b *LLMBridge) Probe(ctx context.Context, agent Agent) error {
	if b.heartbeat != nil {
		return b.heartbeat.Heartbeat(ctx)
	}
	reply, err := b.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(fmt.Sprintf("You are the %s agent. Answer with the single word: ready", agent.Name)),
		schema.UserMessage("ping"),
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(reply.Content) == "" {
		return errors.New("empty probe response")
	}
	return nil
}
