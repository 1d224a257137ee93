package aaosa

import (
	"fmt"
	"strings"
)

// Simulate answers for agent without a live model. Determine matches the
// agent's relevance keywords as case-insensitive substrings; Fulfill returns
// the agent's canned deliverable.
func Simulate(agent Agent, inquiry string, mode Mode) Response {
	switch mode {
	case ModeDetermine:
		return DetermineResponse(agent.Name, inquiry, isRelevant(agent, inquiry))
	case ModeFulfill:
		text := agent.FulfillTemplate
		if text == "" {
			text = fmt.Sprintf("I have completed the requested task: %s", inquiry)
		}
		return FulfillResponse(agent.Name, inquiry, text)
	default:
		return Response{
			Name:    agent.Name,
			Inquiry: inquiry,
			Mode:    mode,
			Error:   fmt.Sprintf("Unknown AAOSA mode: %s", mode),
		}
	}
}

func isRelevant(agent Agent, inquiry string) bool {
	text := strings.ToLower(inquiry)
	for _, kw := range agent.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
