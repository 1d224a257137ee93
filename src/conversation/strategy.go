package conversation

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

type ContextStrategy interface {
	BuildContext(messages []*schema.Message) string
	GetMaxTurns() int
}

// ====================== Response ======================
// ResponseContextStrategy - response generation looks at the last N messages
type ResponseContextStrategy struct {
	maxTurns int
}

func NewResponseContextStrategy(maxTurns int) *ResponseContextStrategy {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &ResponseContextStrategy{maxTurns: maxTurns}
}

func (s *ResponseContextStrategy) GetMaxTurns() int {
	return s.maxTurns
}

func (s *ResponseContextStrategy) BuildContext(messages []*schema.Message) string {
	return renderContext(trimTail(messages, s.maxTurns))
}

func renderContext(messages []*schema.Message) string {
	var contextBuilder strings.Builder
	contextBuilder.WriteString("<conversation_context>\n")

	for _, msg := range messages {
		switch msg.Role {
		case schema.User:
			contextBuilder.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			contextBuilder.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}

	contextBuilder.WriteString("</conversation_context>")
	return contextBuilder.String()
}

// Helper function
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}
