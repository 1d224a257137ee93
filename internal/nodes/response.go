package nodes

import (
	"context"
	"fmt"
	"strings"

	"infra_crew/internal/core"
	"infra_crew/pkg"
	"infra_crew/src/conversation"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

const responseSystem = `You are the spoken voice of a cloud infrastructure assistant.
The user's tools already ran; their output is shown on screen.
Answer in two or three short sentences suitable for text to speech.
Do not repeat file contents, paths or markdown.`

const responseUser = `{conversation_context}

Intent: {intent}
Tool results:
{tool_results}

Reply to: {message}`

const helpText = `I can help with:
- design documents and project plans
- Terraform and Ansible generation
- Azure landing zone and software project workflows
- news sentiment analysis
- remembering and recalling project facts`

// ResponseNode composes the gui and say blocks for a turn and saves the reply
type ResponseNode struct {
	history *conversation.Service
	chain   compose.Runnable[map[string]any, *schema.Message]
}

// NewResponseNode uses the model for the spoken summary when chat is non-nil
func NewResponseNode(ctx context.Context, history *conversation.Service, chat model.BaseChatModel) (*ResponseNode, error) {
	r := &ResponseNode{history: history}
	if chat == nil {
		return r, nil
	}

	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(responseSystem),
		schema.UserMessage(responseUser),
	)
	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(chat).
		Compile(ctx)
	if err != nil {
		return nil, err
	}
	r.chain = chain
	return r, nil
}

func (r *ResponseNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	gui := guiContent(input.ToolResults)
	speech := r.speech(ctx, input)
	reply := FormatBlocks(gui, speech)

	output := core.NodeOutput{
		Data:     map[string]any{"response": reply},
		Complete: true,
	}
	if err := r.history.SaveResponse(ctx, input.SessionID, reply); err != nil {
		log.Warn().Err(err).Str("session_id", input.SessionID).Msg("Failed to save response")
		output.Error = err
	}
	return output, nil
}

func (r *ResponseNode) speech(ctx context.Context, input core.NodeInput) string {
	fallback := Summarize(input.Intent, input.ToolResults)
	if r.chain == nil {
		return fallback
	}

	out, err := r.chain.Invoke(ctx, map[string]any{
		"conversation_context": input.ConversationContext,
		"intent":               input.Intent,
		"tool_results":         toolDigest(input.ToolResults),
		"message":              input.UserMessage,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Response model failed, using template")
		return fallback
	}
	if text := strings.TrimSpace(out.Content); text != "" {
		return text
	}
	return fallback
}

func (r *ResponseNode) GetName() string {
	return "response"
}

func (r *ResponseNode) GetType() core.NodeType {
	return core.NodeTypeResponse
}

// FormatBlocks renders the fenced gui and say blocks the relay splits on
func FormatBlocks(gui, say string) string {
	return "```gui\n" + strings.TrimSpace(gui) + "\n```\n```say\n" + strings.TrimSpace(say) + "\n```"
}

func guiContent(results []pkg.ToolResult) string {
	if len(results) == 0 {
		return helpText
	}
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n\n%s", res.Name, res.Output)
	}
	return b.String()
}

// toolDigest keeps the prompt small: the first line of each tool output
func toolDigest(results []pkg.ToolResult) string {
	if len(results) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(results))
	for _, res := range results {
		first, _, _ := strings.Cut(strings.TrimSpace(res.Output), "\n")
		lines = append(lines, fmt.Sprintf("- %s: %s", res.Name, first))
	}
	return strings.Join(lines, "\n")
}

// Summarize is the spoken reply used when no model is configured
func Summarize(intent string, results []pkg.ToolResult) string {
	if len(results) == 0 {
		return "I can draft design documents, project plans, Terraform and Ansible, run team workflows, analyze news sentiment and remember project facts. What would you like to do?"
	}

	var ok, failed []string
	for _, res := range results {
		if res.Failed {
			failed = append(failed, res.Name)
		} else {
			ok = append(ok, res.Name)
		}
	}

	var parts []string
	if len(ok) > 0 {
		parts = append(parts, fmt.Sprintf("Done. I ran %s.", joinNames(ok)))
	}
	if len(failed) > 0 {
		parts = append(parts, fmt.Sprintf("%s reported a problem, the details are on screen.", joinNames(failed)))
	} else {
		parts = append(parts, "The results are on screen.")
	}
	return strings.Join(parts, " ")
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
