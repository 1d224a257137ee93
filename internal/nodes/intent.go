package nodes

import (
	"context"
	"regexp"
	"strings"

	"infra_crew/internal/core"
	"infra_crew/internal/workflow"
	"infra_crew/pkg"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

const IntentChat = "chat"

// intentRule maps keywords in the user message to planned tool calls
type intentRule struct {
	intent    string
	keywords  []string
	exclusive bool // stops rule evaluation when it matches
	call      func(text string, sly pkg.SlyData) pkg.ToolCall
}

var (
	projectPattern   = regexp.MustCompile(`(?i)\bproject\s+(?:named\s+|called\s+)?["']?([A-Za-z0-9][A-Za-z0-9_.-]*)`)
	sessionPattern   = regexp.MustCompile(`(?i)\bsession\s+(?:id\s+)?["']?([A-Za-z0-9][A-Za-z0-9_.-]*)`)
	rememberPattern  = regexp.MustCompile(`(?i)\bremember\s+(?:that\s+)?(.+)$`)
	recallPattern    = regexp.MustCompile(`(?i)\brecall\s+(?:what\s+you\s+know\s+about\s+|about\s+)?([A-Za-z0-9_ -]+)$`)
	notProjectNames  = map[string]bool{"plan": true, "plans": true, "for": true, "with": true, "and": true, "the": true, "a": true, "an": true, "type": true, "manager": true, "management": true, "name": true, "status": true}
	sentimentSources = []string{"aljazeera", "guardian", "nyt"}
)

// keywordPatterns are tried in order; "about" beats "on" in "sentiment on nyt about x"
var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:about|regarding|mentioning)\s+(.+)$`),
	regexp.MustCompile(`(?i)\b(?:on|for)\s+(.+)$`),
}

// ProjectName finds "project <name>" in text, skipping words that only follow "project" in phrases
func ProjectName(text string) string {
	for _, m := range projectPattern.FindAllStringSubmatch(text, -1) {
		name := strings.Trim(m[1], ".")
		if name != "" && !notProjectNames[strings.ToLower(name)] {
			return name
		}
	}
	return ""
}

func workflowCall(action string) func(string, pkg.SlyData) pkg.ToolCall {
	return func(text string, sly pkg.SlyData) pkg.ToolCall {
		args := map[string]any{"action": action}
		if m := sessionPattern.FindStringSubmatch(text); m != nil {
			args["session_id"] = m[1]
		}
		return pkg.ToolCall{Name: "WorkflowEngine", Args: args}
	}
}

func initiateCall(projectType string) func(string, pkg.SlyData) pkg.ToolCall {
	return func(text string, sly pkg.SlyData) pkg.ToolCall {
		return pkg.ToolCall{Name: "WorkflowEngine", Args: map[string]any{
			"action":            "initiate_workflow",
			"project_type":      projectType,
			"user_requirements": text,
			"project_name":      sly.String("project_name"),
		}}
	}
}

func projectCall(name string, details bool) func(string, pkg.SlyData) pkg.ToolCall {
	return func(text string, sly pkg.SlyData) pkg.ToolCall {
		args := map[string]any{"project_name": sly.ProjectName()}
		if details {
			args["project_details"] = text
		}
		return pkg.ToolCall{Name: name, Args: args}
	}
}

func sentimentCall(text string, _ pkg.SlyData) pkg.ToolCall {
	lower := strings.ToLower(text)
	var sources []string
	for _, s := range sentimentSources {
		if strings.Contains(lower, s) {
			sources = append(sources, s)
		}
	}
	source := "all"
	if len(sources) > 0 {
		source = strings.Join(sources, ",")
	}

	keywords := ""
	for _, p := range keywordPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			keywords = strings.TrimRight(strings.TrimSpace(m[1]), ".?!")
			keywords = strings.ReplaceAll(keywords, " and ", ",")
			break
		}
	}
	return pkg.ToolCall{Name: "SentimentAnalysis", Args: map[string]any{"source": source, "keywords": keywords}}
}

func rememberCall(text string, _ pkg.SlyData) pkg.ToolCall {
	fact := text
	if m := rememberPattern.FindStringSubmatch(text); m != nil {
		fact = m[1]
	}
	topic := "notes"
	if before, after, ok := strings.Cut(fact, ":"); ok && strings.TrimSpace(after) != "" {
		topic, fact = strings.TrimSpace(before), after
	}
	return pkg.ToolCall{Name: "CommitToMemory", Args: map[string]any{
		"topic":    topic,
		"new_fact": strings.TrimSpace(fact),
	}}
}

func recallCall(text string, _ pkg.SlyData) pkg.ToolCall {
	args := map[string]any{}
	if m := recallPattern.FindStringSubmatch(strings.TrimRight(text, ".?! ")); m != nil {
		if topic := strings.TrimSpace(m[1]); topic != "" && topic != "everything" {
			args["topic"] = topic
		}
	}
	return pkg.ToolCall{Name: "RecallMemory", Args: args}
}

// defaultRules are evaluated in order. Exclusive rules end the scan.
var defaultRules = []intentRule{
	{intent: "validate_delegation", keywords: []string{"validate delegation", "validate workflow", "validate agents", "validate the delegation"}, exclusive: true, call: workflowCall("validate")},
	{intent: "connectivity", keywords: []string{"connectivity", "agent bridge status"}, exclusive: true, call: workflowCall("connectivity")},
	{intent: "workflow_status", keywords: []string{"workflow status", "status of session", "session status"}, exclusive: true, call: workflowCall("get_status")},
	{intent: "list_workflows", keywords: []string{"list workflows", "list sessions", "show workflows", "workflow sessions"}, exclusive: true, call: workflowCall("list")},
	{intent: "landing_zone", keywords: []string{"landing zone"}, exclusive: true, call: initiateCall(workflow.AzureLandingZone)},
	{intent: "software_project", keywords: []string{"software project", "software development"}, exclusive: true, call: initiateCall(workflow.SoftwareDevelopment)},
	{intent: "sentiment", keywords: []string{"sentiment"}, exclusive: true, call: sentimentCall},
	{intent: "remember", keywords: []string{"remember"}, exclusive: true, call: rememberCall},
	{intent: "recall", keywords: []string{"recall", "what do you know", "what have you stored"}, exclusive: true, call: recallCall},
	{intent: "design_document", keywords: []string{"design document", "design doc"}, call: projectCall("DesignDocumentCreator", true)},
	{intent: "project_plan", keywords: []string{"project plan"}, call: projectCall("ProjectPlanCreator", false)},
	{intent: "terraform", keywords: []string{"terraform"}, call: projectCall("TerraformBuilder", false)},
	{intent: "ansible", keywords: []string{"ansible", "playbook"}, call: projectCall("AnsibleBuilder", false)},
}

var intentSystem = `You classify requests sent to a cloud infrastructure assistant.
Reply with exactly one label from this list and nothing else:
{labels}`

// IntentNode plans the coded tool calls for a turn
type IntentNode struct {
	rules    []intentRule
	turns    int
	classify compose.Runnable[map[string]any, *schema.Message]
}

// NewIntentNode builds the rule matcher. When chat is non-nil, messages no rule
// matches are classified by the model into one of the rule intents, with the
// last turns messages as context.
func NewIntentNode(ctx context.Context, chat model.BaseChatModel, turns int) (*IntentNode, error) {
	if turns <= 0 {
		turns = 5
	}
	n := &IntentNode{rules: defaultRules, turns: turns}
	if chat == nil {
		return n, nil
	}

	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(intentSystem),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{message}"),
	)
	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(chat).
		Compile(ctx)
	if err != nil {
		return nil, err
	}
	n.classify = chain
	return n, nil
}

func (n *IntentNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	sly := input.Sly
	update := pkg.SlyData{}
	if name := ProjectName(input.UserMessage); name != "" {
		update["project_name"] = name
		sly = mergeSly(sly, update)
	}

	intent, calls := n.match(input.UserMessage, sly)
	if len(calls) == 0 && n.classify != nil {
		if label := n.classifyMessage(ctx, input); label != "" {
			intent, calls = n.byIntent(label, input.UserMessage, sly)
		}
	}

	log.Debug().
		Str("session_id", input.SessionID).
		Str("intent", intent).
		Int("tool_calls", len(calls)).
		Msg("🧠 Intent detected")

	data := map[string]any{
		"intent":     intent,
		"tool_calls": calls,
		"need_tools": len(calls) > 0,
	}
	if len(update) > 0 {
		data["sly_data"] = update
	}
	return core.NodeOutput{Data: data}, nil
}

func (n *IntentNode) match(text string, sly pkg.SlyData) (string, []pkg.ToolCall) {
	lower := strings.ToLower(text)
	intent := IntentChat
	var calls []pkg.ToolCall
	for _, rule := range n.rules {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		if len(calls) == 0 {
			intent = rule.intent
		}
		calls = append(calls, rule.call(text, sly))
		if rule.exclusive {
			break
		}
	}
	return intent, calls
}

func (n *IntentNode) byIntent(label, text string, sly pkg.SlyData) (string, []pkg.ToolCall) {
	for _, rule := range n.rules {
		if rule.intent == label {
			return rule.intent, []pkg.ToolCall{rule.call(text, sly)}
		}
	}
	return IntentChat, nil
}

func (n *IntentNode) classifyMessage(ctx context.Context, input core.NodeInput) string {
	labels := make([]string, 0, len(n.rules)+1)
	for _, rule := range n.rules {
		labels = append(labels, rule.intent)
	}
	labels = append(labels, IntentChat)

	// the last entry is the message being classified
	past := input.History
	if len(past) > 0 {
		past = past[:len(past)-1]
	}
	if len(past) > n.turns {
		past = past[len(past)-n.turns:]
	}
	history := make([]*schema.Message, 0, len(past))
	for _, m := range past {
		switch m.Role {
		case string(schema.User):
			history = append(history, schema.UserMessage(m.Content))
		case string(schema.Assistant):
			history = append(history, schema.AssistantMessage(m.Content, nil))
		}
	}

	out, err := n.classify.Invoke(ctx, map[string]any{
		"labels":  strings.Join(labels, ", "),
		"history": history,
		"message": input.UserMessage,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Intent classification failed")
		return ""
	}
	return strings.ToLower(strings.Trim(strings.TrimSpace(out.Content), "`'\"."))
}

func (n *IntentNode) GetName() string {
	return "intent"
}

func (n *IntentNode) GetType() core.NodeType {
	return core.NodeTypeIntent
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func mergeSly(base, update pkg.SlyData) pkg.SlyData {
	out := make(pkg.SlyData, len(base)+len(update))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}
