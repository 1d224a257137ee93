package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"infra_crew/internal/aaosa"
)

const isoFormat = "2006-01-02T15:04:05.000000"

// pyList renders names as ['a', 'b'], the shape agents already parse
func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// titleAgent turns "product-manager" into "Product Manager"
func titleAgent(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func heading(workflowType string) string {
	return strings.ToUpper(strings.ReplaceAll(workflowType, "_", " "))
}

// RenderExecution formats an Execute result for the boss agent
func RenderExecution(res *Result) string {
	if res == nil {
		return "❌ **ERROR**: Workflow execution failed"
	}
	if !res.Success {
		cause := res.Error
		if cause == "" {
			cause = "Unknown error"
		}
		return fmt.Sprintf("❌ **ERROR**: Failed to execute %s workflow - %s", res.WorkflowType, cause)
	}

	if res.Mode != ModeMultiAgent {
		return strings.TrimSpace(fmt.Sprintf(`# ⚠️ **%s - SINGLE AGENT MODE**

**Workflow Type**: %s
**Status**: Completed in fallback mode
**Session ID**: `+"`%s`"+`
**Mode**: %s
**Trace**: %s

Note: AAOSA multi-agent delegation was not available, so I handled this request directly.`,
			heading(res.WorkflowType), res.WorkflowType, res.SessionID, res.Mode, pyList(res.Otrace)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 🎯 **%s - MULTI-AGENT COORDINATION**\n\n", heading(res.WorkflowType))
	fmt.Fprintf(&b, "I've successfully coordinated with our expert team to handle your %s request:\n\n",
		strings.ReplaceAll(res.WorkflowType, "_", " "))
	b.WriteString("## 👥 **TEAM COORDINATION** \n")
	fmt.Fprintf(&b, "**Workflow Type**: %s\n", res.WorkflowType)
	fmt.Fprintf(&b, "**Agents Involved**: %s\n", strings.Join(res.Otrace, " → "))
	fmt.Fprintf(&b, "**Total Delegations**: %d\n", res.TotalDelegations)
	fmt.Fprintf(&b, "**Session ID**: `%s`\n\n", res.SessionID)
	b.WriteString("## 📋 **DELIVERABLES COMPLETED**\n")

	for i, d := range res.DelegationResults {
		name := d.Name
		if name == "" {
			name = "Unknown"
		}
		text := d.Response
		if text == "" {
			text = "No response"
		}
		fmt.Fprintf(&b, "\n**%d. %s:**\n%s\n", i+1, titleAgent(name), text)
	}

	b.WriteString("\n## ✅ **WORKFLOW STATUS**\n")
	b.WriteString("**Mode**: Multi-agent AAOSA coordination\n")
	b.WriteString("**Status**: All deliverables completed successfully\n")
	fmt.Fprintf(&b, "**Agents Trace**: %s\n\n", pyList(res.Otrace))
	b.WriteString("This demonstrates true AAOSA coordination where I delegate to specialists rather than working in isolation!")
	return b.String()
}

// RenderStatus formats a Status lookup
func RenderStatus(st *SessionStatus, err error) string {
	var missing *SessionNotFoundError
	if errors.As(err, &missing) {
		return "❌ " + missing.Error()
	}
	if err != nil {
		return fmt.Sprintf("❌ **ERROR**: Failed to get workflow status - %v", err)
	}
	return fmt.Sprintf(`📊 **WORKFLOW STATUS**
**Session ID**: %s
**Type**: %s
**Mode**: %s
**Agents**: %s
**Status**: %s
**Timestamp**: %s
`, st.SessionID, st.WorkflowType, st.Mode, pyList(st.Otrace), st.Status, st.Timestamp.Format(isoFormat))
}

// RenderSessions formats a List result
func RenderSessions(sessions []SessionSummary, err error) string {
	if err != nil {
		return fmt.Sprintf("❌ **ERROR**: Failed to list workflow sessions - %v", err)
	}
	if len(sessions) == 0 {
		return "📋 **No active workflow sessions found**"
	}

	var b strings.Builder
	b.WriteString("📋 **ACTIVE WORKFLOW SESSIONS**\n\n")
	for _, s := range sessions {
		fmt.Fprintf(&b, "**%s**:\n", s.SessionID)
		fmt.Fprintf(&b, "  - Type: %s\n", s.WorkflowType)
		fmt.Fprintf(&b, "  - Mode: %s\n", s.Mode)
		fmt.Fprintf(&b, "  - Agents: %d\n", s.AgentsCount)
		fmt.Fprintf(&b, "  - Time: %s\n\n", s.Timestamp.Format(isoFormat))
	}
	return strings.TrimSpace(b.String())
}

var hopPurpose = map[string]string{
	"product-manager": "requirements analysis",
	"architect":       "system design",
	"project-manager": "planning",
	"engineer":        "implementation",
	"qa":              "testing",
}

// RenderValidation describes whether delegation is wired and what a healthy run looks like
func RenderValidation(e *Engine) string {
	enabled := e.AAOSAEnabled()

	available, mode, bridge := "Not Available", "Single-agent fallback", "Not configured"
	if enabled {
		available, mode = "Available", "Multi-agent AAOSA"
		if e.delegation.LiveBridge() {
			bridge = "Live with simulation fallback"
		} else {
			bridge = "Simulation"
		}
	}

	var b strings.Builder
	b.WriteString("✅ **AAOSA DELEGATION VALIDATION**\n\n")
	b.WriteString("**Workflow Engine**: Available\n")
	fmt.Fprintf(&b, "**AAOSA Enabled**: %s\n", pyBool(enabled))
	fmt.Fprintf(&b, "**Delegation Engine**: %s\n", available)
	fmt.Fprintf(&b, "**Agent Bridge**: %s\n", bridge)
	fmt.Fprintf(&b, "**Mode**: %s\n\n", mode)
	b.WriteString("## 🎯 **EXPECTED BEHAVIOR**\n")
	b.WriteString("When boss agent receives a request, it should:\n")

	var registry *aaosa.Registry
	if enabled {
		registry = e.delegation.Registry()
	}
	expected := []string{aaosa.Boss}
	for i, hop := range aaosa.WorkflowHops() {
		purpose := hopPurpose[hop.To]
		if registry != nil {
			if agent, ok := registry.Get(hop.To); ok && purpose == "" {
				purpose = strings.ToLower(agent.Instructions)
			}
		}
		if purpose == "" {
			purpose = "its deliverable"
		}
		fmt.Fprintf(&b, "%d. Delegate to %s for %s\n", i+1, hop.To, purpose)
		expected = append(expected, hop.To)
	}
	fmt.Fprintf(&b, "\n**Result**: otrace should show %s\n", pyList(expected))
	fmt.Fprintf(&b, "**Not**: otrace: %s (isolation mode)\n", pyList([]string{aaosa.Boss}))

	if registry != nil {
		if err := registry.Validate(); err != nil {
			fmt.Fprintf(&b, "\n⚠️ **REGISTRY**: %v\n", err)
		}
	}

	if enabled {
		b.WriteString("\n✅ **STATUS**: Ready for multi-agent coordination")
	} else {
		b.WriteString("\n⚠️ **STATUS**: Will fallback to single-agent mode")
	}
	return b.String()
}

// RenderConnectivity formats a bridge connectivity check
func RenderConnectivity(status aaosa.ConnectivityStatus, checked time.Time) string {
	var b strings.Builder
	b.WriteString("🔌 **AGENT CONNECTIVITY**\n\n")
	fmt.Fprintf(&b, "**Mode**: %s\n", status.Mode)
	fmt.Fprintf(&b, "**Real Agents Enabled**: %s\n", pyBool(status.RealAgentsEnabled))
	fmt.Fprintf(&b, "**Available Agents**: %d\n", status.AvailableAgents)
	fmt.Fprintf(&b, "**Checked**: %s\n", checked.Format(isoFormat))
	if len(status.Agents) > 0 {
		b.WriteString("\n")
		for _, hop := range aaosa.WorkflowHops() {
			ok, probed := status.Agents[hop.To]
			if !probed {
				continue
			}
			mark := "❌"
			if ok {
				mark = "✅"
			}
			fmt.Fprintf(&b, "- %s %s\n", mark, hop.To)
		}
	}
	fmt.Fprintf(&b, "\n%s", status.Message)
	return b.String()
}
