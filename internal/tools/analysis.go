package tools

import (
	"context"

	"infra_crew/internal/sentiment"
	"infra_crew/internal/workflow"
	"infra_crew/pkg"
)

type SentimentAnalysis struct {
	Analyzer *sentiment.Analyzer
}

func (SentimentAnalysis) Name() string { return "SentimentAnalysis" }

func (SentimentAnalysis) Description() string {
	return "Score the sentiment of news sentences mentioning keywords. Args: source (all or comma list of aljazeera, guardian, nyt), keywords (comma list)."
}

func (t SentimentAnalysis) Invoke(ctx context.Context, args map[string]any, _ pkg.SlyData) (any, error) {
	report, err := t.Analyzer.Analyze(ctx, sentiment.Request{
		Source:   stringArg(args, "source", "all"),
		Keywords: stringArg(args, "keywords", ""),
	})
	if err != nil {
		return nil, failure("analyze sentiment", err)
	}
	return report, nil
}

// WorkflowEngine dispatches the boss agent's workflow actions
type WorkflowEngine struct {
	API *workflow.Interface
}

func (WorkflowEngine) Name() string { return "WorkflowEngine" }

func (WorkflowEngine) Description() string {
	return "Coordinate the specialist team. Args: action (initiate_workflow|execute|advance_phase|get_status|get_plan|check_approvals|list|validate|connectivity), project_type, user_requirements, project_name, session_id, current_phase."
}

func (t WorkflowEngine) Invoke(ctx context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	session := stringArg(args, "session_id", sly.String("session_id"))
	projectType := stringArg(args, "project_type", stringArg(args, "workflow_type", ""))
	requirements := stringArg(args, "user_requirements", stringArg(args, "requirements", ""))

	switch action := stringArg(args, "action", "initiate_workflow"); action {
	case "initiate_workflow":
		if projectType == "" {
			return nil, missing("project_type")
		}
		return t.API.InitiateWorkflow(ctx, projectType, requirements, stringArg(args, "project_name", ""), session), nil
	case "execute":
		if projectType == "" {
			return nil, missing("project_type")
		}
		return t.API.ExecuteWorkflow(ctx, projectType, requirements, session), nil
	case "advance_phase":
		if session == "" {
			return nil, missing("session_id")
		}
		return t.API.AdvancePhase(session, stringArg(args, "current_phase", "")), nil
	case "get_status":
		if session == "" {
			return nil, missing("session_id")
		}
		return t.API.GetStatus(ctx, session), nil
	case "get_plan":
		return t.API.GetPlan(projectType), nil
	case "check_approvals":
		if session == "" {
			return nil, missing("session_id")
		}
		return t.API.CheckApprovals(session), nil
	case "list":
		return t.API.ListSessions(ctx), nil
	case "validate":
		return t.API.Validate(), nil
	case "connectivity":
		return t.API.Connectivity(ctx), nil
	default:
		return nil, failure("run workflow action", unknownAction("WorkflowEngine", action))
	}
}
