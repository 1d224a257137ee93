package aaosa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"infra_crew/src/logger"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// phase is one fixed hop of the delegation workflow
type phase struct {
	node    string
	from    string
	to      string
	inquiry func(workflowType, requirements string) string
}

var phases = []phase{
	{"requirements", Boss, "product-manager", func(wt, req string) string {
		return fmt.Sprintf("Create Product Requirements Document for %s: %s", wt, req)
	}},
	{"architecture", "product-manager", "architect", func(wt, req string) string {
		return fmt.Sprintf("Design system architecture for %s based on requirements: %s", wt, req)
	}},
	{"planning", "architect", "project-manager", func(wt, _ string) string {
		return fmt.Sprintf("Create project plan for %s implementation", wt)
	}},
	{"implementation", "project-manager", "engineer", func(wt, _ string) string {
		return fmt.Sprintf("Implement %s solution according to architecture and requirements", wt)
	}},
	{"testing", "engineer", "qa", func(wt, _ string) string {
		return fmt.Sprintf("Test and validate %s implementation for quality and compliance", wt)
	}},
}

// Hop is a (from, to) pair of the workflow, in execution order
type Hop struct {
	From string
	To   string
}

// WorkflowHops lists the delegations ExecuteWorkflow performs
func WorkflowHops() []Hop {
	hops := make([]Hop, len(phases))
	for i, p := range phases {
		hops[i] = Hop{From: p.from, To: p.to}
	}
	return hops
}

// workflowRun flows through the compiled phase graph
type workflowRun struct {
	WorkflowType string
	Requirements string
	SessionID    string
	Otrace       []string
	Results      []Response
	Trace        []TraceRecord
}

// Engine delegates inquiries down the agent chain. A nil bridge means
// every call is simulated.
type Engine struct {
	registry *Registry
	bridge   Bridge
	now      func() time.Time
	logger   zerolog.Logger

	mu    sync.Mutex
	trace []TraceRecord

	workflow compose.Runnable[*workflowRun, *workflowRun]
}

// NewEngine compiles the five-phase workflow graph
func NewEngine(ctx context.Context, registry *Registry, bridge Bridge) (*Engine, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	e := &Engine{
		registry: registry,
		bridge:   bridge,
		now:      time.Now,
		logger:   logger.Component("aaosa"),
	}

	if err := registry.Validate(); err != nil {
		e.logger.Warn().Err(err).Msg("Agent registry has problems, affected hops will be simulated as irrelevant")
	}

	g := compose.NewGraph[*workflowRun, *workflowRun]()
	prev := compose.START
	for _, p := range phases {
		if err := g.AddLambdaNode(p.node, compose.InvokableLambda(e.phaseNode(p))); err != nil {
			return nil, fmt.Errorf("add phase %s: %w", p.node, err)
		}
		if err := g.AddEdge(prev, p.node); err != nil {
			return nil, fmt.Errorf("link phase %s: %w", p.node, err)
		}
		prev = p.node
	}
	if err := g.AddEdge(prev, compose.END); err != nil {
		return nil, fmt.Errorf("link workflow end: %w", err)
	}

	runnable, err := g.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile delegation workflow: %w", err)
	}
	e.workflow = runnable
	return e, nil
}

// Registry returns the agent registry the engine delegates over
func (e *Engine) Registry() *Registry {
	return e.registry
}

// LiveBridge reports whether a bridge is configured
func (e *Engine) LiveBridge() bool {
	return e.bridge != nil
}

func (e *Engine) phaseNode(p phase) func(context.Context, *workflowRun) (*workflowRun, error) {
	return func(ctx context.Context, run *workflowRun) (*workflowRun, error) {
		inquiry := p.inquiry(run.WorkflowType, run.Requirements)

		verdict, rec, err := e.delegate(ctx, p.from, p.to, inquiry, ModeDetermine)
		if err != nil {
			return nil, err
		}
		run.Trace = append(run.Trace, rec)
		if !verdict.IsRelevant() {
			return run, nil
		}

		result, rec, err := e.delegate(ctx, p.from, p.to, inquiry, ModeFulfill)
		if err != nil {
			return nil, err
		}
		run.Trace = append(run.Trace, rec)
		run.Results = append(run.Results, result)
		run.Otrace = append(run.Otrace, p.to)
		return run, nil
	}
}

// ExecuteWorkflow runs the five delegation phases in order. Each phase asks
// the target agent to Determine relevance and, when relevant, to Fulfill.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowType, requirements, sessionID string) (*WorkflowResult, error) {
	e.logger.Info().
		Str("session_id", sessionID).
		Str("workflow_type", workflowType).
		Bool("live_bridge", e.bridge != nil).
		Msg("🚀 Starting delegation workflow")

	run, err := e.workflow.Invoke(ctx, &workflowRun{
		WorkflowType: workflowType,
		Requirements: requirements,
		SessionID:    sessionID,
		Otrace:       []string{Boss},
		Results:      []Response{},
	})
	if err != nil {
		return nil, fmt.Errorf("delegation workflow %s failed: %w", sessionID, err)
	}

	e.logger.Info().
		Str("session_id", sessionID).
		Strs("otrace", run.Otrace).
		Int("delegations", len(run.Trace)).
		Msg("✅ Delegation workflow completed")

	return &WorkflowResult{
		Success:             true,
		WorkflowType:        workflowType,
		SessionID:           sessionID,
		Otrace:              run.Otrace,
		DelegationResults:   run.Results,
		TotalAgentsInvolved: len(run.Otrace),
		DelegationTrace:     run.Trace,
		Message:             fmt.Sprintf("Successfully coordinated %d agents for %s workflow", len(run.Otrace), workflowType),
	}, nil
}

// Delegate sends one inquiry from one agent to another and records the hop.
// Bridge failures never surface as errors; only a cancelled context does.
func (e *Engine) Delegate(ctx context.Context, from, to, inquiry string, mode Mode) (Response, error) {
	resp, _, err := e.delegate(ctx, from, to, inquiry, mode)
	return resp, err
}

type bridgePanic struct {
	value any
}

func (p *bridgePanic) Error() string {
	return fmt.Sprintf("bridge panic: %v", p.value)
}

func (e *Engine) delegate(ctx context.Context, from, to, inquiry string, mode Mode) (Response, TraceRecord, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, TraceRecord{}, err
	}

	agent, ok := e.registry.Get(to)
	if !ok {
		agent = Agent{Name: to}
	}
	rec := TraceRecord{
		FromAgent: from,
		ToAgent:   to,
		Inquiry:   inquiry,
		Mode:      mode,
		Timestamp: e.now(),
	}

	var resp Response
	if e.bridge == nil {
		rec.Status = StatusSimulation
		resp = Simulate(agent, inquiry, mode)
	} else {
		live, err := e.callBridge(ctx, agent, inquiry, mode)
		var panicked *bridgePanic
		switch {
		case err == nil:
			rec.Status = StatusRealSuccess
			rec.Response = &live
			resp = live
		case errors.As(err, &panicked):
			rec.Status = StatusDelegationError
			rec.Error = err.Error()
			resp = Simulate(agent, inquiry, mode)
		default:
			rec.Status = StatusRealFailedFallback
			rec.Error = err.Error()
			resp = Simulate(agent, inquiry, mode)
		}
	}

	e.logger.Debug().
		Str("from", from).
		Str("to", to).
		Str("mode", string(mode)).
		Str("status", rec.Status).
		Msg("Delegation")

	e.mu.Lock()
	e.trace = append(e.trace, rec)
	e.mu.Unlock()

	return resp, rec, nil
}

func (e *Engine) callBridge(ctx context.Context, agent Agent, inquiry string, mode Mode) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &bridgePanic{value: r}
		}
	}()

	resp, err = e.bridge.CallAgent(ctx, agent, inquiry, mode)
	if err != nil {
		return Response{}, err
	}
	if resp.Name == "" {
		resp.Name = agent.Name
	}
	if resp.Inquiry == "" {
		resp.Inquiry = inquiry
	}
	if resp.Mode == "" {
		resp.Mode = mode
	}
	return resp, nil
}

// Trace returns every hop recorded since the last ClearTrace
func (e *Engine) Trace() []TraceRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TraceRecord, len(e.trace))
	copy(out, e.trace)
	return out
}

// ClearTrace drops the recorded hops
func (e *Engine) ClearTrace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trace = nil
}

// ConnectivityStatus probes every down-chain agent concurrently
func (e *Engine) ConnectivityStatus(ctx context.Context) ConnectivityStatus {
	if e.bridge == nil {
		return ConnectivityStatus{
			Mode:    "simulation_only",
			Message: "Real agent bridge not available - using simulation mode",
		}
	}

	agents := e.registry.DownChain()
	available, err := e.probeAll(ctx, agents)
	if err != nil {
		return ConnectivityStatus{
			Mode:    "simulation_fallback",
			Error:   err.Error(),
			Message: fmt.Sprintf("Real agent bridge failed: %v - using simulation mode", err),
		}
	}

	count := 0
	for _, ok := range available {
		if ok {
			count++
		}
	}
	return ConnectivityStatus{
		Mode:              "real_agents_with_fallback",
		RealAgentsEnabled: true,
		Agents:            available,
		AvailableAgents:   count,
		Message:           fmt.Sprintf("Real agent bridge active - %d/%d agents available", count, len(agents)),
	}
}

// probeAll fails only when probing itself cannot run; an unreachable agent is just unavailable
func (e *Engine) probeAll(ctx context.Context, names []string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]bool, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("probe %s panicked: %v", name, r)
				}
			}()
			agent, ok := e.registry.Get(name)
			if !ok {
				agent = Agent{Name: name}
			}
			probeErr := e.bridge.Probe(gctx, agent)
			if probeErr != nil {
				e.logger.Debug().Err(probeErr).Str("agent", name).Msg("Agent probe failed")
			}
			results[i] = probeErr == nil
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	available := make(map[string]bool, len(names))
	for i, name := range names {
		available[name] = results[i]
	}
	return available, nil
}
