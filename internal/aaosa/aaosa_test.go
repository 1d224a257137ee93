package aaosa

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeChatModel answers with reply(system, user)
type fakeChatModel struct {
	reply func(system, user string) (string, error)
	calls atomic.Int32
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls.Add(1)
	var system, user string
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = msg.Content
		case schema.User:
			user = msg.Content
		}
	}
	text, err := f.reply(system, user)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type panicBridge struct{}

func (panicBridge) CallAgent(context.Context, Agent, string, Mode) (Response, error) {
	panic("bridge exploded")
}

func (panicBridge) Probe(context.Context, Agent) error {
	panic("probe exploded")
}

type staticHeartbeat struct{ err error }

func (h staticHeartbeat) Heartbeat(context.Context) error { return h.err }

func newEngine(t *testing.T, bridge Bridge) *Engine {
	t.Helper()
	e, err := NewEngine(context.Background(), DefaultRegistry(), bridge)
	require.NoError(t, err)
	return e
}

func TestRegistryDefaults(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"boss", "product-manager", "architect", "project-manager", "engineer", "qa"}, r.Names())
	assert.Equal(t, []string{"product-manager", "architect", "project-manager", "engineer", "qa"}, r.DownChain())
	assert.NoError(t, r.Validate())

	chain, err := r.Chain(Boss, "engineer")
	require.NoError(t, err)
	assert.Equal(t, []string{"boss", "product-manager", "architect", "project-manager", "engineer"}, chain)

	_, err = r.Chain(Boss, "nobody")
	assert.Error(t, err)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]Agent{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)

	_, err = NewRegistry([]Agent{{Name: ""}})
	assert.Error(t, err)
}

func TestRegistryValidateUnknownDownChain(t *testing.T) {
	r, err := NewRegistry([]Agent{{Name: Boss, Tools: []string{"ghost"}}})
	require.NoError(t, err)
	err = r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestSimulate(t *testing.T) {
	pm, _ := DefaultRegistry().Get("product-manager")

	yes := Simulate(pm, "Write the PRD", ModeDetermine)
	assert.Equal(t, "Yes", yes.Relevant)
	assert.Equal(t, 8, yes.Strength)
	assert.Equal(t, "All", yes.Claim)
	assert.Empty(t, yes.Requirements)

	no := Simulate(pm, "deploy the cluster", ModeDetermine)
	assert.Equal(t, "No", no.Relevant)
	assert.Equal(t, 3, no.Strength)
	assert.Equal(t, "Partial", no.Claim)

	done := Simulate(pm, "Write the PRD", ModeFulfill)
	assert.Equal(t, pm.FulfillTemplate, done.Response)

	generic := Simulate(Agent{Name: "intern"}, "sweep floors", ModeFulfill)
	assert.Equal(t, "I have completed the requested task: sweep floors", generic.Response)

	bad := Simulate(pm, "x", Mode("Negotiate"))
	assert.Equal(t, "Unknown AAOSA mode: Negotiate", bad.Error)
}

func TestExecuteWorkflowAzureLandingZone(t *testing.T) {
	e := newEngine(t, nil)

	res, err := e.ExecuteWorkflow(context.Background(), "azure_landing_zone", "hub and spoke network", "s1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"boss", "product-manager", "architect", "project-manager", "qa"}, res.Otrace)
	assert.Equal(t, 5, res.TotalAgentsInvolved)
	assert.Len(t, res.DelegationResults, 4)
	// five Determine calls, four Fulfill calls
	assert.Len(t, res.DelegationTrace, 9)
	assert.Equal(t, "Successfully coordinated 5 agents for azure_landing_zone workflow", res.Message)

	first := res.DelegationTrace[0]
	assert.Equal(t, "boss", first.FromAgent)
	assert.Equal(t, "product-manager", first.ToAgent)
	assert.Equal(t, "Create Product Requirements Document for azure_landing_zone: hub and spoke network", first.Inquiry)
	assert.Equal(t, StatusSimulation, first.Status)
}

func TestExecuteWorkflowSoftwareDevelopment(t *testing.T) {
	e := newEngine(t, nil)

	res, err := e.ExecuteWorkflow(context.Background(), "software_development", "todo app", "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"boss", "product-manager", "architect", "project-manager", "engineer", "qa"}, res.Otrace)
	assert.Len(t, res.DelegationTrace, 10)
}

func TestTraceAccumulatesAcrossRuns(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	_, err := e.ExecuteWorkflow(ctx, "azure_landing_zone", "", "a")
	require.NoError(t, err)
	_, err = e.ExecuteWorkflow(ctx, "software_development", "", "b")
	require.NoError(t, err)
	assert.Len(t, e.Trace(), 19)

	e.ClearTrace()
	assert.Empty(t, e.Trace())
}

func TestDelegateCancelledContext(t *testing.T) {
	e := newEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Delegate(ctx, Boss, "qa", "test it", ModeDetermine)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.Trace())

	_, err = e.ExecuteWorkflow(ctx, "software_development", "", "c")
	assert.Error(t, err)
}

func TestDelegateWithLiveBridge(t *testing.T) {
	fake := &fakeChatModel{reply: func(system, user string) (string, error) {
		if strings.Contains(system, "JSON") {
			return "```json\n{\"relevant\": true, \"strength\": 9, \"claim\": \"All\", \"requirements\": []}\n```", nil
		}
		return "Done by the model.", nil
	}}
	e := newEngine(t, NewLLMBridge(fake, nil))

	verdict, err := e.Delegate(context.Background(), Boss, "engineer", "anything at all", ModeDetermine)
	require.NoError(t, err)
	assert.True(t, verdict.IsRelevant())
	assert.Equal(t, 9, verdict.Strength)

	done, err := e.Delegate(context.Background(), Boss, "engineer", "anything at all", ModeFulfill)
	require.NoError(t, err)
	assert.Equal(t, "Done by the model.", done.Response)
	assert.Equal(t, "engineer", done.Name)

	trace := e.Trace()
	require.Len(t, trace, 2)
	assert.Equal(t, StatusRealSuccess, trace[0].Status)
	require.NotNil(t, trace[1].Response)
	assert.Equal(t, "Done by the model.", trace[1].Response.Response)
}

func TestDelegateFallsBackToSimulation(t *testing.T) {
	fake := &fakeChatModel{reply: func(string, string) (string, error) {
		return "", errors.New("connection refused")
	}}
	e := newEngine(t, NewLLMBridge(fake, nil))

	resp, err := e.Delegate(context.Background(), Boss, "qa", "Run the test suite", ModeDetermine)
	require.NoError(t, err)
	assert.True(t, resp.IsRelevant())

	trace := e.Trace()
	require.Len(t, trace, 1)
	assert.Equal(t, StatusRealFailedFallback, trace[0].Status)
	assert.Contains(t, trace[0].Error, "connection refused")
}

func TestDelegateUnparseableVerdictFallsBack(t *testing.T) {
	fake := &fakeChatModel{reply: func(string, string) (string, error) {
		return "Sure, happy to help!", nil
	}}
	e := newEngine(t, NewLLMBridge(fake, nil))

	resp, err := e.Delegate(context.Background(), Boss, "architect", "tidy the kitchen", ModeDetermine)
	require.NoError(t, err)
	assert.False(t, resp.IsRelevant())
	assert.Equal(t, StatusRealFailedFallback, e.Trace()[0].Status)
}

func TestDelegateRecoversBridgePanic(t *testing.T) {
	e := newEngine(t, panicBridge{})

	resp, err := e.Delegate(context.Background(), Boss, "architect", "system design", ModeDetermine)
	require.NoError(t, err)
	assert.True(t, resp.IsRelevant())

	trace := e.Trace()
	require.Len(t, trace, 1)
	assert.Equal(t, StatusDelegationError, trace[0].Status)
	assert.Contains(t, trace[0].Error, "bridge exploded")
}

func TestConnectivityStatus(t *testing.T) {
	ctx := context.Background()

	sim := newEngine(t, nil).ConnectivityStatus(ctx)
	assert.Equal(t, "simulation_only", sim.Mode)
	assert.False(t, sim.RealAgentsEnabled)
	assert.Equal(t, "Real agent bridge not available - using simulation mode", sim.Message)

	live := newEngine(t, NewLLMBridge(&fakeChatModel{}, staticHeartbeat{})).ConnectivityStatus(ctx)
	assert.Equal(t, "real_agents_with_fallback", live.Mode)
	assert.True(t, live.RealAgentsEnabled)
	assert.Equal(t, 5, live.AvailableAgents)
	assert.Equal(t, "Real agent bridge active - 5/5 agents available", live.Message)

	down := newEngine(t, NewLLMBridge(&fakeChatModel{}, staticHeartbeat{err: errors.New("down")})).ConnectivityStatus(ctx)
	assert.Equal(t, 0, down.AvailableAgents)
	assert.False(t, down.Agents["qa"])

	broken := newEngine(t, panicBridge{}).ConnectivityStatus(ctx)
	assert.Equal(t, "simulation_fallback", broken.Mode)
	assert.Contains(t, broken.Message, "Real agent bridge failed: ")
	assert.Contains(t, broken.Message, " - using simulation mode")
}

func TestLLMBridgeProbeWithoutHeartbeat(t *testing.T) {
	fake := &fakeChatModel{reply: func(string, string) (string, error) { return "ready", nil }}
	b := NewLLMBridge(fake, nil)
	require.NoError(t, b.Probe(context.Background(), Agent{Name: "qa"}))
	assert.EqualValues(t, 1, fake.calls.Load())

	_, err := b.CallAgent(context.Background(), Agent{Name: "qa"}, "x", Mode("Other"))
	assert.Error(t, err)
}

func TestParseVerdictDefaults(t *testing.T) {
	resp, err := parseVerdict("qa", "inq", `{"relevant": false}`)
	require.NoError(t, err)
	assert.Equal(t, "No", resp.Relevant)
	assert.Equal(t, 3, resp.Strength)
	assert.Equal(t, "Partial", resp.Claim)

	_, err = parseVerdict("qa", "inq", `{"relevant": maybe}`)
	assert.Error(t, err)
}

func TestWorkflowHops(t *testing.T) {
	hops := WorkflowHops()
	require.Len(t, hops, 5)
	assert.Equal(t, Hop{From: "boss", To: "product-manager"}, hops[0])
	assert.Equal(t, Hop{From: "engineer", To: "qa"}, hops[4])
}
