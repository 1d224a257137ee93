package aaosa

import "time"

// Mode is the AAOSA call phase
type Mode string

const (
	ModeDetermine Mode = "Determine"
	ModeFulfill   Mode = "Fulfill"
)

// Trace statuses
const (
	StatusRealSuccess        = "real_agent_call_success"
	StatusRealFailedFallback = "real_agent_call_failed_fallback_simulation"
	StatusSimulation         = "simulation_mode"
	StatusDelegationError    = "delegation_error"
)

// Response carries both AAOSA views. Determine calls fill Relevant, Strength,
// Claim and Requirements; Fulfill calls fill Response.
type Response struct {
	Name         string   `json:"Name"`
	Inquiry      string   `json:"Inquiry"`
	Mode         Mode     `json:"Mode"`
	Relevant     string   `json:"Relevant,omitempty"`
	Strength     int      `json:"Strength,omitempty"`
	Claim        string   `json:"Claim,omitempty"`
	Requirements []string `json:"Requirements,omitempty"`
	Response     string   `json:"Response,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// IsRelevant reports a positive Determine verdict
func (r Response) IsRelevant() bool {
	return r.Relevant == "Yes"
}

// DetermineResponse builds a Determine verdict
func DetermineResponse(agent, inquiry string, relevant bool) Response {
	r := Response{
		Name:         agent,
		Inquiry:      inquiry,
		Mode:         ModeDetermine,
		Relevant:     "No",
		Strength:     3,
		Claim:        "Partial",
		Requirements: []string{},
	}
	if relevant {
		r.Relevant, r.Strength, r.Claim = "Yes", 8, "All"
	}
	return r
}

// FulfillResponse builds a Fulfill answer
func FulfillResponse(agent, inquiry, text string) Response {
	return Response{Name: agent, Inquiry: inquiry, Mode: ModeFulfill, Response: text}
}

// TraceRecord is one delegation hop
type TraceRecord struct {
	FromAgent string    `json:"from_agent"`
	ToAgent   string    `json:"to_agent"`
	Inquiry   string    `json:"inquiry"`
	Mode      Mode      `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Response  *Response `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// WorkflowResult is the outcome of ExecuteWorkflow
type WorkflowResult struct {
	Success             bool          `json:"success"`
	WorkflowType        string        `json:"workflow_type"`
	SessionID           string        `json:"session_id"`
	Otrace              []string      `json:"otrace"`
	DelegationResults   []Response    `json:"delegation_results"`
	TotalAgentsInvolved int           `json:"total_agents_involved"`
	DelegationTrace     []TraceRecord `json:"delegation_trace"`
	Message             string        `json:"message"`
}

// ConnectivityStatus describes whether live agents are reachable
type ConnectivityStatus struct {
	Mode              string          `json:"mode"`
	RealAgentsEnabled bool            `json:"real_agents_enabled"`
	Agents            map[string]bool `json:"agents,omitempty"`
	AvailableAgents   int             `json:"available_agents"`
	Message           string          `json:"message"`
	Error             string          `json:"error,omitempty"`
}
