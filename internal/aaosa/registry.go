// Package aaosa implements Determine/Fulfill delegation down the agent chain.
package aaosa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"
)

const Boss = "boss"

// Agent is one node of the delegation network. Tools lists the agents and
// coded tools it may call; the first entry is its down-chain agent.
type Agent struct {
	Name            string   `yaml:"name" json:"name"`
	Tools           []string `yaml:"tools" json:"tools"`
	Instructions    string   `yaml:"instructions" json:"instructions"`
	Keywords        []string `yaml:"keywords" json:"keywords"`
	FulfillTemplate string   `yaml:"fulfill_template" json:"fulfill_template"`
}

// Registry is the ordered set of agents
type Registry struct {
	agents []Agent
	index  map[string]int
}

// NewRegistry keeps agents in the given order. Duplicate names are rejected.
func NewRegistry(agents []Agent) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(agents))}
	for _, a := range agents {
		if a.Name == "" {
			return nil, errors.New("agent name cannot be empty")
		}
		if _, dup := r.index[a.Name]; dup {
			return nil, fmt.Errorf("duplicate agent %q", a.Name)
		}
		r.index[a.Name] = len(r.agents)
		r.agents = append(r.agents, a)
	}
	return r, nil
}

var coordinationTools = []string{"DocumentManager", "TaskManager", "CodeRepository"}

func withTools(next string, extra ...string) []string {
	tools := append([]string{next}, extra...)
	return append(tools, coordinationTools...)
}

// DefaultAgents is the software company network: boss and five specialists
func DefaultAgents() []Agent {
	return []Agent{
		{
			Name:         Boss,
			Tools:        []string{"product-manager", "DocumentManager", "TaskManager", "CodeRepository", "WorkflowEngine", "ParallelCoordinator"},
			Instructions: "Executive oversight and workflow orchestration",
		},
		{
			Name:            "product-manager",
			Tools:           withTools("architect"),
			Instructions:    "Product requirements and specifications",
			Keywords:        []string{"requirements", "prd", "product", "specification", "scope"},
			FulfillTemplate: "I have analyzed the requirements and created a comprehensive Product Requirements Document (PRD) with detailed specifications, acceptance criteria, and stakeholder requirements.",
		},
		{
			Name:            "architect",
			Tools:           withTools("project-manager"),
			Instructions:    "System architecture and technical design",
			Keywords:        []string{"architecture", "design", "technical", "system", "infrastructure"},
			FulfillTemplate: "I have designed a robust system architecture with scalable components, security considerations, and technical specifications that align with the product requirements.",
		},
		{
			Name:            "project-manager",
			Tools:           withTools("engineer"),
			Instructions:    "Project coordination and planning",
			Keywords:        []string{"project", "plan", "timeline", "coordination", "tasks"},
			FulfillTemplate: "I have created a detailed project plan with timelines, resource allocation, dependencies, and risk mitigation strategies for successful delivery.",
		},
		{
			Name:            "engineer",
			Tools:           withTools("qa"),
			Instructions:    "Implementation and development",
			Keywords:        []string{"implementation", "code", "development", "build", "programming"},
			FulfillTemplate: "I have implemented the solution according to specifications, following best practices for code quality, maintainability, and performance.",
		},
		{
			Name:            "qa",
			Tools:           withTools(Boss),
			Instructions:    "Quality assurance and testing",
			Keywords:        []string{"test", "quality", "validation", "verification", "qa"},
			FulfillTemplate: "I have conducted comprehensive testing including functional, integration, and performance tests with detailed test results and quality assessment.",
		},
	}
}

// DefaultRegistry is NewRegistry(DefaultAgents())
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultAgents())
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks up an agent by name
func (r *Registry) Get(name string) (Agent, bool) {
	i, ok := r.index[name]
	if !ok {
		return Agent{}, false
	}
	return r.agents[i], true
}

// Agents returns the agents in registry order
func (r *Registry) Agents() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Names returns the agent names in registry order
func (r *Registry) Names() []string {
	names := make([]string, len(r.agents))
	for i, a := range r.agents {
		names[i] = a.Name
	}
	return names
}

// DownChain is every agent except boss, in registry order
func (r *Registry) DownChain() []string {
	var names []string
	for _, a := range r.agents {
		if a.Name != Boss {
			names = append(names, a.Name)
		}
	}
	return names
}

// delegationGraph links each agent to every registered agent among its tools
func (r *Registry) delegationGraph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed())
	for _, a := range r.agents {
		if err := g.AddVertex(a.Name); err != nil {
			return nil, fmt.Errorf("add agent %s: %w", a.Name, err)
		}
	}
	for _, a := range r.agents {
		for _, tool := range a.Tools {
			if _, ok := r.index[tool]; !ok || tool == a.Name {
				continue
			}
			if err := g.AddEdge(a.Name, tool); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("link %s -> %s: %w", a.Name, tool, err)
			}
		}
	}
	return g, nil
}

// Chain returns the shortest delegation path from one agent to another, inclusive
func (r *Registry) Chain(from, to string) ([]string, error) {
	if _, ok := r.index[from]; !ok {
		return nil, fmt.Errorf("unknown agent %q", from)
	}
	if _, ok := r.index[to]; !ok {
		return nil, fmt.Errorf("unknown agent %q", to)
	}
	g, err := r.delegationGraph()
	if err != nil {
		return nil, err
	}
	path, err := graph.ShortestPath(g, from, to)
	if err != nil {
		return nil, fmt.Errorf("no delegation path from %s to %s: %w", from, to, err)
	}
	return path, nil
}

// Validate checks that every agent hands off to a registered agent first
func (r *Registry) Validate() error {
	var problems []string
	for _, a := range r.agents {
		if len(a.Tools) == 0 {
			problems = append(problems, fmt.Sprintf("%s has no tools", a.Name))
			continue
		}
		if _, ok := r.index[a.Tools[0]]; !ok {
			problems = append(problems, fmt.Sprintf("%s delegates to unknown agent %q", a.Name, a.Tools[0]))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid agent registry: %s", strings.Join(problems, "; "))
	}
	return nil
}
