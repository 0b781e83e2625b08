package internal

import (
	"fmt"
	"sort"
	"strings"
)

// Agent is a configured external text-generation participant
type Agent struct {
	ID          string
	Name        string
	Command     []string // invocation descriptor; the prompt is appended as the last argument
	Description string
	NeedsGit    bool // run inside a freshly initialised git repository
}

// Info returns the persisted identity of the agent
func (a Agent) Info() AgentInfo {
	return AgentInfo{ID: a.ID, Name: a.DisplayName()}
}

// DisplayName falls back to the id when no name is configured
func (a Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Registry is the immutable set of agents known to a process. It is built once from
// configuration and only replaced, never mutated, between sessions.
type Registry struct {
	agents map[string]Agent
	order  []string
}

// NewRegistry builds a registry from the given agents. Ids must be unique and non-empty.
func NewRegistry(agents ...Agent) (*Registry, error) {
	r := &Registry{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return nil, &ConfigError{Field: "agents", Err: fmt.Errorf("agent with empty id")}
		}
		if _, dup := r.agents[id]; dup {
			return nil, &ConfigError{Field: "agents." + id, Err: fmt.Errorf("duplicate agent id")}
		}
		if len(a.Command) == 0 {
			return nil, &ConfigError{Field: "agents." + id + ".command", Err: fmt.Errorf("command is required")}
		}
		a.ID = id
		a.Command = append([]string(nil), a.Command...)
		r.agents[id] = a
		r.order = append(r.order, id)
	}
	sort.Strings(r.order)
	return r, nil
}

// Get looks up an agent by id
func (r *Registry) Get(id string) (Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return Agent{}, &ConfigError{Field: "agents", Err: fmt.Errorf("%w: %q (available: %s)", ErrUnknownAgent, id, strings.Join(r.order, ", "))}
	}
	return a, nil
}

// Select resolves ids to agents in the order given, dropping blanks and duplicates.
// An empty result is a configuration error: there is nothing to deliberate with.
func (r *Registry) Select(ids []string) ([]Agent, error) {
	seen := make(map[string]bool, len(ids))
	var agents []Agent
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		a, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		seen[id] = true
		agents = append(agents, a)
	}
	if len(agents) == 0 {
		return nil, &ConfigError{Field: "agents", Err: ErrNoAgents}
	}
	return agents, nil
}

// All returns every agent sorted by id
func (r *Registry) All() []Agent {
	out := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Len returns the number of registered agents
func (r *Registry) Len() int {
	return len(r.order)
}

// ParseAgentList splits a comma-separated agent list such as "gemini, claude"
func ParseAgentList(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
