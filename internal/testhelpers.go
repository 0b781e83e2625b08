package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CreateTestSession creates a concluded two-agent, two-round session with sample data
func CreateTestSession(id string) *Session {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return &Session{
		ID:        id,
		Version:   "test",
		Mode:      ModeDeliberate,
		Timestamp: ts,
		Question:  "Which storage engine should we use? A) SQLite B) Postgres",
		Context:   "Single-node deployment",
		Agents: []AgentInfo{
			{ID: "alpha", Name: "Alpha"},
			{ID: "beta", Name: "Beta"},
		},
		MaxRounds: 3,
		Rounds: []Round{
			{
				Number: 1,
				Responses: []AgentResponse{
					{AgentID: "alpha", Name: "Alpha", Response: "My recommendation: Option A", Success: true, Elapsed: time.Second},
					{AgentID: "beta", Name: "Beta", Response: "My recommendation: Option B", Success: true, Elapsed: 2 * time.Second},
				},
				Choices: map[string]string{"alpha": "A", "beta": "B"},
			},
			{
				Number: 2,
				Responses: []AgentResponse{
					{AgentID: "alpha", Name: "Alpha", Response: "I agree. My recommendation: Option B", Success: true, Elapsed: time.Second},
					{AgentID: "beta", Name: "Beta", Response: "My recommendation: Option B", Success: true, Elapsed: time.Second},
				},
				Choices: map[string]string{"alpha": "B", "beta": "B"},
			},
		},
		Verdict: &Verdict{Kind: VerdictConsensus, Choice: "B", Tally: Tally{"B": 2}, Round: 2},
	}
}

// CreateTestAgents returns agents with ids a1..an and placeholder commands
func CreateTestAgents(n int) []Agent {
	agents := make([]Agent, 0, n)
	for i := 1; i <= n; i++ {
		agents = append(agents, Agent{
			ID:      fmt.Sprintf("a%d", i),
			Name:    fmt.Sprintf("Agent %d", i),
			Command: []string{"true"},
		})
	}
	return agents
}

// ScriptedInvoker answers from a per-agent script of responses, one per call. Once an
// agent's script is exhausted its last entry repeats. Agents without a script fail.
type ScriptedInvoker struct {
	Scripts map[string][]AgentResponse

	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string
}

// NewScriptedInvoker creates an invoker from plain response texts; an empty text
// scripts a failure
func NewScriptedInvoker(texts map[string][]string) *ScriptedInvoker {
	scripts := make(map[string][]AgentResponse, len(texts))
	for id, list := range texts {
		for _, text := range list {
			resp := AgentResponse{Response: text, Success: true}
			if text == "" {
				resp = AgentResponse{Error: "empty response"}
			}
			scripts[id] = append(scripts[id], resp)
		}
	}
	return &ScriptedInvoker{Scripts: scripts}
}

// Invoke implements Invoker
func (s *ScriptedInvoker) Invoke(ctx context.Context, agent Agent, prompt string) AgentResponse {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
		s.prompts = make(map[string][]string)
	}
	n := s.calls[agent.ID]
	s.calls[agent.ID]++
	s.prompts[agent.ID] = append(s.prompts[agent.ID], prompt)
	script := s.Scripts[agent.ID]
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return AgentResponse{AgentID: agent.ID, Name: agent.DisplayName(), Error: "cancelled"}
	}
	if len(script) == 0 {
		return AgentResponse{AgentID: agent.ID, Name: agent.DisplayName(), Error: "start: no script"}
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	resp := script[n]
	resp.AgentID = agent.ID
	resp.Name = agent.DisplayName()
	return resp
}

// Calls returns how many times agent id was invoked
func (s *ScriptedInvoker) Calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

// Prompts returns every prompt sent to agent id, in call order
func (s *ScriptedInvoker) Prompts(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts[id]...)
}
