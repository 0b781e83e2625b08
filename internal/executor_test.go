package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRoundExecutor_PreservesAgentOrder(t *testing.T) {
	agents := CreateTestAgents(4)
	// later agents answer first
	inv := InvokerFunc(func(ctx context.Context, agent Agent, prompt string) AgentResponse {
		delay := map[string]time.Duration{"a1": 80, "a2": 60, "a3": 40, "a4": 20}[agent.ID]
		time.Sleep(delay * time.Millisecond)
		return AgentResponse{Response: prompt, Success: true}
	})

	prompts := map[string]string{"a1": "p1", "a2": "p2", "a3": "p3", "a4": "p4"}
	responses := NewRoundExecutor(inv).Execute(context.Background(), 1, agents, prompts)

	if len(responses) != len(agents) {
		t.Fatalf("Execute() returned %d responses, want %d", len(responses), len(agents))
	}
	for i, a := range agents {
		if responses[i].AgentID != a.ID {
			t.Errorf("responses[%d].AgentID = %q, want %q", i, responses[i].AgentID, a.ID)
		}
		if responses[i].Response != prompts[a.ID] {
			t.Errorf("responses[%d] answered prompt %q, want %q", i, responses[i].Response, prompts[a.ID])
		}
	}
}

func TestRoundExecutor_RunsAgentsConcurrently(t *testing.T) {
	agents := CreateTestAgents(3)
	inv := InvokerFunc(func(ctx context.Context, agent Agent, prompt string) AgentResponse {
		time.Sleep(300 * time.Millisecond)
		return AgentResponse{Response: "A", Success: true}
	})

	start := time.Now()
	NewRoundExecutor(inv).Execute(context.Background(), 1, agents, nil)
	if elapsed := time.Since(start); elapsed > 800*time.Millisecond {
		t.Errorf("Execute() took %s; agents should run in parallel", elapsed)
	}
}

func TestRoundExecutor_IsolatesFailures(t *testing.T) {
	agents := CreateTestAgents(3)
	inv := InvokerFunc(func(ctx context.Context, agent Agent, prompt string) AgentResponse {
		switch agent.ID {
		case "a1":
			panic("boom")
		case "a2":
			return AgentResponse{AgentID: "someone-else", Name: "Impostor", Response: "B", Success: true}
		default:
			return AgentResponse{Success: false}
		}
	})

	responses := NewRoundExecutor(inv).Execute(context.Background(), 1, agents, nil)

	if responses[0].Success || responses[0].Error != "invoker panic" {
		t.Errorf("panicking invoker: got %+v, want failed response with %q", responses[0], "invoker panic")
	}
	if responses[1].AgentID != "a2" || responses[1].Name != "Agent 2" || !responses[1].Success {
		t.Errorf("identity should be forced to the requested agent, got %+v", responses[1])
	}
	if responses[2].Error != "failed" {
		t.Errorf("failure without a reason: Error = %q, want %q", responses[2].Error, "failed")
	}
}

func TestRoundExecutor_Observer(t *testing.T) {
	agents := CreateTestAgents(3)
	inv := NewScriptedInvoker(map[string][]string{"a1": {"A"}, "a2": {""}})

	var started, completed, failed atomic.Int32
	obs := &RoundObserver{
		OnAgentStart: func(round int, agent Agent) {
			if round != 2 {
				t.Errorf("OnAgentStart round = %d, want 2", round)
			}
			started.Add(1)
		},
		OnAgentComplete: func(round int, resp AgentResponse) {
			completed.Add(1)
			if !resp.Success {
				failed.Add(1)
			}
		},
	}

	NewRoundExecutor(inv).WithObserver(obs).Execute(context.Background(), 2, agents, nil)

	if started.Load() != 3 || completed.Load() != 3 {
		t.Errorf("observer saw %d starts and %d completions, want 3 each", started.Load(), completed.Load())
	}
	// a2 scripted empty, a3 has no script
	if failed.Load() != 2 {
		t.Errorf("observer saw %d failures, want 2", failed.Load())
	}
}

func TestRoundExecutor_RecordsMetrics(t *testing.T) {
	agents := CreateTestAgents(2)
	inv := NewScriptedInvoker(map[string][]string{"a1": {"A"}})
	m := NewMetrics()

	NewRoundExecutor(inv).WithMetrics(m).Execute(context.Background(), 1, agents, nil)

	path := filepath.Join(t.TempDir(), "council.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text := string(data)
	if v := metricValue(text, "council_agent_calls_total{", `agent="a1"`, `status="success"`); v != "1" {
		t.Errorf("a1 success calls = %q, want 1\n%s", v, text)
	}
	if v := metricValue(text, "council_agent_calls_total{", `agent="a2"`, `reason="start"`); v != "1" {
		t.Errorf("a2 start failures = %q, want 1\n%s", v, text)
	}
}

// metricValue returns the sample value on the first exposition line starting with
// prefix and containing every label
func metricValue(text, prefix string, labels ...string) string {
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		match := true
		for _, l := range labels {
			if !strings.Contains(line, l) {
				match = false
				break
			}
		}
		if match {
			fields := strings.Fields(line)
			return fields[len(fields)-1]
		}
	}
	return ""
}
