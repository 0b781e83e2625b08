package internal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewRoundProgress_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	if p := NewRoundProgress(&buf); p.color {
		t.Error("progress written to a buffer should not be styled")
	}
}

func TestRoundProgress_Observer(t *testing.T) {
	var buf bytes.Buffer
	p := NewRoundProgress(&buf)
	obs := p.Observer()

	agent := Agent{ID: "a1", Name: "Alpha"}
	obs.OnAgentStart(1, agent)
	obs.OnAgentComplete(1, AgentResponse{AgentID: "a1", Name: "Alpha", Success: true, Elapsed: 1240 * time.Millisecond})
	obs.OnAgentComplete(2, AgentResponse{AgentID: "a1", Name: "Alpha", Error: "exit status 1: quota\nmore detail", Elapsed: 300 * time.Millisecond})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"… round 1: asking Alpha",
		"✓ round 1: Alpha answered 1.2s",
		"✗ round 2: Alpha failed: exit status 1: quota 300ms",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRoundProgress_RoundDone(t *testing.T) {
	var buf bytes.Buffer
	p := NewRoundProgress(&buf)

	p.RoundDone(Round{Number: 2}, Analysis{Tally: Tally{"A": 2, NoChoice: 1}})

	if got := strings.TrimSpace(buf.String()); got != "• round 2 tally {A:2, none:1}" {
		t.Errorf("RoundDone() printed %q", got)
	}
}

func TestRoundProgress_ConcurrentRound(t *testing.T) {
	var buf bytes.Buffer
	p := NewRoundProgress(&buf)
	inv := NewScriptedInvoker(map[string][]string{"a1": {"A"}, "a2": {"B"}, "a3": {"C"}, "a4": {"D"}})

	NewRoundExecutor(inv).WithObserver(p.Observer()).Execute(context.Background(), 1, CreateTestAgents(4), nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 8 {
		t.Errorf("got %d progress lines, want one start and one completion per agent:\n%s", len(lines), buf.String())
	}
}
