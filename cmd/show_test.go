package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Sean-Kenneth-Doherty/council/internal"
)

const showSessionID = "0195e2f4-8b1c-7d3a-9f00-123456789abc"

func TestShowCommand(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)
	s := internal.CreateTestSession(showSessionID)
	s.Rounds[0].Responses[0].Response = strings.Repeat("long answer ", 200) + "My recommendation: Option A"
	if err := internal.NewFileStore(env.dataDir).Save(s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
		wantErr bool
	}{
		{
			name:    "full session by prefix",
			args:    []string{"show", "0195e2"},
			want:    []string{"Which storage engine", "ROUND 1", "ROUND 2", "FINAL CONSENSUS: B", "Alpha", "..."},
			notWant: []string{"Option A\n"},
		},
		{
			name: "unclipped",
			args: []string{"show", "--full", showSessionID},
			want: []string{"long answer My recommendation: Option A"},
		},
		{
			name:    "single round",
			args:    []string{"show", "--round", "2", "0195e2"},
			want:    []string{"ROUND 2", "I agree"},
			notWant: []string{"ROUND 1"},
		},
		{
			name: "markdown",
			args: []string{"show", "--markdown", "0195e2"},
			want: []string{"Council session", "Consensus: B", "Round 2"},
		},
		{
			name:    "round out of range",
			args:    []string{"show", "--round", "3", "0195e2"},
			wantErr: true,
		},
		{
			name:    "unknown id",
			args:    []string{"show", "ffff"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeCommand(t, env, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("show error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(stdout, w) {
					t.Errorf("output missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(stdout, w) {
					t.Errorf("output should not contain %q", w)
				}
			}
		})
	}
}

func TestRenderVerdict(t *testing.T) {
	tests := []struct {
		name        string
		verdict     *internal.Verdict
		rounds      int
		interrupted bool
		want        []string
	}{
		{
			name:    "consensus",
			verdict: &internal.Verdict{Kind: internal.VerdictConsensus, Choice: "B", Round: 2},
			rounds:  2,
			want:    []string{"FINAL CONSENSUS: B", "(round 2)"},
		},
		{
			name:    "majority",
			verdict: &internal.Verdict{Kind: internal.VerdictMajority, Choice: "A", Tally: internal.Tally{"A": 2, "B": 1}, Round: 3},
			rounds:  3,
			want:    []string{"MAJORITY DECISION: A", "after 3 round(s)", "Final positions: {A:2, B:1}"},
		},
		{
			name:    "no consensus",
			verdict: &internal.Verdict{Kind: internal.VerdictNoConsensus, Tally: internal.Tally{"A": 1, "B": 1}, Round: 3},
			rounds:  3,
			want:    []string{"NO CONSENSUS after 3 round(s)", "{A:1, B:1}"},
		},
		{
			name:        "interrupted",
			verdict:     &internal.Verdict{Kind: internal.VerdictNoConsensus, Tally: internal.Tally{}, Round: 1},
			rounds:      1,
			interrupted: true,
			want:        []string{"NO CONSENSUS after 1 round(s)", "interrupted"},
		},
		{
			name: "pending",
			want: []string{"No verdict recorded"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &internal.Session{Verdict: tt.verdict, Rounds: make([]internal.Round, tt.rounds), Interrupted: tt.interrupted}
			var buf bytes.Buffer
			renderVerdict(&buf, s)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("renderVerdict() missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestRenderResponse(t *testing.T) {
	var buf bytes.Buffer
	renderResponse(&buf, internal.AgentResponse{Name: "Alpha", Response: "My recommendation: Option A", Success: true, Elapsed: 1520 * time.Millisecond}, "A", 0)
	out := buf.String()
	for _, w := range []string{"Alpha", "→ A", "1.5s", "My recommendation: Option A"} {
		if !strings.Contains(out, w) {
			t.Errorf("success output missing %q:\n%s", w, out)
		}
	}

	buf.Reset()
	renderResponse(&buf, internal.AgentResponse{Name: "Beta", Error: "timeout"}, internal.NoChoice, 0)
	out = buf.String()
	if !strings.Contains(out, "Error: timeout") || strings.Contains(out, "→") {
		t.Errorf("failure output:\n%s", out)
	}
}

func TestTallyOf(t *testing.T) {
	round := internal.Round{
		Responses: []internal.AgentResponse{{AgentID: "a"}, {AgentID: "b"}, {AgentID: "c"}},
		Choices:   map[string]string{"a": "A", "b": "A"},
	}
	if got := tallyOf(round).String(); got != "{A:2, none:1}" {
		t.Errorf("tallyOf() = %s, want {A:2, none:1}", got)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer sentence", 10, "a longe..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"unlimited", 0, "unlimited"},
	}
	for _, tt := range tests {
		if got := clip(tt.in, tt.max); got != tt.want {
			t.Errorf("clip(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatCreated(t *testing.T) {
	if got := formatCreated(time.Time{}); got != "—" {
		t.Errorf("formatCreated(zero) = %q", got)
	}
	old := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := formatCreated(old); got != "2020-01-02" {
		t.Errorf("formatCreated(old) = %q, want 2020-01-02", got)
	}
	if got := formatCreated(time.Now()); !strings.HasPrefix(got, "Today") {
		t.Errorf("formatCreated(now) = %q, want Today prefix", got)
	}
}
