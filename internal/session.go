package internal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// shortIDLen is the length of the id shown in listings and file names
const shortIDLen = 8

// ShortID returns the last eight hex digits of id. Time-ordered ids share their leading
// digits for about a minute, so the random tail is what tells sessions apart.
func ShortID(id string) string {
	hex := strings.ReplaceAll(id, "-", "")
	if len(hex) <= shortIDLen {
		return hex
	}
	return hex[len(hex)-shortIDLen:]
}

// NoChoice marks an agent whose response carried no parseable choice, or that failed
const NoChoice = "none"

// Session modes
const (
	ModeDeliberate = "deliberate"
	ModeAsk        = "ask"
)

// Session represents one council invocation: the question, the participants, every
// round that ran, and the verdict it ended with
type Session struct {
	ID          string      `json:"id" yaml:"id"`
	Version     string      `json:"version" yaml:"version"`
	Mode        string      `json:"mode" yaml:"mode"`
	Timestamp   time.Time   `json:"timestamp" yaml:"timestamp"`
	Question    string      `json:"question" yaml:"question"`
	Context     string      `json:"context,omitempty" yaml:"context,omitempty"`
	Agents      []AgentInfo `json:"agents" yaml:"agents"`
	MaxRounds   int         `json:"max_rounds" yaml:"max_rounds"`
	Rounds      []Round     `json:"rounds" yaml:"rounds"`
	Verdict     *Verdict    `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Interrupted bool        `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// AgentInfo is the persisted identity of a participating agent
type AgentInfo struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// AgentResponse is the outcome of one agent call within one round
type AgentResponse struct {
	AgentID  string        `json:"agent" yaml:"agent"`
	Name     string        `json:"name" yaml:"name"`
	Response string        `json:"response" yaml:"response"`
	Success  bool          `json:"success" yaml:"success"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Round holds the responses of one synchronized round, in agent order
type Round struct {
	Number    int               `json:"round" yaml:"round"`
	Responses []AgentResponse   `json:"responses" yaml:"responses"`
	Choices   map[string]string `json:"choices" yaml:"choices"`
}

// VerdictKind classifies how a session ended
type VerdictKind string

const (
	VerdictConsensus   VerdictKind = "consensus"
	VerdictMajority    VerdictKind = "majority"
	VerdictNoConsensus VerdictKind = "no_consensus"
)

// Verdict is the terminal outcome of a session
type Verdict struct {
	Kind   VerdictKind `json:"kind" yaml:"kind"`
	Choice string      `json:"choice,omitempty" yaml:"choice,omitempty"`
	Tally  Tally       `json:"tally,omitempty" yaml:"tally,omitempty"`
	Round  int         `json:"round" yaml:"round"`
}

// String renders the verdict the way the console and markdown exports show it
func (v Verdict) String() string {
	switch v.Kind {
	case VerdictConsensus:
		return fmt.Sprintf("consensus on %s (round %d)", v.Choice, v.Round)
	case VerdictMajority:
		return fmt.Sprintf("majority for %s %s", v.Choice, v.Tally)
	default:
		return fmt.Sprintf("no consensus %s", v.Tally)
	}
}

// Tally counts choices across the agents of a round. NoChoice is counted under its own key
// and never competes for the lead.
type Tally map[string]int

// Leader returns the choice with a strict plurality among parseable choices
func (t Tally) Leader() (string, bool) {
	best, bestCount, tied := "", 0, false
	for choice, count := range t {
		if choice == NoChoice || count == 0 {
			continue
		}
		switch {
		case count > bestCount:
			best, bestCount, tied = choice, count, false
		case count == bestCount:
			tied = true
		}
	}
	if bestCount == 0 || tied {
		return "", false
	}
	return best, true
}

// String formats the tally deterministically, e.g. {A:2, B:1, none:1}
func (t Tally) String() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		if k != NoChoice {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := t[NoChoice]; ok {
		keys = append(keys, NoChoice)
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, t[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// LastRound returns the most recently recorded round, or nil
func (s *Session) LastRound() *Round {
	if len(s.Rounds) == 0 {
		return nil
	}
	return &s.Rounds[len(s.Rounds)-1]
}

// Concluded reports whether a verdict has been set
func (s *Session) Concluded() bool {
	return s.Verdict != nil
}

func (s *Session) appendRound(r Round) {
	s.Rounds = append(s.Rounds, r)
}

func (s *Session) conclude(v Verdict) {
	if s.Verdict != nil {
		return
	}
	s.Verdict = &v
}

// Summary returns a one-line description used by list views and the store index
func (s *Session) Summary() string {
	if s.Verdict == nil {
		return "pending"
	}
	return s.Verdict.String()
}
