package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version is stamped into every persisted session
var Version = "dev"

const (
	defaultMaxRounds = 3
	defaultMinVotes  = 2
)

// State is a deliberation controller state
type State int

const (
	StateIdle State = iota
	StateRoundInProgress
	StateEvaluating
	StateNextRound
	StateExhausted
	StateConverged
	StateMajorityDecision
	StateNoConsensus
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRoundInProgress:
		return "round_in_progress"
	case StateEvaluating:
		return "evaluating"
	case StateNextRound:
		return "next_round"
	case StateExhausted:
		return "exhausted"
	case StateConverged:
		return "converged"
	case StateMajorityDecision:
		return "majority_decision"
	case StateNoConsensus:
		return "no_consensus"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can follow s
func (s State) Terminal() bool {
	return s == StateConverged || s == StateMajorityDecision || s == StateNoConsensus
}

// Request is the input to one deliberation
type Request struct {
	Question string
	Context  string
	Agents   []Agent
}

// Deliberator drives rounds 1..MaxRounds until the agents converge or the rounds run out
type Deliberator struct {
	Executor  *RoundExecutor
	Prompts   *PromptBuilder
	Analyzer  *Analyzer
	Metrics   *Metrics
	MaxRounds int
	// MinVotes is the number of parseable choices required before unanimity counts as
	// consensus. It is clamped to the number of agents.
	MinVotes int

	// OnState is called on every controller transition
	OnState func(state State, round int)
	// OnRound is called after each round has been recorded
	OnRound func(round Round, analysis Analysis)
}

// NewDeliberator creates a controller with default prompt building and analysis
func NewDeliberator(executor *RoundExecutor) *Deliberator {
	return &Deliberator{
		Executor:  executor,
		Prompts:   NewPromptBuilder(),
		Analyzer:  NewAnalyzer(nil),
		MaxRounds: defaultMaxRounds,
		MinVotes:  defaultMinVotes,
	}
}

// Run deliberates until a terminal state and returns the session with its verdict.
// Cancelling ctx aborts the current round; rounds already recorded are kept, the
// session is marked interrupted and the context error is returned alongside it.
func (d *Deliberator) Run(ctx context.Context, req Request) (*Session, error) {
	return d.run(ctx, req, ModeDeliberate, d.MaxRounds)
}

// Ask runs a single round without deliberation, the quick parallel query mode
func (d *Deliberator) Ask(ctx context.Context, req Request) (*Session, error) {
	return d.run(ctx, req, ModeAsk, 1)
}

func (d *Deliberator) run(ctx context.Context, req Request, mode string, maxRounds int) (*Session, error) {
	if len(req.Agents) == 0 {
		return nil, &ConfigError{Field: "agents", Err: ErrNoAgents}
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, &ConfigError{Field: "question", Err: fmt.Errorf("question is empty")}
	}
	if maxRounds < 1 {
		return nil, &ConfigError{Field: "deliberation.max_rounds", Err: fmt.Errorf("must be at least 1, got %d", maxRounds)}
	}

	sess := newSession(req, mode, maxRounds)
	log := Logger().With("session", ShortID(sess.ID))
	log.Debug("deliberation started", "agents", len(req.Agents), "max_rounds", maxRounds, "mode", mode)

	d.transition(StateIdle, 0)

	var (
		previous []AgentResponse
		analysis Analysis
	)
	for r := 1; r <= maxRounds; r++ {
		if err := ctx.Err(); err != nil {
			return d.interrupt(sess), err
		}

		prompts, err := d.Prompts.BuildRound(r, req.Question, req.Context, req.Agents, previous)
		if err != nil {
			return d.interrupt(sess), fmt.Errorf("building round %d prompts: %w", r, err)
		}

		d.transition(StateRoundInProgress, r)
		started := time.Now()
		responses := d.Executor.Execute(ctx, r, req.Agents, prompts)

		// A round cut short by cancellation holds cancellation artifacts, not answers.
		if err := ctx.Err(); err != nil {
			return d.interrupt(sess), err
		}

		d.transition(StateEvaluating, r)
		analysis = d.Analyzer.Analyze(responses)
		round := Round{Number: r, Responses: responses, Choices: analysis.Choices}
		sess.appendRound(round)

		log.Debug("round complete", "round", r, "tally", analysis.Tally.String(), "elapsed", time.Since(started).Round(time.Millisecond))
		if d.Metrics != nil {
			d.Metrics.ObserveRound(time.Since(started))
		}
		if d.OnRound != nil {
			d.OnRound(round, analysis)
		}

		if d.converged(analysis, len(req.Agents)) {
			d.finish(sess, StateConverged, Verdict{Kind: VerdictConsensus, Choice: analysis.Choice, Tally: analysis.Tally, Round: r})
			return sess, nil
		}

		if r < maxRounds {
			d.transition(StateNextRound, r+1)
			previous = responses
		}
	}

	d.transition(StateExhausted, maxRounds)
	if leader, ok := analysis.Tally.Leader(); ok {
		d.finish(sess, StateMajorityDecision, Verdict{Kind: VerdictMajority, Choice: leader, Tally: analysis.Tally, Round: maxRounds})
	} else {
		d.finish(sess, StateNoConsensus, Verdict{Kind: VerdictNoConsensus, Tally: analysis.Tally, Round: maxRounds})
	}
	return sess, nil
}

// converged applies the quorum on top of the analyzer's unanimity check.
// A single-agent session is its own quorum: it converges on that agent's first
// parseable choice and otherwise runs to exhaustion like any other session.
func (d *Deliberator) converged(a Analysis, agentCount int) bool {
	if agentCount == 1 {
		return a.Responders == 1
	}
	return a.Consensus && a.Responders >= d.quorum(agentCount)
}

func (d *Deliberator) quorum(agentCount int) int {
	q := d.MinVotes
	if q < 1 {
		q = 1
	}
	if q > agentCount {
		q = agentCount
	}
	return q
}

// interrupt concludes a cancelled session without a decision, keeping recorded rounds
func (d *Deliberator) interrupt(sess *Session) *Session {
	sess.Interrupted = true
	v := Verdict{Kind: VerdictNoConsensus, Tally: Tally{}}
	if last := sess.LastRound(); last != nil {
		v.Round = last.Number
		for _, c := range last.Choices {
			v.Tally[c]++
		}
	}
	d.finish(sess, StateNoConsensus, v)
	LogWarn("deliberation interrupted after %d round(s)", len(sess.Rounds))
	return sess
}

func (d *Deliberator) finish(sess *Session, state State, v Verdict) {
	sess.conclude(v)
	d.transition(state, v.Round)
	if d.Metrics != nil {
		d.Metrics.ObserveVerdict(v.Kind)
	}
	Logger().Debug("deliberation finished", "verdict", sess.Verdict.String())
}

func (d *Deliberator) transition(state State, round int) {
	LogDebug("state -> %s (round %d)", state, round)
	if d.OnState != nil {
		d.OnState(state, round)
	}
}

func newSession(req Request, mode string, maxRounds int) *Session {
	infos := make([]AgentInfo, 0, len(req.Agents))
	for _, a := range req.Agents {
		infos = append(infos, a.Info())
	}
	return &Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Version:   Version,
		Mode:      mode,
		Timestamp: time.Now(),
		Question:  req.Question,
		Context:   req.Context,
		Agents:    infos,
		MaxRounds: maxRounds,
	}
}
