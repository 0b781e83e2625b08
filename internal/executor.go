package internal

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RoundObserver receives per-agent progress callbacks while a round runs. Callbacks
// are invoked from the worker goroutines and must be safe for concurrent use.
type RoundObserver struct {
	OnAgentStart    func(round int, agent Agent)
	OnAgentComplete func(round int, resp AgentResponse)
}

// RoundExecutor fans one round out to every agent concurrently and joins the results
type RoundExecutor struct {
	invoker  Invoker
	metrics  *Metrics
	observer *RoundObserver
}

// NewRoundExecutor creates a RoundExecutor around the given invoker
func NewRoundExecutor(invoker Invoker) *RoundExecutor {
	return &RoundExecutor{invoker: invoker}
}

// WithMetrics records every agent call in m
func (e *RoundExecutor) WithMetrics(m *Metrics) *RoundExecutor {
	e.metrics = m
	return e
}

// WithObserver registers progress callbacks
func (e *RoundExecutor) WithObserver(o *RoundObserver) *RoundExecutor {
	e.observer = o
	return e
}

// Execute invokes every agent with its prompt and returns one response per agent, in
// agent order. Agents missing from prompts receive an empty prompt. The round is only
// returned once every call has resolved; one agent's failure never cancels its siblings.
func (e *RoundExecutor) Execute(ctx context.Context, round int, agents []Agent, prompts map[string]string) []AgentResponse {
	responses := make([]AgentResponse, len(agents))

	// Workers always return nil, so the group context is only ever cancelled by the
	// caller; sibling calls are isolated from each other.
	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range agents {
		g.Go(func() error {
			if e.observer != nil && e.observer.OnAgentStart != nil {
				e.observer.OnAgentStart(round, agent)
			}

			resp := e.invoke(gctx, agent, prompts[agent.ID])
			responses[i] = resp

			if e.metrics != nil {
				e.metrics.ObserveCall(resp)
			}
			if e.observer != nil && e.observer.OnAgentComplete != nil {
				e.observer.OnAgentComplete(round, resp)
			}
			return nil
		})
	}
	_ = g.Wait()

	return responses
}

// invoke shields the round from a misbehaving Invoker: identity fields are forced to the
// requested agent and a panic becomes a failed response
func (e *RoundExecutor) invoke(ctx context.Context, agent Agent, prompt string) (resp AgentResponse) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			LogError("agent %s invoker panicked: %v", agent.ID, r)
			resp = AgentResponse{Error: "invoker panic", Elapsed: time.Since(start)}
		}
		resp.AgentID = agent.ID
		resp.Name = agent.DisplayName()
		if !resp.Success && resp.Error == "" {
			resp.Error = "failed"
		}
	}()
	return e.invoker.Invoke(ctx, agent, prompt)
}
