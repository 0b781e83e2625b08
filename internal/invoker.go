package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultDiagnosticChars = 500
	defaultWaitDelay       = 2 * time.Second
)

// Invoker runs one agent for one prompt. Implementations must never return a Go error
// or panic past their boundary: every failure is reported through AgentResponse.
type Invoker interface {
	Invoke(ctx context.Context, agent Agent, prompt string) AgentResponse
}

// InvokerFunc is an adapter to allow the use of ordinary functions as Invokers
type InvokerFunc func(ctx context.Context, agent Agent, prompt string) AgentResponse

// Invoke calls f(ctx, agent, prompt)
func (f InvokerFunc) Invoke(ctx context.Context, agent Agent, prompt string) AgentResponse {
	return f(ctx, agent, prompt)
}

// ProcessInvoker executes agents as local processes, passing the prompt as the final
// argument and reading the answer from stdout
type ProcessInvoker struct {
	Timeout            time.Duration
	MinResponseChars   int
	MaxDiagnosticChars int
	// WaitDelay bounds how long Wait blocks on inherited pipes after the process is killed
	WaitDelay time.Duration
}

// NewProcessInvoker creates a ProcessInvoker with the given per-call timeout
func NewProcessInvoker(timeout time.Duration) *ProcessInvoker {
	return &ProcessInvoker{
		Timeout:            timeout,
		MaxDiagnosticChars: defaultDiagnosticChars,
		WaitDelay:          defaultWaitDelay,
	}
}

// Invoke runs the agent and converts every outcome into an AgentResponse
func (p *ProcessInvoker) Invoke(ctx context.Context, agent Agent, prompt string) AgentResponse {
	start := time.Now()
	resp := AgentResponse{AgentID: agent.ID, Name: agent.DisplayName()}

	text, err := p.run(ctx, agent, prompt)
	resp.Elapsed = time.Since(start)

	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Response = text
	resp.Success = true
	return resp
}

func (p *ProcessInvoker) run(parent context.Context, agent Agent, prompt string) (string, error) {
	if len(agent.Command) == 0 {
		return "", &InvokeError{AgentID: agent.ID, Reason: "start", Detail: "empty command"}
	}

	ctx := parent
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, p.Timeout)
		defer cancel()
	}

	workDir := ""
	if agent.NeedsGit {
		dir, err := prepareGitDir(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", p.classify(parent, ctx, agent, err, "")
			}
			// the agent never ran, so git's exit status is not the agent's
			return "", &InvokeError{AgentID: agent.ID, Reason: "start", Detail: TruncateText(err.Error(), p.diagnosticChars())}
		}
		defer func() { _ = os.RemoveAll(dir) }()
		workDir = dir
	}

	args := append(append([]string(nil), agent.Command[1:]...), prompt)
	cmd := exec.CommandContext(ctx, agent.Command[0], args...)
	cmd.Dir = workDir
	cmd.WaitDelay = p.waitDelay()
	configureProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	LogDebug("invoking %s (%d prompt chars)", agent.ID, len(prompt))
	if err := cmd.Run(); err != nil {
		diag := stderr.String()
		if strings.TrimSpace(diag) == "" {
			diag = stdout.String()
		}
		return "", p.classify(parent, ctx, agent, err, diag)
	}

	text := strings.TrimSpace(stdout.String())
	if len(text) == 0 || len(text) < p.MinResponseChars {
		return "", &InvokeError{
			AgentID: agent.ID,
			Reason:  "empty response",
			Detail:  TruncateText(strings.TrimSpace(stderr.String()), p.diagnosticChars()),
		}
	}
	return text, nil
}

// classify maps a process error to an InvokeError. The deadline check comes first: once
// the call context expires the process is killed and Run reports the kill signal.
func (p *ProcessInvoker) classify(parent, ctx context.Context, agent Agent, err error, diag string) error {
	switch {
	case parent.Err() != nil:
		return &InvokeError{AgentID: agent.ID, Reason: "cancelled"}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &InvokeError{AgentID: agent.ID, Reason: "timeout"}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &InvokeError{
			AgentID: agent.ID,
			Reason:  fmt.Sprintf("exit status %d", exitErr.ExitCode()),
			Detail:  TruncateText(strings.TrimSpace(diag), p.diagnosticChars()),
		}
	}
	return &InvokeError{AgentID: agent.ID, Reason: "start", Detail: TruncateText(err.Error(), p.diagnosticChars())}
}

func (p *ProcessInvoker) diagnosticChars() int {
	if p.MaxDiagnosticChars > 0 {
		return p.MaxDiagnosticChars
	}
	return defaultDiagnosticChars
}

func (p *ProcessInvoker) waitDelay() time.Duration {
	if p.WaitDelay > 0 {
		return p.WaitDelay
	}
	return defaultWaitDelay
}

// prepareGitDir creates a scratch directory holding an empty git repository, for agents
// that refuse to run outside one
func prepareGitDir(ctx context.Context) (string, error) {
	dir, err := os.MkdirTemp("", "council-agent-*")
	if err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, "git", "init", "--quiet")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(dir)
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return "", fmt.Errorf("git init: %w: %s", err, msg)
		}
		return "", fmt.Errorf("git init: %w", err)
	}
	return dir, nil
}
