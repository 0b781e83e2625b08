package internal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// RoundProgress prints per-agent and per-round progress lines while a deliberation runs
type RoundProgress struct {
	w     io.Writer
	color bool
	mu    sync.Mutex
}

// NewRoundProgress creates a progress printer on w; styling is applied only when w is a terminal
func NewRoundProgress(w io.Writer) *RoundProgress {
	return &RoundProgress{w: w, color: isTerminal(w)}
}

// Observer returns executor callbacks that report each agent as it starts and finishes
func (p *RoundProgress) Observer() *RoundObserver {
	return &RoundObserver{
		OnAgentStart: func(round int, agent Agent) {
			p.printf("%s round %d: asking %s", p.style(progressStyle, "…"), round, agent.DisplayName())
		},
		OnAgentComplete: func(round int, resp AgentResponse) {
			elapsed := resp.Elapsed.Round(100 * time.Millisecond)
			if resp.Success {
				p.printf("%s round %d: %s answered %s", p.style(successStyle, "✓"), round, resp.Name, p.style(dimStyle, elapsed.String()))
				return
			}
			p.printf("%s round %d: %s failed: %s %s", p.style(errorStyle, "✗"), round, resp.Name, firstLine(resp.Error), p.style(dimStyle, elapsed.String()))
		},
	}
}

// RoundDone reports the tally of a finished round
func (p *RoundProgress) RoundDone(round Round, analysis Analysis) {
	marker := p.style(warningStyle, "•")
	if analysis.Consensus {
		marker = p.style(successStyle, "•")
	}
	p.printf("%s round %d tally %s", marker, round.Number, analysis.Tally)
}

func (p *RoundProgress) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *RoundProgress) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// PrintError prints an error message
func PrintError(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}
