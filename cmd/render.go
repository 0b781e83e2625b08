package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/charmbracelet/lipgloss"
)

const (
	// responses are clipped on the console; exports carry the full text
	consoleResponseChars = 1200
	quickResponseChars   = 1500
	ruleWidth            = 60
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

func renderSessionHeader(w io.Writer, title, question string, agents []internal.AgentInfo, maxRounds int) {
	rule := strings.Repeat("═", ruleWidth)
	fmt.Fprintln(w, headerStyle.Render("🏛️  "+title))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Question: %s\n", clip(strings.Join(strings.Fields(question), " "), 80))
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}
	fmt.Fprintf(w, "Agents: %s\n", strings.Join(names, ", "))
	if maxRounds > 1 {
		fmt.Fprintf(w, "Max Rounds: %d\n", maxRounds)
	}
	fmt.Fprintln(w, rule)
}

func renderRound(w io.Writer, round internal.Round, maxChars int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("🔄 ROUND %d", round.Number)))
	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
	for _, resp := range round.Responses {
		renderResponse(w, resp, round.Choices[resp.AgentID], maxChars)
	}
}

func renderResponse(w io.Writer, resp internal.AgentResponse, choice string, maxChars int) {
	status := successStyle.Render("✅")
	if !resp.Success {
		status = errorStyle.Render("❌")
	}
	header := fmt.Sprintf("%s %s", status, agentStyle.Render(resp.Name))
	if choice != "" && choice != internal.NoChoice {
		header += " → " + choiceStyle.Render(choice)
	}
	header += " " + dateStyle.Render(resp.Elapsed.Round(100*time.Millisecond).String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("─", 40))
	if !resp.Success {
		fmt.Fprintf(w, "Error: %s\n", resp.Error)
		return
	}
	fmt.Fprintln(w, messageContentStyle.Render(clip(resp.Response, maxChars)))
}

func renderVerdict(w io.Writer, session *internal.Session) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", ruleWidth))
	v := session.Verdict
	switch {
	case v == nil:
		fmt.Fprintln(w, warningStyle.Render("⚠️  No verdict recorded"))
	case v.Kind == internal.VerdictConsensus:
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ FINAL CONSENSUS: %s", v.Choice))+
			dateStyle.Render(fmt.Sprintf(" (round %d)", v.Round)))
	case v.Kind == internal.VerdictMajority:
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("⚖️  MAJORITY DECISION: %s", v.Choice))+
			dateStyle.Render(fmt.Sprintf(" after %d round(s)", v.Round)))
		fmt.Fprintf(w, "Final positions: %s\n", v.Tally)
	default:
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("⚠️  NO CONSENSUS after %d round(s)", len(session.Rounds))))
		fmt.Fprintf(w, "Final positions: %s\n", v.Tally)
	}
	if session.Interrupted {
		fmt.Fprintln(w, errorStyle.Render("Deliberation was interrupted"))
	}
	fmt.Fprintln(w, strings.Repeat("═", ruleWidth))
}

// renderSession replays a complete stored session
func renderSession(w io.Writer, session *internal.Session, maxChars int) {
	title := "COUNCIL DELIBERATION"
	if session.Mode == internal.ModeAsk {
		title = "QUICK QUERY"
	}
	renderSessionHeader(w, title, session.Question, session.Agents, session.MaxRounds)
	fmt.Fprintln(w, idStyle.Render(fmt.Sprintf("Session %s • %s", session.ID, formatCreated(session.Timestamp))))
	for _, round := range session.Rounds {
		renderRound(w, round, maxChars)
		if len(session.Rounds) > 1 || session.Mode == internal.ModeDeliberate {
			fmt.Fprintf(w, "\n📊 Choices: %s\n", tallyOf(round))
		}
	}
	if session.Mode == internal.ModeDeliberate {
		renderVerdict(w, session)
	}
}

func tallyOf(round internal.Round) internal.Tally {
	t := internal.Tally{}
	for _, resp := range round.Responses {
		c := round.Choices[resp.AgentID]
		if c == "" {
			c = internal.NoChoice
		}
		t[c]++
	}
	return t
}

// formatCreated renders a timestamp relative to now, the way list views show dates
func formatCreated(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

// clip shortens s to max runes, marking the cut
func clip(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
