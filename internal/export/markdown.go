package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sean-Kenneth-Doherty/council/internal"
)

// MarkdownExporter exports sessions as a readable deliberation transcript
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.Session, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Council session %s\n\n", session.ID)
	fmt.Fprintf(&b, "**Date:** %s  \n", session.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Mode:** %s  \n", session.Mode)
	fmt.Fprintf(&b, "**Agents:** %s  \n", agentNames(session))
	fmt.Fprintf(&b, "**Rounds:** %d of %d\n\n", len(session.Rounds), session.MaxRounds)

	b.WriteString("## Question\n\n")
	b.WriteString(escapeMarkdown(session.Question))
	b.WriteString("\n\n")
	if session.Context != "" {
		b.WriteString("## Context\n\n")
		b.WriteString(escapeMarkdown(session.Context))
		b.WriteString("\n\n")
	}

	for _, round := range session.Rounds {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "## Round %d\n\n", round.Number)
		for _, resp := range round.Responses {
			choice := round.Choices[resp.AgentID]
			if choice == "" {
				choice = internal.NoChoice
			}
			fmt.Fprintf(&b, "### %s (choice: %s)\n\n", resp.Name, choice)
			if !resp.Success {
				fmt.Fprintf(&b, "_No response: %s_\n\n", resp.Error)
				continue
			}
			b.WriteString(escapeMarkdown(resp.Response))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("---\n\n## Verdict\n\n")
	switch {
	case session.Verdict == nil:
		b.WriteString("Pending\n")
	default:
		fmt.Fprintf(&b, "**%s**\n", verdictHeadline(session.Verdict))
		if len(session.Verdict.Tally) > 0 {
			fmt.Fprintf(&b, "\nFinal tally: `%s`\n", session.Verdict.Tally)
		}
	}
	if session.Interrupted {
		b.WriteString("\n_Session was interrupted before the rounds completed._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func verdictHeadline(v *internal.Verdict) string {
	switch v.Kind {
	case internal.VerdictConsensus:
		return fmt.Sprintf("Consensus: %s (round %d)", v.Choice, v.Round)
	case internal.VerdictMajority:
		return fmt.Sprintf("Majority decision: %s", v.Choice)
	default:
		return "No consensus"
	}
}

func agentNames(session *internal.Session) string {
	names := make([]string, 0, len(session.Agents))
	for _, a := range session.Agents {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
