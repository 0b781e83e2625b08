package cmd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/Sean-Kenneth-Doherty/council/internal/export"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const markdownWrap = 100

var (
	showFull     bool
	showRound    int
	showMarkdown bool
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Replay a saved session",
	Long:  `Display every round of a saved session. The id may be the short id shown by list or any unique prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cfg.OpenStore()
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer func() { _ = store.Close() }()

		session, err := store.Load(args[0])
		if err != nil {
			return err
		}

		if showRound > 0 {
			if showRound > len(session.Rounds) {
				return fmt.Errorf("session %s has %d round(s), cannot show round %d", session.ID, len(session.Rounds), showRound)
			}
			session.Rounds = session.Rounds[showRound-1 : showRound]
		}

		if showMarkdown {
			return renderMarkdown(cmd.OutOrStdout(), session)
		}

		maxChars := consoleResponseChars
		if showFull {
			maxChars = 0
		}
		renderSession(cmd.OutOrStdout(), session, maxChars)
		return nil
	},
}

// renderMarkdown prints the markdown transcript styled for the terminal
func renderMarkdown(w io.Writer, session *internal.Session) error {
	var md bytes.Buffer
	if err := (&export.MarkdownExporter{}).Export(session, &md); err != nil {
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md.String())
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showFull, "full", false, "Show full responses instead of clipping them")
	showCmd.Flags().IntVar(&showRound, "round", 0, "Show only this round")
	showCmd.Flags().BoolVar(&showMarkdown, "markdown", false, "Render the markdown transcript instead of the console view")
}
