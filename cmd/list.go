package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/spf13/cobra"
)

var (
	listLimit int
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Long:  `List saved council sessions, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cfg.OpenStore()
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer func() { _ = store.Close() }()

		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if listLimit > 0 && listLimit < len(entries) {
			entries = entries[:listLimit]
		}

		displaySessions(cmd.OutOrStdout(), entries)
		return nil
	},
}

func displaySessions(out io.Writer, entries []internal.SessionIndexEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(entries))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Question")+"\t"+titleStyle.Render("Rounds")+"\t"+titleStyle.Render("Verdict")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, e := range entries {
		question := e.Question
		if question == "" {
			question = "(empty)"
		}
		question = clip(question, 50)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(internal.ShortID(e.ID)),
			question,
			countStyle.Render(strconv.Itoa(e.Rounds)),
			verdictLabel(e),
			dateStyle.Render(formatCreated(e.Timestamp)))
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the ID (e.g., ")+
		choiceStyle.Render(entries[0].ID)+
		idStyle.Render(") with `council show <id>`"))
}

// verdictLabel names the outcome of a deliberation. Quick queries keep the round-1
// verdict in the record but are listed as "ask".
func verdictLabel(e internal.SessionIndexEntry) string {
	if e.Mode == internal.ModeAsk {
		return dateStyle.Render("ask")
	}
	switch internal.VerdictKind(e.Verdict) {
	case internal.VerdictConsensus:
		return successStyle.Render("consensus " + e.Choice)
	case internal.VerdictMajority:
		return warningStyle.Render("majority " + e.Choice)
	case internal.VerdictNoConsensus:
		return errorStyle.Render("no consensus")
	}
	return dateStyle.Render(e.Verdict)
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Show at most this many sessions")
}
