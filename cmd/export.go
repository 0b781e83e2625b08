package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/Sean-Kenneth-Doherty/council/internal/export"
	"github.com/spf13/cobra"
)

var (
	format        string
	outputDir     string
	sessionID     string
	verdictFilter string
	toStdout      bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved sessions to file",
	Long: `Export saved council sessions as markdown transcripts, JSON, JSON Lines (one line
per agent response) or YAML.

You can export all sessions, filter by verdict, or export a specific session by ID.
Use 'council list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		store, err := cfg.OpenStore()
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer func() { _ = store.Close() }()

		var sessions []*internal.Session
		if sessionID != "" {
			session, err := store.Load(sessionID)
			if err != nil {
				return fmt.Errorf("%w (use 'council list' to see available sessions)", err)
			}
			sessions = []*internal.Session{session}
		} else {
			sessions, err = internal.LoadAllSessions(store)
			if err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}
		}

		if verdictFilter != "" {
			filtered := make([]*internal.Session, 0, len(sessions))
			for _, s := range sessions {
				if s.Verdict != nil && string(s.Verdict.Kind) == verdictFilter {
					filtered = append(filtered, s)
				}
			}
			sessions = filtered
		}

		if toStdout {
			if len(sessions) != 1 {
				return fmt.Errorf("--stdout needs exactly one session, matched %d (use --session-id)", len(sessions))
			}
			return exporter.Export(sessions[0], cmd.OutOrStdout())
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return &internal.ExportError{Format: format, Path: outputDir, Err: err}
		}

		exported := 0
		for _, session := range sessions {
			path := filepath.Join(outputDir, export.FileName(session, exporter))
			if err := exportFile(exporter, session, path); err != nil {
				internal.LogError("%v", err)
				continue
			}
			exported++
		}

		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓")+
			fmt.Sprintf(" Export complete: %d session(s) exported to %s", exported, outputDir))
		return nil
	},
}

func exportFile(exporter export.Exporter, session *internal.Session, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format ("+strings.Join(export.Formats, ", ")+")")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID or unique prefix")
	exportCmd.Flags().StringVar(&verdictFilter, "verdict", "", "Only export sessions with this verdict (consensus, majority, no_consensus)")
	exportCmd.Flags().BoolVar(&toStdout, "stdout", false, "Write a single session to stdout instead of a file")
}
