package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sean-Kenneth-Doherty/council/internal"
)

// JSONLExporter exports one line per agent response, suited to line-oriented tooling
type JSONLExporter struct{}

type responseLine struct {
	Session   string `json:"session"`
	Round     int    `json:"round"`
	Agent     string `json:"agent"`
	Name      string `json:"name"`
	Choice    string `json:"choice"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Response  string `json:"response,omitempty"`
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, round := range session.Rounds {
		for _, resp := range round.Responses {
			choice := round.Choices[resp.AgentID]
			if choice == "" {
				choice = internal.NoChoice
			}
			line := responseLine{
				Session:   session.ID,
				Round:     round.Number,
				Agent:     resp.AgentID,
				Name:      resp.Name,
				Choice:    choice,
				Success:   resp.Success,
				Error:     resp.Error,
				ElapsedMs: resp.Elapsed.Milliseconds(),
				Response:  resp.Response,
			}
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
