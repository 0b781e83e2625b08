package export

import (
	"encoding/json"
	"io"

	"github.com/Sean-Kenneth-Doherty/council/internal"
)

// JSONExporter writes the full session record as JSON, the same shape the file store persists
type JSONExporter struct {
	// Compact disables indentation
	Compact bool
}

// Export exports a session to JSON format
func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	if !e.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(session)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
