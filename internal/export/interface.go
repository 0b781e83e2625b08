package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sean-Kenneth-Doherty/council/internal"
)

// Formats lists the accepted --format values; "markdown" and "yml" are aliases
var Formats = []string{"md", "json", "jsonl", "yaml"}

// Exporter writes one session in a given format
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
}

// NewExporter returns the exporter for format, matched case-insensitively
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, &internal.ExportError{Format: format, Err: fmt.Errorf("unsupported format (supported: %s)", strings.Join(Formats, ", "))}
	}
}

// FileName returns the export file name for a session, e.g. session_20250314_092653_2e3f4a5b.md
func FileName(session *internal.Session, e Exporter) string {
	name := strings.TrimSuffix(internal.SessionFileName(session), ".json")
	return name + "." + e.Extension()
}
