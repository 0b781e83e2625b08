package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	session := internal.CreateTestSession("yaml1")

	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(session, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"id: yaml1", "mode: deliberate", "kind: consensus", "choice: B"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	var got internal.Session
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if got.ID != "yaml1" || len(got.Rounds) != 2 {
		t.Errorf("decoded session = %s with %d rounds, want yaml1 with 2", got.ID, len(got.Rounds))
	}
	if got.Rounds[0].Responses[1].Elapsed != session.Rounds[0].Responses[1].Elapsed {
		t.Errorf("elapsed = %v, want %v", got.Rounds[0].Responses[1].Elapsed, session.Rounds[0].Responses[1].Elapsed)
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	if got := (&YAMLExporter{}).Extension(); got != "yaml" {
		t.Errorf("Extension() = %v, want yaml", got)
	}
}
