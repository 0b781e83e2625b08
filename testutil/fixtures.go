package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RequireShell skips the test on platforms without a POSIX shell
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake agent scripts need /bin/sh")
	}
}

// WriteAgentScript writes an executable shell script standing in for an agent CLI.
// The prompt arrives as the script's last argument ("$1" for a script called with
// no extra arguments).
func WriteAgentScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireShell(t)
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write agent script %s: %v", name, err)
	}
	return path
}

// WriteConfigFixture writes a council config.yaml into dir and returns its path
func WriteConfigFixture(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config directory: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config fixture: %v", err)
	}
	return path
}
