package cmd

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Sean-Kenneth-Doherty/council/testutil"
)

func TestHealthcheckCommand(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)

	stdout, _, err := executeCommand(t, env, "healthcheck", "--details")
	if err != nil {
		t.Fatalf("healthcheck error = %v\n%s", err, stdout)
	}
	for _, want := range []string{
		"Configuration loaded from " + env.config,
		"✅ alpha",
		"✅ beta",
		"Session store writable (file, 0 session(s))",
		"Directory: " + env.dataDir,
		"Health check passed!",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestHealthcheckCommand_MissingDefaultAgent(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	alpha := testutil.WriteAgentScript(t, dir, "alpha.sh", alphaScript)
	env := newCLIEnvWithConfig(t, dir, fmt.Sprintf(`agents:
  alpha:
    command: %s
  ghost:
    command: %s/no-such-agent
defaults:
  agents: [alpha, ghost]
`, alpha, dir))

	stdout, _, err := executeCommand(t, env, "healthcheck")
	if err == nil {
		t.Fatalf("healthcheck should fail when a default agent is missing:\n%s", stdout)
	}
	for _, want := range []string{"ghost:", "not found on PATH", "Health check failed", "1 required command(s) missing"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestHealthcheckCommand_UnknownDefaultAgent(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	env := newCLIEnvWithConfig(t, dir, "defaults:\n  agents: [nobody]\n")

	stdout, _, err := executeCommand(t, env, "healthcheck")
	if err == nil || !strings.Contains(stdout, "Default agent not configured") {
		t.Errorf("healthcheck error = %v, output:\n%s", err, stdout)
	}
}
