package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/Sean-Kenneth-Doherty/council/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	alphaScript = `echo "Postgres handles growth better. My recommendation: Option B"`
	betaScript  = `case "$1" in
*"COUNCIL DELIBERATION"*) echo "You convinced me. My recommendation: Option B" ;;
*) echo "SQLite is enough for now. My recommendation: Option A" ;;
esac`
	brokenScript = "echo 'quota exceeded' >&2\nexit 3"
)

// cliEnv is an isolated config file and data directory for running the CLI
type cliEnv struct {
	dir     string
	dataDir string
	config  string
}

// newCLIEnv writes agent scripts alpha and beta plus a config that uses them
func newCLIEnv(t *testing.T, alphaBody, betaBody string) *cliEnv {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	alpha := testutil.WriteAgentScript(t, dir, "alpha.sh", alphaBody)
	beta := testutil.WriteAgentScript(t, dir, "beta.sh", betaBody)
	return newCLIEnvWithConfig(t, dir, fmt.Sprintf(`agents:
  alpha:
    name: Alpha
    command: %s
    description: Scripted agent
  beta:
    name: Beta
    command: %s
deliberation:
  max_rounds: 3
  timeout: 10s
  min_response_chars: 0
defaults:
  agents: [alpha, beta]
logging:
  level: error
`, alpha, beta))
}

func newCLIEnvWithConfig(t *testing.T, dir, config string) *cliEnv {
	t.Helper()
	return &cliEnv{
		dir:     dir,
		dataDir: filepath.Join(dir, "data"),
		config:  testutil.WriteConfigFixture(t, filepath.Join(dir, "config"), config),
	}
}

func (e *cliEnv) args(args ...string) []string {
	return append(args, "--config", e.config, "--data-dir", e.dataDir)
}

// resetFlags restores every flag to its default so that commands do not leak state
// between tests
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func executeCommand(t *testing.T, env *cliEnv, args ...string) (string, string, error) {
	t.Helper()
	return executeWithInput(t, env, "", args...)
}

func executeWithInput(t *testing.T, env *cliEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(env.args(args...))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func savedEntries(t *testing.T, env *cliEnv) []internal.SessionIndexEntry {
	t.Helper()
	entries, err := internal.NewFileStore(env.dataDir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return entries
}

func TestRootCommand_Version(t *testing.T) {
	resetFlags(rootCmd)
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "commit:") {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestRun_ExitCodes(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, 0},
		{"agents", []string{"agents"}, 0},
		{"missing question", []string{"deliberate"}, 1},
		{"unknown agent", []string{"deliberate", "-a", "ghost", "Q?"}, 1},
		{"unknown command", []string{"convene"}, 1},
		{"show missing session", []string{"show", "nope"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetErr(&bytes.Buffer{})
			rootCmd.SetIn(strings.NewReader(""))
			if got := run(env.args(tt.args...)); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	env := newCLIEnvWithConfig(t, testutil.CreateTempDir(t), "deliberation:\n  max_rounds: 0\n")
	_, _, err := executeCommand(t, env, "agents")
	var cfgErr *internal.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "deliberation.max_rounds" {
		t.Errorf("Execute() error = %v, want a max_rounds config error", err)
	}
}

func TestReadQuestion(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "single argument", args: []string{"Rust or Go?"}, want: "Rust or Go?"},
		{name: "joined arguments", args: []string{"Rust", "or", "Go?"}, want: "Rust or Go?"},
		{name: "stdin", args: []string{"-"}, stdin: "  Which queue?\nA) NATS B) Kafka\n", want: "Which queue?\nA) NATS B) Kafka"},
		{name: "no arguments", args: nil, wantErr: true},
		{name: "blank argument", args: []string{"   "}, wantErr: true},
		{name: "empty stdin", args: []string{"-"}, stdin: "\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readQuestion(tt.args, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readQuestion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readQuestion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeliberateCommand_Consensus(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)

	stdout, stderr, err := executeCommand(t, env, "deliberate", "Which database? A) SQLite B) Postgres")
	if err != nil {
		t.Fatalf("deliberate error = %v\nstderr: %s", err, stderr)
	}
	for _, want := range []string{"COUNCIL DELIBERATION", "Alpha, Beta", "ROUND 1", "ROUND 2", "FINAL CONSENSUS: B"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "ROUND 3") {
		t.Error("deliberation should stop once the agents agree")
	}
	if !strings.Contains(stderr, "round 1: asking Alpha") {
		t.Errorf("progress missing from stderr:\n%s", stderr)
	}

	entries := savedEntries(t, env)
	if len(entries) != 1 {
		t.Fatalf("saved %d sessions, want 1", len(entries))
	}
	if e := entries[0]; e.Verdict != "consensus" || e.Choice != "B" || e.Rounds != 2 {
		t.Errorf("saved entry = %+v", e)
	}
}

func TestDeliberateCommand_MajorityWithFailingAgent(t *testing.T) {
	env := newCLIEnv(t, alphaScript, brokenScript)
	metricsFile := filepath.Join(env.dir, "council.prom")

	stdout, _, err := executeCommand(t, env, "deliberate", "-r", "2", "-q", "--metrics-file", metricsFile, "Which database?")
	if err != nil {
		t.Fatalf("deliberate error = %v", err)
	}
	if !strings.Contains(stdout, "MAJORITY DECISION: B") {
		t.Errorf("output missing majority verdict:\n%s", stdout)
	}
	if !strings.Contains(stdout, "exit status 3: quota exceeded") {
		t.Errorf("output should show the failed agent's reason:\n%s", stdout)
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), `council_verdicts_total{kind="majority"} 1`) {
		t.Errorf("metrics missing the verdict:\n%s", data)
	}
}

func TestDeliberateCommand_SaveFailureKeepsVerdict(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)
	// a regular file where the data directory should be
	if err := os.WriteFile(env.dataDir, []byte("not a directory"), 0644); err != nil {
		t.Fatalf("Failed to write blocker file: %v", err)
	}

	stdout, stderr, err := executeCommand(t, env, "deliberate", "-q", "Which database?")
	if err != nil {
		t.Fatalf("deliberate error = %v, a failed save must not fail the command", err)
	}
	if !strings.Contains(stdout, "FINAL CONSENSUS: B") {
		t.Errorf("output missing the verdict:\n%s", stdout)
	}
	if strings.Contains(stderr, "saved to") {
		t.Errorf("session reported as saved:\n%s", stderr)
	}
}

func TestDeliberateCommand_JSON(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)

	stdout, _, err := executeWithInput(t, env, "Which database?\n", "deliberate", "--json", "--no-save", "-c", "small team", "-")
	if err != nil {
		t.Fatalf("deliberate error = %v", err)
	}
	var session internal.Session
	testutil.DecodeJSON(t, stdout, &session)
	if session.Question != "Which database?" || session.Context != "small team" {
		t.Errorf("session = %q / %q", session.Question, session.Context)
	}
	if session.Verdict == nil || session.Verdict.Kind != internal.VerdictConsensus {
		t.Errorf("verdict = %+v", session.Verdict)
	}
	if entries := savedEntries(t, env); len(entries) != 0 {
		t.Errorf("--no-save stored %d sessions", len(entries))
	}
}

func TestAskCommand(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)

	stdout, _, err := executeCommand(t, env, "ask", "-a", "beta", "Which database?")
	if err != nil {
		t.Fatalf("ask error = %v", err)
	}
	if !strings.Contains(stdout, "QUICK QUERY") || !strings.Contains(stdout, "SQLite is enough for now") {
		t.Errorf("ask output:\n%s", stdout)
	}
	if strings.Contains(stdout, "ROUND 2") || strings.Contains(stdout, "FINAL CONSENSUS") {
		t.Errorf("ask should run a single round without a verdict:\n%s", stdout)
	}

	entries := savedEntries(t, env)
	if len(entries) != 1 || entries[0].Mode != internal.ModeAsk || entries[0].Rounds != 1 {
		t.Errorf("saved entries = %+v", entries)
	}
}

func TestAgentsCommand(t *testing.T) {
	env := newCLIEnv(t, alphaScript, betaScript)

	stdout, _, err := executeCommand(t, env, "agents")
	if err != nil {
		t.Fatalf("agents error = %v", err)
	}
	for _, want := range []string{"alpha *", "beta *", "Scripted agent", "codex", "[git]"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("agents output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "gemini *") {
		t.Error("gemini is not a default agent in this config")
	}
}
