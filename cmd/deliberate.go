package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/Sean-Kenneth-Doherty/council/internal/export"
	"github.com/spf13/cobra"
)

// councilOptions are the flags shared by deliberate and ask
type councilOptions struct {
	agents      string
	context     string
	rounds      int
	timeout     time.Duration
	noSave      bool
	metricsFile string
	jsonOut     bool
	quiet       bool
}

var (
	deliberateOpts councilOptions
	askOpts        councilOptions
)

// deliberateCmd represents the deliberate command
var deliberateCmd = &cobra.Command{
	Use:   "deliberate <question>",
	Short: "Run a multi-round deliberation until the agents agree",
	Long: `Ask every agent the question in parallel, then run follow-up rounds in which each
agent sees the other agents' previous answers. Stops as soon as every answering agent
names the same option, or after --rounds rounds with a majority decision.

Agents are asked to end with "My recommendation: Option X". Pass "-" as the question
to read it from stdin.`,
	Example: `  council deliberate "Should we use Rust or Go for the backend? A) Rust B) Go"
  council deliberate -r 3 -a gemini,claude,codex -c "$(cat design.md)" "Review this architecture"`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCouncil(cmd, args, internal.ModeDeliberate, deliberateOpts)
	},
}

func runCouncil(cmd *cobra.Command, args []string, mode string, opts councilOptions) error {
	question, err := readQuestion(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}
	ids := internal.ParseAgentList(opts.agents)
	if len(ids) == 0 {
		ids = cfg.Defaults.Agents
	}
	agents, err := registry.Select(ids)
	if err != nil {
		return fmt.Errorf("%w (use 'council agents' to list available agents)", err)
	}

	invoker := cfg.Invoker()
	if opts.timeout > 0 {
		invoker.Timeout = opts.timeout
	}

	out := cmd.OutOrStdout()
	progress := internal.NewRoundProgress(cmd.ErrOrStderr())
	metrics := internal.NewMetrics()
	executor := internal.NewRoundExecutor(invoker).WithMetrics(metrics)
	if !opts.quiet {
		executor = executor.WithObserver(progress.Observer())
	}

	d := cfg.Deliberator(executor)
	d.Metrics = metrics
	if opts.rounds > 0 {
		d.MaxRounds = opts.rounds
	}

	maxChars := consoleResponseChars
	if mode == internal.ModeAsk {
		maxChars = quickResponseChars
	}
	d.OnRound = func(round internal.Round, analysis internal.Analysis) {
		if !opts.quiet {
			progress.RoundDone(round, analysis)
		}
		if opts.jsonOut {
			return
		}
		renderRound(out, round, maxChars)
		if mode == internal.ModeDeliberate {
			fmt.Fprintf(out, "\n📊 Choices: %s\n", analysis.Tally)
		}
	}

	req := internal.Request{Question: question, Context: opts.context, Agents: agents}
	if !opts.jsonOut {
		infos := make([]internal.AgentInfo, 0, len(agents))
		for _, a := range agents {
			infos = append(infos, a.Info())
		}
		title, rounds := "COUNCIL DELIBERATION", d.MaxRounds
		if mode == internal.ModeAsk {
			title, rounds = "QUICK QUERY", 1
		}
		renderSessionHeader(out, title, question, infos, rounds)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var session *internal.Session
	if mode == internal.ModeAsk {
		session, err = d.Ask(ctx, req)
	} else {
		session, err = d.Run(ctx, req)
	}
	if session == nil {
		return err
	}
	interrupted := err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
	if err != nil && !interrupted {
		return err
	}

	if opts.jsonOut {
		if exportErr := (&export.JSONExporter{}).Export(session, out); exportErr != nil {
			return exportErr
		}
	} else if mode == internal.ModeDeliberate {
		renderVerdict(out, session)
	}

	if !opts.noSave {
		saveSession(cmd.ErrOrStderr(), session)
	}
	writeMetrics(metrics, opts.metricsFile)

	if interrupted {
		return errInterrupted
	}
	return nil
}

// saveSession persists the session; failures are reported but never fail the command
func saveSession(w io.Writer, session *internal.Session) {
	store, err := cfg.OpenStore()
	if err != nil {
		internal.LogWarn("Session not saved: %v", err)
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.Save(session); err != nil {
		internal.LogWarn("Session not saved: %v", err)
		return
	}
	fmt.Fprintln(w, idStyle.Render(fmt.Sprintf("📁 Session %s saved to %s", session.ID, cfg.Storage.Dir)))
}

func writeMetrics(metrics *internal.Metrics, path string) {
	if path == "" {
		path = cfg.Metrics.File
	}
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		internal.LogWarn("Failed to write metrics: %v", err)
	}
}

// readQuestion joins the positional arguments, or reads stdin for "-"
func readQuestion(args []string, stdin io.Reader) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read question from stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if question == "" {
		return "", &internal.ConfigError{Field: "question", Err: fmt.Errorf("a question is required")}
	}
	return question, nil
}

func addCouncilFlags(cmd *cobra.Command, opts *councilOptions, withRounds bool) {
	cmd.Flags().StringVarP(&opts.agents, "agents", "a", "", "Comma-separated agent ids (default from defaults.agents)")
	cmd.Flags().StringVarP(&opts.context, "context", "c", "", "Additional context for the question")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-agent call timeout (default from deliberation.timeout)")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not persist the session")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the session")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the session as JSON instead of the transcript")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Hide per-agent progress on stderr")
	if withRounds {
		cmd.Flags().IntVarP(&opts.rounds, "rounds", "r", 0, "Maximum deliberation rounds (default from deliberation.max_rounds)")
	}
}

func init() {
	rootCmd.AddCommand(deliberateCmd)
	addCouncilFlags(deliberateCmd, &deliberateOpts, true)
}
