package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose bool
	cfgFile string
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"

	// cfg is loaded once per command invocation, before RunE
	cfg *internal.Config
)

// errInterrupted is returned by commands stopped by SIGINT/SIGTERM
var errInterrupted = errors.New("interrupted")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "council",
	Short: "Put a question to several AI agents and let them deliberate",
	Long: `Council sends one question to several AI command-line agents in parallel.

In deliberation mode each agent then sees the other agents' answers (never its own)
and may revise its choice. Rounds repeat until every answering agent names the same
option or the round limit is reached, in which case the plurality choice wins.

Quick Start:
  council ask "What's the best database for this use case?"
  council deliberate "Should we use Rust or Go for the backend? A) Rust B) Go"
  council deliberate -r 3 -a gemini,claude,codex "Review this architecture"
  council list                        # Past sessions
  council show <session-id>           # Replay a session`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := internal.LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		internal.SetLogLevel(internal.ParseLogLevel(cfg.Logging.Level))
		if verbose {
			internal.SetVerbose(true)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command tree and maps the outcome to a process exit code
func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted):
		internal.PrintWarning("deliberation cancelled")
		return 130
	default:
		internal.PrintError("Error: " + err.Error())
		return 1
	}
}

func init() {
	internal.Version = version
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/council/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for saved sessions (default ~/.council)")
	rootCmd.PersistentFlags().String("backend", "", "Session store backend: file or sqlite")
	_ = viper.BindPFlag("storage.dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("storage.backend", rootCmd.PersistentFlags().Lookup("backend"))

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func initConfig() {
	internal.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(internal.ConfigDir())
		viper.AddConfigPath(".")
	}

	// COUNCIL_DELIBERATION_MAX_ROUNDS overrides deliberation.max_rounds
	viper.SetEnvPrefix("COUNCIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			internal.LogWarn("Failed to read config: %v", err)
		}
	}
}
