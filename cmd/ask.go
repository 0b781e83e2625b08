package cmd

import (
	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/spf13/cobra"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask every agent once, in parallel, without deliberation",
	Long: `Send the question to every selected agent in parallel and print each answer.
No follow-up rounds are run and no verdict is computed.`,
	Example: `  council ask "What's the best database for this use case?"
  council ask -a claude,codex "Explain this stack trace" -c "$(cat trace.txt)"`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCouncil(cmd, args, internal.ModeAsk, askOpts)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	addCouncilFlags(askCmd, &askOpts, false)
}
