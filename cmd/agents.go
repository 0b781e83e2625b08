package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// agentsCmd represents the agents command
var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List configured agents",
	Long:  `List every agent in the configuration with its command line. Agents marked with * are used when --agents is omitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := cfg.Registry()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🏛️  %d agent(s) available", registry.Len())))
		fmt.Fprintln(out)

		defaults := make(map[string]bool, len(cfg.Defaults.Agents))
		for _, id := range cfg.Defaults.Agents {
			defaults[id] = true
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Command")+"\t"+titleStyle.Render("Description"))
		for _, a := range registry.All() {
			id := a.ID
			if defaults[id] {
				id += " *"
			}
			desc := a.Description
			if a.NeedsGit {
				desc = strings.TrimSpace(desc + " [git]")
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", agentStyle.Render(id), a.DisplayName(), idStyle.Render(strings.Join(a.Command, " ")), desc)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
