package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Sean-Kenneth-Doherty/council/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	healthcheckDetails bool
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that council can run its agents and save sessions",
	Long: `Check the health of council by verifying:
  • Configuration loading
  • Agent commands are installed (the default agents must be)
  • git is available for agents that need a repository
  • The session store is writable

This command is useful for debugging agent setup, especially in CI/CD environments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 Council Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded from "+used))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No config file found, using built-in defaults"))
			if healthcheckDetails {
				fmt.Fprintf(out, "   Expected: %s\n", filepath.Join(internal.ConfigDir(), "config.yaml"))
			}
		}
		registry, err := cfg.Registry()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid agent configuration:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out)

		// Step 2: Agent commands
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking agent commands..."))
		defaults := make(map[string]bool, len(cfg.Defaults.Agents))
		for _, id := range cfg.Defaults.Agents {
			defaults[id] = true
			if _, err := registry.Get(id); err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Default agent not configured:"), id)
				return fmt.Errorf("health check failed: %w", err)
			}
		}
		missingDefaults, available, needsGit := 0, 0, false
		for _, a := range registry.All() {
			path, err := exec.LookPath(a.Command[0])
			switch {
			case err == nil:
				available++
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %s (%s)", a.ID, a.Command[0])))
				if healthcheckDetails {
					fmt.Fprintf(out, "   Path: %s\n", path)
				}
				needsGit = needsGit || a.NeedsGit
			case defaults[a.ID]:
				missingDefaults++
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ %s: %s not found on PATH", a.ID, a.Command[0])))
			default:
				fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %s: %s not found on PATH", a.ID, a.Command[0])))
			}
		}
		if needsGit {
			if _, err := exec.LookPath("git"); err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ git not found, required by agents with needs_git"))
				missingDefaults++
			} else {
				fmt.Fprintln(out, successStyle.Render("✅ git available"))
			}
		}
		fmt.Fprintln(out)

		// Step 3: Session store
		fmt.Fprintln(out, infoStyle.Render("Step 3: Testing session store..."))
		sessionCount, storeErr := checkStore()
		if storeErr != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Session store unavailable:"), storeErr)
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Session store writable (%s, %d session(s))", backendName(), sessionCount)))
			if healthcheckDetails {
				fmt.Fprintf(out, "   Directory: %s\n", cfg.Storage.Dir)
			}
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if missingDefaults == 0 && storeErr == nil {
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Agents: %d of %d available", available, registry.Len())))
			return nil
		}
		fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
		if missingDefaults > 0 {
			fmt.Fprintf(out, "   • %d required command(s) missing\n", missingDefaults)
		}
		if storeErr != nil {
			fmt.Fprintln(out, "   • Sessions cannot be saved")
		}
		return fmt.Errorf("health check failed")
	},
}

// checkStore verifies the store directory accepts writes and that the index is readable
func checkStore() (int, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
		return 0, &internal.StorageError{Path: cfg.Storage.Dir, Op: "mkdir", Err: err}
	}
	probe, err := os.CreateTemp(cfg.Storage.Dir, ".healthcheck-*")
	if err != nil {
		return 0, &internal.StorageError{Path: cfg.Storage.Dir, Op: "write", Err: err}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	store, err := cfg.OpenStore()
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()
	entries, err := store.List()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func backendName() string {
	if cfg.Storage.Backend == "" {
		return internal.BackendFile
	}
	return cfg.Storage.Backend
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckDetails, "details", false, "Show detailed diagnostic information")
}
