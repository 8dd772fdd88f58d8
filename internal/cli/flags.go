// Package cli provides flag binding and validation for the loopctl CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/loopctl/internal/config"
)

// BindFlags registers all CLI flags on the given cobra command.
// The flags directly modify fields in the provided config pointer.
// Call ValidateFlags after parsing to check flag combinations.
func BindFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Agent CLI & Models
	flags.StringVar(&cfg.AgentCLI, "agent-cli", "claude", "Agent CLI to drive")
	flags.StringVar(&cfg.AgentModel, "agent-model", "opus", "Model for the working session")
	flags.StringVar(&cfg.ReviewerModel, "reviewer-model", "opus", "Model for completion review")
	flags.IntVar(&cfg.MaxTurns, "max-turns", 100, "Max agent turns per invocation")

	// Loop & Verification Limits
	flags.IntVar(&cfg.MaxIterations, "max-iterations", 20, "Maximum loop iterations")
	flags.IntVar(&cfg.MaxVerifyAttempts, "max-verify-attempts", 3, "Max rejected completion reviews before auto-approve")
	flags.IntVar(&cfg.TodoAttemptCap, "todo-attempt-cap", 5, "Max baseline continuation nudges per session")

	// Background Tasks
	flags.IntVar(&cfg.MaxBackgroundTasks, "max-background-tasks", 5, "Max concurrently running background tasks")
	flags.BoolVar(&cfg.ScopeTasksToParent, "scope-tasks-to-parent", false, "Apply the task ceiling per parent session instead of globally")

	// Idle Enforcer
	flags.BoolVar(&cfg.UseEnforcer, "use-enforcer", false, "Use the adaptive countdown enforcer for baseline continuation")
	flags.IntVar(&cfg.CountdownBaseSeconds, "countdown-base", 2, "Enforcer countdown length in seconds")
	flags.IntVar(&cfg.CountdownSkipPercent, "countdown-skip-percent", 90, "Todo completion percent at which the countdown is skipped")

	// File Layout
	flags.StringVar(&cfg.StateDir, "state-dir", ".loopctl", "Project state directory")
	flags.StringVar(&cfg.RolesFile, "roles-file", ".loopctl/roles.yaml", "Path to the worker role catalog")
	flags.StringVar(&cfg.ConfigFile, "config", "", "Path to additional config file")

	// Feature Toggles
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&cfg.PersistUltraworkGlobally, "persist-ultrawork-globally", false, "Mirror the ultrawork flag under ~/.loopctl")

	// Notifications
	flags.StringVar(&cfg.NotifyWebhook, "notify-webhook", "http://127.0.0.1:18789/webhook", "OpenClaw webhook URL")
	flags.StringVar(&cfg.NotifyChannel, "notify-channel", "telegram", "Notification channel")
	flags.StringVar(&cfg.NotifyChatID, "notify-chat-id", "", "Recipient chat ID")

	// Modes
	flags.BoolVar(&cfg.Ultrawork, "ultrawork", false, "Layer ultrawork reinforcement onto the loop")

	// Session Management
	flags.BoolVar(&cfg.Status, "status", false, "Show loop status and exit")
	flags.BoolVar(&cfg.Cancel, "cancel", false, "Cancel the active loop and exit")
	flags.BoolVar(&cfg.Clean, "clean", false, "Delete orchestration state and exit")
}

// ValidateFlags checks for invalid flag combinations after parsing.
// Must be called after cmd.Execute() or cmd.ParseFlags().
func ValidateFlags(cmd *cobra.Command, cfg *config.Config) error {
	// --config must exist if provided
	if cfg.ConfigFile != "" {
		if _, err := os.Stat(cfg.ConfigFile); err != nil {
			return fmt.Errorf("--config: %w", err)
		}
	}

	// --status, --cancel, --clean are mutually exclusive
	exclusive := 0
	for _, set := range []bool{cfg.Status, cfg.Cancel, cfg.Clean} {
		if set {
			exclusive++
		}
	}
	if exclusive > 1 {
		return fmt.Errorf("--status, --cancel and --clean are mutually exclusive")
	}

	if cfg.MaxIterations < 1 {
		return fmt.Errorf("--max-iterations must be at least 1, got: %d", cfg.MaxIterations)
	}
	if cfg.MaxVerifyAttempts < 1 {
		return fmt.Errorf("--max-verify-attempts must be at least 1, got: %d", cfg.MaxVerifyAttempts)
	}
	if cfg.MaxBackgroundTasks < 1 {
		return fmt.Errorf("--max-background-tasks must be at least 1, got: %d", cfg.MaxBackgroundTasks)
	}

	return nil
}
