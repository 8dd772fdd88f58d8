package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/loopctl/internal/banner"
	"github.com/CodexForgeBR/loopctl/internal/cli"
	"github.com/CodexForgeBR/loopctl/internal/config"
	"github.com/CodexForgeBR/loopctl/internal/core"
	"github.com/CodexForgeBR/loopctl/internal/exitcode"
	"github.com/CodexForgeBR/loopctl/internal/host"
	"github.com/CodexForgeBR/loopctl/internal/logging"
	"github.com/CodexForgeBR/loopctl/internal/loop"
	"github.com/CodexForgeBR/loopctl/internal/notification"
	sighandler "github.com/CodexForgeBR/loopctl/internal/signal"
	"github.com/CodexForgeBR/loopctl/internal/store"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cfg := config.NewDefaultConfig()

	rootCmd := &cobra.Command{
		Use:     "loopctl [prompt]",
		Short:   "Continuation and delegation loop orchestrator for agent CLIs",
		Long:    "loopctl keeps an agent CLI working: durable iteration loops, independent completion review, and bounded continuation nudges.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate flags after parsing
			if err := cli.ValidateFlags(cmd, cfg); err != nil {
				return err
			}
			return run(cmd, cfg, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Bind all CLI flags to the config
	cli.BindFlags(rootCmd, cfg)

	// Set custom help template
	cli.SetCustomHelp(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.Error)
	}
}

// buildCLIOverrides creates a map of CLI flag overrides from the config.
// Uses cmd.Flags().Changed() to only include flags explicitly set by the user,
// ensuring config file values are not accidentally overridden by default values.
func buildCLIOverrides(cmd *cobra.Command, cfg *config.Config) map[string]string {
	overrides := make(map[string]string)

	// String flags: only include if explicitly set via CLI
	stringFlags := map[string]struct {
		key string
		val string
	}{
		"agent-cli":      {"AGENT_CLI", cfg.AgentCLI},
		"agent-model":    {"AGENT_MODEL", cfg.AgentModel},
		"reviewer-model": {"REVIEWER_MODEL", cfg.ReviewerModel},
		"state-dir":      {"STATE_DIR", cfg.StateDir},
		"roles-file":     {"ROLES_FILE", cfg.RolesFile},
		"notify-webhook": {"NOTIFY_WEBHOOK", cfg.NotifyWebhook},
		"notify-channel": {"NOTIFY_CHANNEL", cfg.NotifyChannel},
		"notify-chat-id": {"NOTIFY_CHAT_ID", cfg.NotifyChatID},
	}
	for flag, mapping := range stringFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = mapping.val
		}
	}

	// Int flags
	intFlags := map[string]struct {
		key string
		val int
	}{
		"max-turns":              {"MAX_TURNS", cfg.MaxTurns},
		"max-iterations":         {"MAX_ITERATIONS", cfg.MaxIterations},
		"max-verify-attempts":    {"MAX_VERIFY_ATTEMPTS", cfg.MaxVerifyAttempts},
		"todo-attempt-cap":       {"TODO_ATTEMPT_CAP", cfg.TodoAttemptCap},
		"max-background-tasks":   {"MAX_BACKGROUND_TASKS", cfg.MaxBackgroundTasks},
		"countdown-base":         {"COUNTDOWN_BASE_SECONDS", cfg.CountdownBaseSeconds},
		"countdown-skip-percent": {"COUNTDOWN_SKIP_PERCENT", cfg.CountdownSkipPercent},
	}
	for flag, mapping := range intFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = fmt.Sprintf("%d", mapping.val)
		}
	}

	// Bool flags
	boolFlags := map[string]struct {
		key string
		val bool
	}{
		"verbose":                    {"VERBOSE", cfg.Verbose},
		"use-enforcer":               {"USE_ENFORCER", cfg.UseEnforcer},
		"scope-tasks-to-parent":      {"SCOPE_TASKS_TO_PARENT", cfg.ScopeTasksToParent},
		"persist-ultrawork-globally": {"PERSIST_ULTRAWORK_GLOBALLY", cfg.PersistUltraworkGlobally},
	}
	for flag, mapping := range boolFlags {
		if cmd.Flags().Changed(flag) {
			if mapping.val {
				overrides[mapping.key] = "true"
			} else {
				overrides[mapping.key] = "false"
			}
		}
	}

	return overrides
}

func run(cmd *cobra.Command, cfg *config.Config, args []string) error {
	// Load config with full precedence chain.
	// CLI flags are already bound to cfg, now load file-based configs.
	globalConfigPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		globalConfigPath = home + "/.loopctl/config"
	}
	projectConfigPath := ".loopctl/config"
	explicitConfigPath := cfg.ConfigFile

	// Build CLI overrides map using Changed() for accurate detection
	cliOverrides := buildCLIOverrides(cmd, cfg)

	// Load config with precedence
	finalCfg, err := config.LoadWithPrecedence(globalConfigPath, projectConfigPath, explicitConfigPath, cliOverrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Merge CLI-only flags (not in config files)
	finalCfg.ConfigFile = cfg.ConfigFile
	finalCfg.Ultrawork = cfg.Ultrawork
	finalCfg.Status = cfg.Status
	finalCfg.Cancel = cfg.Cancel
	finalCfg.Clean = cfg.Clean

	// Replace cfg reference for subsequent use
	cfg = finalCfg

	// Set verbose mode
	logging.SetVerbose(cfg.Verbose)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := host.NewCLIHost(cfg.AgentCLI, host.ModelRef{ModelID: cfg.AgentModel}, cfg.MaxTurns, cfg.Verbose)
	sessionID, err := h.CreateSession(ctx, "", "loopctl main session")
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c, err := core.New(cfg, h, sessionID)
	if err != nil {
		return err
	}

	// Management commands exit before any agent work starts.
	switch {
	case cfg.Clean:
		c.Clean()
		return nil
	case cfg.Status:
		printStatus(c)
		return nil
	case cfg.Cancel:
		iteration := iterationOf(c.Loop().State())
		if !c.Loop().Cancel(sessionID) {
			logging.Info("No loop state to cancel")
			return nil
		}
		banner.PrintCancelledBanner(iteration)
		return nil
	}

	promptText := strings.TrimSpace(strings.Join(args, " "))

	// Setup signal handler to pause the loop on interrupt
	sighandler.SetupSignalHandler(ctx, cancel, func() {
		logging.Warn("Interrupted — pausing loop...")
		c.OnSessionAborted(sessionID)
	})

	exitCode := drive(ctx, c, h, cfg, sessionID, promptText)
	os.Exit(exitCode)
	return nil // unreachable
}

// drive runs the polling prompt loop: the CLI adapter has no native idle
// events, so every completed reply is treated as an idle signal and resolved
// into the next continuation.
func drive(ctx context.Context, c *core.Core, h host.Host, cfg *config.Config, sessionID, promptText string) int {
	startTime := time.Now()

	var text string
	if promptText != "" {
		if cfg.Ultrawork {
			c.StartUltrawork(sessionID, promptText)
		}
		_, err := c.Loop().Start(ctx, loop.StartOptions{
			SessionID:     sessionID,
			Prompt:        promptText,
			MaxIterations: cfg.MaxIterations,
			Ultrawork:     cfg.Ultrawork,
		})
		if err != nil {
			if errors.Is(err, loop.ErrAlreadyActive) {
				logging.Error("A loop is already active — run with no prompt to resume it, or --cancel first")
			} else {
				logging.Error(err.Error())
			}
			return exitcode.Error
		}
		banner.PrintStartupBanner(sessionID, cfg.AgentCLI, cfg.AgentModel, c.Store().Path(store.StoriesFile))
		text = promptText
	} else {
		// No prompt: resume whatever durable state claims this project.
		mode := c.RestorePersistentModes(sessionID)
		if !c.Loop().ActiveFor(sessionID) {
			logging.Error("No active loop to resume — provide a task prompt to start one")
			return exitcode.Error
		}
		logging.Info(fmt.Sprintf("Resuming %s", mode))
		d := c.ResolveIdle(ctx, sessionID)
		if !d.Act {
			return finalCode(c, startTime, d.Message)
		}
		text = d.Message
	}

	for {
		reply, err := h.Prompt(ctx, sessionID, host.PromptRequest{Text: text})
		if err != nil {
			if ctx.Err() != nil {
				banner.PrintInterruptedBanner(iterationOf(c.Loop().State()))
				c.Notify(notification.EventInterrupted)
				return exitcode.Interrupted
			}
			logging.Error(fmt.Sprintf("agent invocation failed: %v", err))
			return exitcode.Error
		}
		if reply.Err != nil {
			logging.Error(fmt.Sprintf("provider error: %v", reply.Err))
			c.OnSessionAborted(sessionID)
			return exitcode.Error
		}

		// Completion tokens open a verification round before anything
		// else sees this reply.
		c.OnAssistantMessage(ctx, sessionID, reply.Text)

		d := c.ResolveIdle(ctx, sessionID)
		if !d.Act {
			return finalCode(c, startTime, d.Message)
		}
		text = d.Message
	}
}

// finalCode maps the terminal loop state to an exit code and prints the
// matching banner.
func finalCode(c *core.Core, startTime time.Time, notice string) int {
	if notice != "" {
		logging.Info(notice)
	}

	ls := c.Loop().State()
	duration := int(time.Since(startTime).Seconds())

	if ls != nil && !ls.Active && ls.Iteration >= ls.MaxIterations {
		banner.PrintMaxIterationsBanner(ls.Iteration, ls.MaxIterations)
		return exitcode.MaxIterations
	}
	banner.PrintCompletionBanner(iterationOf(ls), duration, ls != nil && !ls.Active)
	c.Notify(notification.EventCompleted)
	return exitcode.Success
}

func printStatus(c *core.Core) {
	s := c.Status()
	info := banner.StatusInfo{
		StoriesDone:    s.StoriesDone,
		StoriesTotal:   s.StoriesTotal,
		Paused:         s.Paused,
		PauseReason:    s.PauseReason,
		RunningBGTasks: s.RunningTasks,
	}
	if s.Loop != nil {
		info.SessionID = s.Loop.SessionID
		info.Active = s.Loop.Active
		info.Iteration = s.Loop.Iteration
		info.MaxIterations = s.Loop.MaxIterations
	}
	if s.Verification != nil {
		info.VerifyPending = s.Verification.Pending
		info.VerifyAttempts = s.Verification.Attempts
		info.VerifyMax = s.Verification.MaxAttempts
		if s.Verification.LastFeedback != nil {
			info.LastFeedback = *s.Verification.LastFeedback
		}
	}
	banner.PrintStatusBanner(info)
}

func iterationOf(ls *store.LoopState) int {
	if ls == nil {
		return 0
	}
	return ls.Iteration
}
