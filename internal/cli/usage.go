// Package cli provides help text and usage formatting for the loopctl CLI.
package cli

import (
	"github.com/spf13/cobra"
)

const helpTemplate = `loopctl - Continuation and delegation loop orchestrator for agent CLIs

USAGE
  loopctl [flags] [prompt]

FLAGS
  Agent CLI & Models:
    --agent-cli <cli>                      Agent CLI to drive (default: claude)
    --agent-model <model>                  Model for the working session (default: opus)
    --reviewer-model <model>               Model for completion review (default: opus)
    --max-turns <int>                      Max agent turns per invocation (default: 100)

  Loop & Verification Limits:
    --max-iterations <int>                 Maximum loop iterations (default: 20)
    --max-verify-attempts <int>            Rejected completion reviews before auto-approve (default: 3)
    --todo-attempt-cap <int>               Baseline continuation nudges per session (default: 5)

  Background Tasks:
    --max-background-tasks <int>           Concurrently running background tasks (default: 5)
    --scope-tasks-to-parent                Task ceiling per parent session instead of globally

  Idle Enforcer:
    --use-enforcer                         Adaptive countdown enforcer for baseline continuation
    --countdown-base <int>                 Countdown length in seconds (default: 2)
    --countdown-skip-percent <int>         Completion percent skipping the countdown (default: 90)

  File Layout:
    --state-dir <path>                     Project state directory (default: .loopctl)
    --roles-file <path>                    Worker role catalog (default: .loopctl/roles.yaml)
    --config <path>                        Path to additional config file

  Modes:
    --ultrawork                            Layer ultrawork reinforcement onto the loop

  Feature Toggles:
    -v, --verbose                          Verbose logging
    --persist-ultrawork-globally           Mirror the ultrawork flag under ~/.loopctl

  Notifications:
    --notify-webhook <url>                 OpenClaw webhook URL (default: http://127.0.0.1:18789/webhook)
    --notify-channel <channel>             Notification channel (default: telegram)
    --notify-chat-id <id>                  Recipient chat ID (required to enable notifications)

  Session Management:
    --status                               Show loop status and exit
    --cancel                               Cancel the active loop and exit
    --clean                                Delete orchestration state and exit

  Help & Version:
    -h, --help                             Show this help text
    --version                              Show version, commit, build date

EXIT CODES
  0   Success              Loop finished with a verified completion
  1   Error                Invalid arguments, file not found, misconfiguration
  2   MaxIterations        Iteration limit reached without completion
  3   Cancelled            Loop cancelled
  130 Interrupted          SIGINT or SIGTERM received

EXAMPLES
  # Start a loop on a task
  loopctl "implement the pagination API described in TODO.md"

  # Layer ultrawork reinforcement onto the loop
  loopctl --ultrawork "migrate the storage layer to the v2 schema"

  # Check loop status
  loopctl --status

  # Cancel the active loop
  loopctl --cancel

For more information, see: https://github.com/CodexForgeBR/loopctl
`

// SetCustomHelp configures the cobra command to use our custom help template.
func SetCustomHelp(cmd *cobra.Command) {
	cmd.SetHelpTemplate(helpTemplate)
}
