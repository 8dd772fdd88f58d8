// Package banner provides colored banner display functions for the loopctl CLI.
//
// All banner functions write formatted output to stdout with color-coded
// headers and separators, used to display loop status, completion, and other
// important state transitions.
package banner

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/CodexForgeBR/loopctl/internal/logging"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// PrintStartupBanner displays the startup banner with loop info.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  loopctl - Continuation & Delegation Orchestrator
//	═══════════════════════════════════════════════════
//	  Session:    claude-20260826-101500-0001
//	  Agent:      claude
//	  Model:      opus
//	  Stories:    .loopctl/stories.json
//	═══════════════════════════════════════════════════
func PrintStartupBanner(sessionID string, agent string, model string, storiesPath string) {
	sep := headerColor("═══════════════════════════════════════════════════")
	fmt.Println(sep)
	fmt.Println(headerColor("  loopctl - Continuation & Delegation Orchestrator"))
	fmt.Println(sep)
	fmt.Printf("  Session:    %s\n", sessionID)
	fmt.Printf("  Agent:      %s\n", agent)
	fmt.Printf("  Model:      %s\n", model)
	fmt.Printf("  Stories:    %s\n", storiesPath)
	fmt.Println(sep)
}

// PrintCompletionBanner displays the completion banner with stats.
func PrintCompletionBanner(iterations int, durationSecs int, verified bool) {
	sep := successColor("═══════════════════════════════════════════════════")
	fmt.Println(sep)
	if verified {
		fmt.Println(successColor("  ✓ Completion claim independently verified"))
	} else {
		fmt.Println(successColor("  ✓ Loop complete"))
	}
	fmt.Printf("  Iterations: %d\n", iterations)
	fmt.Printf("  Duration:   %s (%ds)\n", logging.FormatDuration(durationSecs), durationSecs)
	fmt.Println(sep)
}

// PrintMaxIterationsBanner displays when the iteration ceiling is reached.
func PrintMaxIterationsBanner(iterations int, maxIterations int) {
	sep := warnColor("═══════════════════════════════════════════════════")
	fmt.Println(sep)
	fmt.Printf(warnColor("  ⚠ Max iterations reached (%d/%d)\n"), iterations, maxIterations)
	fmt.Println(sep)
}

// PrintCancelledBanner displays when the loop is cancelled.
func PrintCancelledBanner(iteration int) {
	sep := warnColor("═══════════════════════════════════════════════════")
	fmt.Println(sep)
	fmt.Println(warnColor("  ⏹ Loop cancelled"))
	fmt.Printf("  Iteration: %d\n", iteration)
	fmt.Println(sep)
}

// PrintInterruptedBanner displays when the process is interrupted.
func PrintInterruptedBanner(iteration int) {
	sep := warnColor("═══════════════════════════════════════════════════")
	fmt.Println(sep)
	fmt.Println(warnColor("  ⚠ Session interrupted"))
	fmt.Printf("  Iteration: %d\n", iteration)
	fmt.Println("  Loop state was saved; start loopctl again to continue")
	fmt.Println(sep)
}

// StatusInfo carries the fields the status banner renders.
type StatusInfo struct {
	SessionID       string
	Active          bool
	Iteration       int
	MaxIterations   int
	StoriesDone     int
	StoriesTotal    int
	VerifyPending   bool
	VerifyAttempts  int
	VerifyMax       int
	Paused          bool
	PauseReason     string
	RunningBGTasks  int
	LastFeedback    string
}

// PrintStatusBanner displays the current loop status.
func PrintStatusBanner(info StatusInfo) {
	sep := strings.Repeat("─", 50)
	fmt.Println(sep)
	fmt.Printf("  Session:    %s\n", info.SessionID)
	if info.Active {
		fmt.Printf("  Status:     active (%d/%d iterations)\n", info.Iteration, info.MaxIterations)
	} else {
		fmt.Println("  Status:     inactive")
	}
	fmt.Printf("  Stories:    %d/%d passing\n", info.StoriesDone, info.StoriesTotal)
	if info.VerifyPending {
		fmt.Printf("  Verify:     pending (%d/%d attempts)\n", info.VerifyAttempts, info.VerifyMax)
	}
	if info.Paused {
		fmt.Printf("  Paused:     yes (%s)\n", info.PauseReason)
	}
	if info.RunningBGTasks > 0 {
		fmt.Printf("  Background: %d task(s) running\n", info.RunningBGTasks)
	}
	if info.LastFeedback != "" {
		fmt.Printf("  Feedback:   %s\n", info.LastFeedback)
	}
	fmt.Println(sep)
}
