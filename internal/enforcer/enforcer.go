// Package enforcer implements the idle continuation enforcer: when the main
// session goes idle with outstanding todos, a short, cancellable countdown
// runs, and on expiry a continuation nudge is injected. The countdown adapts
// to session behavior so a thrashing session gets nudged faster and a nearly
// done one gets nudged immediately.
package enforcer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CodexForgeBR/loopctl/internal/host"
	"github.com/CodexForgeBR/loopctl/internal/logging"
	"github.com/CodexForgeBR/loopctl/internal/prompt"
)

// Tunables shape the countdown. Zero values are replaced by the package
// defaults matching config defaults.
type Tunables struct {
	BaseSeconds        int // full countdown length
	SkipPercent        int // todo completion percent at which the countdown is skipped
	RapidIdleWindow    time.Duration
	RapidIdleThreshold int
}

func (t Tunables) withDefaults() Tunables {
	if t.BaseSeconds <= 0 {
		t.BaseSeconds = 2
	}
	if t.SkipPercent <= 0 {
		t.SkipPercent = 90
	}
	if t.RapidIdleWindow <= 0 {
		t.RapidIdleWindow = 5 * time.Second
	}
	if t.RapidIdleThreshold <= 0 {
		t.RapidIdleThreshold = 3
	}
	return t
}

// ComputeCountdown returns the countdown length in seconds for one idle
// event. A session at or past the skip threshold gets zero (immediate
// nudge); rapid idling or an in-progress todo shortens the countdown by one
// second, floored at zero.
func ComputeCountdown(t Tunables, completionPct int, rapidIdle, inProgress bool) int {
	t = t.withDefaults()
	if completionPct >= t.SkipPercent {
		return 0
	}
	seconds := t.BaseSeconds
	if rapidIdle || inProgress {
		seconds--
	}
	if seconds < 0 {
		seconds = 0
	}
	return seconds
}

// Suppressor reports conditions under which the enforcer must stand down.
type Suppressor interface {
	IsPaused(sessionID string) bool
	IsRecovering(sessionID string) bool
}

// BackgroundMonitor reports running background tasks for a parent session.
type BackgroundMonitor interface {
	RunningCount() int
}

// InjectFunc sends the continuation nudge into the session.
type InjectFunc func(ctx context.Context, sessionID, message string) error

// Enforcer owns the countdown lifecycle for the main session.
type Enforcer struct {
	host        host.Host
	suppress    Suppressor
	background  BackgroundMonitor
	inject      InjectFunc
	tunables    Tunables
	mainSession string

	mu         sync.Mutex
	cancel     context.CancelFunc
	idleTimes  []time.Time
	injections int
}

// New creates an enforcer bound to one main session. background may be nil.
func New(h host.Host, suppress Suppressor, background BackgroundMonitor, inject InjectFunc, tunables Tunables, mainSession string) *Enforcer {
	return &Enforcer{
		host:        h,
		suppress:    suppress,
		background:  background,
		inject:      inject,
		tunables:    tunables.withDefaults(),
		mainSession: mainSession,
	}
}

// Injections returns how many continuation nudges the enforcer has sent.
func (e *Enforcer) Injections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.injections
}

// OnIdle handles one idle event. Idle events for sessions other than the
// main session are ignored, as are idles while paused, recovering, or while
// background tasks are still running. Otherwise a countdown starts (or
// restarts) toward a continuation nudge.
func (e *Enforcer) OnIdle(ctx context.Context, sessionID string) {
	if sessionID != e.mainSession {
		return
	}
	if e.suppress.IsPaused(sessionID) || e.suppress.IsRecovering(sessionID) {
		return
	}
	if e.background != nil && e.background.RunningCount() > 0 {
		return
	}

	todos, err := e.host.Todos(ctx, sessionID)
	if err != nil {
		logging.Warn(fmt.Sprintf("enforcer todo query: %v", err))
		return
	}
	if host.CountIncomplete(todos) == 0 {
		return
	}

	rapid := e.recordIdle(time.Now())
	seconds := ComputeCountdown(e.tunables, host.CompletionPercent(todos), rapid, host.HasInProgress(todos))
	e.startCountdown(ctx, sessionID, seconds)
}

// CancelCountdown stops any running countdown. Called on every message or
// tool event: activity means the session is not actually stuck.
func (e *Enforcer) CancelCountdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// recordIdle notes an idle timestamp and reports whether the rapid-idle
// condition holds: threshold idles within the window.
func (e *Enforcer) recordIdle(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-e.tunables.RapidIdleWindow)
	kept := e.idleTimes[:0]
	for _, t := range e.idleTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.idleTimes = append(kept, now)
	return len(e.idleTimes) >= e.tunables.RapidIdleThreshold
}

func (e *Enforcer) startCountdown(ctx context.Context, sessionID string, seconds int) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	go e.runCountdown(cctx, sessionID, seconds)
}

func (e *Enforcer) runCountdown(ctx context.Context, sessionID string, seconds int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for remaining := seconds; remaining > 0; remaining-- {
		e.host.Toast(sessionID, fmt.Sprintf("Incomplete todos — resuming in %ds (any activity cancels)", remaining))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	// Re-check just before injecting: the session may have finished its
	// todos during the countdown without emitting activity we saw.
	todos, err := e.host.Todos(ctx, sessionID)
	if err != nil || host.CountIncomplete(todos) == 0 {
		return
	}

	e.mu.Lock()
	e.injections++
	attempt := e.injections
	e.cancel = nil
	e.mu.Unlock()

	msg := prompt.BuildBaselineContinuation(attempt)
	if err := e.inject(ctx, sessionID, msg); err != nil {
		logging.Warn(fmt.Sprintf("enforcer continuation not delivered: %v", err))
		return
	}
	logging.Debug(fmt.Sprintf("enforcer injected continuation #%d into %s", attempt, sessionID))
}
