package modes

import (
	"context"
	"fmt"

	"github.com/CodexForgeBR/loopctl/internal/host"
	"github.com/CodexForgeBR/loopctl/internal/prompt"
)

// Decision is the resolver's answer to one idle signal: at most one policy
// acts. A caller that receives Act=true must send Message back into the
// session as a fresh instruction; Act=false with a non-empty Message is a
// terminal notice worth surfacing.
type Decision struct {
	Act     bool
	Message string
	Mode    Mode
}

// LoopDriver is the slice of the loop state machine the resolver consults.
// Advance performs one idle-triggered iteration step: it returns the
// composed continuation message with act=true, or a terminal notice with
// act=false when the iteration ceiling was reached (deactivating the loop
// as its own side effect).
type LoopDriver interface {
	ActiveFor(sessionID string) bool
	Advance(ctx context.Context, sessionID string) (message string, act bool)
}

// TodoSource reports a session's outstanding host task-list items.
type TodoSource interface {
	Todos(ctx context.Context, sessionID string) ([]host.Todo, error)
}

// check is one entry in the priority chain. It returns ok=false when the
// policy declines to handle this idle signal.
type check struct {
	name string
	fn   func(ctx context.Context, sessionID string) (Decision, bool)
}

// Resolver arbitrates between the continuation policies on each idle
// signal, in strict priority order: ralph loop, then ultrawork, then
// baseline todo continuation. First match wins; each check fully owns its
// own deactivation logic.
type Resolver struct {
	reg        *Registry
	loop       LoopDriver
	todos      TodoSource
	attemptCap int
	chain      []check

	onUltraworkDone func(sessionID string)
}

// NewResolver builds the priority chain. attemptCap bounds baseline
// todo-continuation nudges per session (default 5 when non-positive).
func NewResolver(reg *Registry, loop LoopDriver, todos TodoSource, attemptCap int) *Resolver {
	if attemptCap <= 0 {
		attemptCap = 5
	}
	r := &Resolver{reg: reg, loop: loop, todos: todos, attemptCap: attemptCap}
	r.chain = []check{
		{name: "ralph-loop", fn: r.checkRalphLoop},
		{name: "ultrawork", fn: r.checkUltrawork},
		{name: "todo-continuation", fn: r.checkTodoContinuation},
	}
	return r
}

// OnUltraworkDone registers a hook fired when the ultrawork check deactivates
// the mode on an empty task list. Ultrawork is durable state: whoever
// persisted the flag must clear it here, or a restart resurrects the mode.
func (r *Resolver) OnUltraworkDone(fn func(sessionID string)) {
	r.onUltraworkDone = fn
}

// Resolve asks each policy, in priority order, whether it wants to act on
// this idle signal and returns the first answer. At most one policy fires.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) Decision {
	for _, c := range r.chain {
		if d, ok := c.fn(ctx, sessionID); ok {
			return d
		}
	}
	return Decision{Mode: ModeNone}
}

// checkRalphLoop delegates to the loop state machine, which owns iteration
// counting and its max-iteration safety valve.
func (r *Resolver) checkRalphLoop(ctx context.Context, sessionID string) (Decision, bool) {
	if r.loop == nil || !r.loop.ActiveFor(sessionID) {
		return Decision{}, false
	}

	mode := ModeRalphLoop
	if st := r.reg.ModeFor(sessionID); st != nil && st.Mode == ModeUltraworkRalph {
		mode = ModeUltraworkRalph
	}

	msg, act := r.loop.Advance(ctx, sessionID)
	if !act {
		return Decision{Act: false, Message: msg, Mode: ModeNone}, true
	}
	return Decision{Act: true, Message: msg, Mode: mode}, true
}

// checkUltrawork reinforces ultrawork mode while incomplete tasks remain,
// and deactivates it with a completion notice once the list empties.
func (r *Resolver) checkUltrawork(ctx context.Context, sessionID string) (Decision, bool) {
	st := r.reg.ModeFor(sessionID)
	if st == nil || st.Mode != ModeUltrawork {
		return Decision{}, false
	}

	incomplete := r.incompleteCount(ctx, sessionID)
	if incomplete == 0 {
		r.reg.ClearMode(sessionID)
		if r.onUltraworkDone != nil {
			r.onUltraworkDone(sessionID)
		}
		return Decision{
			Act:     false,
			Message: "Ultrawork complete: all tasks finished.",
			Mode:    ModeNone,
		}, true
	}

	count := r.reg.BumpReinforcements(sessionID)
	return Decision{
		Act:     true,
		Message: prompt.BuildUltraworkReinforcement(count),
		Mode:    ModeUltrawork,
	}, true
}

// checkTodoContinuation is the baseline policy: nudge while incomplete
// tasks remain, bounded by the per-session attempt cap. The counter resets
// only when the task count returns to zero.
func (r *Resolver) checkTodoContinuation(ctx context.Context, sessionID string) (Decision, bool) {
	incomplete := r.incompleteCount(ctx, sessionID)
	if incomplete == 0 {
		r.reg.ResetAttempts(sessionID)
		return Decision{}, false
	}

	if r.reg.Attempts(sessionID) >= r.attemptCap {
		return Decision{
			Act: false,
			Message: fmt.Sprintf(
				"Todo continuation limit reached (%d attempts) with %d task(s) still incomplete — consider manual intervention.",
				r.attemptCap, incomplete),
			Mode: ModeTodoContinuation,
		}, true
	}

	attempt := r.reg.BumpAttempts(sessionID)
	return Decision{
		Act:     true,
		Message: prompt.BuildBaselineContinuation(attempt),
		Mode:    ModeTodoContinuation,
	}, true
}

// incompleteCount queries the host task list; a failed query behaves like
// an empty list.
func (r *Resolver) incompleteCount(ctx context.Context, sessionID string) int {
	if r.todos == nil {
		return 0
	}
	todos, err := r.todos.Todos(ctx, sessionID)
	if err != nil {
		return 0
	}
	return host.CountIncomplete(todos)
}
