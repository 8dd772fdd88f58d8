// Package loop drives the durable iteration loop: it starts and cancels loop
// records, advances the iteration counter on every idle-triggered
// continuation, and stops the loop at the configured ceiling. All state lives
// in the project store so a restarted host resumes where the loop left off.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CodexForgeBR/loopctl/internal/logging"
	"github.com/CodexForgeBR/loopctl/internal/modes"
	"github.com/CodexForgeBR/loopctl/internal/notification"
	"github.com/CodexForgeBR/loopctl/internal/prd"
	"github.com/CodexForgeBR/loopctl/internal/prompt"
	"github.com/CodexForgeBR/loopctl/internal/store"
)

// ErrAlreadyActive is returned when a loop start races an existing active
// loop for the same session.
var ErrAlreadyActive = errors.New("a loop is already active for this session")

// NotifyFunc publishes a lifecycle event. Best effort; never blocks the loop.
type NotifyFunc func(event, sessionID string, iteration int)

// Controller is the loop state machine over one project store.
type Controller struct {
	store      *store.Store
	stories    *prd.Manager
	reg        *modes.Registry
	notify     NotifyFunc
	defaultMax int
}

// NewController creates a loop controller. notify may be nil.
func NewController(s *store.Store, stories *prd.Manager, reg *modes.Registry, defaultMax int, notify NotifyFunc) *Controller {
	if defaultMax <= 0 {
		defaultMax = 20
	}
	if notify == nil {
		notify = func(string, string, int) {}
	}
	return &Controller{
		store:      s,
		stories:    stories,
		reg:        reg,
		notify:     notify,
		defaultMax: defaultMax,
	}
}

// StartOptions parameterize a loop start.
type StartOptions struct {
	SessionID     string
	Prompt        string
	MaxIterations int  // 0 means the configured default
	Ultrawork     bool // layer ultrawork reinforcement onto the loop
}

// Start begins a new loop for a session: seeds the story list from the
// prompt if empty, persists the loop record at iteration 0, and registers
// the session mode. Fails with ErrAlreadyActive if a live loop exists.
func (c *Controller) Start(ctx context.Context, opts StartOptions) (*store.LoopState, error) {
	if existing := c.store.LoopState(); existing != nil && existing.Active {
		return nil, ErrAlreadyActive
	}

	if _, err := c.stories.EnsureSeed(opts.Prompt); err != nil {
		return nil, err
	}

	max := opts.MaxIterations
	if max <= 0 {
		max = c.defaultMax
	}
	ls := &store.LoopState{
		Active:          true,
		Iteration:       0,
		MaxIterations:   max,
		CompletionToken: DefaultCompletionToken,
		StartedAt:       time.Now(),
		Prompt:          opts.Prompt,
		SessionID:       opts.SessionID,
		PRDMode:         true,
	}
	if err := c.store.SaveLoopState(ls); err != nil {
		return nil, err
	}

	mode := modes.ModeRalphLoop
	if opts.Ultrawork {
		mode = modes.ModeUltraworkRalph
	}
	c.reg.SetMode(opts.SessionID, mode, opts.Prompt)

	logging.Section(fmt.Sprintf("Loop started (max %d iterations)", max))
	c.notify(notification.EventLoopStarted, opts.SessionID, 0)
	return ls, nil
}

// ActiveFor reports whether a live loop claims this session. A record with
// no bound session claims every session in the project.
func (c *Controller) ActiveFor(sessionID string) bool {
	ls := c.store.LoopState()
	if ls == nil || !ls.Active {
		return false
	}
	return ls.SessionID == "" || ls.SessionID == sessionID
}

// State returns the persisted loop record, or nil.
func (c *Controller) State() *store.LoopState {
	return c.store.LoopState()
}

// Advance performs one idle-triggered iteration step. The counter increments
// first; if it reaches the ceiling the loop deactivates (the record stays on
// disk for inspection) and the returned notice carries act=false. Otherwise
// the composed continuation prompt for the next unmet story returns with
// act=true.
func (c *Controller) Advance(ctx context.Context, sessionID string) (string, bool) {
	ls := c.store.LoopState()
	if ls == nil || !ls.Active {
		return "", false
	}

	ls.Iteration++
	now := time.Now()
	ls.LastActivityAt = &now

	if ls.Iteration >= ls.MaxIterations {
		ls.Active = false
		if err := c.store.SaveLoopState(ls); err != nil {
			logging.Warn(fmt.Sprintf("save loop state: %v", err))
		}
		c.reg.ClearMode(sessionID)
		logging.Warn(fmt.Sprintf("Loop stopped: reached max iterations (%d)", ls.MaxIterations))
		c.notify(notification.EventMaxIterations, sessionID, ls.Iteration)
		return fmt.Sprintf("Iteration limit reached (%d/%d). The loop has stopped; review progress and restart if more work remains.",
			ls.Iteration, ls.MaxIterations), false
	}

	tl := c.stories.Load()
	next := prd.NextStory(tl)
	done, total := prd.Counts(tl)
	if next != nil {
		ls.CurrentStoryID = &next.ID
	} else {
		ls.CurrentStoryID = nil
	}
	if err := c.store.SaveLoopState(ls); err != nil {
		logging.Warn(fmt.Sprintf("save loop state: %v", err))
	}

	logging.Info(fmt.Sprintf("Loop iteration %d/%d (%d/%d stories passing)",
		ls.Iteration, ls.MaxIterations, done, total))

	return prompt.BuildLoopContinuation(prompt.LoopData{
		Iteration:       ls.Iteration,
		MaxIterations:   ls.MaxIterations,
		OriginalTask:    ls.Prompt,
		Story:           next,
		Done:            done,
		Total:           total,
		StoriesPath:     c.store.Path(store.StoriesFile),
		ProgressPath:    c.store.Path(store.ProgressFile),
		CompletionToken: ls.CompletionToken,
	}), true
}

// CompletionTokenFor returns the token the live loop expects, or the default
// when no loop is active.
func (c *Controller) CompletionTokenFor(sessionID string) string {
	if ls := c.store.LoopState(); ls != nil && ls.Active {
		return ls.CompletionToken
	}
	return DefaultCompletionToken
}

// Finish marks the loop complete after a verified completion claim: the
// record deactivates in place, the current story is marked passed, and the
// session mode clears.
func (c *Controller) Finish(sessionID string) {
	ls := c.store.LoopState()
	if ls == nil || !ls.Active {
		return
	}

	tl := c.stories.Load()
	if ls.CurrentStoryID != nil && c.stories.MarkPassed(tl, *ls.CurrentStoryID) {
		if err := c.stories.Save(tl); err != nil {
			logging.Warn(fmt.Sprintf("save stories: %v", err))
		}
	}
	if err := c.store.AppendIterationEntry(ls.Iteration, "completion verified"); err != nil {
		logging.Warn(fmt.Sprintf("append progress: %v", err))
	}

	ls.Active = false
	if err := c.store.SaveLoopState(ls); err != nil {
		logging.Warn(fmt.Sprintf("save loop state: %v", err))
	}
	c.reg.ClearMode(sessionID)

	logging.Success(fmt.Sprintf("Loop finished after %d iterations", ls.Iteration))
	c.notify(notification.EventVerified, sessionID, ls.Iteration)
}

// Cancel removes the loop record entirely and clears the session mode.
// Reports whether a record existed to cancel.
func (c *Controller) Cancel(sessionID string) bool {
	ls := c.store.LoopState()
	if ls == nil {
		return false
	}
	iteration := ls.Iteration
	c.store.ClearLoopState()
	c.store.ClearVerificationState()
	c.reg.ClearMode(sessionID)

	logging.Info(fmt.Sprintf("Loop cancelled at iteration %d", iteration))
	c.notify(notification.EventCancelled, sessionID, iteration)
	return true
}

// HandleSessionDeleted deactivates a loop bound to a deleted session. The
// record stays on disk so a later start can inspect where it got to.
func (c *Controller) HandleSessionDeleted(sessionID string) {
	ls := c.store.LoopState()
	if ls == nil || !ls.Active || ls.SessionID != sessionID {
		return
	}
	ls.Active = false
	if err := c.store.SaveLoopState(ls); err != nil {
		logging.Warn(fmt.Sprintf("save loop state: %v", err))
	}
	c.reg.DropSession(sessionID)
}
