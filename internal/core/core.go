// Package core wires the orchestration pieces together and exposes the event
// surface the host (or the CLI driver) feeds: session idle, assistant
// message, tool activity, abort, delete. Each event fans out to the loop,
// the verifier, the enforcer, and the background scheduler as needed.
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CodexForgeBR/loopctl/internal/config"
	"github.com/CodexForgeBR/loopctl/internal/enforcer"
	"github.com/CodexForgeBR/loopctl/internal/host"
	"github.com/CodexForgeBR/loopctl/internal/logging"
	"github.com/CodexForgeBR/loopctl/internal/loop"
	"github.com/CodexForgeBR/loopctl/internal/modes"
	"github.com/CodexForgeBR/loopctl/internal/notification"
	"github.com/CodexForgeBR/loopctl/internal/prd"
	"github.com/CodexForgeBR/loopctl/internal/roles"
	"github.com/CodexForgeBR/loopctl/internal/scheduler"
	"github.com/CodexForgeBR/loopctl/internal/store"
	"github.com/CodexForgeBR/loopctl/internal/verify"
)

// ultraworkTrigger is the magic word in a user message that flips the
// session into ultrawork mode.
const ultraworkTrigger = "ultrawork"

// Core owns one project's orchestration state and collaborators.
type Core struct {
	cfg      *config.Config
	host     host.Host
	store    *store.Store
	stories  *prd.Manager
	catalog  *roles.Catalog
	registry *modes.Registry
	loop     *loop.Controller
	verifier *verify.Verifier
	resolver *modes.Resolver
	enforcer *enforcer.Enforcer
	sched    *scheduler.Scheduler

	mainSession string
}

// backgroundCount adapts the scheduler to the enforcer's monitor interface
// for one parent session.
type backgroundCount struct {
	sched  *scheduler.Scheduler
	parent string
}

func (b backgroundCount) RunningCount() int {
	return b.sched.RunningCount(b.parent)
}

// cliReviewer obtains verdicts by spawning a fresh reviewer session, so the
// review never shares context with the session under review.
type cliReviewer struct {
	host  host.Host
	model string
}

func (r cliReviewer) Review(ctx context.Context, sessionID, reviewPrompt string) (string, error) {
	reviewID, err := r.host.CreateSession(ctx, sessionID, "completion review")
	if err != nil {
		return "", fmt.Errorf("create review session: %w", err)
	}
	reply, err := r.host.Prompt(ctx, reviewID, host.PromptRequest{
		Text:  reviewPrompt,
		Model: &host.ModelRef{ModelID: r.model},
		Agent: "reviewer",
	})
	if err != nil {
		return "", err
	}
	if reply.Err != nil {
		return "", reply.Err
	}
	return reply.Text, nil
}

// New assembles a core for one project and main session.
func New(cfg *config.Config, h host.Host, mainSession string) (*Core, error) {
	catalog, err := roles.LoadCatalog(cfg.RolesFile)
	if err != nil {
		return nil, err
	}

	st := store.New(cfg.StateDir)
	stories := prd.NewManager(st)
	registry := modes.NewRegistry()

	c := &Core{
		cfg:         cfg,
		host:        h,
		store:       st,
		stories:     stories,
		catalog:     catalog,
		registry:    registry,
		mainSession: mainSession,
	}

	c.loop = loop.NewController(st, stories, registry, cfg.MaxIterations, c.notifyEvent)
	c.verifier = verify.New(st, cliReviewer{host: h, model: cfg.ReviewerModel}, c.inject, cfg.MaxVerifyAttempts, c.loop.Finish)
	c.verifier.SetNotify(func(event, sessionID string) {
		c.notifyEvent(event, sessionID, c.currentIteration())
	})
	c.resolver = modes.NewResolver(registry, c.loop, h, cfg.TodoAttemptCap)
	c.resolver.OnUltraworkDone(c.StopUltrawork)
	c.sched = scheduler.New(h, catalog, scheduler.Options{
		MaxRunning:    cfg.MaxBackgroundTasks,
		ScopeToParent: cfg.ScopeTasksToParent,
		PollInterval:  time.Duration(cfg.WaitPollMillis) * time.Millisecond,
	})
	c.enforcer = enforcer.New(h, registry, backgroundCount{sched: c.sched, parent: mainSession}, c.inject, enforcer.Tunables{
		BaseSeconds:        cfg.CountdownBaseSeconds,
		SkipPercent:        cfg.CountdownSkipPercent,
		RapidIdleWindow:    time.Duration(cfg.RapidIdleWindowSeconds) * time.Second,
		RapidIdleThreshold: cfg.RapidIdleThreshold,
	}, mainSession)

	return c, nil
}

// Store exposes the project state store.
func (c *Core) Store() *store.Store { return c.store }

// Loop exposes the loop controller.
func (c *Core) Loop() *loop.Controller { return c.loop }

// Scheduler exposes the background task scheduler.
func (c *Core) Scheduler() *scheduler.Scheduler { return c.sched }

// Registry exposes the in-memory session mode registry.
func (c *Core) Registry() *modes.Registry { return c.registry }

// inject sends a forced continuation into a session using the configured
// agent model. The reply is a normal assistant turn: it flows back through
// OnAssistantMessage so completion claims in it are never lost.
func (c *Core) inject(ctx context.Context, sessionID, message string) error {
	reply, err := c.host.Prompt(ctx, sessionID, host.PromptRequest{
		Text:  message,
		Model: &host.ModelRef{ModelID: c.cfg.AgentModel},
	})
	if err != nil {
		return err
	}
	if reply.Err != nil {
		return reply.Err
	}
	c.OnAssistantMessage(ctx, sessionID, reply.Text)
	return nil
}

// notifyEvent publishes a loop lifecycle event through the configured
// notifier. Best effort.
func (c *Core) notifyEvent(event, sessionID string, iteration int) {
	msg := notification.FormatEvent(event, projectName(), sessionID, iteration)
	notification.SendNotification(c.cfg.NotifyWebhook, c.cfg.NotifyChannel, c.cfg.NotifyChatID, msg)
}

// Notify publishes a lifecycle event for the main session at the current loop
// iteration. The CLI driver uses it for its completed and interrupted exits.
func (c *Core) Notify(event string) {
	c.notifyEvent(event, c.mainSession, c.currentIteration())
}

func (c *Core) currentIteration() int {
	if ls := c.store.LoopState(); ls != nil {
		return ls.Iteration
	}
	return 0
}

func projectName() string {
	wd, err := os.Getwd()
	if err != nil {
		return "project"
	}
	return filepath.Base(wd)
}

// RestorePersistentModes rebuilds the in-memory mode registry from durable
// state after a restart: a live loop record re-registers its mode, a
// persisted ultrawork flag re-activates ultrawork, and a persisted pause
// re-pauses the session. Returns the restored mode.
func (c *Core) RestorePersistentModes(sessionID string) modes.Mode {
	if ps := c.store.PauseState(); ps != nil && ps.IsPaused {
		c.registry.Pause(sessionID, ps.Reason)
	}

	if ls := c.store.LoopState(); ls != nil && ls.Active {
		mode := modes.ModeRalphLoop
		if uf := c.store.UltraworkFlag(); uf != nil && uf.Active {
			mode = modes.ModeUltraworkRalph
		}
		c.registry.SetMode(sessionID, mode, ls.Prompt)
		logging.Info(fmt.Sprintf("Restored %s mode (iteration %d/%d)", mode, ls.Iteration, ls.MaxIterations))
		return mode
	}

	if uf := c.store.UltraworkFlag(); uf != nil && uf.Active {
		c.registry.SetMode(sessionID, modes.ModeUltrawork, "")
		logging.Info("Restored ultrawork mode")
		return modes.ModeUltrawork
	}

	return modes.ModeNone
}

// OnUserMessage inspects a user message for mode triggers. Any user message
// resumes a paused session; the ultrawork trigger word activates ultrawork.
func (c *Core) OnUserMessage(ctx context.Context, sessionID, text string) {
	if c.registry.IsPaused(sessionID) {
		c.registry.Resume(sessionID)
		c.store.ClearPauseState()
		logging.Info("Session resumed by user activity")
	}

	if strings.Contains(strings.ToLower(text), ultraworkTrigger) {
		c.StartUltrawork(sessionID, text)
	}
}

// StartUltrawork activates ultrawork mode for the session. When a loop is
// already live the combined ultrawork-ralph mode is used instead.
func (c *Core) StartUltrawork(sessionID, taskDescription string) {
	mode := modes.ModeUltrawork
	if c.loop.ActiveFor(sessionID) {
		mode = modes.ModeUltraworkRalph
	}
	c.registry.SetMode(sessionID, mode, taskDescription)

	uf := &store.UltraworkFlag{Active: true, SessionID: sessionID, StartedAt: time.Now()}
	if err := c.store.SaveUltraworkFlag(uf, c.globalStateDir()); err != nil {
		logging.Warn(fmt.Sprintf("save ultrawork flag: %v", err))
	}
	logging.Section("Ultrawork mode engaged")
}

// StopUltrawork clears ultrawork mode and its durable flag.
func (c *Core) StopUltrawork(sessionID string) {
	if st := c.registry.ModeFor(sessionID); st != nil {
		switch st.Mode {
		case modes.ModeUltrawork:
			c.registry.ClearMode(sessionID)
		case modes.ModeUltraworkRalph:
			c.registry.SetMode(sessionID, modes.ModeRalphLoop, st.TaskDescription)
		}
	}
	c.store.ClearUltraworkFlag(c.globalStateDir())
}

func (c *Core) globalStateDir() string {
	if !c.cfg.PersistUltraworkGlobally {
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".loopctl")
}

// OnSessionIdle handles an idle event. Persistent modes (loop, ultrawork)
// resolve and act immediately; the baseline todo continuation goes through
// the enforcer's adaptive countdown when enabled, or acts immediately
// otherwise.
func (c *Core) OnSessionIdle(ctx context.Context, sessionID string) {
	if c.registry.IsPaused(sessionID) {
		return
	}

	if c.cfg.UseEnforcer && !c.persistentModeActive(sessionID) {
		c.enforcer.OnIdle(ctx, sessionID)
		return
	}

	d := c.resolver.Resolve(ctx, sessionID)
	if d.Act {
		if err := c.inject(ctx, sessionID, d.Message); err != nil {
			logging.Warn(fmt.Sprintf("continuation not delivered: %v", err))
		}
		return
	}
	if d.Message != "" {
		c.host.Toast(sessionID, d.Message)
	}
}

// ResolveIdle returns the continuation decision for an idle session without
// injecting it. Hosts with no native idle events (the CLI adapter) drive
// their own prompt loop and call this directly.
func (c *Core) ResolveIdle(ctx context.Context, sessionID string) modes.Decision {
	return c.resolver.Resolve(ctx, sessionID)
}

func (c *Core) persistentModeActive(sessionID string) bool {
	if c.loop.ActiveFor(sessionID) {
		return true
	}
	st := c.registry.ModeFor(sessionID)
	return st != nil && (st.Mode == modes.ModeUltrawork || st.Mode == modes.ModeUltraworkRalph)
}

// OnAssistantMessage handles an assistant response: any response cancels a
// pending countdown, and a completion token in a loop-bound session opens a
// verification round.
func (c *Core) OnAssistantMessage(ctx context.Context, sessionID, text string) {
	c.enforcer.CancelCountdown()

	if !c.loop.ActiveFor(sessionID) {
		return
	}
	if !loop.HasCompletionToken(text, c.loop.CompletionTokenFor(sessionID)) {
		return
	}

	ls := c.loop.State()
	tl := c.stories.Load()
	done, total := prd.Counts(tl)
	originalTask := ""
	if ls != nil {
		originalTask = ls.Prompt
	}
	logging.Info("Completion claimed — requesting independent review")
	c.verifier.HandleCompletionClaim(ctx, sessionID, originalTask, text, done, total)
}

// OnToolEvent handles tool activity: the session is working, so any pending
// countdown is moot.
func (c *Core) OnToolEvent(sessionID string) {
	c.enforcer.CancelCountdown()
}

// OnSessionAborted pauses continuation for a session the user interrupted.
// The pause is durable so a restarted host honors it.
func (c *Core) OnSessionAborted(sessionID string) {
	c.enforcer.CancelCountdown()
	c.registry.Pause(sessionID, store.PauseUserAbort)
	ps := &store.PauseState{
		IsPaused:  true,
		PausedAt:  time.Now(),
		Reason:    store.PauseUserAbort,
		SessionID: sessionID,
	}
	if err := c.store.SavePauseState(ps); err != nil {
		logging.Warn(fmt.Sprintf("save pause state: %v", err))
	}
	logging.Info("Session aborted — continuation paused until the next user message")
}

// OnSessionDeleted tears down everything tied to a session: mode state, a
// bound loop record, and any background tasks it spawned.
func (c *Core) OnSessionDeleted(ctx context.Context, sessionID string) {
	c.enforcer.CancelCountdown()
	c.loop.HandleSessionDeleted(sessionID)
	c.registry.DropSession(sessionID)
	if n := c.sched.CancelAllTasks(ctx, sessionID); n > 0 {
		logging.Info(fmt.Sprintf("Cancelled %d background task(s) for deleted session", n))
	}
}

// Status snapshots the project's durable and in-memory state for display.
type Status struct {
	Loop         *store.LoopState
	Verification *store.VerificationState
	StoriesDone  int
	StoriesTotal int
	Paused       bool
	PauseReason  string
	RunningTasks int
}

// Status assembles the current orchestration status.
func (c *Core) Status() Status {
	tl := c.stories.Load()
	done, total := prd.Counts(tl)

	s := Status{
		Loop:         c.store.LoopState(),
		Verification: c.store.VerificationState(),
		StoriesDone:  done,
		StoriesTotal: total,
		RunningTasks: c.sched.RunningCount(c.mainSession),
	}
	if ps := c.store.PauseState(); ps != nil && ps.IsPaused {
		s.Paused = true
		s.PauseReason = ps.Reason
	}
	return s
}

// Clean removes all durable orchestration state for the project, the story
// list included, so the next loop start seeds from its own prompt.
func (c *Core) Clean() {
	c.store.ClearLoopState()
	c.store.ClearVerificationState()
	c.store.ClearTaskList()
	c.store.ClearPauseState()
	c.store.ClearUltraworkFlag(c.globalStateDir())
	logging.Success("Orchestration state cleared")
}
