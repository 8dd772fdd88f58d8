// Package scheduler admits, runs, tracks, and cancels delegated background
// tasks against a parent session. Admission is bounded by a running-task
// ceiling; execution happens in a detached goroutine that is the sole writer
// of the task's terminal fields.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CodexForgeBR/loopctl/internal/host"
	"github.com/CodexForgeBR/loopctl/internal/logging"
	"github.com/CodexForgeBR/loopctl/internal/roles"
)

// Options configures a Scheduler.
type Options struct {
	// MaxRunning is the admission ceiling (default 5).
	MaxRunning int
	// ScopeToParent counts running tasks per parent session instead of
	// globally when checking the ceiling.
	ScopeToParent bool
	// PollInterval is the WaitForTask polling period (default 50ms).
	PollInterval time.Duration
}

// Scheduler is the background task registry. Constructed once per
// host-plugin instantiation; all maps are mutex-protected.
type Scheduler struct {
	host    host.Host
	catalog *roles.Catalog
	opts    Options

	mu     sync.Mutex
	seq    int
	tasks  map[string]*Task
	order  []string                 // generation order of task ids
	models map[string]host.ModelRef // parent session id -> cached model
}

// New creates a scheduler over the given host and role catalog.
func New(h host.Host, catalog *roles.Catalog, opts Options) *Scheduler {
	if opts.MaxRunning <= 0 {
		opts.MaxRunning = 5
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if catalog == nil {
		catalog = roles.DefaultCatalog()
	}
	return &Scheduler{
		host:    h,
		catalog: catalog,
		opts:    opts,
		tasks:   make(map[string]*Task),
		models:  make(map[string]host.ModelRef),
	}
}

// CreateRequest describes a delegated unit of work.
type CreateRequest struct {
	ParentSessionID string
	Description     string
	Prompt          string
	Role            string
	Model           *host.ModelRef // explicit model hint; nil inherits
}

// CreateTask admits a task and returns immediately with status=running.
// Returns a CapacityError (wrapping ErrCapacityExceeded) when the running
// ceiling is reached. The actual work — creating a child session, resolving
// a model, sending the prompt, awaiting the reply — runs detached and
// mutates the same record when it finishes; its failures are recorded on
// the task, never raised here.
func (s *Scheduler) CreateTask(ctx context.Context, req CreateRequest) (Task, error) {
	s.mu.Lock()
	running := s.runningLocked(req.ParentSessionID)
	if running >= s.opts.MaxRunning {
		s.mu.Unlock()
		return Task{}, &CapacityError{Running: running, Limit: s.opts.MaxRunning}
	}

	s.seq++
	t := &Task{
		ID:              fmt.Sprintf("bg-%04d-%s", s.seq, uuid.NewString()[:8]),
		Status:          StatusRunning,
		Description:     req.Description,
		ParentSessionID: req.ParentSessionID,
		Role:            req.Role,
		StartedAt:       time.Now(),
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	snapshot := *t
	s.mu.Unlock()

	go s.run(t.ID, req)

	return snapshot, nil
}

// run executes one delegated task. Detached from the creator's context:
// cancellation happens through CancelTask, not context propagation.
func (s *Scheduler) run(id string, req CreateRequest) {
	ctx := context.Background()

	childID, err := s.host.CreateSession(ctx, req.ParentSessionID, req.Description)
	if err != nil {
		s.finish(id, StatusFailed, "", fmt.Sprintf("create child session: %v", err))
		return
	}

	s.mu.Lock()
	if t, ok := s.tasks[id]; ok && t.Status == StatusRunning {
		t.ChildSessionID = childID
	}
	s.mu.Unlock()

	model := s.resolveModel(ctx, req)

	reply, err := s.host.Prompt(ctx, childID, host.PromptRequest{
		Text:  req.Prompt,
		Model: model,
		Agent: req.Role,
	})
	if err != nil {
		s.finish(id, StatusFailed, reply.Text, fmt.Sprintf("prompt failed: %v", err))
		return
	}
	if reply.Err != nil {
		s.finish(id, StatusFailed, reply.Text, reply.Err.Error())
		return
	}

	s.finish(id, StatusCompleted, reply.Text, "")
}

// finish records a terminal status. A task already terminal (e.g. cancelled
// while the work was in flight) is left untouched.
func (s *Scheduler) finish(id string, status Status, result, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	now := time.Now()
	t.Status = status
	t.Result = result
	t.Error = errText
	t.CompletedAt = &now
}

// resolveModel picks the model for a delegated task: explicit hint, then the
// parent session's cached/queried model, then the role's declared tier.
func (s *Scheduler) resolveModel(ctx context.Context, req CreateRequest) *host.ModelRef {
	if req.Model != nil {
		return req.Model
	}
	if m, ok := s.GetParentSessionModel(ctx, req.ParentSessionID); ok {
		return &m
	}
	if req.Role != "" {
		if r, ok := s.catalog.Lookup(req.Role); ok && r.Model != "" {
			return &host.ModelRef{ModelID: r.Model}
		}
	}
	return nil
}

// GetParentSessionModel returns the provider/model pair the parent session
// last responded with, caching it per parent for the remainder of the
// process so delegated workers match the parent's provider by default.
func (s *Scheduler) GetParentSessionModel(ctx context.Context, parentID string) (host.ModelRef, bool) {
	s.mu.Lock()
	if m, ok := s.models[parentID]; ok {
		s.mu.Unlock()
		return m, true
	}
	s.mu.Unlock()

	m, err := s.host.LastModel(ctx, parentID)
	if err != nil || m.IsZero() {
		return host.ModelRef{}, false
	}

	s.mu.Lock()
	s.models[parentID] = m
	s.mu.Unlock()
	return m, true
}

// GetTask returns a snapshot of the task, or ErrUnknownTask.
func (s *Scheduler) GetTask(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrUnknownTask
	}
	return *t, nil
}

// GetTasksByParentSession returns snapshots of every task belonging to the
// parent session, in generation order.
func (s *Scheduler) GetTasksByParentSession(parentID string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Task
	for _, id := range s.order {
		if t := s.tasks[id]; t != nil && t.ParentSessionID == parentID {
			out = append(out, *t)
		}
	}
	return out
}

// RunningCount returns the number of running tasks, scoped to the parent
// when parentID is non-empty.
func (s *Scheduler) RunningCount(parentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if t.Status != StatusRunning {
			continue
		}
		if parentID == "" || t.ParentSessionID == parentID {
			n++
		}
	}
	return n
}

// CancelTask flips a running task to cancelled and best-effort requests the
// host to abort the underlying child session; failure to abort is logged,
// not raised. Returns false for unknown or non-running tasks.
func (s *Scheduler) CancelTask(ctx context.Context, id string) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok || t.Status != StatusRunning {
		s.mu.Unlock()
		return false
	}
	now := time.Now()
	t.Status = StatusCancelled
	t.CompletedAt = &now
	childID := t.ChildSessionID
	s.mu.Unlock()

	if childID != "" {
		go func() {
			if err := s.host.Abort(ctx, childID); err != nil {
				logging.Warn(fmt.Sprintf("abort session %s: %v", childID, err))
			}
		}()
	}
	return true
}

// CancelAllTasks cancels every running task, scoped to the parent when
// parentID is non-empty. Returns the count cancelled.
func (s *Scheduler) CancelAllTasks(ctx context.Context, parentID string) int {
	s.mu.Lock()
	var ids []string
	for _, id := range s.order {
		t := s.tasks[id]
		if t == nil || t.Status != StatusRunning {
			continue
		}
		if parentID == "" || t.ParentSessionID == parentID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if s.CancelTask(ctx, id) {
			n++
		}
	}
	return n
}

// WaitForTask polls until the task reaches a terminal status or the timeout
// expires. Expiry raises ErrWaitTimeout with no side effect on the task:
// the background execution keeps running and may still complete later.
func (s *Scheduler) WaitForTask(ctx context.Context, id string, timeout time.Duration) (Task, error) {
	deadline := time.Now().Add(timeout)

	for {
		t, err := s.GetTask(id)
		if err != nil {
			return Task{}, err
		}
		if t.Status.Terminal() {
			return t, nil
		}
		if time.Now().After(deadline) {
			return Task{}, fmt.Errorf("task %s: %w", id, ErrWaitTimeout)
		}

		select {
		case <-ctx.Done():
			return Task{}, ctx.Err()
		case <-time.After(s.opts.PollInterval):
		}
	}
}

// runningLocked counts running tasks under the configured admission scope.
// Caller must hold s.mu.
func (s *Scheduler) runningLocked(parentID string) int {
	n := 0
	for _, t := range s.tasks {
		if t.Status != StatusRunning {
			continue
		}
		if s.opts.ScopeToParent && t.ParentSessionID != parentID {
			continue
		}
		n++
	}
	return n
}
