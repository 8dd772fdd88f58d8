// Package modes owns the volatile per-session continuation policy state:
// which mode drives a session, pause flags, recovery flags, and the
// todo-continuation attempt counters. One registry is constructed per
// host-plugin instantiation; entries are dropped on session deletion to
// bound memory.
package modes

import (
	"sync"
	"time"
)

// Mode is the high-level continuation policy governing a session.
type Mode string

const (
	ModeNone             Mode = "none"
	ModeTodoContinuation Mode = "todo-continuation"
	ModeRalphLoop        Mode = "ralph-loop"
	ModeUltrawork        Mode = "ultrawork"
	ModeUltraworkRalph   Mode = "ultrawork-ralph"
)

// State is the volatile mode record for one session.
type State struct {
	Mode            Mode
	SessionID       string
	StartedAt       time.Time
	TaskDescription string
	Reinforcements  int // ultrawork reinforcement counter
}

// PauseInfo records why a session is paused.
type PauseInfo struct {
	PausedAt time.Time
	Reason   string
}

// Registry is the process-wide session policy state.
type Registry struct {
	mu         sync.Mutex
	modes      map[string]*State
	attempts   map[string]int
	paused     map[string]*PauseInfo
	recovering map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modes:      make(map[string]*State),
		attempts:   make(map[string]int),
		paused:     make(map[string]*PauseInfo),
		recovering: make(map[string]bool),
	}
}

// SetMode records the mode driving a session.
func (r *Registry) SetMode(sessionID string, mode Mode, taskDescription string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.modes[sessionID] = &State{
		Mode:            mode,
		SessionID:       sessionID,
		StartedAt:       time.Now(),
		TaskDescription: taskDescription,
	}
}

// ModeFor returns a copy of the session's mode state, or nil.
func (r *Registry) ModeFor(sessionID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.modes[sessionID]
	if !ok {
		return nil
	}
	cp := *st
	return &cp
}

// BumpReinforcements increments the session's ultrawork reinforcement
// counter and returns the new value.
func (r *Registry) BumpReinforcements(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.modes[sessionID]
	if !ok {
		return 0
	}
	st.Reinforcements++
	return st.Reinforcements
}

// ClearMode removes the session's mode record.
func (r *Registry) ClearMode(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.modes, sessionID)
}

// Attempts returns the session's todo-continuation attempt count.
func (r *Registry) Attempts(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[sessionID]
}

// BumpAttempts increments the session's todo-continuation attempt counter
// and returns the new value.
func (r *Registry) BumpAttempts(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts[sessionID]++
	return r.attempts[sessionID]
}

// ResetAttempts zeroes the session's todo-continuation attempt counter.
func (r *Registry) ResetAttempts(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, sessionID)
}

// Pause marks the session paused for the given reason.
func (r *Registry) Pause(sessionID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paused[sessionID] = &PauseInfo{PausedAt: time.Now(), Reason: reason}
}

// Resume clears the session's pause flag.
func (r *Registry) Resume(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paused, sessionID)
}

// IsPaused reports whether the session is paused.
func (r *Registry) IsPaused(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused[sessionID] != nil
}

// PauseFor returns a copy of the session's pause info, or nil.
func (r *Registry) PauseFor(sessionID string) *PauseInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.paused[sessionID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// SetRecovering flags or unflags the session as recovering from an error.
func (r *Registry) SetRecovering(sessionID string, recovering bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if recovering {
		r.recovering[sessionID] = true
	} else {
		delete(r.recovering, sessionID)
	}
}

// IsRecovering reports whether the session is recovering.
func (r *Registry) IsRecovering(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recovering[sessionID]
}

// DropSession removes every entry for the session. Idempotent; called on
// session deletion.
func (r *Registry) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.modes, sessionID)
	delete(r.attempts, sessionID)
	delete(r.paused, sessionID)
	delete(r.recovering, sessionID)
}
