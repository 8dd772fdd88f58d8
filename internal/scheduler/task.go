package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a background task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Task is one delegated unit of work. The scheduler owns the record; the
// detached execution goroutine is the sole writer of its terminal fields.
type Task struct {
	ID              string     `json:"id"`
	Status          Status     `json:"status"`
	Description     string     `json:"description"`
	ParentSessionID string     `json:"parent_session_id"`
	ChildSessionID  string     `json:"child_session_id,omitempty"`
	Role            string     `json:"role,omitempty"`
	Result          string     `json:"result,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// ErrCapacityExceeded is returned when admitting a task would exceed the
// configured running ceiling. Recoverable: retry once a slot frees.
var ErrCapacityExceeded = errors.New("background task capacity exceeded")

// ErrWaitTimeout is returned when WaitForTask expires before the task
// reaches a terminal status. The task itself keeps running.
var ErrWaitTimeout = errors.New("timed out waiting for background task")

// ErrUnknownTask is returned by lookups for ids the scheduler never issued
// (or has dropped).
var ErrUnknownTask = errors.New("unknown background task")

// CapacityError wraps ErrCapacityExceeded with the observed counts so
// callers can surface remaining headroom.
type CapacityError struct {
	Running int
	Limit   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("background task capacity exceeded (%d/%d running)", e.Running, e.Limit)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}
