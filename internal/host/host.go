// Package host defines the contract the orchestration core consumes from its
// host collaborator: session creation, prompting, aborting, task-list queries,
// model lookup, and toast notifications. The exact transport is the host's
// business; the core only depends on this interface.
package host

import (
	"context"
	"fmt"
)

// TodoStatus is the lifecycle state of a host task-list item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

// Todo is one item on a session's host-managed task list.
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// ModelRef identifies the provider/model pair a session runs on.
type ModelRef struct {
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id"`
}

// String renders the pair as "provider/model".
func (m ModelRef) String() string {
	if m.ProviderID == "" {
		return m.ModelID
	}
	return m.ProviderID + "/" + m.ModelID
}

// IsZero reports whether no model is set.
func (m ModelRef) IsZero() bool {
	return m.ProviderID == "" && m.ModelID == ""
}

// PromptRequest carries a prompt into a session.
type PromptRequest struct {
	Text  string
	Model *ModelRef // nil means "use the session's current model"
	Agent string    // worker role name, opaque to the core
}

// ReplyError is a structured error reported by the host alongside a reply.
type ReplyError struct {
	Name    string
	Message string
}

func (e *ReplyError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Reply is the full assistant response to a prompt.
type Reply struct {
	Text string
	Err  *ReplyError
}

// Host is the collaborator interface the core consumes.
type Host interface {
	// CreateSession opens a child work session under the given parent and
	// returns its id.
	CreateSession(ctx context.Context, parentID, title string) (string, error)

	// Prompt sends text to a session and blocks until the full assistant
	// reply is available.
	Prompt(ctx context.Context, sessionID string, req PromptRequest) (Reply, error)

	// Abort requests termination of a session's current work.
	Abort(ctx context.Context, sessionID string) error

	// Todos returns the session's outstanding task-list items.
	Todos(ctx context.Context, sessionID string) ([]Todo, error)

	// LastModel returns the provider/model pair of the session's most
	// recent response.
	LastModel(ctx context.Context, sessionID string) (ModelRef, error)

	// Toast displays a short-lived notification. Best effort.
	Toast(sessionID, message string)
}

// CountIncomplete returns the number of todos that are pending or in progress.
func CountIncomplete(todos []Todo) int {
	n := 0
	for _, t := range todos {
		if t.Status == TodoPending || t.Status == TodoInProgress {
			n++
		}
	}
	return n
}

// HasInProgress reports whether any todo is actively being worked on.
func HasInProgress(todos []Todo) bool {
	for _, t := range todos {
		if t.Status == TodoInProgress {
			return true
		}
	}
	return false
}

// CompletionPercent returns the completed share of the list as a whole
// percentage. An empty list counts as fully complete.
func CompletionPercent(todos []Todo) int {
	if len(todos) == 0 {
		return 100
	}
	done := 0
	for _, t := range todos {
		if t.Status == TodoCompleted || t.Status == TodoCancelled {
			done++
		}
	}
	return done * 100 / len(todos)
}
