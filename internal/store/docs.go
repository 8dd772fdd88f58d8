package store

import "time"

// Document file names under the project state directory.
const (
	LoopStateFile    = "loop-state.json"
	VerificationFile = "verification-state.json"
	StoriesFile      = "stories.json"
	PauseFile        = "pause.json"
	UltraworkFile    = "ultrawork.json"
	ProgressFile     = "progress.md"
)

// LoopState is the durable record of an iteration loop.
// Written to <state-dir>/loop-state.json.
type LoopState struct {
	Active          bool       `json:"active"`
	Iteration       int        `json:"iteration"`
	MaxIterations   int        `json:"max_iterations"`
	CompletionToken string     `json:"completion_token"`
	StartedAt       time.Time  `json:"started_at"`
	Prompt          string     `json:"prompt"`
	SessionID       string     `json:"session_id"`
	PRDMode         bool       `json:"prd_mode"`
	CurrentStoryID  *string    `json:"current_story_id"`
	LastActivityAt  *time.Time `json:"last_activity_at"`
}

// VerificationState is an in-flight completion review.
// Written to <state-dir>/verification-state.json.
type VerificationState struct {
	Pending       bool       `json:"pending"`
	OriginalTask  string     `json:"original_task"`
	Claim         string     `json:"claim"`
	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"max_attempts"`
	LastFeedback  *string    `json:"last_feedback"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	SessionID     string     `json:"session_id"`
}

// Story is one acceptance-criteria-bearing work item on the task list.
type Story struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	AcceptanceCriteria []string   `json:"acceptance_criteria"`
	Priority           int        `json:"priority"`
	Passes             bool       `json:"passes"`
	Notes              string     `json:"notes,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// TaskList is the persisted story checklist driving the loop's sense of done.
// Written to <state-dir>/stories.json.
type TaskList struct {
	Project   string    `json:"project,omitempty"`
	Stories   []Story   `json:"stories"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pause reasons.
const (
	PauseUserAbort = "user_abort"
	PauseError     = "error"
	PauseExplicit  = "explicit"
)

// PauseState is the persisted pause flag for a session.
// Written to <state-dir>/pause.json.
type PauseState struct {
	IsPaused  bool      `json:"is_paused"`
	PausedAt  time.Time `json:"paused_at"`
	Reason    string    `json:"reason"`
	SessionID string    `json:"session_id"`
}

// UltraworkFlag is the persisted ultrawork mode marker. A secondary copy may
// live under the user-global directory for cross-session persistence.
type UltraworkFlag struct {
	Active    bool      `json:"active"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}
