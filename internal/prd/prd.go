// Package prd manages the structured story list the loop judges its progress
// against: acceptance-criteria-bearing stories with priorities and pass
// flags, persisted as one JSON document by the store.
package prd

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CodexForgeBR/loopctl/internal/store"
)

// Manager owns story-list operations over a project's store.
type Manager struct {
	store *store.Store
}

// NewManager creates a story-list manager backed by the given store.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Load returns the persisted task list, or an empty one if none exists.
func (m *Manager) Load() *store.TaskList {
	if tl := m.store.TaskList(); tl != nil {
		return tl
	}
	now := time.Now()
	return &store.TaskList{CreatedAt: now, UpdatedAt: now}
}

// Save persists the task list, refreshing its updated timestamp.
func (m *Manager) Save(tl *store.TaskList) error {
	tl.UpdatedAt = time.Now()
	return m.store.SaveTaskList(tl)
}

// EnsureSeed lazily creates the task list on first loop start: when no story
// exists, a single catch-all story is seeded from the originating prompt.
func (m *Manager) EnsureSeed(prompt string) (*store.TaskList, error) {
	tl := m.Load()
	if len(tl.Stories) > 0 {
		return tl, nil
	}

	title := prompt
	if r := []rune(title); len(r) > 72 {
		title = string(r[:72]) + "..."
	}
	tl.Stories = append(tl.Stories, store.Story{
		ID:          newStoryID(),
		Title:       title,
		Description: prompt,
		AcceptanceCriteria: []string{
			"The requested work is fully implemented",
			"No task from the original request remains unaddressed",
		},
		Priority: 1,
	})
	if err := m.Save(tl); err != nil {
		return nil, fmt.Errorf("seed task list: %w", err)
	}
	return tl, nil
}

// AddStory appends a story to the list, generating or regenerating its id
// when it is empty or collides with an existing one.
func (m *Manager) AddStory(tl *store.TaskList, s store.Story) store.Story {
	if s.ID == "" || m.hasID(tl, s.ID) {
		s.ID = newStoryID()
	}
	tl.Stories = append(tl.Stories, s)
	return s
}

// MarkPassed flips the named story to passes=true and stamps its completion
// time. Returns false when the story is unknown or already passed.
func (m *Manager) MarkPassed(tl *store.TaskList, id string) bool {
	for i := range tl.Stories {
		if tl.Stories[i].ID == id && !tl.Stories[i].Passes {
			now := time.Now()
			tl.Stories[i].Passes = true
			tl.Stories[i].CompletedAt = &now
			return true
		}
	}
	return false
}

// NextStory returns the lowest-priority story with passes=false, or nil when
// every story passes. Ties resolve in list order.
func NextStory(tl *store.TaskList) *store.Story {
	var next *store.Story
	for i := range tl.Stories {
		s := &tl.Stories[i]
		if s.Passes {
			continue
		}
		if next == nil || s.Priority < next.Priority {
			next = s
		}
	}
	return next
}

// Counts returns the number of passed stories and the total.
func Counts(tl *store.TaskList) (done, total int) {
	for _, s := range tl.Stories {
		if s.Passes {
			done++
		}
	}
	return done, len(tl.Stories)
}

func (m *Manager) hasID(tl *store.TaskList, id string) bool {
	for _, s := range tl.Stories {
		if s.ID == id {
			return true
		}
	}
	return false
}

func newStoryID() string {
	return "story-" + uuid.NewString()[:8]
}
