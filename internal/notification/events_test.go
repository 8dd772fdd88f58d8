package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name        string
		event       string
		projectName string
		sessionID   string
		iteration   int
		wantContain []string
	}{
		{
			name:        "loop started event",
			event:       EventLoopStarted,
			projectName: "my-project",
			sessionID:   "session-123",
			iteration:   0,
			wantContain: []string{"▶️", "my-project", "[session-123]", "loop started"},
		},
		{
			name:        "completed event",
			event:       EventCompleted,
			projectName: "my-project",
			sessionID:   "session-123",
			iteration:   5,
			wantContain: []string{"✅", "my-project", "[session-123]", "completed", "5 iterations"},
		},
		{
			name:        "verified event",
			event:       EventVerified,
			projectName: "my-project",
			sessionID:   "session-456",
			iteration:   7,
			wantContain: []string{"✅", "my-project", "[session-456]", "verified", "iteration 7"},
		},
		{
			name:        "rejected event",
			event:       EventRejected,
			projectName: "my-project",
			sessionID:   "session-789",
			iteration:   3,
			wantContain: []string{"❌", "my-project", "[session-789]", "rejected", "iteration 3"},
		},
		{
			name:        "auto approved event",
			event:       EventAutoApproved,
			projectName: "my-project",
			sessionID:   "session-abc",
			iteration:   9,
			wantContain: []string{"⚠️", "my-project", "[session-abc]", "auto-approved", "iteration 9"},
		},
		{
			name:        "max iterations event",
			event:       EventMaxIterations,
			projectName: "my-project",
			sessionID:   "session-def",
			iteration:   20,
			wantContain: []string{"⚠️", "my-project", "[session-def]", "max iterations", "(20)"},
		},
		{
			name:        "cancelled event",
			event:       EventCancelled,
			projectName: "my-project",
			sessionID:   "session-ghi",
			iteration:   4,
			wantContain: []string{"⏹️", "my-project", "[session-ghi]", "cancelled", "iteration 4"},
		},
		{
			name:        "interrupted event",
			event:       EventInterrupted,
			projectName: "paused-proj",
			sessionID:   "session-jkl",
			iteration:   8,
			wantContain: []string{"⏸️", "paused-proj", "[session-jkl]", "interrupted", "iteration 8"},
		},
		{
			name:        "unknown event",
			event:       "unknown_event",
			projectName: "test-proj",
			sessionID:   "session-xyz",
			iteration:   1,
			wantContain: []string{"ℹ️", "test-proj", "[session-xyz]", "event: unknown_event"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatEvent(tt.event, tt.projectName, tt.sessionID, tt.iteration)

			for _, want := range tt.wantContain {
				assert.Contains(t, result, want, "message should contain %q", want)
			}
		})
	}
}

func TestFormatEvent_AllEventsIncludeProjectAndSession(t *testing.T) {
	events := []string{
		EventLoopStarted,
		EventCompleted,
		EventVerified,
		EventRejected,
		EventAutoApproved,
		EventMaxIterations,
		EventCancelled,
		EventInterrupted,
	}

	projectName := "test-project"
	sessionID := "test-session-123"

	for _, event := range events {
		t.Run(event, func(t *testing.T) {
			result := FormatEvent(event, projectName, sessionID, 5)

			assert.Contains(t, result, projectName, "should include project name")
			assert.Contains(t, result, sessionID, "should include session ID")
		})
	}
}

func TestEventConstants(t *testing.T) {
	// Verify event constant values match expected strings
	assert.Equal(t, "loop_started", EventLoopStarted)
	assert.Equal(t, "completed", EventCompleted)
	assert.Equal(t, "verified", EventVerified)
	assert.Equal(t, "rejected", EventRejected)
	assert.Equal(t, "auto_approved", EventAutoApproved)
	assert.Equal(t, "max_iterations", EventMaxIterations)
	assert.Equal(t, "cancelled", EventCancelled)
	assert.Equal(t, "interrupted", EventInterrupted)
}
