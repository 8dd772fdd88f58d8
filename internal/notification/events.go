package notification

import "fmt"

// Event types for loop lifecycle notifications.
const (
	EventLoopStarted   = "loop_started"
	EventCompleted     = "completed"
	EventVerified      = "verified"
	EventRejected      = "rejected"
	EventAutoApproved  = "auto_approved"
	EventMaxIterations = "max_iterations"
	EventCancelled     = "cancelled"
	EventInterrupted   = "interrupted"
)

// FormatEvent creates a notification message for the given event.
func FormatEvent(event string, projectName string, sessionID string, iteration int) string {
	switch event {
	case EventLoopStarted:
		return fmt.Sprintf("▶️ %s [%s] loop started", projectName, sessionID)
	case EventCompleted:
		return fmt.Sprintf("✅ %s [%s] completed after %d iterations", projectName, sessionID, iteration)
	case EventVerified:
		return fmt.Sprintf("✅ %s [%s] completion independently verified at iteration %d", projectName, sessionID, iteration)
	case EventRejected:
		return fmt.Sprintf("❌ %s [%s] completion claim rejected at iteration %d — continuing", projectName, sessionID, iteration)
	case EventAutoApproved:
		return fmt.Sprintf("⚠️ %s [%s] verification attempts exhausted at iteration %d — auto-approved", projectName, sessionID, iteration)
	case EventMaxIterations:
		return fmt.Sprintf("⚠️ %s [%s] reached max iterations (%d)", projectName, sessionID, iteration)
	case EventCancelled:
		return fmt.Sprintf("⏹️ %s [%s] loop cancelled at iteration %d", projectName, sessionID, iteration)
	case EventInterrupted:
		return fmt.Sprintf("⏸️ %s [%s] interrupted at iteration %d", projectName, sessionID, iteration)
	default:
		return fmt.Sprintf("ℹ️ %s [%s] event: %s", projectName, sessionID, event)
	}
}
