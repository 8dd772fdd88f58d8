// Package exitcode defines named exit codes for the loopctl CLI.
//
// Each code maps a specific termination condition to a numeric value
// recognized by shell scripts and CI pipelines.
package exitcode

// Exit code constants for the loopctl data model.
const (
	Success       = 0   // Loop finished with a verified completion
	Error         = 1   // Invalid args, file not found, misconfiguration
	MaxIterations = 2   // Iteration ceiling reached before completion
	Cancelled     = 3   // Loop cancelled by explicit request
	Interrupted   = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case MaxIterations:
		return "MaxIterations"
	case Cancelled:
		return "Cancelled"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}
