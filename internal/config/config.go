// Package config defines the loopctl configuration model and default values.
//
// Configuration is assembled from multiple sources with a strict precedence
// chain: built-in defaults < global config file < project config file <
// explicit config file < CLI flag overrides.
package config

// WhitelistedVars lists every configuration variable name that may appear in
// config files. Variables not in this list are silently ignored during loading.
var WhitelistedVars = [22]string{
	"AGENT_CLI",
	"AGENT_MODEL",
	"REVIEWER_MODEL",
	"MAX_TURNS",
	"MAX_ITERATIONS",
	"MAX_VERIFY_ATTEMPTS",
	"TODO_ATTEMPT_CAP",
	"MAX_BACKGROUND_TASKS",
	"SCOPE_TASKS_TO_PARENT",
	"WAIT_POLL_MILLIS",
	"COUNTDOWN_BASE_SECONDS",
	"COUNTDOWN_SKIP_PERCENT",
	"RAPID_IDLE_WINDOW_SECONDS",
	"RAPID_IDLE_THRESHOLD",
	"STATE_DIR",
	"ROLES_FILE",
	"PERSIST_ULTRAWORK_GLOBALLY",
	"USE_ENFORCER",
	"VERBOSE",
	"NOTIFY_WEBHOOK",
	"NOTIFY_CHANNEL",
	"NOTIFY_CHAT_ID",
}

// Config holds every configuration field for the loopctl orchestration core.
type Config struct {
	// Agent CLI and model selection for the exec-based host adapter.
	AgentCLI      string
	AgentModel    string
	ReviewerModel string
	MaxTurns      int

	// Loop and verification limits.
	MaxIterations     int
	MaxVerifyAttempts int
	TodoAttemptCap    int

	// Background task scheduling.
	MaxBackgroundTasks int
	ScopeTasksToParent bool
	WaitPollMillis     int

	// Idle continuation enforcer heuristics. These are tunables, not
	// invariants: the mechanism (configurable base, skip threshold, two
	// independent shortening conditions) is the contract.
	CountdownBaseSeconds   int
	CountdownSkipPercent   int
	RapidIdleWindowSeconds int
	RapidIdleThreshold     int

	// Deployment switch: enforcer drives idle handling when the host emits
	// native idle events; otherwise the resolver is polled directly.
	UseEnforcer bool

	// File layout.
	StateDir  string
	RolesFile string

	// Cross-session ultrawork persistence under the user-global directory.
	PersistUltraworkGlobally bool

	// Runtime flags.
	Verbose bool

	// Notification settings.
	NotifyWebhook string
	NotifyChannel string
	NotifyChatID  string

	// CLI-only flags (not loaded from config files).
	ConfigFile string
	Ultrawork  bool
	Status     bool
	Cancel     bool
	Clean      bool
}

// NewDefaultConfig returns a Config populated with all built-in default values.
func NewDefaultConfig() *Config {
	return &Config{
		AgentCLI:               "claude",
		AgentModel:             "opus",
		ReviewerModel:          "opus",
		MaxTurns:               100,
		MaxIterations:          20,
		MaxVerifyAttempts:      3,
		TodoAttemptCap:         5,
		MaxBackgroundTasks:     5,
		WaitPollMillis:         50,
		CountdownBaseSeconds:   2,
		CountdownSkipPercent:   90,
		RapidIdleWindowSeconds: 5,
		RapidIdleThreshold:     3,
		StateDir:               ".loopctl",
		RolesFile:              ".loopctl/roles.yaml",
		NotifyWebhook:          "http://127.0.0.1:18789/webhook",
		NotifyChannel:          "telegram",
	}
}
