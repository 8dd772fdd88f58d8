package host

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/CodexForgeBR/loopctl/internal/logging"
)

// CLIHost adapts an agent CLI (claude, codex, ...) to the Host interface.
// Each session maps to a conversation id passed back to the CLI on every
// prompt; the CLI is executed once per prompt and its stdout is the reply.
//
// A CLI-backed host has no native task list and no idle events, so
// deployments on this adapter drive continuation by polling the resolver.
type CLIHost struct {
	Command  string   // CLI binary name, e.g. "claude"
	Model    ModelRef // default model for new sessions
	MaxTurns int
	Verbose  bool
	WorkDir  string

	mu       sync.Mutex
	seq      int
	sessions map[string]*cliSession
}

type cliSession struct {
	id        string
	parentID  string
	title     string
	model     ModelRef
	lastModel ModelRef
	cancel    context.CancelFunc // set while a prompt is running
}

// NewCLIHost creates a host adapter that shells out to the given agent CLI.
func NewCLIHost(command string, model ModelRef, maxTurns int, verbose bool) *CLIHost {
	return &CLIHost{
		Command:  command,
		Model:    model,
		MaxTurns: maxTurns,
		Verbose:  verbose,
		sessions: make(map[string]*cliSession),
	}
}

// CreateSession registers a new conversation under the parent id.
func (h *CLIHost) CreateSession(ctx context.Context, parentID, title string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	id := fmt.Sprintf("%s-%s-%04d", h.Command, time.Now().Format("20060102-150405"), h.seq)
	h.sessions[id] = &cliSession{
		id:       id,
		parentID: parentID,
		title:    title,
		model:    h.Model,
	}
	return id, nil
}

// buildArgs constructs the argument list for one CLI invocation.
func (h *CLIHost) buildArgs(s *cliSession, req PromptRequest) []string {
	model := s.model
	if req.Model != nil {
		model = *req.Model
	}
	args := []string{
		"--print",
		"--model", model.ModelID,
		"--max-turns", fmt.Sprintf("%d", h.MaxTurns),
		"--session-id", s.id,
	}
	if req.Agent != "" {
		args = append(args, "--agent", req.Agent)
	}
	if h.Verbose {
		args = append(args, "--verbose")
	}
	args = append(args, "--prompt", req.Text)
	return args
}

// Prompt executes the agent CLI and returns its full stdout as the reply.
// Provider authorization failures are surfaced as a structured ReplyError
// rather than a Go error, matching the host contract: the prompt was
// delivered, the provider refused it.
func (h *CLIHost) Prompt(ctx context.Context, sessionID string, req PromptRequest) (Reply, error) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return Reply{}, fmt.Errorf("unknown session: %s", sessionID)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	args := h.buildArgs(s, req)
	h.mu.Unlock()

	defer func() {
		cancel()
		h.mu.Lock()
		s.cancel = nil
		h.mu.Unlock()
	}()

	cmd := exec.CommandContext(runCtx, h.Command, args...)
	if h.WorkDir != "" {
		cmd.Dir = h.WorkDir
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()
	text := out.String()

	if perr := detectProviderError(text); perr != nil {
		return Reply{Text: text, Err: perr}, nil
	}
	if runErr != nil {
		if runCtx.Err() != nil {
			return Reply{Text: text}, runCtx.Err()
		}
		return Reply{Text: text}, fmt.Errorf("%s command failed: %w", h.Command, runErr)
	}

	h.mu.Lock()
	if req.Model != nil {
		s.lastModel = *req.Model
	} else {
		s.lastModel = s.model
	}
	h.mu.Unlock()

	return Reply{Text: text}, nil
}

// Abort cancels the session's in-flight prompt, if any.
func (h *CLIHost) Abort(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Todos returns nil: a CLI-backed host has no native task list. The loop
// path judges progress from the persisted story list instead.
func (h *CLIHost) Todos(ctx context.Context, sessionID string) ([]Todo, error) {
	return nil, nil
}

// LastModel returns the provider/model pair of the session's most recent
// response, or the session default if it has not been prompted yet.
func (h *CLIHost) LastModel(ctx context.Context, sessionID string) (ModelRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return ModelRef{}, fmt.Errorf("unknown session: %s", sessionID)
	}
	if !s.lastModel.IsZero() {
		return s.lastModel, nil
	}
	return s.model, nil
}

// Toast logs the notification; a CLI host has no UI surface.
func (h *CLIHost) Toast(sessionID, message string) {
	logging.Info(message)
}

// detectProviderError scans CLI output for provider authorization or quota
// failures and returns a structured error when one is found.
func detectProviderError(output string) *ReplyError {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "authentication_error"),
		strings.Contains(lower, "invalid api key"),
		strings.Contains(lower, "not logged in"):
		return &ReplyError{Name: "ProviderAuthError", Message: "provider rejected credentials"}
	case strings.Contains(lower, "credit balance is too low"),
		strings.Contains(lower, "quota exceeded"):
		return &ReplyError{Name: "ProviderQuotaError", Message: "provider quota exhausted"}
	default:
		return nil
	}
}
