// Package verify implements the completion verification loop: a free-text
// "I'm done" claim is not trusted until an independent reviewer approves it,
// bounded by a max-attempt circuit breaker that auto-approves rather than
// deadlock the controlling session.
package verify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/CodexForgeBR/loopctl/internal/logging"
	"github.com/CodexForgeBR/loopctl/internal/notification"
	"github.com/CodexForgeBR/loopctl/internal/prompt"
	"github.com/CodexForgeBR/loopctl/internal/store"
)

// Verdict tokens the reviewer must emit.
const (
	ApprovedToken = "<verdict>APPROVED</verdict>"
	RejectedToken = "<verdict>REJECTED</verdict>"
)

// Verdict is the parsed outcome of a review.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
	VerdictUnknown  Verdict = "unknown"
)

// ParseVerdict extracts the verdict from reviewer output, along with the
// feedback text following a rejection tag.
func ParseVerdict(output string) (Verdict, string) {
	if strings.Contains(output, ApprovedToken) {
		return VerdictApproved, ""
	}
	if idx := strings.Index(output, RejectedToken); idx >= 0 {
		feedback := strings.TrimSpace(output[idx+len(RejectedToken):])
		return VerdictRejected, feedback
	}
	return VerdictUnknown, ""
}

// Reviewer obtains an independent verdict for a review prompt.
type Reviewer interface {
	Review(ctx context.Context, sessionID, reviewPrompt string) (string, error)
}

// InjectFunc sends a forced continuation back into the claiming session.
type InjectFunc func(ctx context.Context, sessionID, message string) error

// Verifier owns the VerificationState lifecycle for a project.
type Verifier struct {
	store       *store.Store
	reviewer    Reviewer
	inject      InjectFunc
	maxAttempts int
	onVerified  func(sessionID string)
	notify      func(event, sessionID string)

	mu       sync.Mutex
	inFlight map[string]bool
	resight  map[string]string // claims sighted while a round was in flight
}

// New creates a verifier. onVerified fires when a claim is approved — either
// genuinely or by the attempt-cap circuit breaker.
func New(s *store.Store, reviewer Reviewer, inject InjectFunc, maxAttempts int, onVerified func(sessionID string)) *Verifier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Verifier{
		store:       s,
		reviewer:    reviewer,
		inject:      inject,
		maxAttempts: maxAttempts,
		onVerified:  onVerified,
		inFlight:    make(map[string]bool),
		resight:     make(map[string]string),
	}
}

// SetNotify registers a best-effort publisher for rejected and auto-approved
// verdict events.
func (v *Verifier) SetNotify(fn func(event, sessionID string)) {
	v.notify = fn
}

// Pending reports whether a verification is pending for the project.
func (v *Verifier) Pending() bool {
	vs := v.store.VerificationState()
	return vs != nil && vs.Pending
}

// HandleCompletionClaim runs review rounds for a completion-token sighting.
// A claim sighted while a round is in flight (typically the reply to the
// injected rejection feedback, routed back through the host) queues for one
// more round instead of spawning a duplicate review. A failure to reach the
// reviewer is logged and swallowed; the round is simply retried on the next
// sighting.
func (v *Verifier) HandleCompletionClaim(ctx context.Context, sessionID, originalTask, claim string, done, total int) {
	v.mu.Lock()
	if v.inFlight[sessionID] {
		v.resight[sessionID] = claim
		v.mu.Unlock()
		return
	}
	v.inFlight[sessionID] = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		delete(v.inFlight, sessionID)
		delete(v.resight, sessionID)
		v.mu.Unlock()
	}()

	for {
		vs := v.store.VerificationState()
		if vs == nil || !vs.Pending {
			vs = &store.VerificationState{
				Pending:      true,
				OriginalTask: originalTask,
				Claim:        claim,
				MaxAttempts:  v.maxAttempts,
				SessionID:    sessionID,
			}
			if err := v.store.SaveVerificationState(vs); err != nil {
				logging.Warn(fmt.Sprintf("save verification state: %v", err))
			}
		}

		reviewPrompt := prompt.BuildReviewPrompt(vs.OriginalTask, claim, done, total)
		output, err := v.reviewer.Review(ctx, sessionID, reviewPrompt)
		if err != nil {
			logging.Warn(fmt.Sprintf("verification review not delivered: %v", err))
			return
		}

		verdict, feedback := ParseVerdict(output)
		switch verdict {
		case VerdictApproved:
			v.approve(sessionID)
			return

		case VerdictRejected:
			v.reject(ctx, vs, sessionID, feedback)

		default:
			// No recognizable verdict: leave the state pending without
			// burning an attempt, so the next sighting retries.
			logging.Warn("verification review returned no verdict")
		}

		// The rejection feedback's reply may have claimed completion again;
		// run another round for it while the verification is still pending.
		// Bounded: every rejected round advances the attempt counter toward
		// the auto-approve cap.
		v.mu.Lock()
		next, queued := v.resight[sessionID]
		delete(v.resight, sessionID)
		v.mu.Unlock()
		if !queued || !v.Pending() {
			return
		}
		claim = next
	}
}

func (v *Verifier) approve(sessionID string) {
	v.store.ClearVerificationState()
	logging.Success("Completion claim approved by independent review")
	if v.onVerified != nil {
		v.onVerified(sessionID)
	}
}

func (v *Verifier) reject(ctx context.Context, vs *store.VerificationState, sessionID, feedback string) {
	now := time.Now()
	vs.Attempts++
	vs.LastFeedback = &feedback
	vs.LastAttemptAt = &now

	if vs.Attempts >= vs.MaxAttempts {
		// Circuit breaker: repeated rejection with no progress is itself a
		// failure mode to escape. Auto-approve rather than hold the session
		// hostage to its own safety mechanism.
		v.store.ClearVerificationState()
		logging.Warn(fmt.Sprintf("Verification attempts exhausted (%d/%d) — auto-approving", vs.Attempts, vs.MaxAttempts))
		if v.notify != nil {
			v.notify(notification.EventAutoApproved, sessionID)
		}
		if v.onVerified != nil {
			v.onVerified(sessionID)
		}
		return
	}

	if err := v.store.SaveVerificationState(vs); err != nil {
		logging.Warn(fmt.Sprintf("save verification state: %v", err))
	}
	logging.Info(fmt.Sprintf("Completion claim rejected (%d/%d attempts)", vs.Attempts, vs.MaxAttempts))
	if v.notify != nil {
		v.notify(notification.EventRejected, sessionID)
	}

	msg := prompt.BuildVerificationFeedback(feedback, vs.Attempts, vs.MaxAttempts)
	if err := v.inject(ctx, sessionID, msg); err != nil {
		logging.Warn(fmt.Sprintf("verification feedback not delivered: %v", err))
	}
}
