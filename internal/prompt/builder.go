// Package prompt composes the continuation and review prompts the core
// injects into sessions. Wording lives in embedded templates; builders only
// substitute placeholders and pick deterministic variants.
package prompt

import (
	"fmt"
	"strings"

	"github.com/CodexForgeBR/loopctl/internal/store"
)

// selectVariant picks a message variant from the pool by iteration index.
// Deterministic so the same iteration always yields the same text.
func selectVariant(pool []string, iteration int) string {
	if iteration < 0 {
		iteration = -iteration
	}
	return pool[iteration%len(pool)]
}

// LoopData carries everything a loop continuation prompt embeds.
type LoopData struct {
	Iteration       int
	MaxIterations   int
	OriginalTask    string
	Story           *store.Story
	Done            int
	Total           int
	StoriesPath     string
	ProgressPath    string
	CompletionToken string
}

// BuildLoopContinuation composes the idle-triggered loop continuation prompt:
// a rotating variant carrying the original task, the next unmet story's
// acceptance criteria, progress counts, and the standing progress reminder.
func BuildLoopContinuation(d LoopData) string {
	p := selectVariant(loopVariants, d.Iteration)

	p = strings.ReplaceAll(p, "{{ITERATION}}", fmt.Sprintf("%d", d.Iteration))
	p = strings.ReplaceAll(p, "{{MAX_ITERATIONS}}", fmt.Sprintf("%d", d.MaxIterations))
	p = strings.ReplaceAll(p, "{{ORIGINAL_TASK}}", d.OriginalTask)
	p = strings.ReplaceAll(p, "{{DONE}}", fmt.Sprintf("%d", d.Done))
	p = strings.ReplaceAll(p, "{{TOTAL}}", fmt.Sprintf("%d", d.Total))

	title := "(no unmet story — re-check the story list)"
	criteria := "- (none listed)"
	if d.Story != nil {
		title = d.Story.Title
		if len(d.Story.AcceptanceCriteria) > 0 {
			var b strings.Builder
			for i, c := range d.Story.AcceptanceCriteria {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString("- " + c)
			}
			criteria = b.String()
		}
	}
	p = strings.ReplaceAll(p, "{{STORY_TITLE}}", title)
	p = strings.ReplaceAll(p, "{{CRITERIA}}", criteria)
	p = strings.ReplaceAll(p, "{{PROGRESS_REMINDER}}", buildProgressReminder(d))

	return p
}

func buildProgressReminder(d LoopData) string {
	r := progressReminderTemplate
	r = strings.ReplaceAll(r, "{{STORIES_PATH}}", d.StoriesPath)
	r = strings.ReplaceAll(r, "{{PROGRESS_PATH}}", d.ProgressPath)
	r = strings.ReplaceAll(r, "{{COMPLETION_TOKEN}}", d.CompletionToken)
	return strings.TrimRight(r, "\n")
}

// BuildBaselineContinuation composes the generic todo-continuation nudge.
// attempt selects the variant, so repeated nudges vary their wording.
func BuildBaselineContinuation(attempt int) string {
	return strings.TrimRight(selectVariant(baselineVariants, attempt), "\n")
}

// BuildUltraworkReinforcement composes the ultrawork reinforcement message.
func BuildUltraworkReinforcement(count int) string {
	return strings.TrimRight(selectVariant(ultraworkVariants, count), "\n")
}

// BuildReviewPrompt composes the independent completion review request.
func BuildReviewPrompt(originalTask, claim string, done, total int) string {
	p := reviewTemplate
	p = strings.ReplaceAll(p, "{{ORIGINAL_TASK}}", originalTask)
	p = strings.ReplaceAll(p, "{{CLAIM}}", claim)
	p = strings.ReplaceAll(p, "{{DONE}}", fmt.Sprintf("%d", done))
	p = strings.ReplaceAll(p, "{{TOTAL}}", fmt.Sprintf("%d", total))
	return p
}

// BuildVerificationFeedback composes the forced continuation sent after a
// rejected completion claim.
func BuildVerificationFeedback(feedback string, attempt, maxAttempts int) string {
	p := verifyFeedbackTemplate
	p = strings.ReplaceAll(p, "{{FEEDBACK}}", feedback)
	p = strings.ReplaceAll(p, "{{ATTEMPT}}", fmt.Sprintf("%d", attempt))
	p = strings.ReplaceAll(p, "{{MAX_ATTEMPTS}}", fmt.Sprintf("%d", maxAttempts))
	return p
}
