package loop

import "strings"

// DefaultCompletionToken is the tagged promise an agent emits to claim the
// whole task is done. The tag form keeps it from matching incidental prose.
const DefaultCompletionToken = "<promise>TASK_COMPLETE</promise>"

// legacyCompletionToken is the bare marker older prompt sets asked for.
// Still honored so loops started under the old wording can finish.
const legacyCompletionToken = "RALPH_COMPLETE"

// HasCompletionToken reports whether text contains the loop's completion
// token. An empty token means the default. The legacy bare marker is always
// accepted.
func HasCompletionToken(text, token string) bool {
	if token == "" {
		token = DefaultCompletionToken
	}
	return strings.Contains(text, token) || strings.Contains(text, legacyCompletionToken)
}
