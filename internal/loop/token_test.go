package loop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CodexForgeBR/loopctl/internal/loop"
)

func TestHasCompletionToken(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		token string
		want  bool
	}{
		{
			name: "default token embedded in prose",
			text: "All stories pass.\n<promise>TASK_COMPLETE</promise>\n",
			want: true,
		},
		{
			name: "legacy bare marker",
			text: "done. RALPH_COMPLETE",
			want: true,
		},
		{
			name: "legacy marker honored with custom token",
			text:  "RALPH_COMPLETE",
			token: "<promise>SHIP_IT</promise>",
			want:  true,
		},
		{
			name:  "custom token",
			text:  "<promise>SHIP_IT</promise>",
			token: "<promise>SHIP_IT</promise>",
			want:  true,
		},
		{
			name: "plain completion talk is not a claim",
			text: "I believe the task is complete now.",
			want: false,
		},
		{
			name: "untagged promise body is not a claim",
			text: "TASK_COMPLETE",
			want: false,
		},
		{
			name: "empty text",
			text: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loop.HasCompletionToken(tt.text, tt.token))
		})
	}
}
