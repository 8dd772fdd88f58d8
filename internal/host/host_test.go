package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CodexForgeBR/loopctl/internal/host"
)

func TestCountIncomplete(t *testing.T) {
	tests := []struct {
		name  string
		todos []host.Todo
		want  int
	}{
		{"nil list", nil, 0},
		{"empty list", []host.Todo{}, 0},
		{
			"all complete",
			[]host.Todo{
				{Status: host.TodoCompleted},
				{Status: host.TodoCancelled},
			},
			0,
		},
		{
			"pending and in progress both count",
			[]host.Todo{
				{Status: host.TodoPending},
				{Status: host.TodoInProgress},
				{Status: host.TodoCompleted},
			},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, host.CountIncomplete(tt.todos))
		})
	}
}

func TestHasInProgress(t *testing.T) {
	assert.False(t, host.HasInProgress(nil))
	assert.False(t, host.HasInProgress([]host.Todo{
		{Status: host.TodoPending},
		{Status: host.TodoCompleted},
	}))
	assert.True(t, host.HasInProgress([]host.Todo{
		{Status: host.TodoPending},
		{Status: host.TodoInProgress},
	}))
}

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		name  string
		todos []host.Todo
		want  int
	}{
		{"empty list is fully complete", nil, 100},
		{
			"half done",
			[]host.Todo{
				{Status: host.TodoCompleted},
				{Status: host.TodoPending},
			},
			50,
		},
		{
			"cancelled counts as done",
			[]host.Todo{
				{Status: host.TodoCancelled},
				{Status: host.TodoCompleted},
			},
			100,
		},
		{
			"rounds down",
			[]host.Todo{
				{Status: host.TodoCompleted},
				{Status: host.TodoPending},
				{Status: host.TodoPending},
			},
			33,
		},
		{
			"nothing done",
			[]host.Todo{
				{Status: host.TodoPending},
				{Status: host.TodoInProgress},
			},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, host.CompletionPercent(tt.todos))
		})
	}
}

func TestModelRefString(t *testing.T) {
	assert.Equal(t, "anthropic/opus", host.ModelRef{ProviderID: "anthropic", ModelID: "opus"}.String())
	assert.Equal(t, "opus", host.ModelRef{ModelID: "opus"}.String())
}

func TestModelRefIsZero(t *testing.T) {
	assert.True(t, host.ModelRef{}.IsZero())
	assert.False(t, host.ModelRef{ModelID: "opus"}.IsZero())
}

func TestReplyError(t *testing.T) {
	err := &host.ReplyError{Name: "aborted", Message: "user interrupt"}
	assert.Equal(t, "aborted: user interrupt", err.Error())

	bare := &host.ReplyError{Name: "aborted"}
	assert.Equal(t, "aborted", bare.Error())
}
