package loop_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/loopctl/internal/loop"
	"github.com/CodexForgeBR/loopctl/internal/modes"
	"github.com/CodexForgeBR/loopctl/internal/notification"
	"github.com/CodexForgeBR/loopctl/internal/prd"
	"github.com/CodexForgeBR/loopctl/internal/store"
)

// eventRecorder captures lifecycle notifications.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (e *eventRecorder) record(event, sessionID string, iteration int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *eventRecorder) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, got := range e.events {
		if got == event {
			n++
		}
	}
	return n
}

type fixture struct {
	store    *store.Store
	stories  *prd.Manager
	registry *modes.Registry
	events   *eventRecorder
	ctl      *loop.Controller
}

func newFixture(t *testing.T, defaultMax int) *fixture {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), ".loopctl"))
	stories := prd.NewManager(s)
	reg := modes.NewRegistry()
	events := &eventRecorder{}
	return &fixture{
		store:    s,
		stories:  stories,
		registry: reg,
		events:   events,
		ctl:      loop.NewController(s, stories, reg, defaultMax, events.record),
	}
}

func TestStartSeedsStoriesAndPersistsState(t *testing.T) {
	f := newFixture(t, 20)

	ls, err := f.ctl.Start(context.Background(), loop.StartOptions{
		SessionID: "ses-1",
		Prompt:    "build the importer",
	})
	require.NoError(t, err)

	assert.True(t, ls.Active)
	assert.Equal(t, 0, ls.Iteration)
	assert.Equal(t, 20, ls.MaxIterations)
	assert.Equal(t, loop.DefaultCompletionToken, ls.CompletionToken)

	persisted := f.store.LoopState()
	require.NotNil(t, persisted)
	assert.True(t, persisted.Active)

	tl := f.store.TaskList()
	require.NotNil(t, tl)
	require.Len(t, tl.Stories, 1)
	assert.Equal(t, "build the importer", tl.Stories[0].Title)

	st := f.registry.ModeFor("ses-1")
	require.NotNil(t, st)
	assert.Equal(t, modes.ModeRalphLoop, st.Mode)

	assert.Equal(t, 1, f.events.count(notification.EventLoopStarted))
}

func TestStartWithUltraworkUsesCombinedMode(t *testing.T) {
	f := newFixture(t, 20)

	_, err := f.ctl.Start(context.Background(), loop.StartOptions{
		SessionID: "ses-1",
		Prompt:    "task",
		Ultrawork: true,
	})
	require.NoError(t, err)

	assert.Equal(t, modes.ModeUltraworkRalph, f.registry.ModeFor("ses-1").Mode)
}

func TestStartFailsWhenLoopAlreadyActive(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "a"})
	require.NoError(t, err)

	_, err = f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-2", Prompt: "b"})
	assert.ErrorIs(t, err, loop.ErrAlreadyActive)
}

func TestActiveForBinding(t *testing.T) {
	f := newFixture(t, 20)

	assert.False(t, f.ctl.ActiveFor("ses-1"), "no loop yet")

	_, err := f.ctl.Start(context.Background(), loop.StartOptions{SessionID: "ses-1", Prompt: "a"})
	require.NoError(t, err)

	assert.True(t, f.ctl.ActiveFor("ses-1"))
	assert.False(t, f.ctl.ActiveFor("ses-2"), "loop is bound to its session")
}

func TestAdvanceIncrementsAndComposesPrompt(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "build the importer", MaxIterations: 10})
	require.NoError(t, err)

	msg, act := f.ctl.Advance(ctx, "ses-1")
	assert.True(t, act)
	assert.Contains(t, msg, "1/10")
	assert.Contains(t, msg, "build the importer")

	ls := f.store.LoopState()
	assert.Equal(t, 1, ls.Iteration)
	assert.NotNil(t, ls.LastActivityAt)
	assert.NotNil(t, ls.CurrentStoryID)
}

func TestAdvanceStopsAtIterationCeiling(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "task", MaxIterations: 3})
	require.NoError(t, err)

	// Three idle signals against a ceiling of three: two continuations,
	// then the terminal notice.
	_, act := f.ctl.Advance(ctx, "ses-1")
	assert.True(t, act)
	_, act = f.ctl.Advance(ctx, "ses-1")
	assert.True(t, act)

	notice, act := f.ctl.Advance(ctx, "ses-1")
	assert.False(t, act)
	assert.Contains(t, notice, "3/3")

	ls := f.store.LoopState()
	require.NotNil(t, ls, "the record is deactivated, not deleted")
	assert.False(t, ls.Active)
	assert.Equal(t, 3, ls.Iteration)
	assert.Nil(t, f.registry.ModeFor("ses-1"))
	assert.Equal(t, 1, f.events.count(notification.EventMaxIterations))

	// Further idles are silent: the loop is gone.
	msg, act := f.ctl.Advance(ctx, "ses-1")
	assert.False(t, act)
	assert.Empty(t, msg)
	assert.Equal(t, 1, f.events.count(notification.EventMaxIterations), "the limit notice fires exactly once")
}

func TestAdvanceWithoutLoopDeclines(t *testing.T) {
	f := newFixture(t, 20)
	msg, act := f.ctl.Advance(context.Background(), "ses-1")
	assert.False(t, act)
	assert.Empty(t, msg)
}

func TestCancelRemovesRecord(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "task"})
	require.NoError(t, err)

	assert.True(t, f.ctl.Cancel("ses-1"))
	assert.Nil(t, f.store.LoopState(), "cancel removes the record entirely")
	assert.Nil(t, f.registry.ModeFor("ses-1"))
	assert.Equal(t, 1, f.events.count(notification.EventCancelled))

	assert.False(t, f.ctl.Cancel("ses-1"), "nothing left to cancel")
}

func TestFinishMarksStoryPassedAndDeactivates(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "task"})
	require.NoError(t, err)
	_, act := f.ctl.Advance(ctx, "ses-1")
	require.True(t, act)

	f.ctl.Finish("ses-1")

	ls := f.store.LoopState()
	require.NotNil(t, ls)
	assert.False(t, ls.Active)

	tl := f.store.TaskList()
	require.Len(t, tl.Stories, 1)
	assert.True(t, tl.Stories[0].Passes)

	assert.Nil(t, f.registry.ModeFor("ses-1"))
	assert.Equal(t, 1, f.events.count(notification.EventVerified))

	p := f.store.Progress()
	assert.Contains(t, p.Section(store.SectionIterationLog).Body, "completion verified")

	// Finishing an inactive loop is a no-op.
	f.ctl.Finish("ses-1")
	assert.Equal(t, 1, f.events.count(notification.EventVerified))
}

func TestCompletionTokenFor(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	assert.Equal(t, loop.DefaultCompletionToken, f.ctl.CompletionTokenFor("ses-1"))

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "task"})
	require.NoError(t, err)
	assert.Equal(t, loop.DefaultCompletionToken, f.ctl.CompletionTokenFor("ses-1"))
}

func TestHandleSessionDeletedDeactivatesBoundLoop(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "task"})
	require.NoError(t, err)

	f.ctl.HandleSessionDeleted("ses-2")
	assert.True(t, f.store.LoopState().Active, "other sessions do not affect the loop")

	f.ctl.HandleSessionDeleted("ses-1")
	ls := f.store.LoopState()
	require.NotNil(t, ls)
	assert.False(t, ls.Active)
	assert.Nil(t, f.registry.ModeFor("ses-1"))
}

func TestRestartAfterMaxStopAllowsNewLoop(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "task", MaxIterations: 1})
	require.NoError(t, err)
	_, act := f.ctl.Advance(ctx, "ses-1")
	require.False(t, act)

	// The stopped record does not block a fresh start.
	_, err = f.ctl.Start(ctx, loop.StartOptions{SessionID: "ses-1", Prompt: "second run", MaxIterations: 5})
	assert.NoError(t, err)

	ls := f.store.LoopState()
	assert.True(t, ls.Active)
	assert.Equal(t, 0, ls.Iteration)
	assert.Equal(t, "second run", ls.Prompt)
}
