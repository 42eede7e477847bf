package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(msg string) HandlerFunc {
	return func(context.Context, *EventContext) (string, error) { return msg, nil }
}

func failing(err error) HandlerFunc {
	return func(context.Context, *EventContext) (string, error) { return "", err }
}

func newTestDispatcher(handlers map[EventKind]Handler, tracker *mockTracker, rec *mockRecorder) *Dispatcher {
	return NewDispatcher(handlers, staticSettings{settings: testSettings()}, tracker, rec, 2, nil)
}

func TestDispatch_UnknownKindIsIgnored(t *testing.T) {
	tracker := newMockTracker()
	rec := &mockRecorder{}
	d := newTestDispatcher(map[EventKind]Handler{}, tracker, rec)

	out, err := d.Dispatch(context.Background(), &EventContext{Kind: "issues.opened", Repo: "o/r"})

	require.NoError(t, err)
	assert.Equal(t, `Ignored event "issues.opened".`, out.Message)
	assert.False(t, out.Commented)
	assert.Empty(t, tracker.posted)
	assert.Equal(t, []string{"issues.opened:ignored"}, rec.events)
}

func TestDispatch_AggregatesIntoOneComment(t *testing.T) {
	tracker := newMockTracker()
	rec := &mockRecorder{}
	handlers := map[EventKind]Handler{
		EventIssuesClosed: {
			Pre:     []HandlerFunc{fixed("")},
			Action:  []HandlerFunc{fixed("first"), failing(errors.New("boom"))},
			Post:    []HandlerFunc{fixed("last")},
			Comment: true,
		},
	}
	d := newTestDispatcher(handlers, tracker, rec)

	out, err := d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesClosed, Repo: "o/r"})

	require.NoError(t, err)
	assert.Equal(t, "first\n\nError: boom\n\nlast", out.Message)
	assert.Equal(t, 1, out.Failures)
	assert.True(t, out.Commented)
	require.Len(t, tracker.posted, 1)
	assert.Equal(t, out.Message, tracker.posted[0])
	assert.Equal(t, []string{"issues.closed:error"}, rec.events)
}

func TestDispatch_NoCommentForLabelEvents(t *testing.T) {
	tracker := newMockTracker()
	handlers := map[EventKind]Handler{
		EventIssuesLabeled: {Action: []HandlerFunc{fixed("Set price label.")}},
	}
	d := newTestDispatcher(handlers, tracker, &mockRecorder{})

	out, err := d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesLabeled, Repo: "o/r"})

	require.NoError(t, err)
	assert.Equal(t, "Set price label.", out.Message)
	assert.False(t, out.Commented)
	assert.Empty(t, tracker.posted)
}

func TestDispatch_EmptyMessagesPostNothing(t *testing.T) {
	tracker := newMockTracker()
	handlers := map[EventKind]Handler{
		EventIssuesClosed: {Action: []HandlerFunc{fixed(" ")}, Comment: true},
	}
	d := newTestDispatcher(handlers, tracker, &mockRecorder{})

	out, err := d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesClosed, Repo: "o/r"})

	require.NoError(t, err)
	assert.Equal(t, "Nothing to do.", out.Message)
	assert.Empty(t, tracker.posted)
}

func TestDispatch_HandlersSeeLoadedSettings(t *testing.T) {
	var seen bool
	handlers := map[EventKind]Handler{
		EventIssuesLabeled: {Action: []HandlerFunc{func(_ context.Context, ev *EventContext) (string, error) {
			seen = ev.Settings.IncentiveMode
			return "", nil
		}}},
	}
	d := newTestDispatcher(handlers, newMockTracker(), &mockRecorder{})

	_, err := d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesLabeled, Repo: "o/r"})

	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDispatch_SettingsErrorStopsHandlers(t *testing.T) {
	called := false
	handlers := map[EventKind]Handler{
		EventIssuesClosed: {Action: []HandlerFunc{func(context.Context, *EventContext) (string, error) {
			called = true
			return "", nil
		}}, Comment: true},
	}
	rec := &mockRecorder{}
	d := NewDispatcher(handlers, staticSettings{err: errors.New("bad yaml")}, newMockTracker(), rec, 1, nil)

	out, err := d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesClosed, Repo: "o/r"})

	require.Error(t, err)
	assert.Contains(t, out.Message, "Could not load bot settings")
	assert.False(t, called)
	assert.Equal(t, []string{"issues.closed:error"}, rec.events)
}

func TestDispatch_PostFailureIsReturned(t *testing.T) {
	tracker := newMockTracker()
	tracker.postErr = errors.New("forbidden")
	handlers := map[EventKind]Handler{
		EventIssuesClosed: {Action: []HandlerFunc{fixed("claim")}, Comment: true},
	}
	d := newTestDispatcher(handlers, tracker, &mockRecorder{})

	out, err := d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesClosed, Repo: "o/r", Issue: issueNumbered(7)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "o/r#7")
	assert.False(t, out.Commented)
	assert.Equal(t, "claim", out.Message)
}

func TestDispatch_CancelledContextDropsEvent(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	handlers := map[EventKind]Handler{
		EventIssuesLabeled: {Action: []HandlerFunc{func(context.Context, *EventContext) (string, error) {
			close(started)
			<-block
			return "", nil
		}}},
	}
	d := NewDispatcher(handlers, staticSettings{settings: testSettings()}, newMockTracker(), &mockRecorder{}, 1, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesLabeled, Repo: "o/r"})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := d.Dispatch(ctx, &EventContext{Kind: EventIssuesLabeled, Repo: "o/r"})

	require.Error(t, err)
	assert.Contains(t, out.Message, "shutting down")

	close(block)
	<-done
}

func TestDispatch_CloseDropsWaitingEvents(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	handlers := map[EventKind]Handler{
		EventIssuesLabeled: {Action: []HandlerFunc{func(context.Context, *EventContext) (string, error) {
			close(started)
			<-block
			return "done", nil
		}}},
	}
	recorder := &mockRecorder{}
	d := NewDispatcher(handlers, staticSettings{settings: testSettings()}, newMockTracker(), recorder, 1, nil)

	var first Outcome
	done := make(chan struct{})
	go func() {
		defer close(done)
		first, _ = d.Dispatch(context.Background(), &EventContext{Kind: EventIssuesLabeled, Repo: "o/r"})
	}()
	<-started

	waiting := make(chan error, 1)
	go func() {
		out, err := d.Dispatch(context.WithoutCancel(context.Background()), &EventContext{Kind: EventIssuesLabeled, Repo: "o/r"})
		assert.Contains(t, out.Message, "shutting down")
		waiting <- err
	}()

	d.Close()
	require.Error(t, <-waiting)

	close(block)
	<-done
	assert.Equal(t, "done", first.Message)
	assert.Contains(t, recorder.events, "issues.labeled:dropped")
}
