package notify

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Notifications:
// - NewEvent assigns a unique ID and carries level, context, and message
// - Warnf marks events retryable; Errorf does not
// - The slog notifier logs at the level matching the event severity
// - The recorder captures events and filters by level
// - The recorder is safe under concurrent Notify calls

func TestNewEvent(t *testing.T) {
	t.Parallel()

	a := NewEvent(LevelWarning, "parser", "file unreadable")
	b := NewEvent(LevelWarning, "parser", "file unreadable")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, LevelWarning, a.Level)
	assert.Equal(t, "parser", a.Context)
	assert.Equal(t, "file unreadable", a.Message)
}

func TestWarnfAndErrorf(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()
	cause := errors.New("permission denied")

	Warnf(rec, "parser", "failed to read file", cause)
	Errorf(rec, "engine", "failed to compile patterns", cause)

	events := rec.Events()
	require.Len(t, events, 2)

	assert.Equal(t, LevelWarning, events[0].Level)
	assert.True(t, events[0].Retryable)
	assert.Equal(t, cause, events[0].Err)

	assert.Equal(t, LevelError, events[1].Level)
	assert.False(t, events[1].Retryable)
}

func TestSlogNotifier_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := NewSlogNotifier(logger)

	ev := NewEvent(LevelWarning, "parser", "file unreadable")
	ev.Err = errors.New("boom")
	ev.Retryable = true
	n.Notify(ev)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "file unreadable")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "retryable=true")

	buf.Reset()
	n.Notify(NewEvent(LevelError, "engine", "bad identifiers"))
	assert.Contains(t, buf.String(), "level=ERROR")

	buf.Reset()
	n.Notify(NewEvent(LevelInfo, "engine", "initialized"))
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestRecorder_EventsAt(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()
	rec.Notify(NewEvent(LevelInfo, "a", "one"))
	rec.Notify(NewEvent(LevelWarning, "b", "two"))
	rec.Notify(NewEvent(LevelWarning, "c", "three"))

	assert.Len(t, rec.Events(), 3)
	assert.Len(t, rec.EventsAt(LevelWarning), 2)
	assert.Len(t, rec.EventsAt(LevelError), 0)
}

func TestRecorder_ConcurrentNotify(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Warnf(rec, "parser", "failed to read file", errors.New("boom"))
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Events(), 20)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	// Must not panic.
	Discard.Notify(NewEvent(LevelError, "x", "y"))
}
