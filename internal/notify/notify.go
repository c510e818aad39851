// Package notify defines the notification collaborator: the channel
// through which the core reports recoverable failures instead of
// propagating them. The integration layer decides how events surface to
// the user; the core only supplies structured information.
package notify

import (
	"log/slog"

	"github.com/google/uuid"
)

// Level classifies the severity of an event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one structured notification.
type Event struct {
	// ID uniquely identifies the event so an integration layer can
	// correlate a retry action with the failure it retries.
	ID      string
	Level   Level
	Context string // component or operation that produced the event
	Message string
	Err     error
	// UserMessage, when non-empty, is suitable for direct display.
	UserMessage string
	// Retryable marks failures the integration layer may offer to
	// retry (e.g. re-reading an unreadable file).
	Retryable bool
}

// Notifier receives structured events. Implementations must be safe for
// concurrent use: batch parsing reports failures from multiple
// goroutines.
type Notifier interface {
	Notify(event Event)
}

// NewEvent creates an event with a fresh ID.
func NewEvent(level Level, context, message string) Event {
	return Event{
		ID:      uuid.NewString(),
		Level:   level,
		Context: context,
		Message: message,
	}
}

// Warnf builds and delivers a warning-level event in one call.
func Warnf(n Notifier, context, message string, err error) {
	ev := NewEvent(LevelWarning, context, message)
	ev.Err = err
	ev.Retryable = true
	n.Notify(ev)
}

// Errorf builds and delivers an error-level event in one call.
func Errorf(n Notifier, context, message string, err error) {
	ev := NewEvent(LevelError, context, message)
	ev.Err = err
	n.Notify(ev)
}

// slogNotifier logs events through log/slog.
type slogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier creates a Notifier backed by the given slog logger.
// A nil logger uses slog.Default().
func NewSlogNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogNotifier{logger: logger}
}

// Notify logs the event at the slog level matching its severity.
func (n *slogNotifier) Notify(event Event) {
	attrs := []any{
		slog.String("id", event.ID),
		slog.String("context", event.Context),
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	if event.UserMessage != "" {
		attrs = append(attrs, slog.String("user_message", event.UserMessage))
	}
	if event.Retryable {
		attrs = append(attrs, slog.Bool("retryable", true))
	}

	switch event.Level {
	case LevelError:
		n.logger.Error(event.Message, attrs...)
	case LevelWarning:
		n.logger.Warn(event.Message, attrs...)
	default:
		n.logger.Info(event.Message, attrs...)
	}
}

// Discard is a Notifier that drops every event. Useful as a default
// when the caller does not care about notifications.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Event) {}
