package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes bridge events to an slog.Logger.
// Useful for development when you want to see events in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Lifecycle != nil:
		attrs = append(attrs,
			slog.String("step", event.Lifecycle.Step),
			slog.String("outcome", event.Lifecycle.Outcome.String()),
		)
		if event.Lifecycle.Detail != "" {
			attrs = append(attrs, slog.String("detail", event.Lifecycle.Detail))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Data != nil:
		attrs = append(attrs, slog.String("direction", event.Data.Direction.String()))
		if event.Data.EventTime != nil {
			attrs = append(attrs, slog.Uint64("event_time", uint64(*event.Data.EventTime)))
		}
		if event.Data.Revolutions != nil {
			attrs = append(attrs, slog.Uint64("revolutions", uint64(*event.Data.Revolutions)))
		}
		if event.Data.Power != nil {
			attrs = append(attrs, slog.Uint64("power", uint64(*event.Data.Power)))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
