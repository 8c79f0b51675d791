package commands

import (
	"fmt"
	"io"

	"github.com/vpower-bridge/vpower-go/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [%s] %-9s %s\n", ts, shortenID(event.SessionID), event.Component, event.Category)

	switch {
	case event.Lifecycle != nil:
		l := event.Lifecycle
		fmt.Fprintf(w, "  %s: %s\n", l.Step, l.Outcome)
		if l.Detail != "" {
			fmt.Fprintf(w, "  Detail: %s\n", l.Detail)
		}
	case event.StateChange != nil:
		sc := event.StateChange
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Data != nil:
		formatData(w, event.Data)
	case event.Error != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w)
}

func formatData(w io.Writer, d *log.DataEvent) {
	fmt.Fprintf(w, "  %s", d.Direction)
	if d.EventTime != nil {
		fmt.Fprintf(w, " event_time=%d", *d.EventTime)
	}
	if d.Revolutions != nil {
		fmt.Fprintf(w, " revs=%d", *d.Revolutions)
	}
	if d.Power != nil {
		fmt.Fprintf(w, " power=%dW", *d.Power)
	}
	fmt.Fprintln(w)
}

// RunView prints every matching event.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	return forEach(reader, func(e log.Event) error {
		formatEvent(output, e)
		return nil
	})
}
