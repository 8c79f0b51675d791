package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logToJSON(t *testing.T, event Event) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterLifecycle(t *testing.T) {
	entry := logToJSON(t, Event{
		Timestamp: time.Now(),
		SessionID: "s1",
		Component: ComponentNode,
		Category:  CategoryLifecycle,
		Lifecycle: &LifecycleEvent{Step: "start_node", Outcome: OutcomeFailed, Detail: "001:004"},
	})

	checks := map[string]any{
		"msg":        "event",
		"session_id": "s1",
		"component":  "NODE",
		"category":   "LIFECYCLE",
		"step":       "start_node",
		"outcome":    "FAILED",
		"detail":     "001:004",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s: got %v, want %v", k, entry[k], want)
		}
	}
}

func TestSlogAdapterStateChange(t *testing.T) {
	entry := logToJSON(t, Event{
		Component:   ComponentWatchdog,
		Category:    CategoryState,
		StateChange: &StateChangeEvent{OldState: "LIVE", NewState: "STOPPED", Reason: "stale"},
	})

	if entry["old_state"] != "LIVE" || entry["new_state"] != "STOPPED" || entry["reason"] != "stale" {
		t.Errorf("unexpected state attrs: %v", entry)
	}
}

func TestSlogAdapterData(t *testing.T) {
	power := uint16(215)
	entry := logToJSON(t, Event{
		Component: ComponentTransmit,
		Category:  CategoryData,
		Data:      &DataEvent{Direction: DirectionOut, Power: &power},
	})

	if entry["direction"] != "OUT" {
		t.Errorf("direction: got %v, want OUT", entry["direction"])
	}
	if entry["power"] != float64(215) {
		t.Errorf("power: got %v, want 215", entry["power"])
	}
	if _, ok := entry["event_time"]; ok {
		t.Error("event_time present for a transmit event")
	}
}

func TestSlogAdapterError(t *testing.T) {
	entry := logToJSON(t, Event{
		Component: ComponentTransmit,
		Category:  CategoryError,
		Error:     &ErrorEventData{Message: "boom", Context: "close"},
	})

	if entry["error_msg"] != "boom" || entry["error_context"] != "close" {
		t.Errorf("unexpected error attrs: %v", entry)
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{Component: ComponentBridge})

	if buf.Len() != 0 {
		t.Errorf("debug event written at info level: %s", buf.String())
	}
}
