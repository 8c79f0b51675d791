package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestComponentString(t *testing.T) {
	tests := []struct {
		c    Component
		want string
	}{
		{ComponentBridge, "BRIDGE"},
		{ComponentAcquirer, "ACQUIRER"},
		{ComponentNode, "NODE"},
		{ComponentReceive, "RECEIVE"},
		{ComponentTransmit, "TRANSMIT"},
		{ComponentChain, "CHAIN"},
		{ComponentWatchdog, "WATCHDOG"},
		{Component(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Component(%d).String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryLifecycle, "LIFECYCLE"},
		{CategoryState, "STATE"},
		{CategoryData, "DATA"},
		{CategoryError, "ERROR"},
		{Category(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{OutcomeAttempted, "ATTEMPTED"},
		{OutcomeSucceeded, "SUCCEEDED"},
		{OutcomeFailed, "FAILED"},
		{OutcomeSkipped, "SKIPPED"},
		{Outcome(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.o, got, tt.want)
		}
	}
}

func TestEventCBOREncoding(t *testing.T) {
	ts := time.Date(2026, 3, 14, 7, 30, 0, 123456789, time.UTC)
	eventTime := uint16(40960)
	revs := uint16(1234)

	original := Event{
		Timestamp: ts,
		SessionID: "5f0c7a9e-8d4b-4f7a-9d53-0a1b2c3d4e5f",
		Component: ComponentReceive,
		Category:  CategoryData,
		Data: &DataEvent{
			Direction:   DirectionIn,
			EventTime:   &eventTime,
			Revolutions: &revs,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.Component != ComponentReceive {
		t.Errorf("Component: got %v, want %v", decoded.Component, ComponentReceive)
	}
	if decoded.Data == nil || decoded.Data.EventTime == nil {
		t.Fatal("Data.EventTime lost in encoding")
	}
	if *decoded.Data.EventTime != eventTime {
		t.Errorf("EventTime: got %d, want %d", *decoded.Data.EventTime, eventTime)
	}
	if decoded.Data.Power != nil {
		t.Errorf("Power: got %v, want nil", *decoded.Data.Power)
	}
	if decoded.Lifecycle != nil || decoded.StateChange != nil || decoded.Error != nil {
		t.Error("unexpected payloads after decoding")
	}
}

func TestDecodeEventInvalid(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00}); err == nil {
		t.Error("DecodeEvent accepted garbage")
	}
}

func TestEncodeEventDeterministic(t *testing.T) {
	watts := uint16(250)
	ev := Event{
		Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		SessionID: "s",
		Component: ComponentTransmit,
		Category:  CategoryData,
		Data:      &DataEvent{Direction: DirectionOut, Power: &watts},
	}

	a, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	b, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("encodings differ:\n%x\n%x", a, b)
	}
}

func TestDecodeEventIgnoresUnknownKeys(t *testing.T) {
	data, err := cbor.Marshal(map[int]any{2: "run-7", 3: uint8(ComponentWatchdog), 99: "from a newer writer"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if ev.SessionID != "run-7" || ev.Component != ComponentWatchdog {
		t.Errorf("got session %q component %v", ev.SessionID, ev.Component)
	}
}

func TestDecodeEventRejectsDeepNesting(t *testing.T) {
	var nested any = "leaf"
	for i := 0; i < 12; i++ {
		nested = map[int]any{1: nested}
	}
	data, err := cbor.Marshal(map[int]any{2: "s", 50: nested})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, err := DecodeEvent(data); err == nil {
		t.Error("DecodeEvent accepted a 13-level map")
	}
}
