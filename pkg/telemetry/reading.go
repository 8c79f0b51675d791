package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Reading is a snapshot of the bridge taken on a watchdog tick.
type Reading struct {
	Time      time.Time `json:"time" cbor:"1,keyasint"`
	SessionID string    `json:"session_id" cbor:"2,keyasint"`

	// State is the watchdog state (LIVE or STOPPED).
	State string `json:"state" cbor:"3,keyasint"`

	Power     uint16 `json:"power" cbor:"4,keyasint"`
	EventTime uint16 `json:"event_time" cbor:"5,keyasint"`
	Pages     uint64 `json:"pages" cbor:"6,keyasint"`
	Updates   uint64 `json:"updates" cbor:"7,keyasint"`

	ReceiveAvailable  bool `json:"receive" cbor:"8,keyasint"`
	TransmitAvailable bool `json:"transmit" cbor:"9,keyasint"`
}

// Format selects the payload encoding.
type Format uint8

const (
	// FormatJSON encodes readings as JSON objects.
	FormatJSON Format = iota

	// FormatCBOR encodes readings as CBOR maps with integer keys.
	FormatCBOR

	// FormatProto encodes readings as a google.protobuf.Struct.
	FormatProto
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	case FormatProto:
		return "protobuf"
	default:
		return "unknown"
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCBOR:
		return "application/cbor"
	case FormatProto:
		return "application/x-protobuf"
	default:
		return "application/json"
	}
}

// ParseFormat parses a format name. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	case "protobuf", "proto":
		return FormatProto, nil
	default:
		return 0, fmt.Errorf("unknown telemetry format %q", s)
	}
}

// Encode serializes r in format f.
func Encode(r Reading, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(r)
	case FormatCBOR:
		return cbor.Marshal(r)
	case FormatProto:
		s, err := structpb.NewStruct(r.fields())
		if err != nil {
			return nil, err
		}
		return proto.Marshal(s)
	default:
		return nil, fmt.Errorf("unknown telemetry format %d", f)
	}
}

// DecodeProto reverses Encode for FormatProto.
func DecodeProto(data []byte) (Reading, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Reading{}, err
	}

	m := s.AsMap()
	var r Reading
	if ts, ok := m["time"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Reading{}, fmt.Errorf("time: %w", err)
		}
		r.Time = t
	}
	r.SessionID, _ = m["session_id"].(string)
	r.State, _ = m["state"].(string)
	r.Power = uint16(number(m["power"]))
	r.EventTime = uint16(number(m["event_time"]))
	r.Pages = uint64(number(m["pages"]))
	r.Updates = uint64(number(m["updates"]))
	r.ReceiveAvailable, _ = m["receive"].(bool)
	r.TransmitAvailable, _ = m["transmit"].(bool)
	return r, nil
}

func (r Reading) fields() map[string]any {
	return map[string]any{
		"time":       r.Time.UTC().Format(time.RFC3339Nano),
		"session_id": r.SessionID,
		"state":      r.State,
		"power":      int64(r.Power),
		"event_time": int64(r.EventTime),
		"pages":      float64(r.Pages),
		"updates":    float64(r.Updates),
		"receive":    r.ReceiveAvailable,
		"transmit":   r.TransmitAvailable,
	}
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}
