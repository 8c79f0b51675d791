package ant

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by runtimes and channels.
var (
	ErrNotStarted        = errors.New("ant: runtime not started")
	ErrAlreadyStarted    = errors.New("ant: runtime already started")
	ErrNoFreeChannel     = errors.New("ant: no free channel")
	ErrDeviceNotFound    = errors.New("ant: device not found")
	ErrChannelClosed     = errors.New("ant: channel closed")
	ErrInvalidNetworkKey = errors.New("ant: invalid network key")
)

// NetworkSlotANTPlus is the network number the ANT+ key is installed under.
const NetworkSlotANTPlus uint8 = 0

// WildcardDeviceID pairs a receive channel with the first matching device.
const WildcardDeviceID uint16 = 0

// DeviceType is the ANT device type of a channel ID.
type DeviceType uint8

const (
	// DeviceTypePower is a bicycle power sensor.
	DeviceTypePower DeviceType = 0x0B

	// DeviceTypeSpeedCadence is a combined bicycle speed and cadence sensor.
	DeviceTypeSpeedCadence DeviceType = 0x79

	// DeviceTypeCadence is a cadence-only sensor.
	DeviceTypeCadence DeviceType = 0x7A

	// DeviceTypeSpeed is a speed-only sensor.
	DeviceTypeSpeed DeviceType = 0x7B
)

// String returns a human-readable device type name.
func (d DeviceType) String() string {
	switch d {
	case DeviceTypePower:
		return "POWER"
	case DeviceTypeSpeedCadence:
		return "SPEED_CADENCE"
	case DeviceTypeCadence:
		return "CADENCE"
	case DeviceTypeSpeed:
		return "SPEED"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(d))
	}
}

// IsSpeedCadence reports whether d is one of the receive sensor types the
// bridge understands.
func (d DeviceType) IsSpeedCadence() bool {
	return d == DeviceTypeSpeedCadence || d == DeviceTypeCadence || d == DeviceTypeSpeed
}

// ParseDeviceType parses a sensor type name ("speed", "cadence",
// "speed_cadence") or a numeric value ("0x79", "121").
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speed":
		return DeviceTypeSpeed, nil
	case "cadence":
		return DeviceTypeCadence, nil
	case "speed_cadence", "speed-cadence", "speedcadence":
		return DeviceTypeSpeedCadence, nil
	case "power":
		return DeviceTypePower, nil
	}

	var v uint8
	if _, err := fmt.Sscan(s, &v); err != nil {
		return 0, fmt.Errorf("unknown device type %q", s)
	}
	return DeviceType(v), nil
}

// NetworkKey is the 8-byte secret selecting an ANT network namespace.
type NetworkKey [8]byte

// ParseNetworkKey decodes a 16 digit hex string. Spaces, colons and a
// leading 0x are ignored.
func ParseNetworkKey(s string) (NetworkKey, error) {
	var key NetworkKey

	clean := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	clean = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(clean)

	b, err := hex.DecodeString(clean)
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidNetworkKey, err)
	}
	if len(b) != len(key) {
		return key, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNetworkKey, len(b), len(key))
	}
	copy(key[:], b)
	return key, nil
}

// String returns the key as upper-case hex.
func (k NetworkKey) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// TransceiverID identifies a USB ANT stick by its bus position, or by its
// serial device path for sticks behind a USB-serial bridge.
type TransceiverID struct {
	Bus     int
	Address int
	Port    string
	Vendor  uint16
	Product uint16
}

// String returns the identity as "bus:address (vvvv:pppp)" or
// "port (vvvv:pppp)".
func (t TransceiverID) String() string {
	if t.Port != "" {
		return fmt.Sprintf("%s (%04x:%04x)", t.Port, t.Vendor, t.Product)
	}
	return fmt.Sprintf("%03d:%03d (%04x:%04x)", t.Bus, t.Address, t.Vendor, t.Product)
}

// SpeedCadenceData is the decoded content of a speed/cadence data page.
// Event times are in 1/1024 s and roll over at 64 s; revolution counts
// roll over at 65536.
type SpeedCadenceData struct {
	SpeedEventTime     uint16
	SpeedRevolutions   uint16
	CadenceEventTime   uint16
	CadenceRevolutions uint16
}

// ReceiveListener receives every decoded page of a receive channel.
// It runs on the runtime's dispatch goroutine and blocks further decoding
// until it returns.
type ReceiveListener func(data SpeedCadenceData)
