package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/log"
	"github.com/vpower-bridge/vpower-go/pkg/power"
	"github.com/vpower-bridge/vpower-go/pkg/watchdog"
)

// Bridge errors.
var (
	ErrAlreadyStarted = errors.New("bridge already started")
	ErrInvalidConfig  = errors.New("invalid bridge configuration")
	ErrNoTransmit     = errors.New("power meter channel not open")
)

// DefaultOpenTimeout bounds each channel open.
const DefaultOpenTimeout = 10 * time.Second

// State represents the bridge lifecycle state.
type State uint8

const (
	// StateIdle - bridge created but not started.
	StateIdle State = iota

	// StateStarting - startup sequence in progress.
	StateStarting

	// StateRunning - started, possibly with absent channels.
	StateRunning

	// StateStopping - shutdown sequence in progress.
	StateStopping

	// StateStopped - shut down, or startup failed.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Acquirer finds a free transceiver.
type Acquirer interface {
	Acquire(ctx context.Context) (ant.TransceiverID, error)
}

// Config configures a Bridge.
type Config struct {
	NetworkKey ant.NetworkKey

	// SensorType is the receive sensor type (speed, cadence or combined).
	SensorType ant.DeviceType

	// SpeedSensorID is the receive device number; ant.WildcardDeviceID pairs
	// with the first sensor heard.
	SpeedSensorID uint16

	// PowerSensorID is the device number the emulated power meter announces.
	PowerSensorID uint16

	// OpenTimeout bounds each channel open. Zero selects DefaultOpenTimeout.
	OpenTimeout time.Duration

	// StaleAfter and TickInterval configure the watchdog.
	StaleAfter   time.Duration
	TickInterval time.Duration

	// Logger for operational output (optional).
	Logger *slog.Logger

	// EventLogger receives structured bridge events (optional).
	EventLogger log.Logger
}

// Deps are the collaborators a Bridge drives.
type Deps struct {
	Acquirer   Acquirer
	Runtime    ant.Runtime
	Calculator power.Calculator
}

func (d Deps) validate() error {
	switch {
	case d.Acquirer == nil:
		return fmt.Errorf("%w: acquirer is required", ErrInvalidConfig)
	case d.Runtime == nil:
		return fmt.Errorf("%w: runtime is required", ErrInvalidConfig)
	case d.Calculator == nil:
		return fmt.Errorf("%w: calculator is required", ErrInvalidConfig)
	}
	return nil
}

// Status is a snapshot of the bridge.
type Status struct {
	State       State
	SessionID   string
	Transceiver ant.TransceiverID
	NodeRunning bool

	ReceiveAvailable  bool
	TransmitAvailable bool

	SensorType ant.DeviceType
	EventTime  uint16
	Pages      uint64

	Power   uint16
	Updates uint64

	Calculator string
	Watchdog   watchdog.Status
}
