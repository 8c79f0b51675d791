package log

import (
	"time"
)

// Event represents a bridge event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one bridge run (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Component that produced the event.
	Component Component `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Lifecycle   *LifecycleEvent   `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Data        *DataEvent        `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Component identifies the part of the bridge that produced an event.
type Component uint8

const (
	// ComponentBridge is the lifecycle controller.
	ComponentBridge Component = 0
	// ComponentAcquirer is the USB transceiver acquirer.
	ComponentAcquirer Component = 1
	// ComponentNode is the ANT node session.
	ComponentNode Component = 2
	// ComponentReceive is the speed/cadence receive channel.
	ComponentReceive Component = 3
	// ComponentTransmit is the emulated power meter channel.
	ComponentTransmit Component = 4
	// ComponentChain is the notification chain and power calculator.
	ComponentChain Component = 5
	// ComponentWatchdog is the reconciliation loop.
	ComponentWatchdog Component = 6
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentBridge:
		return "BRIDGE"
	case ComponentAcquirer:
		return "ACQUIRER"
	case ComponentNode:
		return "NODE"
	case ComponentReceive:
		return "RECEIVE"
	case ComponentTransmit:
		return "TRANSMIT"
	case ComponentChain:
		return "CHAIN"
	case ComponentWatchdog:
		return "WATCHDOG"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryLifecycle indicates a startup or shutdown step.
	CategoryLifecycle Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryData indicates sensor data or a transmitted value.
	CategoryData Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryState:
		return "STATE"
	case CategoryData:
		return "DATA"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of a lifecycle step.
type Outcome uint8

const (
	// OutcomeAttempted marks the start of a step.
	OutcomeAttempted Outcome = 0
	// OutcomeSucceeded marks a step that completed.
	OutcomeSucceeded Outcome = 1
	// OutcomeFailed marks a step that failed.
	OutcomeFailed Outcome = 2
	// OutcomeSkipped marks a step that was not needed.
	OutcomeSkipped Outcome = 3
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAttempted:
		return "ATTEMPTED"
	case OutcomeSucceeded:
		return "SUCCEEDED"
	case OutcomeFailed:
		return "FAILED"
	case OutcomeSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data received from the sensor.
	DirectionIn Direction = 0
	// DirectionOut indicates data handed to the broadcast channel.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// LifecycleEvent captures one startup or shutdown step.
type LifecycleEvent struct {
	// Step names the operation ("acquire", "start_node", "open_receive", ...).
	Step string `cbor:"1,keyasint"`

	// Outcome of the step.
	Outcome Outcome `cbor:"2,keyasint"`

	// Detail carries extra context such as a device identity.
	Detail string `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a state transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// DataEvent captures a value moving through the notification chain.
type DataEvent struct {
	// Direction of the value.
	Direction Direction `cbor:"1,keyasint"`

	// EventTime is the sensor event time in 1/1024 s (receive only).
	EventTime *uint16 `cbor:"2,keyasint,omitempty"`

	// Revolutions is the cumulative revolution count (receive only).
	Revolutions *uint16 `cbor:"3,keyasint,omitempty"`

	// Power is the power value in watts (transmit only).
	Power *uint16 `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures an error that was handled locally.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
