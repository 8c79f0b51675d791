package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// Sensor errors.
var (
	ErrAlreadyOpen       = errors.New("channel already open")
	ErrUnsupportedSensor = errors.New("unsupported sensor type")
)

// SpeedCadence is the receive side of the bridge.
type SpeedCadence struct {
	mu         sync.Mutex
	ch         ant.ReceiveChannel
	sensorType ant.DeviceType
	deviceID   uint16
	latest     ant.SpeedCadenceData
	hasData    bool
	pages      uint64
	listener   ant.ReceiveListener
}

// NewSpeedCadence creates an unopened receive wrapper.
func NewSpeedCadence() *SpeedCadence {
	return &SpeedCadence{}
}

// Open opens a receive channel for the sensor type and device number
// (ant.WildcardDeviceID pairs with any sensor). On error the wrapper stays
// unavailable.
func (s *SpeedCadence) Open(ctx context.Context, rt ant.Runtime, sensorType ant.DeviceType, deviceID uint16) error {
	if !sensorType.IsSpeedCadence() {
		return fmt.Errorf("%w: %s", ErrUnsupportedSensor, sensorType)
	}

	s.mu.Lock()
	if s.ch != nil {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.mu.Unlock()

	ch, err := rt.OpenReceive(ctx, sensorType, deviceID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ch = ch
	s.sensorType = sensorType
	s.deviceID = deviceID
	s.mu.Unlock()

	ch.Subscribe(s.handle)
	return nil
}

// handle runs on the runtime's dispatch goroutine.
func (s *SpeedCadence) handle(data ant.SpeedCadenceData) {
	s.mu.Lock()
	s.latest = data
	s.hasData = true
	s.pages++
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(data)
	}
}

// Subscribe sets the single listener called for every page, after the
// latest value has been recorded. A nil listener clears it.
func (s *SpeedCadence) Subscribe(listener ant.ReceiveListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = listener
}

// Available reports whether the channel is open.
func (s *SpeedCadence) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch != nil
}

// Latest returns the most recent page. ok is false if the channel is not
// open. Before the first page the zero value is returned with ok true.
func (s *SpeedCadence) Latest() (data ant.SpeedCadenceData, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.ch != nil
}

// LatestEventTime returns the speed event time of the most recent page.
// For cadence-only sensors the cadence event time is used.
func (s *SpeedCadence) LatestEventTime() (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return 0, false
	}
	if s.sensorType == ant.DeviceTypeCadence {
		return s.latest.CadenceEventTime, true
	}
	return s.latest.SpeedEventTime, true
}

// HasData reports whether at least one page arrived.
func (s *SpeedCadence) HasData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasData
}

// Pages returns the number of pages received.
func (s *SpeedCadence) Pages() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// SensorType returns the configured sensor type.
func (s *SpeedCadence) SensorType() ant.DeviceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensorType
}

// Close closes and unassigns the channel. Both steps are attempted; their
// errors are joined. Close on an unavailable wrapper does nothing.
func (s *SpeedCadence) Close() error {
	s.mu.Lock()
	ch := s.ch
	s.ch = nil
	s.listener = nil
	s.mu.Unlock()

	if ch == nil {
		return nil
	}
	return closeAndUnassign(ch)
}

type closeUnassigner interface {
	Close() error
	Unassign() error
}

func closeAndUnassign(ch closeUnassigner) error {
	var errs []error
	if err := ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := ch.Unassign(); err != nil {
		errs = append(errs, fmt.Errorf("unassign: %w", err))
	}
	return errors.Join(errs...)
}
