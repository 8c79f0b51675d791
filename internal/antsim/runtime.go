package antsim

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/power"
)

// DriverName is the name the simulated runtime registers under.
const DriverName = "sim"

// Simulation defaults.
const (
	DefaultSpeed    = 25.0
	DefaultCadence  = 85.0
	DefaultInterval = 250 * time.Millisecond
)

func init() {
	ant.Register(DriverName, func() ant.Runtime { return NewRuntime(Config{}) })
}

// Config configures a Runtime.
type Config struct {
	// Speed is the initial simulated speed in km/h.
	Speed float64

	// Cadence is the crank rate in rpm while the wheel turns.
	Cadence float64

	// WheelCircumference in metres.
	WheelCircumference float64

	// Interval between generated pages. ANT+ sensors send about 4 Hz.
	Interval time.Duration

	Logger *slog.Logger
}

// Runtime is a simulated ant.Runtime with one virtual speed/cadence sensor.
// Pages are generated on a single dispatch goroutine while started.
type Runtime struct {
	mu sync.Mutex

	started bool
	id      ant.TransceiverID
	keys    map[uint8]ant.NetworkKey

	speed         float64
	cadence       float64
	circumference float64
	interval      time.Duration
	paused        bool

	elapsed float64
	wheel   counter
	crank   counter

	receive   []*ReceiveChannel
	broadcast []*BroadcastChannel

	cancel context.CancelFunc
	done   chan struct{}

	logger *slog.Logger
}

// NewRuntime creates a stopped runtime.
func NewRuntime(cfg Config) *Runtime {
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultSpeed
	}
	if cfg.Cadence <= 0 {
		cfg.Cadence = DefaultCadence
	}
	if cfg.WheelCircumference <= 0 {
		cfg.WheelCircumference = power.DefaultWheelCircumference
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runtime{
		keys:          make(map[uint8]ant.NetworkKey),
		speed:         cfg.Speed,
		cadence:       cfg.Cadence,
		circumference: cfg.WheelCircumference,
		interval:      cfg.Interval,
		logger:        logger,
	}
}

// SetLogger replaces the logger. Runtimes created through ant.Open start
// with a discarding logger.
func (r *Runtime) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Start binds the runtime and begins generating pages.
func (r *Runtime) Start(ctx context.Context, id ant.TransceiverID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ant.ErrAlreadyStarted
	}
	r.started = true
	r.id = id

	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(runCtx, r.interval, r.done)

	r.logger.Info("simulated ANT node started", "device", id.String(), "speed", r.speed)
	return nil
}

// Stop halts page generation and drops every channel.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return ant.ErrNotStarted
	}
	r.started = false
	cancel, done := r.cancel, r.done
	r.receive = nil
	r.broadcast = nil
	r.mu.Unlock()

	cancel()
	<-done
	r.logger.Info("simulated ANT node stopped")
	return nil
}

// SetNetworkKey records the key.
func (r *Runtime) SetNetworkKey(slot uint8, key ant.NetworkKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ant.ErrNotStarted
	}
	r.keys[slot] = key
	return nil
}

// NetworkKey returns the key installed in slot.
func (r *Runtime) NetworkKey(slot uint8) (ant.NetworkKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[slot]
	return k, ok
}

// OpenReceive opens a channel fed by the virtual sensor. The sensor pairs
// with any device number.
func (r *Runtime) OpenReceive(ctx context.Context, deviceType ant.DeviceType, deviceID uint16) (ant.ReceiveChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil, ant.ErrNotStarted
	}
	if !deviceType.IsSpeedCadence() {
		return nil, fmt.Errorf("%w: no simulated %s sensor", ant.ErrDeviceNotFound, deviceType)
	}

	ch := &ReceiveChannel{rt: r, deviceType: deviceType, deviceID: deviceID}
	r.receive = append(r.receive, ch)
	r.logger.Debug("receive channel opened", "type", deviceType.String(), "device_id", deviceID)
	return ch, nil
}

// OpenBroadcast opens a recording master channel.
func (r *Runtime) OpenBroadcast(ctx context.Context, deviceType ant.DeviceType, deviceID uint16) (ant.BroadcastChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil, ant.ErrNotStarted
	}

	ch := &BroadcastChannel{rt: r, deviceType: deviceType, deviceID: deviceID, logger: r.logger}
	r.broadcast = append(r.broadcast, ch)
	r.logger.Debug("broadcast channel opened", "type", deviceType.String(), "device_id", deviceID)
	return ch, nil
}

// Speed returns the simulated speed in km/h.
func (r *Runtime) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// SetSpeed changes the simulated speed. Zero stops the wheel, so the event
// time stops advancing.
func (r *Runtime) SetSpeed(kmh float64) error {
	if kmh < 0 || kmh > power.MaxSpeed {
		return fmt.Errorf("speed %.1f km/h out of range [0, %.0f]", kmh, power.MaxSpeed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speed = kmh
	return nil
}

// Pause stops sending pages, as if the sensor went out of range.
func (r *Runtime) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume restarts page delivery.
func (r *Runtime) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

// Paused reports whether page delivery is paused.
func (r *Runtime) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Broadcasts returns the open broadcast channels.
func (r *Runtime) Broadcasts() []*BroadcastChannel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.broadcast)
}

// Step advances the simulation by one interval and delivers the page
// synchronously. Tests use it instead of waiting for the generator.
func (r *Runtime) Step() {
	r.step(r.interval)
}

func (r *Runtime) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.step(interval)
		}
	}
}

// step generates one page and hands it to every subscribed channel
// outside the lock.
func (r *Runtime) step(interval time.Duration) {
	r.mu.Lock()
	dt := interval.Seconds()
	r.elapsed += dt

	wheelRate := r.speed / 3.6 / r.circumference
	crankRate := 0.0
	if r.speed > 0 {
		crankRate = r.cadence / 60
	}

	var data ant.SpeedCadenceData
	data.SpeedEventTime, data.SpeedRevolutions = r.wheel.advance(wheelRate, dt, r.elapsed)
	data.CadenceEventTime, data.CadenceRevolutions = r.crank.advance(crankRate, dt, r.elapsed)

	var targets []*ReceiveChannel
	if !r.paused {
		targets = slices.Clone(r.receive)
	}
	r.mu.Unlock()

	for _, ch := range targets {
		ch.deliver(data)
	}
}

func (r *Runtime) unassignReceive(ch *ReceiveChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receive = slices.DeleteFunc(r.receive, func(c *ReceiveChannel) bool { return c == ch })
}

func (r *Runtime) unassignBroadcast(ch *BroadcastChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = slices.DeleteFunc(r.broadcast, func(c *BroadcastChannel) bool { return c == ch })
}

var _ ant.Runtime = (*Runtime)(nil)
