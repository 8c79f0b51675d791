package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Watchdog defaults.
const (
	// DefaultStaleAfter is the window without a new event after which the
	// sensor is considered silent.
	DefaultStaleAfter = 3 * time.Second

	// DefaultInterval is the tick period used by Run.
	DefaultInterval = 1 * time.Second
)

// State represents the watchdog state.
type State uint8

const (
	// StateLive indicates power is being refreshed every tick.
	StateLive State = iota

	// StateStopped indicates the sensor went silent and power is zero.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLive:
		return "LIVE"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Source is the receive side as seen by the watchdog.
type Source interface {
	// LatestEventTime returns the event time of the newest page.
	// ok is false if the receive side is absent.
	LatestEventTime() (eventTime uint16, ok bool)
}

// Sink is the transmit side as seen by the watchdog.
type Sink interface {
	// Power returns the held value. ok is false if the transmit side is absent.
	Power() (watts uint16, ok bool)

	// SetPower changes the held value without sending it.
	SetPower(watts uint16)

	// Update sends watts and holds it.
	Update(watts uint16) error
}

// Config holds watchdog configuration.
type Config struct {
	// StaleAfter is truncated to whole seconds, minimum 1s, because the
	// window is measured on Unix seconds.
	StaleAfter time.Duration
	Interval   time.Duration
	Logger     *slog.Logger
}

// TickResult describes what one tick did.
type TickResult struct {
	Time      time.Time
	State     State
	EventTime uint16

	// Stale is set on the tick that detected a silent sensor.
	Stale bool

	// Recovered is set on the tick that left STOPPED.
	Recovered bool

	// Updated is set if the held power was re-sent.
	Updated bool
	Power   uint16
}

// Status is a snapshot of the watchdog.
type Status struct {
	State      State
	LastSeen   uint16
	LastUpdate int64
	Ticks      uint64
}

// Watchdog runs the staleness state machine.
type Watchdog struct {
	mu sync.Mutex

	source Source
	sink   Sink

	staleSeconds int64
	interval     time.Duration

	state      State
	lastSeen   uint16
	lastUpdate int64
	ticks      uint64

	logger *slog.Logger

	onStateChange func(oldState, newState State)
	onTick        func(TickResult)
}

// New creates a watchdog in StateLive. Either side may be nil when the
// corresponding channel is absent.
func New(source Source, sink Sink, cfg Config) *Watchdog {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	stale := int64(cfg.StaleAfter / time.Second)
	if stale < 1 {
		stale = 1
	}

	return &Watchdog{
		source:       source,
		sink:         sink,
		staleSeconds: stale,
		interval:     cfg.Interval,
		state:        StateLive,
		logger:       logger,
	}
}

// State returns the current state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Status returns a snapshot of the watchdog.
func (w *Watchdog) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		State:      w.state,
		LastSeen:   w.lastSeen,
		LastUpdate: w.lastUpdate,
		Ticks:      w.ticks,
	}
}

// Interval returns the tick period used by Run.
func (w *Watchdog) Interval() time.Duration {
	return w.interval
}

// OnStateChange sets a callback for state transitions.
func (w *Watchdog) OnStateChange(fn func(oldState, newState State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStateChange = fn
}

// OnTick sets a callback invoked at the end of every tick.
func (w *Watchdog) OnTick(fn func(TickResult)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTick = fn
}

// Tick runs one reconciliation step at wall-clock time now.
func (w *Watchdog) Tick(now time.Time) {
	t := now.Unix()
	res := TickResult{Time: now}

	w.mu.Lock()

	oldState := w.state
	forceUpdate := false

	switch w.state {
	case StateLive:
		if eventTime, ok := w.latestEventTime(); ok && t >= w.lastUpdate+w.staleSeconds {
			if eventTime == w.lastSeen {
				if w.sink != nil {
					w.sink.SetPower(0)
				}
				w.state = StateStopped
				res.Stale = true
			}
			w.lastSeen = eventTime
			w.lastUpdate = t
		}
		forceUpdate = true

	case StateStopped:
		if watts, ok := w.heldPower(); ok && watts != 0 {
			w.state = StateLive
			res.Recovered = true
		}
	}

	w.ticks++
	newState := w.state
	res.State = newState
	res.EventTime = w.lastSeen
	sink := w.sink
	stateChangeFn := w.onStateChange
	tickFn := w.onTick

	w.mu.Unlock()

	if forceUpdate && sink != nil {
		if watts, ok := sink.Power(); ok {
			res.Power = watts
			res.Updated = true
			if err := sink.Update(watts); err != nil {
				w.logger.Warn("forced power update failed", "power", watts, "error", err)
			}
		}
	}

	if oldState != newState {
		w.logger.Info("watchdog state changed", "from", oldState.String(), "to", newState.String())
		if stateChangeFn != nil {
			stateChangeFn(oldState, newState)
		}
	}
	if tickFn != nil {
		tickFn(res)
	}
}

// Run ticks every Interval until ctx is done. Cancellation is the only
// exit and is reported as ctx's error.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("watchdog running", "interval", w.interval, "stale_after", time.Duration(w.staleSeconds)*time.Second)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog interrupted", "cause", context.Cause(ctx))
			return ctx.Err()
		case now := <-ticker.C:
			w.Tick(now)
		}
	}
}

func (w *Watchdog) latestEventTime() (uint16, bool) {
	if w.source == nil {
		return 0, false
	}
	return w.source.LatestEventTime()
}

func (w *Watchdog) heldPower() (uint16, bool) {
	if w.sink == nil {
		return 0, false
	}
	return w.sink.Power()
}
