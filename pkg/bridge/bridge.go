package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/log"
	"github.com/vpower-bridge/vpower-go/pkg/node"
	"github.com/vpower-bridge/vpower-go/pkg/power"
	"github.com/vpower-bridge/vpower-go/pkg/sensor"
	"github.com/vpower-bridge/vpower-go/pkg/watchdog"
)

// Bridge runs one speed sensor to power meter bridge.
type Bridge struct {
	mu sync.RWMutex

	config    Config
	sessionID string
	state     State
	id        ant.TransceiverID

	acquirer Acquirer
	rt       ant.Runtime
	calc     power.Calculator

	session  *node.Session
	receive  *sensor.SpeedCadence
	transmit *sensor.PowerMeter
	watchdog *watchdog.Watchdog
	chain    *chain

	logger *slog.Logger
	events log.Logger

	onTick func(Status, watchdog.TickResult)
}

// New creates an idle bridge.
func New(config Config, deps Deps) (*Bridge, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if !config.SensorType.IsSpeedCadence() {
		return nil, fmt.Errorf("%w: sensor type %s", ErrInvalidConfig, config.SensorType)
	}
	if sc, ok := deps.Calculator.(power.SensorChecker); ok && !sc.Supports(config.SensorType) {
		return nil, fmt.Errorf("%w: calculator %s cannot use a %s sensor", ErrInvalidConfig, deps.Calculator.Name(), config.SensorType)
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = DefaultOpenTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	events := config.EventLogger
	if events == nil {
		events = log.NoopLogger{}
	}

	b := &Bridge{
		config:    config,
		sessionID: uuid.NewString(),
		state:     StateIdle,
		acquirer:  deps.Acquirer,
		rt:        deps.Runtime,
		calc:      deps.Calculator,
		receive:   sensor.NewSpeedCadence(),
		transmit:  sensor.NewPowerMeter(),
		logger:    logger,
		events:    events,
	}
	b.session = node.NewSession(deps.Runtime, node.Config{
		NetworkKey:  config.NetworkKey,
		NetworkSlot: ant.NetworkSlotANTPlus,
		Logger:      logger,
	})
	b.chain = &chain{
		receive:  b.receive,
		calc:     b.calc,
		transmit: b.transmit,
		logger:   logger,
		emit:     b.emit,
	}
	b.watchdog = watchdog.New(b.receive, b.transmit, watchdog.Config{
		StaleAfter: config.StaleAfter,
		Interval:   config.TickInterval,
		Logger:     logger,
	})
	b.watchdog.OnStateChange(b.handleWatchdogStateChange)
	b.watchdog.OnTick(b.handleTick)

	return b, nil
}

// SessionID returns the identifier stamped on every event of this run.
func (b *Bridge) SessionID() string {
	return b.sessionID
}

// State returns the lifecycle state.
func (b *Bridge) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Transmit returns the emulated power meter.
func (b *Bridge) Transmit() *sensor.PowerMeter {
	return b.transmit
}

// SetPower broadcasts watts now, as if the calculator had produced it. The
// watchdog keeps re-sending it until the next calculated value.
func (b *Bridge) SetPower(watts uint16) error {
	if !b.transmit.Available() {
		return ErrNoTransmit
	}
	return b.transmit.Update(watts)
}

// Watchdog returns the reconciliation loop.
func (b *Bridge) Watchdog() *watchdog.Watchdog {
	return b.watchdog
}

// OnTick sets a callback invoked after every watchdog tick with a fresh
// status snapshot.
func (b *Bridge) OnTick(fn func(Status, watchdog.TickResult)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTick = fn
}

// Start runs the startup sequence. An error means the transceiver could not
// be acquired or the node could not start; nothing is left to release in
// that case. Channel open failures are logged and leave the bridge running
// without that channel.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.state = StateStarting
	b.mu.Unlock()

	b.lifecycle(log.ComponentBridge, "start", log.OutcomeAttempted, b.sessionID)

	b.lifecycle(log.ComponentAcquirer, "acquire", log.OutcomeAttempted, "")
	id, err := b.acquirer.Acquire(ctx)
	if err != nil {
		b.fail(log.ComponentAcquirer, "acquire", err)
		b.setState(StateStopped)
		return fmt.Errorf("acquire transceiver: %w", err)
	}
	b.lifecycle(log.ComponentAcquirer, "acquire", log.OutcomeSucceeded, id.String())

	b.lifecycle(log.ComponentNode, "start_node", log.OutcomeAttempted, id.String())
	if err := b.session.Start(ctx, id); err != nil {
		b.fail(log.ComponentNode, "start_node", err)
		b.setState(StateStopped)
		return err
	}
	b.lifecycle(log.ComponentNode, "start_node", log.OutcomeSucceeded, "")

	b.mu.Lock()
	b.id = id
	b.mu.Unlock()

	b.openReceive(ctx)
	b.openTransmit(ctx)

	rxLinked, txLinked := b.chain.wire()
	b.lifecycle(log.ComponentChain, "wire", log.OutcomeSucceeded,
		fmt.Sprintf("receive=%t transmit=%t calculator=%s", rxLinked, txLinked, b.calc.Name()))

	b.setState(StateRunning)
	b.lifecycle(log.ComponentBridge, "start", log.OutcomeSucceeded, "")
	return nil
}

func (b *Bridge) openReceive(ctx context.Context) {
	detail := fmt.Sprintf("%s #%d", b.config.SensorType, b.config.SpeedSensorID)
	b.lifecycle(log.ComponentReceive, "open_receive", log.OutcomeAttempted, detail)

	openCtx, cancel := context.WithTimeout(ctx, b.config.OpenTimeout)
	defer cancel()

	if err := b.receive.Open(openCtx, b.rt, b.config.SensorType, b.config.SpeedSensorID); err != nil {
		b.fail(log.ComponentReceive, "open_receive", err)
		return
	}
	b.lifecycle(log.ComponentReceive, "open_receive", log.OutcomeSucceeded, detail)
}

func (b *Bridge) openTransmit(ctx context.Context) {
	detail := fmt.Sprintf("%s #%d", ant.DeviceTypePower, b.config.PowerSensorID)
	b.lifecycle(log.ComponentTransmit, "open_transmit", log.OutcomeAttempted, detail)

	openCtx, cancel := context.WithTimeout(ctx, b.config.OpenTimeout)
	defer cancel()

	if err := b.transmit.Open(openCtx, b.rt, b.config.PowerSensorID); err != nil {
		b.fail(log.ComponentTransmit, "open_transmit", err)
		return
	}
	b.lifecycle(log.ComponentTransmit, "open_transmit", log.OutcomeSucceeded, detail)
}

// Run drives the watchdog until ctx is done and returns ctx's error.
func (b *Bridge) Run(ctx context.Context) error {
	return b.watchdog.Run(ctx)
}

// Stop releases whatever Start acquired, in reverse order. Each step runs
// even if an earlier one failed; failures are logged only. Stop on a bridge
// that never started, or already stopped, does nothing.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.state != StateStarting && b.state != StateRunning {
		b.mu.Unlock()
		return
	}
	b.state = StateStopping
	b.mu.Unlock()

	b.lifecycle(log.ComponentBridge, "stop", log.OutcomeAttempted, "")
	b.chain.unwire()

	if b.receive.Available() {
		b.lifecycle(log.ComponentReceive, "close_receive", log.OutcomeAttempted, "")
		if err := b.receive.Close(); err != nil {
			b.fail(log.ComponentReceive, "close_receive", err)
		} else {
			b.lifecycle(log.ComponentReceive, "close_receive", log.OutcomeSucceeded, "")
		}
	} else {
		b.lifecycle(log.ComponentReceive, "close_receive", log.OutcomeSkipped, "not open")
	}

	if b.transmit.Available() {
		b.lifecycle(log.ComponentTransmit, "close_transmit", log.OutcomeAttempted, "")
		if err := b.transmit.Close(); err != nil {
			b.fail(log.ComponentTransmit, "close_transmit", err)
		} else {
			b.lifecycle(log.ComponentTransmit, "close_transmit", log.OutcomeSucceeded, "")
		}
	} else {
		b.lifecycle(log.ComponentTransmit, "close_transmit", log.OutcomeSkipped, "not open")
	}

	if b.session.Running() {
		b.lifecycle(log.ComponentNode, "stop_node", log.OutcomeAttempted, "")
		b.session.Stop()
		b.lifecycle(log.ComponentNode, "stop_node", log.OutcomeSucceeded, "")
	} else {
		b.lifecycle(log.ComponentNode, "stop_node", log.OutcomeSkipped, "not running")
	}

	b.setState(StateStopped)
	b.lifecycle(log.ComponentBridge, "stop", log.OutcomeSucceeded, "")
}

// Status returns a snapshot of the bridge.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	st := Status{
		State:       b.state,
		SessionID:   b.sessionID,
		Transceiver: b.id,
		SensorType:  b.config.SensorType,
		Calculator:  b.calc.Name(),
	}
	b.mu.RUnlock()

	st.NodeRunning = b.session.Running()
	st.ReceiveAvailable = b.receive.Available()
	st.TransmitAvailable = b.transmit.Available()
	st.EventTime, _ = b.receive.LatestEventTime()
	st.Pages = b.receive.Pages()
	st.Power, _ = b.transmit.Power()
	st.Updates = b.transmit.Updates()
	st.Watchdog = b.watchdog.Status()
	return st
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

func (b *Bridge) handleWatchdogStateChange(oldState, newState watchdog.State) {
	reason := "sensor silent"
	if newState == watchdog.StateLive {
		reason = "power resumed"
	}
	b.emit(log.Event{
		Component: log.ComponentWatchdog,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

func (b *Bridge) handleTick(res watchdog.TickResult) {
	b.mu.RLock()
	fn := b.onTick
	b.mu.RUnlock()

	if fn != nil {
		fn(b.Status(), res)
	}
}

// lifecycle reports a step to slog and the event log.
func (b *Bridge) lifecycle(component log.Component, step string, outcome log.Outcome, detail string) {
	args := []any{"component", component.String(), "step", step}
	if detail != "" {
		args = append(args, "detail", detail)
	}
	if outcome == log.OutcomeAttempted {
		b.logger.Debug(step+" "+outcome.String(), args...)
	} else {
		b.logger.Info(step+" "+outcome.String(), args...)
	}

	b.emit(log.Event{
		Component: component,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Step: step, Outcome: outcome, Detail: detail},
	})
}

// fail reports a failed step with its error.
func (b *Bridge) fail(component log.Component, step string, err error) {
	b.logger.Warn(step+" FAILED", "component", component.String(), "error", err)

	b.emit(log.Event{
		Component: component,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Step: step, Outcome: log.OutcomeFailed, Detail: err.Error()},
	})
	b.emit(log.Event{
		Component: component,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: err.Error(), Context: step},
	})
}

func (b *Bridge) emit(event log.Event) {
	event.Timestamp = time.Now()
	event.SessionID = b.sessionID
	b.events.Log(event)
}
