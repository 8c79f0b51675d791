package connection

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// Defaults for NewManager.
const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
	DefaultAttemptTimeout  = 10 * time.Second
)

// State represents the link state.
type State uint8

const (
	// StateDisconnected indicates no link and no retry pending.
	StateDisconnected State = iota

	// StateConnecting indicates an attempt is in progress.
	StateConnecting

	// StateConnected indicates the link is up.
	StateConnected

	// StateReconnecting indicates the link was lost and retries are pending.
	StateReconnecting

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc establishes the link. It returns nil on success.
type ConnectFunc func(ctx context.Context) error

// Config configures a Manager.
type Config struct {
	// Name labels log output ("mqtt", "redis", ...).
	Name string

	// BackOff yields delays between retries. Nil selects the default
	// exponential policy. backoff.Stop ends retrying.
	BackOff backoff.BackOff

	// AttemptTimeout bounds a single ConnectFunc call.
	AttemptTimeout time.Duration

	Logger *slog.Logger
}

// DefaultBackOff returns the exponential retry policy used when Config
// leaves BackOff nil.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultInitialInterval
	b.MaxInterval = DefaultMaxInterval
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Manager keeps one link connected.
type Manager struct {
	mu sync.Mutex

	name    string
	state   State
	connect ConnectFunc

	bo             backoff.BackOff
	attempts       int
	attemptTimeout time.Duration

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	kick   chan struct{}

	onStateChange func(oldState, newState State)
}

// NewManager creates a disconnected manager.
func NewManager(connect ConnectFunc, cfg Config) *Manager {
	if cfg.BackOff == nil {
		cfg.BackOff = DefaultBackOff()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		name:           cfg.Name,
		state:          StateDisconnected,
		connect:        connect,
		bo:             cfg.BackOff,
		attemptTimeout: cfg.AttemptTimeout,
		logger:         logger.With("link", cfg.Name),
		ctx:            ctx,
		cancel:         cancel,
		kick:           make(chan struct{}, 1),
	}
}

// State returns the link state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the link is up.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Attempts returns the failed attempts since the last successful connect.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// OnStateChange sets a callback for state transitions.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// Start launches the reconnect goroutine and queues a first attempt.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.loop()
	m.trigger()
}

// Connect makes one synchronous attempt.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		m.mu.Unlock()
		return ErrConnectionClosed
	}
	m.mu.Unlock()

	return m.attempt(ctx, StateDisconnected)
}

// NotifyConnectionLost reports that a connected link dropped and queues
// reconnection.
func (m *Manager) NotifyConnectionLost() {
	if !m.transition(StateReconnecting, StateConnected) {
		return
	}
	m.logger.Warn("link lost")
	m.trigger()
}

// Close stops reconnecting and waits for the goroutine to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.transition(StateClosed)
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) trigger() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.kick:
			m.retry()
		}
	}
}

// retry attempts until connected, closed, or the backoff gives up.
func (m *Manager) retry() {
	for {
		switch m.State() {
		case StateConnected, StateClosed:
			return
		}

		err := m.attempt(m.ctx, StateReconnecting)
		if err == nil || errors.Is(err, ErrConnectionClosed) {
			return
		}

		m.mu.Lock()
		delay := m.bo.NextBackOff()
		attempts := m.attempts
		m.mu.Unlock()

		if delay == backoff.Stop {
			m.logger.Warn("giving up reconnecting", "attempts", attempts, "error", err)
			m.transition(StateDisconnected, StateReconnecting)
			return
		}
		m.logger.Debug("connect failed, retrying", "attempt", attempts, "delay", delay, "error", err)

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// attempt runs the ConnectFunc once. On failure the state becomes failState.
func (m *Manager) attempt(ctx context.Context, failState State) error {
	if !m.transition(StateConnecting, StateDisconnected, StateReconnecting) {
		if m.State() == StateClosed {
			return ErrConnectionClosed
		}
		return ErrAlreadyConnected
	}

	actx, cancel := context.WithTimeout(ctx, m.attemptTimeout)
	err := m.connect(actx)
	cancel()

	if err != nil {
		m.mu.Lock()
		m.attempts++
		m.mu.Unlock()
		m.transition(failState, StateConnecting)
		return err
	}

	m.mu.Lock()
	m.attempts = 0
	m.bo.Reset()
	m.mu.Unlock()

	if m.transition(StateConnected, StateConnecting) {
		m.logger.Info("link connected")
	}
	return nil
}

// transition moves to newState if the current state is one of from (any
// state if from is empty) and reports whether it did. The callback runs
// outside the lock.
func (m *Manager) transition(newState State, from ...State) bool {
	m.mu.Lock()
	oldState := m.state
	if len(from) > 0 && !slices.Contains(from, oldState) {
		m.mu.Unlock()
		return false
	}
	m.state = newState
	fn := m.onStateChange
	m.mu.Unlock()

	if fn != nil && oldState != newState {
		fn(oldState, newState)
	}
	return true
}
