// Package node owns the running ANT protocol stack for the bridge.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// ErrStartFailed wraps any failure to bring the node up.
var ErrStartFailed = errors.New("ANT node failed to start")

// Config configures a Session.
type Config struct {
	NetworkKey ant.NetworkKey

	// NetworkSlot is the network number the key is installed under.
	NetworkSlot uint8

	Logger *slog.Logger
}

// Session is a started ANT runtime with the network key installed.
type Session struct {
	mu      sync.Mutex
	rt      ant.Runtime
	key     ant.NetworkKey
	slot    uint8
	running bool
	id      ant.TransceiverID
	logger  *slog.Logger
}

// NewSession creates a stopped session around rt.
func NewSession(rt ant.Runtime, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		rt:     rt,
		key:    cfg.NetworkKey,
		slot:   cfg.NetworkSlot,
		logger: logger,
	}
}

// Start starts the runtime on the transceiver and installs the network key.
// Any error is wrapped in ErrStartFailed. If the key cannot be installed the
// runtime is stopped again before returning.
func (s *Session) Start(ctx context.Context, id ant.TransceiverID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("%w: %w", ErrStartFailed, ant.ErrAlreadyStarted)
	}

	s.logger.Info("starting ANT node", "device", id.String())
	if err := s.rt.Start(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	if err := s.rt.SetNetworkKey(s.slot, s.key); err != nil {
		if stopErr := s.rt.Stop(); stopErr != nil {
			s.logger.Warn("failed to stop node after key error", "error", stopErr)
		}
		return fmt.Errorf("%w: set network key: %w", ErrStartFailed, err)
	}

	s.running = true
	s.id = id
	s.logger.Debug("network key installed", "slot", s.slot)
	return nil
}

// Stop releases the runtime. It does nothing unless Start succeeded and
// never fails: shutdown errors from the stack are logged and dropped.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	s.logger.Info("stopping ANT node", "device", s.id.String())
	if err := s.rt.Stop(); err != nil {
		s.logger.Warn("error stopping ANT node", "error", err)
	}
}

// Running reports whether Start succeeded and Stop has not been called.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Transceiver returns the identity the session was started on.
func (s *Session) Transceiver() ant.TransceiverID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Runtime returns the underlying runtime for opening channels.
func (s *Session) Runtime() ant.Runtime {
	return s.rt
}
