package antsim

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// ReceiveChannel is a simulated slave channel.
type ReceiveChannel struct {
	rt         *Runtime
	deviceType ant.DeviceType
	deviceID   uint16

	mu       sync.Mutex
	listener ant.ReceiveListener
	closed   bool
}

// Subscribe sets the page listener.
func (c *ReceiveChannel) Subscribe(listener ant.ReceiveListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = listener
}

// Close stops delivery.
func (c *ReceiveChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ant.ErrChannelClosed
	}
	c.closed = true
	return nil
}

// Unassign detaches the channel from the runtime.
func (c *ReceiveChannel) Unassign() error {
	c.rt.unassignReceive(c)
	return nil
}

func (c *ReceiveChannel) deliver(data ant.SpeedCadenceData) {
	c.mu.Lock()
	l := c.listener
	closed := c.closed
	c.mu.Unlock()

	if closed || l == nil {
		return
	}
	l(data)
}

// BroadcastChannel is a simulated master channel that records every value
// handed to it.
type BroadcastChannel struct {
	rt         *Runtime
	deviceType ant.DeviceType
	deviceID   uint16
	logger     *slog.Logger

	mu      sync.Mutex
	updates []uint16
	closed  bool
}

// Update records power.
func (c *BroadcastChannel) Update(power uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ant.ErrChannelClosed
	}
	c.updates = append(c.updates, power)
	c.logger.Debug("broadcast power", "device_id", c.deviceID, "watts", power)
	return nil
}

// Updates returns every recorded value in order.
func (c *BroadcastChannel) Updates() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.updates)
}

// Last returns the most recent value.
func (c *BroadcastChannel) Last() (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) == 0 {
		return 0, false
	}
	return c.updates[len(c.updates)-1], true
}

// DeviceID returns the announced device number.
func (c *BroadcastChannel) DeviceID() uint16 {
	return c.deviceID
}

// Close stops accepting updates.
func (c *BroadcastChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ant.ErrChannelClosed
	}
	c.closed = true
	return nil
}

// Unassign detaches the channel from the runtime.
func (c *BroadcastChannel) Unassign() error {
	c.rt.unassignBroadcast(c)
	return nil
}
