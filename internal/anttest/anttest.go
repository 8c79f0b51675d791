// Package anttest provides testify mocks of the ant capability interfaces.
package anttest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// Runtime is a mock ant.Runtime.
type Runtime struct{ mock.Mock }

func (r *Runtime) Start(ctx context.Context, id ant.TransceiverID) error {
	return r.Called(ctx, id).Error(0)
}
func (r *Runtime) Stop() error { return r.Called().Error(0) }
func (r *Runtime) SetNetworkKey(slot uint8, key ant.NetworkKey) error {
	return r.Called(slot, key).Error(0)
}
func (r *Runtime) OpenReceive(ctx context.Context, dt ant.DeviceType, id uint16) (ant.ReceiveChannel, error) {
	ret := r.Called(ctx, dt, id)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(ant.ReceiveChannel), ret.Error(1)
}
func (r *Runtime) OpenBroadcast(ctx context.Context, dt ant.DeviceType, id uint16) (ant.BroadcastChannel, error) {
	ret := r.Called(ctx, dt, id)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(ant.BroadcastChannel), ret.Error(1)
}

// ReceiveChannel is a mock ant.ReceiveChannel. Subscribe is not mocked:
// the listener is stored and driven with Deliver.
type ReceiveChannel struct {
	mock.Mock

	mu       sync.Mutex
	listener ant.ReceiveListener
}

func (c *ReceiveChannel) Subscribe(listener ant.ReceiveListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = listener
}
func (c *ReceiveChannel) Close() error    { return c.Called().Error(0) }
func (c *ReceiveChannel) Unassign() error { return c.Called().Error(0) }

// Deliver hands data to the subscribed listener as the runtime would.
// It reports false if nothing is subscribed.
func (c *ReceiveChannel) Deliver(data ant.SpeedCadenceData) bool {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()

	if l == nil {
		return false
	}
	l(data)
	return true
}

// BroadcastChannel is a mock ant.BroadcastChannel.
type BroadcastChannel struct{ mock.Mock }

func (c *BroadcastChannel) Update(power uint16) error { return c.Called(power).Error(0) }
func (c *BroadcastChannel) Close() error              { return c.Called().Error(0) }
func (c *BroadcastChannel) Unassign() error           { return c.Called().Error(0) }

// Compile-time interface satisfaction checks.
var (
	_ ant.Runtime          = (*Runtime)(nil)
	_ ant.ReceiveChannel   = (*ReceiveChannel)(nil)
	_ ant.BroadcastChannel = (*BroadcastChannel)(nil)
)
