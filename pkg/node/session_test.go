package node

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vpower-bridge/vpower-go/internal/anttest"
	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

var (
	testKey   = ant.NetworkKey{1, 2, 3, 4, 5, 6, 7, 8}
	testStick = ant.TransceiverID{Bus: 1, Address: 9, Vendor: 0x0fcf, Product: 0x1008}
)

func TestSessionStartInstallsKey(t *testing.T) {
	rt := &anttest.Runtime{}
	rt.On("Start", mock.Anything, testStick).Return(nil).Once()
	rt.On("SetNetworkKey", ant.NetworkSlotANTPlus, testKey).Return(nil).Once()

	s := NewSession(rt, Config{NetworkKey: testKey})
	require.NoError(t, s.Start(context.Background(), testStick))

	assert.True(t, s.Running())
	assert.Equal(t, testStick, s.Transceiver())
	assert.Same(t, rt, s.Runtime())
	rt.AssertExpectations(t)
}

func TestSessionStartFailure(t *testing.T) {
	rt := &anttest.Runtime{}
	startErr := errors.New("usb: no such device")
	rt.On("Start", mock.Anything, testStick).Return(startErr)

	s := NewSession(rt, Config{NetworkKey: testKey})
	err := s.Start(context.Background(), testStick)

	assert.ErrorIs(t, err, ErrStartFailed)
	assert.ErrorIs(t, err, startErr)
	assert.False(t, s.Running())

	// Stop after a failed start must not touch the runtime.
	s.Stop()
	rt.AssertNotCalled(t, "Stop")
}

func TestSessionKeyFailureStopsRuntime(t *testing.T) {
	rt := &anttest.Runtime{}
	keyErr := errors.New("rejected")
	rt.On("Start", mock.Anything, testStick).Return(nil)
	rt.On("SetNetworkKey", mock.Anything, mock.Anything).Return(keyErr)
	rt.On("Stop").Return(nil).Once()

	s := NewSession(rt, Config{NetworkKey: testKey})
	err := s.Start(context.Background(), testStick)

	assert.ErrorIs(t, err, ErrStartFailed)
	assert.ErrorIs(t, err, keyErr)
	assert.False(t, s.Running())
	rt.AssertExpectations(t)
}

func TestSessionDoubleStart(t *testing.T) {
	rt := &anttest.Runtime{}
	rt.On("Start", mock.Anything, testStick).Return(nil).Once()
	rt.On("SetNetworkKey", mock.Anything, mock.Anything).Return(nil).Once()

	s := NewSession(rt, Config{NetworkKey: testKey})
	require.NoError(t, s.Start(context.Background(), testStick))

	err := s.Start(context.Background(), testStick)
	assert.ErrorIs(t, err, ant.ErrAlreadyStarted)
	rt.AssertExpectations(t)
}

func TestSessionStopIdempotentAndSwallowsErrors(t *testing.T) {
	rt := &anttest.Runtime{}
	rt.On("Start", mock.Anything, testStick).Return(nil)
	rt.On("SetNetworkKey", mock.Anything, mock.Anything).Return(nil)
	rt.On("Stop").Return(errors.New("usb reset failed")).Once()

	s := NewSession(rt, Config{NetworkKey: testKey})
	require.NoError(t, s.Start(context.Background(), testStick))

	s.Stop()
	s.Stop()

	assert.False(t, s.Running())
	rt.AssertNumberOfCalls(t, "Stop", 1)
}
