package antsim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/power"
	"github.com/vpower-bridge/vpower-go/pkg/usbstick"
)

func TestAcquirerSkipsPreClaimedStick(t *testing.T) {
	enum := NewEnumerator()
	sticks := DefaultSticks()

	id, err := usbstick.NewAcquirer(enum, usbstick.Config{}).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sticks[1].ID, id)
	assert.False(t, enum.Claimed(id), "probe handle must be released")
	assert.True(t, enum.Claimed(sticks[0].ID))
}

func TestAcquirerAllSticksBusy(t *testing.T) {
	sticks := DefaultSticks()
	sticks[1].Claimed = true

	_, err := usbstick.NewAcquirer(NewEnumerator(sticks...), usbstick.Config{}).Acquire(context.Background())
	assert.ErrorIs(t, err, usbstick.ErrNoDeviceAvailable)
}

func TestEnumeratorUnknownStick(t *testing.T) {
	_, err := NewEnumerator().TryClaim(ant.TransceiverID{Bus: 9, Address: 9})
	assert.ErrorIs(t, err, ant.ErrDeviceNotFound)
}

func TestDriverRegistered(t *testing.T) {
	assert.Contains(t, ant.Drivers(), DriverName)

	rt, err := ant.Open(DriverName)
	require.NoError(t, err)
	assert.IsType(t, &Runtime{}, rt)
}

func TestRuntimeRequiresStart(t *testing.T) {
	rt := NewRuntime(Config{})
	ctx := context.Background()

	assert.ErrorIs(t, rt.SetNetworkKey(0, ant.NetworkKey{}), ant.ErrNotStarted)
	_, err := rt.OpenReceive(ctx, ant.DeviceTypeSpeed, 0)
	assert.ErrorIs(t, err, ant.ErrNotStarted)
	_, err = rt.OpenBroadcast(ctx, ant.DeviceTypePower, 1)
	assert.ErrorIs(t, err, ant.ErrNotStarted)
	assert.ErrorIs(t, rt.Stop(), ant.ErrNotStarted)
}

func TestRuntimeStartStop(t *testing.T) {
	rt := NewRuntime(Config{Interval: time.Hour})
	id := DefaultSticks()[1].ID
	require.NoError(t, rt.Start(context.Background(), id))
	assert.ErrorIs(t, rt.Start(context.Background(), id), ant.ErrAlreadyStarted)

	key := ant.NetworkKey{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, rt.SetNetworkKey(ant.NetworkSlotANTPlus, key))
	got, ok := rt.NetworkKey(ant.NetworkSlotANTPlus)
	assert.True(t, ok)
	assert.Equal(t, key, got)

	require.NoError(t, rt.Stop())
}

func TestRuntimeRejectsPowerReceive(t *testing.T) {
	rt := NewRuntime(Config{Interval: time.Hour})
	require.NoError(t, rt.Start(context.Background(), ant.TransceiverID{}))
	defer rt.Stop()

	_, err := rt.OpenReceive(context.Background(), ant.DeviceTypePower, 0)
	assert.ErrorIs(t, err, ant.ErrDeviceNotFound)
}

func TestStepDeliversPlausibleSpeed(t *testing.T) {
	rt := NewRuntime(Config{Speed: 30, Interval: time.Hour})
	require.NoError(t, rt.Start(context.Background(), ant.TransceiverID{}))
	defer rt.Stop()

	ch, err := rt.OpenReceive(context.Background(), ant.DeviceTypeSpeedCadence, ant.WildcardDeviceID)
	require.NoError(t, err)

	var pages []ant.SpeedCadenceData
	ch.Subscribe(func(d ant.SpeedCadenceData) { pages = append(pages, d) })

	ws := power.NewWheelSpeed(power.DefaultWheelCircumference)
	var speeds []float64
	for i := 0; i < 40; i++ {
		rt.Step()
		if kmh, ok := ws.Next(pages[len(pages)-1]); ok {
			speeds = append(speeds, kmh)
		}
	}

	require.Len(t, pages, 40)
	require.NotEmpty(t, speeds)
	for _, kmh := range speeds {
		assert.InDelta(t, 30, kmh, 1.5)
	}
	assert.NotZero(t, pages[39].CadenceRevolutions)
}

func TestZeroSpeedFreezesEventTime(t *testing.T) {
	rt := NewRuntime(Config{Interval: time.Hour})
	require.NoError(t, rt.Start(context.Background(), ant.TransceiverID{}))
	defer rt.Stop()

	ch, err := rt.OpenReceive(context.Background(), ant.DeviceTypeSpeed, 0)
	require.NoError(t, err)
	var last ant.SpeedCadenceData
	ch.Subscribe(func(d ant.SpeedCadenceData) { last = d })

	for i := 0; i < 8; i++ {
		rt.Step()
	}
	require.NoError(t, rt.SetSpeed(0))
	rt.Step()
	frozen := last
	for i := 0; i < 8; i++ {
		rt.Step()
	}
	assert.Equal(t, frozen.SpeedEventTime, last.SpeedEventTime)
	assert.Equal(t, frozen.SpeedRevolutions, last.SpeedRevolutions)

	assert.Error(t, rt.SetSpeed(-1))
	assert.Error(t, rt.SetSpeed(power.MaxSpeed+1))
}

func TestPauseStopsDelivery(t *testing.T) {
	rt := NewRuntime(Config{Interval: time.Hour})
	require.NoError(t, rt.Start(context.Background(), ant.TransceiverID{}))
	defer rt.Stop()

	ch, err := rt.OpenReceive(context.Background(), ant.DeviceTypeSpeed, 0)
	require.NoError(t, err)
	n := 0
	ch.Subscribe(func(ant.SpeedCadenceData) { n++ })

	rt.Pause()
	assert.True(t, rt.Paused())
	rt.Step()
	assert.Equal(t, 0, n)

	rt.Resume()
	rt.Step()
	assert.Equal(t, 1, n)

	require.NoError(t, ch.Close())
	rt.Step()
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, ch.Close(), ant.ErrChannelClosed)
}

func TestBroadcastRecordsUpdates(t *testing.T) {
	rt := NewRuntime(Config{Interval: time.Hour})
	require.NoError(t, rt.Start(context.Background(), ant.TransceiverID{}))
	defer rt.Stop()

	ch, err := rt.OpenBroadcast(context.Background(), ant.DeviceTypePower, 12345)
	require.NoError(t, err)
	bc := rt.Broadcasts()[0]
	assert.Equal(t, uint16(12345), bc.DeviceID())

	_, ok := bc.Last()
	assert.False(t, ok)

	require.NoError(t, ch.Update(120))
	require.NoError(t, ch.Update(0))
	assert.Equal(t, []uint16{120, 0}, bc.Updates())

	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Update(5), ant.ErrChannelClosed)
	require.NoError(t, ch.Unassign())
	assert.Empty(t, rt.Broadcasts())
}

func TestGeneratorRuns(t *testing.T) {
	rt := NewRuntime(Config{Interval: 5 * time.Millisecond})
	require.NoError(t, rt.Start(context.Background(), ant.TransceiverID{}))

	ch, err := rt.OpenReceive(context.Background(), ant.DeviceTypeSpeedCadence, 0)
	require.NoError(t, err)
	pages := make(chan ant.SpeedCadenceData, 64)
	ch.Subscribe(func(d ant.SpeedCadenceData) {
		select {
		case pages <- d:
		default:
		}
	})

	select {
	case <-pages:
	case <-time.After(time.Second):
		t.Fatal("no page generated")
	}
	require.NoError(t, rt.Stop())
}
