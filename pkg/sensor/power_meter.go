package sensor

import (
	"context"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// PowerMeter is the transmit side of the bridge: an emulated power meter.
// It holds the instantaneous power value that the watchdog re-sends.
type PowerMeter struct {
	mu       sync.Mutex
	ch       ant.BroadcastChannel
	deviceID uint16
	power    uint16
	updates  uint64
	onUpdate func(power uint16)
}

// NewPowerMeter creates an unopened transmit wrapper.
func NewPowerMeter() *PowerMeter {
	return &PowerMeter{}
}

// Open opens a broadcast channel announcing a power sensor with deviceID.
// On error the wrapper stays unavailable.
func (p *PowerMeter) Open(ctx context.Context, rt ant.Runtime, deviceID uint16) error {
	p.mu.Lock()
	if p.ch != nil {
		p.mu.Unlock()
		return ErrAlreadyOpen
	}
	p.mu.Unlock()

	ch, err := rt.OpenBroadcast(ctx, ant.DeviceTypePower, deviceID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.ch = ch
	p.deviceID = deviceID
	p.mu.Unlock()
	return nil
}

// Available reports whether the channel is open.
func (p *PowerMeter) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch != nil
}

// DeviceID returns the announced device number.
func (p *PowerMeter) DeviceID() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deviceID
}

// Power returns the held power value. ok is false if the channel is not open.
func (p *PowerMeter) Power() (watts uint16, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.power, p.ch != nil
}

// SetPower changes the held value without sending it.
// It does nothing if the channel is not open.
func (p *PowerMeter) SetPower(watts uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.power = watts
	}
}

// Update stores watts as the held value and hands it to the broadcast
// channel. It does nothing if the channel is not open.
func (p *PowerMeter) Update(watts uint16) error {
	p.mu.Lock()
	ch := p.ch
	if ch == nil {
		p.mu.Unlock()
		return nil
	}
	p.power = watts
	p.updates++
	onUpdate := p.onUpdate
	p.mu.Unlock()

	err := ch.Update(watts)
	if onUpdate != nil {
		onUpdate(watts)
	}
	return err
}

// Updates returns how many times Update reached the channel.
func (p *PowerMeter) Updates() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates
}

// OnUpdate sets a callback invoked after every Update.
func (p *PowerMeter) OnUpdate(fn func(power uint16)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// Close closes and unassigns the channel. Both steps are attempted; their
// errors are joined. Close on an unavailable wrapper does nothing.
func (p *PowerMeter) Close() error {
	p.mu.Lock()
	ch := p.ch
	p.ch = nil
	p.onUpdate = nil
	p.mu.Unlock()

	if ch == nil {
		return nil
	}
	return closeAndUnassign(ch)
}
