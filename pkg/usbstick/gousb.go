package usbstick

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/gousb"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// GousbEnumerator talks to real USB devices through libusb.
type GousbEnumerator struct {
	mu  sync.Mutex
	ctx *gousb.Context
}

// NewGousbEnumerator creates a libusb context. Call Close when done.
func NewGousbEnumerator() *GousbEnumerator {
	return &GousbEnumerator{ctx: gousb.NewContext()}
}

// ListCandidates returns every attached device with the vendor ID.
// Descriptors are read without opening the devices.
func (e *GousbEnumerator) ListCandidates(vendorID uint16) ([]ant.TransceiverID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []ant.TransceiverID
	devs, err := e.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if uint16(desc.Vendor) == vendorID {
			ids = append(ids, ant.TransceiverID{
				Bus:     desc.Bus,
				Address: desc.Address,
				Vendor:  uint16(desc.Vendor),
				Product: uint16(desc.Product),
			})
		}
		return false
	})
	for _, d := range devs {
		d.Close()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// TryClaim opens the device at id and claims its default interface.
func (e *GousbEnumerator) TryClaim(id ant.TransceiverID) (io.Closer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	devs, err := e.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == id.Bus && desc.Address == id.Address
	})
	if len(devs) == 0 {
		if err == nil {
			err = fmt.Errorf("device %s disappeared", id)
		}
		return nil, err
	}
	for _, d := range devs[1:] {
		d.Close()
	}

	dev := devs[0]
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: %v", ErrAlreadyClaimed, err)
	}
	// gousb flattens libusb errors into strings, so any claim failure is
	// reported as busy.
	_, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: %v", ErrAlreadyClaimed, err)
	}

	return &claim{dev: dev, release: done}, nil
}

// Close releases the libusb context.
func (e *GousbEnumerator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Close()
}

type claim struct {
	dev     *gousb.Device
	release func()
}

func (c *claim) Close() error {
	c.release()
	return c.dev.Close()
}
