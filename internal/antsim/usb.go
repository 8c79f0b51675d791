// Package antsim simulates ANT USB sticks and a speed/cadence sensor so the
// bridge can run without hardware. Importing it registers the "sim" runtime.
package antsim

import (
	"fmt"
	"io"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/usbstick"
)

// Stick is a simulated USB stick.
type Stick struct {
	ID ant.TransceiverID

	// Claimed marks the stick as held by another process.
	Claimed bool
}

// DefaultSticks returns two sticks on bus 1. The first is held by another
// process, as when a training application already owns one stick.
func DefaultSticks() []Stick {
	return []Stick{
		{
			ID:      ant.TransceiverID{Bus: 1, Address: 4, Vendor: usbstick.VendorDynastream, Product: usbstick.ProductANTUSB2},
			Claimed: true,
		},
		{
			ID: ant.TransceiverID{Bus: 1, Address: 5, Vendor: usbstick.VendorDynastream, Product: usbstick.ProductANTUSBm},
		},
	}
}

// Enumerator implements usbstick.Enumerator over simulated sticks.
type Enumerator struct {
	mu     sync.Mutex
	sticks []Stick
}

// NewEnumerator creates an enumerator. With no sticks, DefaultSticks is used.
func NewEnumerator(sticks ...Stick) *Enumerator {
	if len(sticks) == 0 {
		sticks = DefaultSticks()
	}
	return &Enumerator{sticks: append([]Stick(nil), sticks...)}
}

// ListCandidates returns every stick with the vendor ID.
func (e *Enumerator) ListCandidates(vendorID uint16) ([]ant.TransceiverID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []ant.TransceiverID
	for _, s := range e.sticks {
		if s.ID.Vendor == vendorID {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// TryClaim claims the stick until the returned handle is closed.
func (e *Enumerator) TryClaim(id ant.TransceiverID) (io.Closer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.sticks {
		if e.sticks[i].ID != id {
			continue
		}
		if e.sticks[i].Claimed {
			return nil, fmt.Errorf("%w: %s", usbstick.ErrAlreadyClaimed, id)
		}
		e.sticks[i].Claimed = true
		return &claim{e: e, id: id}, nil
	}
	return nil, fmt.Errorf("%w: %s", ant.ErrDeviceNotFound, id)
}

// Claimed reports whether the stick is currently held.
func (e *Enumerator) Claimed(id ant.TransceiverID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.sticks {
		if s.ID == id {
			return s.Claimed
		}
	}
	return false
}

func (e *Enumerator) release(id ant.TransceiverID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.sticks {
		if e.sticks[i].ID == id {
			e.sticks[i].Claimed = false
		}
	}
}

type claim struct {
	once sync.Once
	e    *Enumerator
	id   ant.TransceiverID
}

func (c *claim) Close() error {
	c.once.Do(func() { c.e.release(c.id) })
	return nil
}
