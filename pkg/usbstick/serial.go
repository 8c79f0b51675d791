package usbstick

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/tarm/serial"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// DefaultSerialBaud is the ANTUSB1 line rate.
const DefaultSerialBaud = 115200

// serialProbeTimeout keeps the probe open from blocking on reads.
const serialProbeTimeout = 100 * time.Millisecond

// SerialEnumerator finds sticks exposed as serial devices. Every port
// matching one of the patterns is reported as an ANTUSB1.
type SerialEnumerator struct {
	patterns []string
	baud     int
	open     func(name string, baud int) (io.Closer, error)
}

// NewSerialEnumerator creates an enumerator for glob patterns such as
// "/dev/ttyUSB*". A zero baud selects DefaultSerialBaud.
func NewSerialEnumerator(patterns []string, baud int) *SerialEnumerator {
	if baud <= 0 {
		baud = DefaultSerialBaud
	}
	return &SerialEnumerator{patterns: slices.Clone(patterns), baud: baud, open: openSerial}
}

func openSerial(name string, baud int) (io.Closer, error) {
	return serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: serialProbeTimeout,
	})
}

// ListCandidates returns every matching port, sorted and deduplicated.
func (e *SerialEnumerator) ListCandidates(vendorID uint16) ([]ant.TransceiverID, error) {
	var ports []string
	for _, p := range e.patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("serial pattern %q: %w", p, err)
		}
		ports = append(ports, matches...)
	}
	slices.Sort(ports)
	ports = slices.Compact(ports)

	ids := make([]ant.TransceiverID, 0, len(ports))
	for _, port := range ports {
		ids = append(ids, ant.TransceiverID{Port: port, Vendor: vendorID, Product: ProductANTUSB1})
	}
	return ids, nil
}

// TryClaim takes an exclusive lock on the device node, opens the port and
// marks the tty exclusive. A port another program holds, by lock or by
// exclusive mode, fails with ErrAlreadyClaimed.
func (e *SerialEnumerator) TryClaim(id ant.TransceiverID) (io.Closer, error) {
	if id.Port == "" {
		return nil, fmt.Errorf("device %s has no serial port", id)
	}

	lock, err := lockPort(id.Port)
	if err != nil {
		return nil, claimError(id.Port, err)
	}
	p, err := e.open(id.Port, e.baud)
	if err != nil {
		lock.Close()
		return nil, claimError(id.Port, err)
	}
	if err := lock.exclusive(); err != nil {
		p.Close()
		lock.Close()
		return nil, claimError(id.Port, err)
	}
	return &serialClaim{port: p, lock: lock}, nil
}

func claimError(port string, err error) error {
	if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EWOULDBLOCK) {
		return fmt.Errorf("%w: %s: %v", ErrAlreadyClaimed, port, err)
	}
	return err
}

// serialClaim closes the port, then drops the lock.
type serialClaim struct {
	port io.Closer
	lock *portLock
}

func (c *serialClaim) Close() error {
	return errors.Join(c.port.Close(), c.lock.Close())
}

// MultiEnumerator merges several enumerators. Claims are routed to the
// enumerator that listed the identity.
type MultiEnumerator struct {
	enums []Enumerator
	owner map[ant.TransceiverID]Enumerator
}

// NewMultiEnumerator combines enums in order. Nil entries are skipped.
func NewMultiEnumerator(enums ...Enumerator) *MultiEnumerator {
	m := &MultiEnumerator{owner: make(map[ant.TransceiverID]Enumerator)}
	for _, e := range enums {
		if e != nil {
			m.enums = append(m.enums, e)
		}
	}
	return m
}

// ListCandidates concatenates every enumerator's candidates. It fails
// only if all enumerators fail.
func (m *MultiEnumerator) ListCandidates(vendorID uint16) ([]ant.TransceiverID, error) {
	var (
		ids  []ant.TransceiverID
		errs []error
	)
	clear(m.owner)
	for _, e := range m.enums {
		found, err := e.ListCandidates(vendorID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, id := range found {
			m.owner[id] = e
		}
		ids = append(ids, found...)
	}
	if len(errs) > 0 && len(errs) == len(m.enums) {
		return nil, errors.Join(errs...)
	}
	return ids, nil
}

// TryClaim claims id through the enumerator that listed it.
func (m *MultiEnumerator) TryClaim(id ant.TransceiverID) (io.Closer, error) {
	e, ok := m.owner[id]
	if !ok {
		return nil, fmt.Errorf("device %s was not listed", id)
	}
	return e.TryClaim(id)
}
