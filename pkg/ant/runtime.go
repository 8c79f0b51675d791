package ant

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Runtime is a running ANT protocol stack bound to one transceiver.
type Runtime interface {
	// Start binds the runtime to the transceiver and resets it.
	Start(ctx context.Context, id TransceiverID) error

	// Stop releases the transceiver. Channels still open are dropped.
	Stop() error

	// SetNetworkKey installs key under the given network number.
	SetNetworkKey(slot uint8, key NetworkKey) error

	// OpenReceive assigns and opens a slave channel for the device type.
	// deviceID may be WildcardDeviceID.
	OpenReceive(ctx context.Context, deviceType DeviceType, deviceID uint16) (ReceiveChannel, error)

	// OpenBroadcast assigns and opens a master channel announcing the
	// given device type and number.
	OpenBroadcast(ctx context.Context, deviceType DeviceType, deviceID uint16) (BroadcastChannel, error)
}

// ReceiveChannel is an open slave channel.
type ReceiveChannel interface {
	// Subscribe sets the listener for decoded pages, replacing any previous one.
	Subscribe(listener ReceiveListener)

	// Close closes the channel on the radio.
	Close() error

	// Unassign releases the channel number.
	Unassign() error
}

// BroadcastChannel is an open master channel.
type BroadcastChannel interface {
	// Update sets the power value sent on the next broadcast periods.
	Update(power uint16) error

	// Close closes the channel on the radio.
	Close() error

	// Unassign releases the channel number.
	Unassign() error
}

// Driver creates runtimes.
type Driver func() Runtime

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a runtime driver available by name.
// It panics if the name is registered twice or the driver is nil.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if driver == nil {
		panic("ant: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("ant: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

// Open creates a runtime from the named driver.
func Open(name string) (Runtime, error) {
	driversMu.RLock()
	driver, ok := drivers[name]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("ant: unknown driver %q (registered: %v)", name, Drivers())
	}
	return driver(), nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
