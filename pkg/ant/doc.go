// Package ant defines the narrow capability interfaces the bridge consumes
// from an ANT protocol stack.
//
// The bridge never frames ANT messages itself. It relies on a Runtime that
// owns the transceiver, installs network keys and opens channels. Channels
// come in two roles:
//
//   - ReceiveChannel: a slave channel bound to a sensor device type and
//     device number (or the wildcard), delivering decoded pages to a single
//     listener on the runtime's dispatch goroutine.
//   - BroadcastChannel: a master channel impersonating a sensor. The channel
//     owns the radio message period; callers only set the value to send.
//
// # Drivers
//
// Runtime implementations register themselves by name, the same way
// database/sql drivers do:
//
//	import _ "github.com/vpower-bridge/vpower-go/internal/antsim"
//
//	rt, err := ant.Open("sim")
//
// # Device Types
//
// ANT+ device types used by the bridge:
//
//	0x0B  Bicycle power
//	0x79  Bicycle speed and cadence (combined)
//	0x7A  Bicycle cadence
//	0x7B  Bicycle speed
package ant
