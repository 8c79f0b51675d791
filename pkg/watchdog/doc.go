// Package watchdog keeps the emulated power meter honest.
//
// The bridge forwards power only when the speed sensor sends a new event.
// If the rider stops pedalling, the sensor keeps repeating its last event
// time and no new power is computed, so the held value would stay at the
// last non-zero reading forever. The watchdog detects that and zeroes it.
//
// # States
//
//   - LIVE: data is assumed fresh. Every tick re-sends the held power so
//     consuming applications see frequent updates.
//   - STOPPED: the sensor went silent and power was forced to zero. No
//     updates are sent until the held power becomes non-zero again.
//
// # Tick
//
// Ticks are driven by the caller (Run uses a 1 second ticker). Time is
// compared in whole seconds. In LIVE, once StaleAfter has passed since the
// last check, the latest event time is compared with the one seen at that
// check; if it did not move, power is set to zero and the watchdog enters
// STOPPED. In STOPPED, a non-zero held power returns it to LIVE on the next
// tick.
//
// An absent receive side skips the staleness check. An absent transmit side
// skips every write. Neither is an error.
package watchdog
