// Package sensor wraps the two ANT channels the bridge uses.
//
// SpeedCadence receives pages from a real speed/cadence sensor. PowerMeter
// broadcasts as an emulated power meter. Both wrappers always exist; opening
// the underlying channel may fail, in which case the wrapper stays
// unavailable and every method becomes a no-op (or reports ok == false).
// Callers therefore never hold a nil channel.
//
// Both wrappers are safe for concurrent use: the receive dispatch goroutine
// and the watchdog goroutine touch the same state.
package sensor
