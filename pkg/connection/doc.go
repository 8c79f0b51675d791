// Package connection keeps outbound telemetry links connected.
//
// A Manager wraps a ConnectFunc (dial a broker, ping a cache) and owns the
// link state:
//
//	DISCONNECTED -> CONNECTING -> CONNECTED
//	                    |              |
//	                    v              v (NotifyConnectionLost)
//	              RECONNECTING <-------+
//
// Reconnection runs on a background goroutine started with Start. Delays
// between attempts come from a backoff.BackOff; the default is exponential
// from 500ms to 30s with 25% randomization and no overall deadline. The
// backoff resets after every successful connect.
//
// Telemetry is optional for the bridge, so nothing here ever blocks the
// caller for longer than one attempt.
package connection
