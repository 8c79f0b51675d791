// Package bridge wires a speed/cadence sensor to an emulated power meter.
//
// A Bridge owns the whole lifecycle:
//
//	Start: acquire transceiver -> start node -> open receive -> open transmit -> wire chain
//	Run:   drive the watchdog until the context is done
//	Stop:  close receive -> close transmit -> stop node
//
// Acquiring the transceiver and starting the node are fatal when they fail.
// The two channel opens are best effort: a channel that fails to open is
// left absent, the rest of the bridge keeps working around it, and Stop
// only releases what was actually opened.
//
// Every step is reported to the operational slog logger and, as a
// structured event, to the bridge event log (see package log).
package bridge
