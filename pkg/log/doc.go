// Package log provides structured event capture for the vpower bridge.
//
// This package defines the Logger interface and Event types for recording
// what the bridge did: lifecycle steps, watchdog state changes, data flowing
// through the notification chain and errors. It is separate from operational
// logging (slog) - the event log is a machine-readable trace for debugging
// sensor dropouts after a ride.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.Events = log.NewSlogAdapter(slog.Default())
//
//	// For rides: write to a binary file
//	cfg.Events, _ = log.NewFileLogger("/var/log/vpower/ride.vlog")
//
//	// Both: use MultiLogger
//	cfg.Events = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Each Event carries exactly one payload:
//   - LifecycleEvent: a startup or shutdown step and its outcome
//   - StateChangeEvent: a watchdog or component state transition
//   - DataEvent: a receive page or a transmitted power value
//   - ErrorEventData: an error that was handled without propagating
//
// # File Format
//
// Log files use CBOR encoding with the .vlog extension. The vpower-log CLI
// tool provides viewing, statistics and export.
package log
