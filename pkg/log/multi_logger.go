package log

// MultiLogger fans each event out to several loggers in order. The daemon
// uses it to write the .vlog file and echo events to slog at once.
type MultiLogger []Logger

// NewMultiLogger drops nil entries.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	out := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l == nil {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Log forwards event to every logger.
func (m MultiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}

var _ Logger = MultiLogger(nil)
