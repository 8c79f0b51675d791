package commands

import (
	"fmt"

	"github.com/vpower-bridge/vpower-go/pkg/log"
)

// RunFilter copies matching events into a new log file and returns how
// many were written.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", output, err)
	}

	n := 0
	err = forEach(reader, func(e log.Event) error {
		out.Log(e)
		n++
		return nil
	})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n - int(out.Dropped()), err
}
