package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/vpower-bridge/vpower-go/pkg/log"
)

var csvColumns = []string{
	"timestamp", "session_id", "component", "category", "type",
	"step", "outcome", "state", "direction", "event_time", "power", "message",
}

// RunExport writes matching events to output (stdout if empty) as jsonl
// or csv.
func RunExport(path, format, output string, filter log.Filter) error {
	var write func(io.Writer, *log.Reader) error
	switch format {
	case "jsonl":
		write = writeJSONL
	case "csv":
		write = writeCSV
	default:
		return fmt.Errorf("unknown format %q (want jsonl or csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	if output == "" {
		return write(os.Stdout, reader)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := write(f, reader); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// forEach calls fn for every event left in reader.
func forEach(reader *log.Reader, fn func(log.Event) error) error {
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

func writeJSONL(w io.Writer, reader *log.Reader) error {
	enc := json.NewEncoder(w)
	return forEach(reader, func(e log.Event) error {
		return enc.Encode(e)
	})
}

func writeCSV(w io.Writer, reader *log.Reader) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	err := forEach(reader, func(e log.Event) error {
		return cw.Write(csvRow(e))
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

// csvRow flattens an event into csvColumns order. Columns that do not
// apply to the payload stay empty.
func csvRow(e log.Event) []string {
	row := make([]string, len(csvColumns))
	row[0] = e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	row[1] = e.SessionID
	row[2] = e.Component.String()
	row[3] = e.Category.String()
	row[4] = eventType(e)

	switch {
	case e.Lifecycle != nil:
		row[5] = e.Lifecycle.Step
		row[6] = e.Lifecycle.Outcome.String()
		row[11] = e.Lifecycle.Detail
	case e.StateChange != nil:
		row[7] = e.StateChange.NewState
		row[11] = e.StateChange.Reason
	case e.Data != nil:
		row[8] = e.Data.Direction.String()
		if e.Data.EventTime != nil {
			row[9] = strconv.Itoa(int(*e.Data.EventTime))
		}
		if e.Data.Power != nil {
			row[10] = strconv.Itoa(int(*e.Data.Power))
		}
	case e.Error != nil:
		row[5] = e.Error.Context
		row[11] = e.Error.Message
	}
	return row
}
