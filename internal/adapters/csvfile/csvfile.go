// Package csvfile reads and writes heartbeat history as device_id,timestamp
// rows. It backs the serve --backfill flag and the history generator's file
// output.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"uptimeboard/internal/adapters/payload"
	"uptimeboard/internal/core/domain"
)

// Header is written as the first row and skipped when reading.
var Header = []string{"device_id", "timestamp"}

// Load streams heartbeats from the file at path into fn and returns how many
// rows were delivered. It stops at the first error from fn.
func Load(path string, fn func(domain.Heartbeat) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return Read(f, fn)
}

// Read is Load over an arbitrary reader.
func Read(r io.Reader, fn func(domain.Heartbeat) error) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	n := 0
	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if strings.EqualFold(row[0], Header[0]) {
				continue
			}
		}
		if len(row) < 2 {
			return n, fmt.Errorf("csv line %d: want device_id,timestamp, got %d fields", line, len(row))
		}

		ts, err := payload.ParseTimestampString(row[1])
		if err != nil {
			return n, fmt.Errorf("csv line %d: %w", line, err)
		}
		hb, err := domain.NewHeartbeat(strings.TrimSpace(row[0]), ts)
		if err != nil {
			return n, fmt.Errorf("csv line %d: %w", line, err)
		}
		if err := fn(hb); err != nil {
			return n, err
		}
		n++
	}
}

// Writer appends heartbeats as CSV rows.
type Writer struct {
	w      *csv.Writer
	closer io.Closer
}

// Create truncates path and writes the header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes the header to out.
func NewWriter(out io.Writer) (*Writer, error) {
	w := &Writer{w: csv.NewWriter(out)}
	if err := w.w.Write(Header); err != nil {
		return nil, err
	}
	return w, nil
}

// Publish writes hb as one row.
func (w *Writer) Publish(_ context.Context, hb domain.Heartbeat) error {
	return w.w.Write([]string{hb.DeviceID, hb.Timestamp.UTC().Format(time.RFC3339Nano)})
}

// Close flushes and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.w.Flush()
	err := w.w.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
