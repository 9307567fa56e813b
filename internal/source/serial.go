package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"go.bug.st/serial"
)

// LineDetector reads newline-delimited JSON frames, one per line, from a
// stream. Blank lines are frames without hands.
type LineDetector struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewLineDetector reads frames from r. If r is an io.Closer, Close closes it.
func NewLineDetector(r io.Reader) *LineDetector {
	d := &LineDetector{scanner: bufio.NewScanner(r)}
	d.scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// Detect blocks until the next line arrives. Closing the detector unblocks it.
// A broken stream is reported as ErrDetectorFailed.
func (d *LineDetector) Detect(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			// a scanner never recovers from a read error
			return Frame{}, fmt.Errorf("%w: read frame: %w", ErrDetectorFailed, err)
		}
		return Frame{}, io.EOF
	}
	line := bytes.TrimSpace(d.scanner.Bytes())
	if len(line) == 0 {
		return Frame{}, nil
	}
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Close releases the underlying stream.
func (d *LineDetector) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// OpenSerial opens a tracker attached to a serial port and reads frames from it.
func OpenSerial(name string, baud int, logger *slog.Logger) (*LineDetector, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	logger.Info("serial: port opened", "device", name, "baud", baud)
	return NewLineDetector(p), nil
}
