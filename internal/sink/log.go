package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// CrossingLog is an append-only text log with one line per crossing:
//
//	Frame <index>: Count=<count>
type CrossingLog struct {
	w      *bufio.Writer
	closer io.Closer
	mu     sync.Mutex
	closed bool
}

// NewCrossingLog writes records to w. Close does not close w.
func NewCrossingLog(w io.Writer) *CrossingLog {
	return &CrossingLog{w: bufio.NewWriter(w)}
}

// CreateCrossingLog creates or truncates the file at path.
func CreateCrossingLog(path string) (*CrossingLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create crossing log: %w", err)
	}
	l := NewCrossingLog(f)
	l.closer = f
	return l, nil
}

// Record writes one line and flushes it so the file is readable while the
// run is in progress.
func (l *CrossingLog) Record(frame, count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrSinkClosed
	}
	if _, err := fmt.Fprintf(l.w, "Frame %d: Count=%d\n", frame, count); err != nil {
		return fmt.Errorf("write crossing log: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("flush crossing log: %w", err)
	}
	return nil
}

// Close flushes pending output and closes the underlying file, if any.
func (l *CrossingLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	err := l.w.Flush()
	if l.closer != nil {
		if cerr := l.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
