// Package sink writes pipeline output: annotated video and the crossing log.
package sink

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultCodec is the FourCC used for output video.
const DefaultCodec = "mp4v"

// ErrSinkClosed is returned when writing to a closed sink.
var ErrSinkClosed = errors.New("sink is closed")

// FrameSink consumes annotated frames in order.
type FrameSink interface {
	Write(frame *gocv.Mat) error
	Close() error
}

// VideoSink encodes frames to a video file.
type VideoSink struct {
	writer *gocv.VideoWriter
	size   image.Point
	mu     sync.Mutex
	closed bool
}

// NewVideoSink opens path for writing at the given rate and frame size.
func NewVideoSink(path string, fps float64, size image.Point) (*VideoSink, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", size)
	}

	writer, err := gocv.VideoWriterFile(path, DefaultCodec, fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("open video writer %s: codec %s unavailable", path, DefaultCodec)
	}

	return &VideoSink{writer: writer, size: size}, nil
}

// Write appends a frame. Frames must match the size given at creation.
func (s *VideoSink) Write(frame *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}
	if frame.Cols() != s.size.X || frame.Rows() != s.size.Y {
		return fmt.Errorf("frame size %dx%d does not match output %dx%d",
			frame.Cols(), frame.Rows(), s.size.X, s.size.Y)
	}

	return s.writer.Write(*frame)
}

// Close finalizes the file.
func (s *VideoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}

// Discard is a FrameSink that drops every frame.
type Discard struct{}

func (Discard) Write(*gocv.Mat) error { return nil }
func (Discard) Close() error          { return nil }
