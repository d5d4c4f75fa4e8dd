// Package capture reads video frames using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("source is not open")

	// ErrEndOfStream is returned when the source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Frame is a decoded video frame with its position in the stream.
type Frame struct {
	// Mat is the BGR image. The caller owns it and must call Close.
	Mat gocv.Mat

	// Index is the 1-based position of the frame in the stream.
	Index int

	// PosMsec is the media time of the frame in milliseconds.
	PosMsec float64
}

// Close releases the frame buffer.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// MediaTime returns the frame position in seconds.
func (f *Frame) MediaTime() float64 {
	return f.PosMsec / 1000
}

// Source defines the interface for frame sources.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*Frame, error)
	FPS() float64
	Size() image.Point
	IsOpen() bool
}

// fileSource decodes frames from a video file.
type fileSource struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     float64
	size    image.Point
}

// NewFileSource creates a Source that reads the video at path.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

// Open opens the video file and reads its nominal fps and frame size.
func (s *fileSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.VideoCaptureFile(s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open %s: cannot decode video", s.path)
	}

	s.fps = capture.Get(gocv.VideoCaptureFPS)
	s.size = image.Pt(
		int(capture.Get(gocv.VideoCaptureFrameWidth)),
		int(capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	s.capture = capture
	s.running = true

	return nil
}

// Close closes the video file and releases resources.
func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame decodes the next frame. A failed read or an empty frame is
// reported as ErrEndOfStream.
func (s *fileSource) ReadFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEndOfStream
	}

	return &Frame{
		Mat:     mat,
		Index:   int(s.capture.Get(gocv.VideoCapturePosFrames)),
		PosMsec: s.capture.Get(gocv.VideoCapturePosMsec),
	}, nil
}

// FPS returns the nominal frame rate reported by the container, or 0 if unknown.
func (s *fileSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fps
}

// Size returns the frame width and height.
func (s *fileSource) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.size
}

// IsOpen returns true if the source is open.
func (s *fileSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
