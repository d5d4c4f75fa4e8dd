package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back in-memory frames for testing.
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	fps     float64
	mu      sync.Mutex
	running bool
	openErr error
	readErr error
	failAt  int
}

// NewMockSource creates a MockSource over frames at the given nominal fps.
func NewMockSource(frames []*gocv.Mat, fps float64) *MockSource {
	return &MockSource{
		frames: frames,
		fps:    fps,
	}
}

// SetOpenError makes Open fail with err.
func (s *MockSource) SetOpenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// SetReadError makes the read of the n-th frame (1-based) fail with err.
func (s *MockSource) SetReadError(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt = n
	s.readErr = err
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if s.index >= len(s.frames) {
		return nil, ErrEndOfStream
	}
	if s.readErr != nil && s.index+1 == s.failAt {
		return nil, s.readErr
	}

	// Clone the frame so the original isn't modified
	mat := s.frames[s.index].Clone()
	s.index++

	var posMsec float64
	if s.fps > 0 {
		posMsec = float64(s.index-1) * 1000 / s.fps
	}

	return &Frame{Mat: mat, Index: s.index, PosMsec: posMsec}, nil
}

func (s *MockSource) FPS() float64 { return s.fps }

func (s *MockSource) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return image.Point{}
	}
	return image.Pt(s.frames[0].Cols(), s.frames[0].Rows())
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reset restarts playback from the beginning
func (s *MockSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}
