package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns one preset blob list per Detect call, in order.
type MockDetector struct {
	mu       sync.Mutex
	sequence [][]Blob
	calls    int
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetBlobs makes every Detect call return the same blobs.
func (m *MockDetector) SetBlobs(blobs []Blob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = [][]Blob{blobs}
	m.calls = 0
}

// SetSequence sets the blobs returned by successive Detect calls.
// Once the sequence is exhausted, the last entry is repeated.
func (m *MockDetector) SetSequence(sequence [][]Blob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = sequence
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next preset blob list or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	i := m.calls
	m.calls++

	if len(m.sequence) == 0 {
		return []Blob{}, nil
	}
	if i >= len(m.sequence) {
		i = len(m.sequence) - 1
	}
	return m.sequence[i], nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// BlobAt returns a square blob of the given side centered at (cx, cy).
// Area follows the contour convention, (side-1)^2.
func BlobAt(cx, cy, side int) Blob {
	half := side / 2
	box := image.Rect(cx-half, cy-half, cx-half+side, cy-half+side)
	return NewBlob(float64((side-1)*(side-1)), box)
}
