// Package counter keeps the running total of objects crossing a horizontal
// detection line.
package counter

import (
	"fmt"

	"github.com/ayusman/beltcount/internal/detector"
)

// Policy selects how in-band blobs are turned into counts.
type Policy string

const (
	// PolicyPerFrame counts every in-band blob on every frame.
	PolicyPerFrame Policy = "per_frame"
	// PolicyEdge counts a blob only on the frame it enters the band.
	PolicyEdge Policy = "edge"
)

const (
	// DefaultTolerance is the half-height of the detection band in pixels.
	DefaultTolerance = 5
	// DefaultMatchRadius is how far an in-band centroid may move between
	// frames and still be treated as already counted under PolicyEdge.
	DefaultMatchRadius = 40
)

// ParsePolicy converts a config string to a Policy. Empty means PolicyPerFrame.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyPerFrame:
		return PolicyPerFrame, nil
	case PolicyEdge:
		return PolicyEdge, nil
	default:
		return "", fmt.Errorf("unknown counting policy %q", s)
	}
}

// Line is a horizontal detection line with a symmetric tolerance band.
type Line struct {
	Y         int `json:"y"`
	Tolerance int `json:"tolerance"`
}

// Contains reports whether y lies inside the band, bounds included.
func (l Line) Contains(y int) bool {
	return y >= l.Y-l.Tolerance && y <= l.Y+l.Tolerance
}

// Crossing is a single increment of the running count.
type Crossing struct {
	Frame int           `json:"frame"`
	Count int           `json:"count"`
	Blob  detector.Blob `json:"blob"`
}

// Counter consumes the blobs of each frame, in frame order, and maintains
// a count that never decreases.
type Counter interface {
	// Update applies one frame's blobs and returns the increments it caused,
	// in blob order. Each Crossing carries the count after its increment.
	Update(frame int, blobs []detector.Blob) []Crossing

	// Count returns the running total.
	Count() int

	// Line returns the detection line.
	Line() Line
}

// New creates a Counter for the given policy.
func New(policy Policy, line Line, matchRadius int) (Counter, error) {
	if line.Tolerance < 0 {
		return nil, fmt.Errorf("negative tolerance %d", line.Tolerance)
	}

	switch policy {
	case "", PolicyPerFrame:
		return NewPerFrameCounter(line), nil
	case PolicyEdge:
		if matchRadius < 0 {
			return nil, fmt.Errorf("negative match radius %d", matchRadius)
		}
		return NewEdgeCounter(line, matchRadius), nil
	default:
		return nil, fmt.Errorf("unknown counting policy %q", policy)
	}
}
