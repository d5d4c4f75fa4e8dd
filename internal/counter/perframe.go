package counter

import "github.com/ayusman/beltcount/internal/detector"

// PerFrameCounter adds one for every blob whose centroid is inside the band,
// on every frame. An object that stays in the band for several frames is
// counted once per frame.
type PerFrameCounter struct {
	line  Line
	count int
}

// NewPerFrameCounter creates a PerFrameCounter starting at zero.
func NewPerFrameCounter(line Line) *PerFrameCounter {
	return &PerFrameCounter{line: line}
}

// Update implements Counter.
func (c *PerFrameCounter) Update(frame int, blobs []detector.Blob) []Crossing {
	var crossings []Crossing
	for _, b := range blobs {
		if !c.line.Contains(b.Centroid.Y) {
			continue
		}
		c.count++
		crossings = append(crossings, Crossing{Frame: frame, Count: c.count, Blob: b})
	}
	return crossings
}

// Count implements Counter.
func (c *PerFrameCounter) Count() int {
	return c.count
}

// Line implements Counter.
func (c *PerFrameCounter) Line() Line {
	return c.line
}
