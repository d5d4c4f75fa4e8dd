package counter

import (
	"image"

	"github.com/ayusman/beltcount/internal/detector"
)

// EdgeCounter counts a blob when it enters the band. A blob is treated as
// already counted if some in-band centroid from the previous frame lies
// within the match radius. No identity is kept beyond one frame.
type EdgeCounter struct {
	line   Line
	radius int
	count  int
	prev   []image.Point
}

// NewEdgeCounter creates an EdgeCounter starting at zero.
func NewEdgeCounter(line Line, matchRadius int) *EdgeCounter {
	return &EdgeCounter{line: line, radius: matchRadius}
}

// Update implements Counter.
func (c *EdgeCounter) Update(frame int, blobs []detector.Blob) []Crossing {
	var crossings []Crossing
	inBand := make([]image.Point, 0, len(blobs))

	for _, b := range blobs {
		if !c.line.Contains(b.Centroid.Y) {
			continue
		}
		inBand = append(inBand, b.Centroid)

		if c.seen(b.Centroid) {
			continue
		}
		c.count++
		crossings = append(crossings, Crossing{Frame: frame, Count: c.count, Blob: b})
	}

	c.prev = inBand
	return crossings
}

// seen reports whether p is within the match radius of a previous in-band centroid.
func (c *EdgeCounter) seen(p image.Point) bool {
	r2 := c.radius * c.radius
	for _, q := range c.prev {
		dx := p.X - q.X
		dy := p.Y - q.Y
		if dx*dx+dy*dy <= r2 {
			return true
		}
	}
	return false
}

// Count implements Counter.
func (c *EdgeCounter) Count() int {
	return c.count
}

// Line implements Counter.
func (c *EdgeCounter) Line() Line {
	return c.line
}
