package detector

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// HSV is a color in OpenCV's 8-bit HSV scale: H in [0,180], S and V in [0,255].
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// Scalar converts the color to a gocv.Scalar for range operations.
func (c HSV) Scalar() gocv.Scalar {
	return gocv.NewScalar(c.H, c.S, c.V, 0)
}

// HSVRange is an inclusive box in HSV space.
type HSVRange struct {
	Lower HSV `json:"lower"`
	Upper HSV `json:"upper"`
}

// Contains reports whether the color lies inside the range, bounds included.
func (r HSVRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// ContainsColor converts an RGB color to OpenCV HSV and tests it against the range.
func (r HSVRange) ContainsColor(c color.Color) bool {
	return r.Contains(ToHSV(c))
}

// Swatch returns an RGB color at the center of the range, for display.
func (r HSVRange) Swatch() color.RGBA {
	h := (r.Lower.H + r.Upper.H) / 2 * 2
	s := (r.Lower.S + r.Upper.S) / 2 / 255
	v := (r.Lower.V + r.Upper.V) / 2 / 255

	red, green, blue := colorful.Hsv(h, s, v).Clamped().RGB255()
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}

// ToHSV converts a color to OpenCV's 8-bit HSV scale, rounding like cvtColor does.
func ToHSV(c color.Color) HSV {
	cf, _ := colorful.MakeColor(c)
	h, s, v := cf.Hsv()
	return HSV{
		H: math.Round(h / 2),
		S: math.Round(s * 255),
		V: math.Round(v * 255),
	}
}

// Segmenter classifies frame pixels as target color or background.
type Segmenter struct {
	ranges [2]HSVRange
}

// NewSegmenter creates a Segmenter matching the union of the two ranges.
func NewSegmenter(ranges [2]HSVRange) *Segmenter {
	return &Segmenter{ranges: ranges}
}

// Ranges returns the configured HSV bands.
func (s *Segmenter) Ranges() [2]HSVRange {
	return s.ranges
}

// Matches reports whether an HSV color falls inside either band.
func (s *Segmenter) Matches(c HSV) bool {
	return s.ranges[0].Contains(c) || s.ranges[1].Contains(c)
}

// Segment converts a BGR frame into a single-channel mask where target
// pixels are 255 and everything else is 0.
// The caller is responsible for closing the returned Mat.
// An empty frame produces an empty mask.
func (s *Segmenter) Segment(frame gocv.Mat) gocv.Mat {
	mask := gocv.NewMat()
	if frame.Empty() {
		return mask
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	low := gocv.NewMat()
	defer low.Close()
	gocv.InRangeWithScalar(hsv, s.ranges[0].Lower.Scalar(), s.ranges[0].Upper.Scalar(), &low)

	high := gocv.NewMat()
	defer high.Close()
	gocv.InRangeWithScalar(hsv, s.ranges[1].Lower.Scalar(), s.ranges[1].Upper.Scalar(), &high)

	gocv.BitwiseOr(low, high, &mask)
	return mask
}
