package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Blob is a connected region of target-colored pixels.
type Blob struct {
	// Area is the contour area in square pixels.
	Area float64 `json:"area"`

	// Box is the axis-aligned bounding box.
	Box image.Rectangle `json:"box"`

	// Centroid is the center of the bounding box, not the area-weighted center.
	Centroid image.Point `json:"centroid"`
}

// NewBlob builds a Blob from its area and bounding box.
func NewBlob(area float64, box image.Rectangle) Blob {
	return Blob{
		Area: area,
		Box:  box,
		Centroid: image.Point{
			X: box.Min.X + box.Dx()/2,
			Y: box.Min.Y + box.Dy()/2,
		},
	}
}

// Areas returns the area of every blob in order.
func Areas(blobs []Blob) []float64 {
	areas := make([]float64, len(blobs))
	for i, b := range blobs {
		areas[i] = b.Area
	}
	return areas
}

// TotalArea sums the areas of the given blobs.
func TotalArea(blobs []Blob) float64 {
	total := 0.0
	for _, b := range blobs {
		total += b.Area
	}
	return total
}

// Extractor turns a binary mask into a list of blobs.
//
// Regions are found with OpenCV border following on external contours only,
// which treats pixels as 8-connected: two regions that touch corner to corner
// are reported as a single blob. Holes inside a region are ignored.
type Extractor struct {
	minArea float64
}

// NewExtractor creates an Extractor that keeps regions with area > minArea.
func NewExtractor(minArea float64) *Extractor {
	return &Extractor{minArea: minArea}
}

// MinArea returns the area threshold.
func (e *Extractor) MinArea() float64 {
	return e.minArea
}

// Extract returns the blobs in contour order. The order is not spatial.
func (e *Extractor) Extract(mask gocv.Mat) []Blob {
	blobs := make([]Blob, 0)
	if mask.Empty() {
		return blobs
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		area := gocv.ContourArea(contour)
		if area <= e.minArea {
			continue
		}

		blobs = append(blobs, NewBlob(area, gocv.BoundingRect(contour)))
	}

	return blobs
}
