// Package detector finds target-colored objects in video frames using HSV
// segmentation and contour extraction.
package detector

import "gocv.io/x/gocv"

// Detector defines the interface for object detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the blobs that survive the
	// minimum-area filter. Returns an empty slice if nothing is detected.
	Detect(frame *gocv.Mat) ([]Blob, error)

	// Close releases any resources held by the detector.
	Close() error
}

// DefaultMinArea is the contour area a region must exceed to count as an object.
const DefaultMinArea = 200

// Config holds configuration options for color detection.
type Config struct {
	// Ranges are the two HSV bands whose union is the target color.
	// Red sits on the hue wrap-around, so it needs a low and a high band.
	Ranges [2]HSVRange

	// MinArea is the area threshold; regions at or below it are discarded.
	MinArea float64
}

// DefaultConfig returns a Config tuned for red objects.
func DefaultConfig() Config {
	return Config{
		Ranges: [2]HSVRange{
			{Lower: HSV{H: 0, S: 120, V: 70}, Upper: HSV{H: 10, S: 255, V: 255}},
			{Lower: HSV{H: 170, S: 120, V: 70}, Upper: HSV{H: 180, S: 255, V: 255}},
		},
		MinArea: DefaultMinArea,
	}
}

// ColorDetector implements Detector by segmenting a frame into a mask and
// extracting the external contours of that mask.
type ColorDetector struct {
	segmenter *Segmenter
	extractor *Extractor
}

// NewColorDetector creates a ColorDetector from the given configuration.
func NewColorDetector(config Config) *ColorDetector {
	return &ColorDetector{
		segmenter: NewSegmenter(config.Ranges),
		extractor: NewExtractor(config.MinArea),
	}
}

// Detect segments the frame and returns the filtered blobs.
// Nil or empty frames yield no blobs and no error.
func (d *ColorDetector) Detect(frame *gocv.Mat) ([]Blob, error) {
	if frame == nil || frame.Empty() {
		return []Blob{}, nil
	}

	mask := d.segmenter.Segment(*frame)
	defer mask.Close()

	return d.extractor.Extract(mask), nil
}

// Segmenter returns the segmenter used by the detector.
func (d *ColorDetector) Segmenter() *Segmenter {
	return d.segmenter
}

// Close is a no-op; the detector holds no native resources between frames.
func (d *ColorDetector) Close() error {
	return nil
}
