// Package annotate draws detections, the counting line and a metrics panel
// onto a copy of a frame.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/beltcount/internal/counter"
	"github.com/ayusman/beltcount/internal/detector"
	"github.com/ayusman/beltcount/internal/metrics"
)

// Panel geometry and blend weights.
var (
	PanelRect = image.Rect(10, 10, 400, 200)
)

const (
	PanelAlpha = 0.4
	FrameAlpha = 0.6
)

var (
	boxColor    = color.RGBA{G: 255, A: 255}
	markColor   = color.RGBA{B: 255, A: 255}
	panelColor  = color.RGBA{A: 255}
	countColor  = color.RGBA{R: 255, G: 255, A: 255}
	detectColor = color.RGBA{G: 255, A: 255}
	occupColor  = color.RGBA{G: 150, B: 255, A: 255}
	fpsColor    = color.RGBA{R: 255, G: 200, B: 200, A: 255}
	timeColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	precColor   = color.RGBA{R: 255, G: 200, A: 255}
)

// Annotator renders overlays for one run.
type Annotator struct {
	line   counter.Line
	swatch color.RGBA
}

// New creates an Annotator for the given detection line. swatch is shown in
// the panel as the target color.
func New(line counter.Line, swatch color.RGBA) *Annotator {
	return &Annotator{line: line, swatch: swatch}
}

// Annotate returns a new Mat with overlays drawn. The input frame is not
// modified. The caller must close the result.
func (a *Annotator) Annotate(frame gocv.Mat, blobs []detector.Blob, count int, m metrics.FrameMetrics) gocv.Mat {
	out := frame.Clone()
	if out.Empty() {
		return out
	}

	for _, b := range blobs {
		gocv.Rectangle(&out, b.Box, boxColor, 2)
		gocv.Circle(&out, b.Centroid, 4, markColor, -1)
	}

	gocv.Line(&out, image.Pt(0, a.line.Y), image.Pt(out.Cols(), a.line.Y), markColor, 2)

	a.drawPanel(&out)

	put := func(text string, x, y int, scale float64, c color.RGBA) {
		gocv.PutText(&out, text, image.Pt(x, y), gocv.FontHersheySimplex, scale, c, 2)
	}
	put(fmt.Sprintf("Total count: %d", count), 20, 40, 1, countColor)
	put(fmt.Sprintf("Detections (frame): %d", m.Detections), 20, 70, 0.7, detectColor)
	put("Occupancy: "+FormatOccupancy(m), 20, 100, 0.7, occupColor)
	put(fmt.Sprintf("FPS: %.1f", m.FPS), 20, 130, 0.7, fpsColor)
	put(fmt.Sprintf("Time: %.1fs", m.MediaTime), 200, 130, 0.7, timeColor)
	put(fmt.Sprintf("Precision est.: %.1f%%", m.Precision), 20, 160, 0.7, precColor)

	swatch := image.Rect(PanelRect.Max.X-40, PanelRect.Min.Y+10, PanelRect.Max.X-10, PanelRect.Min.Y+40)
	gocv.Rectangle(&out, swatch, a.swatch, -1)
	gocv.Rectangle(&out, swatch, timeColor, 1)

	return out
}

// drawPanel darkens PanelRect by blending a black fill over the frame.
func (a *Annotator) drawPanel(out *gocv.Mat) {
	overlay := out.Clone()
	defer overlay.Close()

	gocv.Rectangle(&overlay, PanelRect, panelColor, -1)
	gocv.AddWeighted(overlay, PanelAlpha, *out, FrameAlpha, 0, out)
}

// FormatOccupancy renders the occupancy for display, or "n/a" when undefined.
func FormatOccupancy(m metrics.FrameMetrics) string {
	if !m.OccupancyDefined {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", m.Occupancy)
}
