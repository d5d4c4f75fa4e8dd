// Package testutil builds synthetic conveyor frames for tests.
package testutil

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame dimensions used across tests.
const (
	Width  = 640
	Height = 480
)

// Colors used in synthetic frames, as RGBA (gocv converts to BGR when drawing).
var (
	Belt    = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	Red     = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	DeepRed = color.RGBA{R: 230, G: 10, B: 60, A: 255}
	Green   = color.RGBA{R: 30, G: 200, B: 40, A: 255}
)

// Disc is a filled circle to paint on a frame.
type Disc struct {
	Center image.Point
	Radius int
	Color  color.RGBA
}

// RedDisc returns a red disc of radius r at (x, y).
func RedDisc(x, y, r int) Disc {
	return Disc{Center: image.Pt(x, y), Radius: r, Color: Red}
}

// BeltFrame returns a width x height BGR frame filled with the belt color
// and the given discs painted on top. The caller must close the Mat.
func BeltFrame(width, height int, discs ...Disc) gocv.Mat {
	frame := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(float64(Belt.B), float64(Belt.G), float64(Belt.R), 0))

	for _, d := range discs {
		gocv.Circle(&frame, d.Center, d.Radius, d.Color, -1)
	}

	return frame
}

// Sequence builds one frame per disc set. The caller must close every Mat.
func Sequence(width, height int, discs ...[]Disc) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, len(discs))
	for _, d := range discs {
		frame := BeltFrame(width, height, d...)
		frames = append(frames, &frame)
	}
	return frames
}

// CloseAll closes every Mat in frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// SetPixel writes an RGB color into a BGR frame at (x, y).
func SetPixel(frame *gocv.Mat, x, y int, c color.RGBA) {
	frame.SetUCharAt(y, x*3, c.B)
	frame.SetUCharAt(y, x*3+1, c.G)
	frame.SetUCharAt(y, x*3+2, c.R)
}
