// Package display shows annotated frames in a desktop window.
package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// DefaultTitle is the window title used by the CLI.
const DefaultTitle = "beltcount"

// Surface presents frames to a viewer. Show reports whether the viewer
// asked to stop.
type Surface interface {
	Show(frame *gocv.Mat) (quit bool)
	Close() error
}

// Window is a Surface backed by an OpenCV HighGUI window. Pressing 'q'
// requests a stop.
type Window struct {
	window *gocv.Window
	mu     sync.Mutex
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show draws the frame and polls the keyboard for one millisecond.
func (w *Window) Show(frame *gocv.Mat) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil || frame == nil || frame.Empty() {
		return false
	}
	w.window.IMShow(*frame)
	return w.window.WaitKey(1)&0xFF == 'q'
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}

// Nop is a Surface that shows nothing and never asks to stop.
type Nop struct{}

func (Nop) Show(*gocv.Mat) bool { return false }
func (Nop) Close() error        { return nil }
