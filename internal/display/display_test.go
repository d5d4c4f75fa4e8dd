package display

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNop(t *testing.T) {
	var s Surface = Nop{}

	if s.Show(nil) {
		t.Error("Nop.Show() should never request a stop")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Nop.Close() error = %v", err)
	}
}

func TestWindow_ClosedIsInert(t *testing.T) {
	w := &Window{}

	frame := gocv.NewMat()
	defer frame.Close()

	if w.Show(&frame) {
		t.Error("Show() on a closed window should not request a stop")
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
