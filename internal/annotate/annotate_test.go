package annotate

import (
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/beltcount/internal/counter"
	"github.com/ayusman/beltcount/internal/detector"
	"github.com/ayusman/beltcount/internal/metrics"
	"github.com/ayusman/beltcount/internal/testutil"
)

func TestFormatOccupancy(t *testing.T) {
	tests := []struct {
		name string
		m    metrics.FrameMetrics
		want string
	}{
		{name: "defined", m: metrics.FrameMetrics{Occupancy: 0.390625, OccupancyDefined: true}, want: "0.4%"},
		{name: "over 100", m: metrics.FrameMetrics{Occupancy: 156.25, OccupancyDefined: true}, want: "156.2%"},
		{name: "undefined", m: metrics.FrameMetrics{Occupancy: 0}, want: "n/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOccupancy(tt.m); got != tt.want {
				t.Errorf("FormatOccupancy() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnnotate_DoesNotModifyInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := testutil.BeltFrame(testutil.Width, testutil.Height, testutil.RedDisc(320, 240, 20))
	defer frame.Close()
	original := frame.Clone()
	defer original.Close()

	a := New(counter.Line{Y: 240, Tolerance: 5}, detector.DefaultConfig().Ranges[0].Swatch())
	blobs := []detector.Blob{detector.BlobAt(320, 240, 40)}

	out := a.Annotate(frame, blobs, 3, metrics.FrameMetrics{Detections: 1, OccupancyDefined: true})
	defer out.Close()

	if out.Rows() != frame.Rows() || out.Cols() != frame.Cols() {
		t.Fatalf("output size = %dx%d, want %dx%d", out.Cols(), out.Rows(), frame.Cols(), frame.Rows())
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(frame, original, &diff)
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	if n := gocv.CountNonZero(gray); n != 0 {
		t.Errorf("input frame modified in %d pixels", n)
	}
}

func TestAnnotate_DrawsOverlays(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := testutil.BeltFrame(testutil.Width, testutil.Height)
	defer frame.Close()

	a := New(counter.Line{Y: 300, Tolerance: 5}, detector.DefaultConfig().Ranges[0].Swatch())
	out := a.Annotate(frame, nil, 0, metrics.FrameMetrics{})
	defer out.Close()

	// Detection line is blue in BGR.
	if b, g, r := out.GetUCharAt(300, 600*3), out.GetUCharAt(300, 600*3+1), out.GetUCharAt(300, 600*3+2); b != 255 || g != 0 || r != 0 {
		t.Errorf("line pixel = (%d,%d,%d), want blue", b, g, r)
	}

	// Panel darkens the belt color: 0.6 * 90 = 54.
	if v := out.GetUCharAt(195, 15*3); v < 50 || v > 58 {
		t.Errorf("panel pixel = %d, want about 54", v)
	}

	// Outside the panel the belt is untouched.
	if v := out.GetUCharAt(400, 500*3); v != 90 {
		t.Errorf("background pixel = %d, want 90", v)
	}
}

func TestAnnotate_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	a := New(counter.Line{Y: 10}, detector.DefaultConfig().Ranges[0].Swatch())
	out := a.Annotate(frame, nil, 0, metrics.FrameMetrics{})
	defer out.Close()

	if !out.Empty() {
		t.Error("annotating an empty frame should return an empty Mat")
	}
}
