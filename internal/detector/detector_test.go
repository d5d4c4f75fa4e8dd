package detector

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

// paint writes an RGB color into a BGR frame at column x of row 0.
func paint(frame *gocv.Mat, x int, c color.RGBA) {
	frame.SetUCharAt(0, x*3, c.B)
	frame.SetUCharAt(0, x*3+1, c.G)
	frame.SetUCharAt(0, x*3+2, c.R)
}

func TestHSVRange_Contains(t *testing.T) {
	r := HSVRange{Lower: HSV{H: 0, S: 120, V: 70}, Upper: HSV{H: 10, S: 255, V: 255}}

	tests := []struct {
		name string
		c    HSV
		want bool
	}{
		{name: "inside", c: HSV{H: 5, S: 200, V: 200}, want: true},
		{name: "lower bound inclusive", c: HSV{H: 0, S: 120, V: 70}, want: true},
		{name: "upper bound inclusive", c: HSV{H: 10, S: 255, V: 255}, want: true},
		{name: "hue above", c: HSV{H: 11, S: 200, V: 200}, want: false},
		{name: "saturation below", c: HSV{H: 5, S: 119, V: 200}, want: false},
		{name: "value below", c: HSV{H: 5, S: 200, V: 69}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.c); got != tt.want {
				t.Errorf("Contains(%+v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestToHSV(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		want HSV
	}{
		{name: "pure red", c: color.RGBA{R: 255, A: 255}, want: HSV{H: 0, S: 255, V: 255}},
		{name: "pure green", c: color.RGBA{G: 255, A: 255}, want: HSV{H: 60, S: 255, V: 255}},
		{name: "pure blue", c: color.RGBA{B: 255, A: 255}, want: HSV{H: 120, S: 255, V: 255}},
		{name: "gray", c: color.RGBA{R: 128, G: 128, B: 128, A: 255}, want: HSV{H: 0, S: 0, V: 128}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToHSV(tt.c); got != tt.want {
				t.Errorf("ToHSV(%v) = %+v, want %+v", tt.c, got, tt.want)
			}
		})
	}
}

func TestSegmenter_Matches_Union(t *testing.T) {
	s := NewSegmenter(DefaultConfig().Ranges)

	tests := []struct {
		name string
		c    color.RGBA
		want bool
	}{
		{name: "low band red", c: color.RGBA{R: 220, G: 20, B: 20, A: 255}, want: true},
		{name: "high band red", c: color.RGBA{R: 230, G: 10, B: 60, A: 255}, want: true},
		{name: "green", c: color.RGBA{R: 30, G: 200, B: 40, A: 255}, want: false},
		{name: "dark red below value floor", c: color.RGBA{R: 50, A: 255}, want: false},
		{name: "washed out pink", c: color.RGBA{R: 255, G: 200, B: 200, A: 255}, want: false},
		{name: "gray belt", c: color.RGBA{R: 90, G: 90, B: 90, A: 255}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Matches(ToHSV(tt.c)); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestHSVRange_Swatch(t *testing.T) {
	r := DefaultConfig().Ranges[0]
	swatch := r.Swatch()

	if !r.ContainsColor(swatch) {
		t.Errorf("swatch %v should lie inside its own range", swatch)
	}
	if swatch.R <= swatch.G || swatch.R <= swatch.B {
		t.Errorf("swatch %v should be dominated by red", swatch)
	}
}

func TestSegmenter_Segment_Union(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	colors := []color.RGBA{
		{R: 220, G: 20, B: 20, A: 255},   // low band
		{R: 230, G: 10, B: 60, A: 255},   // high band
		{R: 30, G: 200, B: 40, A: 255},   // green
		{R: 50, G: 0, B: 0, A: 255},      // too dark
		{R: 90, G: 90, B: 90, A: 255},    // belt
		{R: 255, G: 0, B: 0, A: 255},     // pure red
		{R: 255, G: 200, B: 200, A: 255}, // pink
	}

	frame := gocv.NewMatWithSize(1, len(colors), gocv.MatTypeCV8UC3)
	defer frame.Close()
	for i, c := range colors {
		paint(&frame, i, c)
	}

	s := NewSegmenter(DefaultConfig().Ranges)
	mask := s.Segment(frame)
	defer mask.Close()

	if mask.Rows() != 1 || mask.Cols() != len(colors) {
		t.Fatalf("mask size = %dx%d, want %dx1", mask.Cols(), mask.Rows(), len(colors))
	}

	for i, c := range colors {
		want := s.ranges[0].ContainsColor(c) || s.ranges[1].ContainsColor(c)
		got := mask.GetUCharAt(0, i) == 255
		if got != want {
			t.Errorf("pixel %d (%v): mask set = %v, want %v", i, c, got, want)
		}
	}
}

func TestSegmenter_Segment_PositionIndependent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(20, 20, 220, 0)) // BGR red everywhere

	mask := NewSegmenter(DefaultConfig().Ranges).Segment(frame)
	defer mask.Close()

	if got := gocv.CountNonZero(mask); got != 400 {
		t.Errorf("CountNonZero = %d, want 400", got)
	}
}

func TestSegmenter_Segment_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	mask := NewSegmenter(DefaultConfig().Ranges).Segment(frame)
	defer mask.Close()

	if !mask.Empty() {
		t.Error("empty frame should produce an empty mask")
	}
}

func TestNewBlob(t *testing.T) {
	tests := []struct {
		name string
		box  image.Rectangle
		want image.Point
	}{
		{name: "even size", box: image.Rect(10, 20, 30, 60), want: image.Pt(20, 40)},
		{name: "odd size truncates", box: image.Rect(0, 0, 5, 7), want: image.Pt(2, 3)},
		{name: "single pixel", box: image.Rect(3, 4, 4, 5), want: image.Pt(3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBlob(100, tt.box)
			if b.Centroid != tt.want {
				t.Errorf("Centroid = %v, want %v", b.Centroid, tt.want)
			}
		})
	}
}

func TestAreasAndTotal(t *testing.T) {
	blobs := []Blob{BlobAt(10, 10, 21), BlobAt(50, 50, 11)}

	areas := Areas(blobs)
	if len(areas) != 2 || areas[0] != 400 || areas[1] != 100 {
		t.Errorf("Areas() = %v, want [400 100]", areas)
	}
	if got := TotalArea(blobs); got != 500 {
		t.Errorf("TotalArea() = %f, want 500", got)
	}
	if got := TotalArea(nil); got != 0 {
		t.Errorf("TotalArea(nil) = %f, want 0", got)
	}
}

func TestExtractor_AreaFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	mask := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.Rectangle(&mask, image.Rect(10, 10, 50, 50), white, -1)    // large
	gocv.Rectangle(&mask, image.Rect(100, 100, 106, 106), white, -1) // small noise

	blobs := NewExtractor(DefaultMinArea).Extract(mask)
	if len(blobs) != 1 {
		t.Fatalf("expected 1 blob, got %d", len(blobs))
	}

	for _, b := range blobs {
		if b.Area <= DefaultMinArea {
			t.Errorf("blob area %f should exceed %d", b.Area, DefaultMinArea)
		}
	}

	b := blobs[0]
	if b.Box.Min != image.Pt(10, 10) {
		t.Errorf("Box.Min = %v, want (10,10)", b.Box.Min)
	}
	if b.Centroid.X < 28 || b.Centroid.X > 32 || b.Centroid.Y < 28 || b.Centroid.Y > 32 {
		t.Errorf("Centroid = %v, want near (30,30)", b.Centroid)
	}
}

func TestExtractor_ThresholdIsExclusive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mask := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.Rectangle(&mask, image.Rect(20, 20, 60, 60), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	all := NewExtractor(0).Extract(mask)
	if len(all) != 1 {
		t.Fatalf("expected 1 blob without filter, got %d", len(all))
	}

	// A region whose area equals the threshold must be discarded.
	filtered := NewExtractor(all[0].Area).Extract(mask)
	if len(filtered) != 0 {
		t.Errorf("blob with area == MinArea should be discarded, got %d blobs", len(filtered))
	}
}

func TestExtractor_CornerTouchingMerged(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	mask := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8U)
	defer mask.Close()
	// Rectangle draws inclusive corners: the first square ends at (40,40),
	// the second starts at (41,41), so they meet diagonally.
	gocv.Rectangle(&mask, image.Rect(10, 10, 40, 40), white, -1)
	gocv.Rectangle(&mask, image.Rect(41, 41, 70, 70), white, -1)

	blobs := NewExtractor(0).Extract(mask)
	if len(blobs) != 1 {
		t.Errorf("corner-touching regions should merge under 8-connectivity, got %d blobs", len(blobs))
	}
}

func TestExtractor_EmptyMask(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mask := gocv.NewMatWithSize(50, 50, gocv.MatTypeCV8U)
	defer mask.Close()

	blobs := NewExtractor(DefaultMinArea).Extract(mask)
	if blobs == nil {
		t.Fatal("Extract should return an empty slice, not nil")
	}
	if len(blobs) != 0 {
		t.Errorf("expected 0 blobs, got %d", len(blobs))
	}
}

func TestColorDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(90, 90, 90, 0))

	red := color.RGBA{R: 220, G: 20, B: 20, A: 255}
	deepRed := color.RGBA{R: 230, G: 10, B: 60, A: 255}
	green := color.RGBA{R: 30, G: 200, B: 40, A: 255}
	gocv.Circle(&frame, image.Pt(60, 60), 15, red, -1)
	gocv.Circle(&frame, image.Pt(200, 120), 15, deepRed, -1)
	gocv.Circle(&frame, image.Pt(250, 200), 15, green, -1)
	gocv.Circle(&frame, image.Pt(150, 200), 3, red, -1) // below MinArea

	d := NewColorDetector(DefaultConfig())
	defer d.Close()

	blobs, err := d.Detect(&frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(blobs) != 2 {
		t.Fatalf("expected 2 blobs (one per red band), got %d", len(blobs))
	}
}

func TestColorDetector_Detect_NilFrame(t *testing.T) {
	d := NewColorDetector(DefaultConfig())

	blobs, err := d.Detect(nil)
	if err != nil {
		t.Fatalf("Detect(nil) error = %v", err)
	}
	if len(blobs) != 0 {
		t.Errorf("expected no blobs, got %d", len(blobs))
	}
}

func TestMockDetector_Sequence(t *testing.T) {
	m := NewMockDetector()
	m.SetSequence([][]Blob{
		{},
		{BlobAt(10, 10, 21)},
	})

	want := []int{0, 1, 1}
	for i, n := range want {
		blobs, err := m.Detect(nil)
		if err != nil {
			t.Fatalf("call %d: Detect() error = %v", i, err)
		}
		if len(blobs) != n {
			t.Errorf("call %d: got %d blobs, want %d", i, len(blobs), n)
		}
	}

	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
}

func TestMockDetector_Error(t *testing.T) {
	m := NewMockDetector()
	wantErr := errors.New("detection failed")
	m.SetError(wantErr)

	if _, err := m.Detect(nil); !errors.Is(err, wantErr) {
		t.Errorf("Detect() error = %v, want %v", err, wantErr)
	}
}
