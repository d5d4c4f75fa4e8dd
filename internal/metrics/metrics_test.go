package metrics

import (
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/beltcount/internal/detector"
)

func TestOccupancy(t *testing.T) {
	tests := []struct {
		name        string
		occupied    float64
		width       int
		beltHeight  int
		want        float64
		wantDefined bool
	}{
		{name: "reference case", occupied: 500, width: 640, beltHeight: 200, want: 0.390625, wantDefined: true},
		{name: "empty belt", occupied: 0, width: 640, beltHeight: 200, want: 0, wantDefined: true},
		{name: "not clamped above 100", occupied: 200000, width: 640, beltHeight: 200, want: 156.25, wantDefined: true},
		{name: "zero belt height", occupied: 500, width: 640, beltHeight: 0, wantDefined: false},
		{name: "zero width", occupied: 500, width: 0, beltHeight: 200, wantDefined: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, defined := Occupancy(tt.occupied, tt.width, tt.beltHeight)
			if defined != tt.wantDefined {
				t.Fatalf("defined = %v, want %v", defined, tt.wantDefined)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Occupancy = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestEstimatedPrecision(t *testing.T) {
	tests := []struct {
		name  string
		areas []float64
		want  float64
	}{
		{name: "empty", areas: nil, want: 0},
		{name: "single", areas: []float64{350}, want: 100},
		{name: "identical", areas: []float64{400, 400, 400}, want: 100},
		{name: "spread", areas: []float64{100, 300}, want: 50},
		{name: "clamped at zero", areas: []float64{1, 1, 1, 1000}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatedPrecision(tt.areas)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EstimatedPrecision(%v) = %f, want %f", tt.areas, got, tt.want)
			}
		})
	}
}

func TestEstimatedPrecision_Bounds(t *testing.T) {
	sets := [][]float64{
		{201, 202},
		{250, 9000, 300},
		{210, 210.5, 211, 5000, 40000},
	}
	for _, areas := range sets {
		p := EstimatedPrecision(areas)
		if p < 0 || p > 100 {
			t.Errorf("EstimatedPrecision(%v) = %f, want within [0,100]", areas, p)
		}
	}
}

func TestFPSMeter(t *testing.T) {
	mock := clock.NewMock()
	meter := NewFPSMeter(mock, 30)

	fps, measured := meter.Tick()
	if measured || fps != 30 {
		t.Errorf("first tick = (%f, %v), want (30, false)", fps, measured)
	}

	mock.Add(40 * time.Millisecond)
	fps, measured = meter.Tick()
	if !measured {
		t.Fatal("second tick should be measured")
	}
	if math.Abs(fps-25) > 1e-9 {
		t.Errorf("fps = %f, want 25", fps)
	}

	// No time passed: fall back to nominal.
	fps, measured = meter.Tick()
	if measured || fps != 30 {
		t.Errorf("zero-delta tick = (%f, %v), want (30, false)", fps, measured)
	}
}

func TestEstimator_Compute(t *testing.T) {
	mock := clock.NewMock()
	est := NewEstimator(DefaultBeltHeight, 25, mock)

	blobs := []detector.Blob{
		detector.NewBlob(200, detector.BlobAt(10, 10, 15).Box),
		detector.NewBlob(300, detector.BlobAt(100, 100, 18).Box),
	}

	est.BeginFrame()
	got := est.Compute(640, blobs, 1.5)

	want := FrameMetrics{
		Detections:       2,
		OccupiedArea:     500,
		Occupancy:        0.390625,
		OccupancyDefined: true,
		Precision:        80,
		FPS:              25,
		FPSMeasured:      false,
		MediaTime:        1.5,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
	}

	mock.Add(50 * time.Millisecond)
	est.BeginFrame()
	got = est.Compute(640, nil, 1.54)
	if !got.FPSMeasured || math.Abs(got.FPS-20) > 1e-9 {
		t.Errorf("second frame fps = (%f, %v), want (20, true)", got.FPS, got.FPSMeasured)
	}
	if got.Detections != 0 || got.Precision != 0 || got.Occupancy != 0 {
		t.Errorf("empty frame metrics = %+v", got)
	}
}

func TestEstimator_ZeroBeltHeight(t *testing.T) {
	est := NewEstimator(0, 30, clock.NewMock())
	est.BeginFrame()

	got := est.Compute(640, []detector.Blob{detector.BlobAt(50, 50, 20)}, 0)
	if got.OccupancyDefined {
		t.Error("occupancy should be undefined with zero belt height")
	}
}

func TestExporter_Handler(t *testing.T) {
	e := NewExporter()
	e.Observe(7, FrameMetrics{Detections: 3, Occupancy: 12.5, OccupancyDefined: true, Precision: 88, FPS: 24})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"beltcount_frames_processed_total 1",
		"beltcount_crossings_total 7",
		"beltcount_detections 3",
		"beltcount_occupancy_percent 12.5",
		"beltcount_precision_percent 88",
		"beltcount_fps 24",
		"# TYPE beltcount_frames_processed_total counter",
		"# TYPE beltcount_crossings_total counter",
		"# TYPE beltcount_occupancy_percent gauge",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
