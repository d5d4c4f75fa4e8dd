// Package metrics derives per-frame quality estimates from detected blobs.
package metrics

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"

	"github.com/ayusman/beltcount/internal/detector"
)

// DefaultBeltHeight is the height in pixels of the strip treated as belt.
const DefaultBeltHeight = 200

// FrameMetrics is the set of values computed for one frame.
type FrameMetrics struct {
	Detections       int     `json:"detections"`
	OccupiedArea     float64 `json:"occupied_area"`
	Occupancy        float64 `json:"occupancy"`
	OccupancyDefined bool    `json:"occupancy_defined"`
	Precision        float64 `json:"precision"`
	FPS              float64 `json:"fps"`
	FPSMeasured      bool    `json:"fps_measured"`
	MediaTime        float64 `json:"media_time"`
}

// Occupancy returns occupied / (width * beltHeight) * 100. The result is not
// clamped. ok is false when the belt area is not positive.
func Occupancy(occupied float64, width, beltHeight int) (float64, bool) {
	beltArea := float64(width) * float64(beltHeight)
	if beltArea <= 0 {
		return 0, false
	}
	return occupied / beltArea * 100, true
}

// EstimatedPrecision scores how uniform the blob areas are:
// max(0, 100 - popstddev/mean*100). It is 0 for an empty list.
func EstimatedPrecision(areas []float64) float64 {
	if len(areas) == 0 {
		return 0
	}

	mean, err := stats.Mean(areas)
	if err != nil || mean <= 0 {
		return 0
	}
	sd, err := stats.StandardDeviation(areas)
	if err != nil {
		return 0
	}

	p := 100 - sd/mean*100
	return math.Min(100, math.Max(0, p))
}

// FPSMeter measures the rate between consecutive Tick calls.
type FPSMeter struct {
	clock   clock.Clock
	nominal float64
	prev    int64
	started bool
}

// NewFPSMeter creates a meter that reports nominal until two ticks have been seen.
func NewFPSMeter(clk clock.Clock, nominal float64) *FPSMeter {
	if clk == nil {
		clk = clock.New()
	}
	return &FPSMeter{clock: clk, nominal: nominal}
}

// Tick records the start of a frame and returns the rate since the previous
// tick. measured is false on the first tick or when no time has passed, in
// which case the nominal rate is returned.
func (m *FPSMeter) Tick() (fps float64, measured bool) {
	now := m.clock.Now().UnixNano()
	defer func() {
		m.prev = now
		m.started = true
	}()

	if !m.started {
		return m.nominal, false
	}
	delta := now - m.prev
	if delta <= 0 {
		return m.nominal, false
	}
	return 1e9 / float64(delta), true
}

// Estimator computes FrameMetrics for a stream of frames.
type Estimator struct {
	beltHeight int
	fps        *FPSMeter
	lastFPS    float64
	measured   bool
}

// NewEstimator creates an Estimator. clk may be nil for the wall clock.
func NewEstimator(beltHeight int, nominalFPS float64, clk clock.Clock) *Estimator {
	return &Estimator{
		beltHeight: beltHeight,
		fps:        NewFPSMeter(clk, nominalFPS),
	}
}

// BeginFrame marks the start of processing for a new frame.
func (e *Estimator) BeginFrame() {
	e.lastFPS, e.measured = e.fps.Tick()
}

// Compute returns the metrics for the frame begun by the last BeginFrame call.
func (e *Estimator) Compute(frameWidth int, blobs []detector.Blob, mediaTime float64) FrameMetrics {
	occupied := detector.TotalArea(blobs)
	occupancy, defined := Occupancy(occupied, frameWidth, e.beltHeight)

	return FrameMetrics{
		Detections:       len(blobs),
		OccupiedArea:     occupied,
		Occupancy:        occupancy,
		OccupancyDefined: defined,
		Precision:        EstimatedPrecision(detector.Areas(blobs)),
		FPS:              e.lastFPS,
		FPSMeasured:      e.measured,
		MediaTime:        mediaTime,
	}
}
