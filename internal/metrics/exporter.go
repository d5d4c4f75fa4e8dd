package metrics

import (
	"math"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes the latest frame metrics on a private Prometheus registry.
type Exporter struct {
	FramesProcessed atomic.Uint64
	Crossings       atomic.Uint64

	detections atomic.Uint64
	occupancy  atomic.Uint64 // float64 bits
	precision  atomic.Uint64 // float64 bits
	fps        atomic.Uint64 // float64 bits

	registry *prometheus.Registry
}

// NewExporter creates an Exporter with all collectors registered.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
	}
	e.register()
	return e
}

func (e *Exporter) register() {
	e.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "beltcount_frames_processed_total",
			Help: "Total frames processed",
		},
		func() float64 { return float64(e.FramesProcessed.Load()) },
	))

	e.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "beltcount_crossings_total",
			Help: "Running count of line crossings",
		},
		func() float64 { return float64(e.Crossings.Load()) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "beltcount_detections",
			Help: "Blobs detected in the last frame",
		},
		func() float64 { return float64(e.detections.Load()) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "beltcount_occupancy_percent",
			Help: "Belt occupancy estimate for the last frame",
		},
		func() float64 { return math.Float64frombits(e.occupancy.Load()) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "beltcount_precision_percent",
			Help: "Blob size consistency estimate for the last frame",
		},
		func() float64 { return math.Float64frombits(e.precision.Load()) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "beltcount_fps",
			Help: "Processing rate for the last frame",
		},
		func() float64 { return math.Float64frombits(e.fps.Load()) },
	))
}

// Observe records one processed frame. Safe to call from the frame loop
// while the handler is being scraped.
func (e *Exporter) Observe(count int, m FrameMetrics) {
	e.FramesProcessed.Add(1)
	e.Crossings.Store(uint64(count))
	e.detections.Store(uint64(m.Detections))
	if m.OccupancyDefined {
		e.occupancy.Store(math.Float64bits(m.Occupancy))
	}
	e.precision.Store(math.Float64bits(m.Precision))
	e.fps.Store(math.Float64bits(m.FPS))
}

// Handler returns the Prometheus HTTP handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
