// Package app wires the counting pipeline together and owns the frame loop.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/ayusman/beltcount/internal/capture"
	"github.com/ayusman/beltcount/internal/config"
	"github.com/ayusman/beltcount/internal/detector"
	"github.com/ayusman/beltcount/internal/display"
	"github.com/ayusman/beltcount/internal/live"
	"github.com/ayusman/beltcount/internal/metrics"
	"github.com/ayusman/beltcount/internal/sink"
	"github.com/ayusman/beltcount/internal/store"
)

// FallbackFPS is used when the source does not report a frame rate.
const FallbackFPS = 30

// ErrAlreadyRunning is returned when Run is called while a run is in progress.
var ErrAlreadyRunning = errors.New("run already in progress")

// Config holds configuration options for the application.
type Config struct {
	Settings config.Config

	// Optional collaborators. Nil disables the feature.
	Store    *store.Store
	Hub      *live.Hub
	Exporter *metrics.Exporter

	Logger *zap.SugaredLogger
	Clock  clock.Clock
}

// Summary describes a finished run.
type Summary struct {
	RunID    string        `json:"run_id,omitempty"`
	Source   string        `json:"source"`
	Frames   int           `json:"frames"`
	Count    int           `json:"count"`
	Stopped  bool          `json:"stopped"` // ended by the viewer or a cancel, not end of stream
	Duration time.Duration `json:"duration"`
}

// App processes one video per Run call.
type App struct {
	config   Config
	source   capture.Source
	detector detector.Detector
	frames   sink.FrameSink
	log      *sink.CrossingLog
	display  display.Surface
	onCount  func(count int)
	running  bool
	mu       sync.Mutex
}

// New creates a new App instance with the given configuration. Components
// not injected with the Set methods are built from config.Settings when Run
// starts.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &App{config: config}
}

// SetSource replaces the video source.
func (a *App) SetSource(s capture.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = s
}

// SetDetector replaces the object detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetFrameSink replaces the annotated video output.
func (a *App) SetFrameSink(s sink.FrameSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = s
}

// SetCrossingLog replaces the crossing log.
func (a *App) SetCrossingLog(l *sink.CrossingLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = l
}

// SetDisplay replaces the display surface.
func (a *App) SetDisplay(d display.Surface) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.display = d
}

// OnCount registers a callback invoked from the frame loop whenever the
// count changes.
func (a *App) OnCount(fn func(count int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onCount = fn
}

// IsRunning reports whether Run is in progress.
func (a *App) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Run opens the source and processes frames until end of stream, a viewer
// quit, or ctx cancellation. A source that cannot be opened is an error;
// a read failure after opening ends the run normally.
func (a *App) Run(ctx context.Context) (*Summary, error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.prepare()

	if err := a.source.Open(); err != nil {
		a.closeOutputs()
		return nil, fmt.Errorf("failed to open source %s: %w", a.config.Settings.Input, err)
	}
	defer a.source.Close()

	// Outputs are created only once the source is readable so a bad input
	// leaves the previous log untouched.
	if err := a.prepareOutputs(); err != nil {
		a.closeOutputs()
		return nil, err
	}

	p, err := a.newPipeline()
	if err != nil {
		a.closeOutputs()
		return nil, err
	}

	return a.loop(ctx, p)
}

// prepare builds the input side components that were not injected.
func (a *App) prepare() {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.config.Settings

	if a.source == nil {
		a.source = capture.NewFileSource(s.Input)
	}
	if a.detector == nil {
		a.detector = detector.NewColorDetector(s.DetectorConfig())
	}
}

// prepareOutputs builds the crossing log and display if they were not
// injected. The video output is opened on the first frame.
func (a *App) prepareOutputs() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.config.Settings

	if a.log == nil {
		if s.LogFile == "" {
			a.log = sink.NewCrossingLog(io.Discard)
		} else {
			l, err := sink.CreateCrossingLog(s.LogFile)
			if err != nil {
				return err
			}
			a.log = l
		}
	}
	if a.display == nil {
		if s.Display {
			a.display = display.NewWindow(display.DefaultTitle)
		} else {
			a.display = display.Nop{}
		}
	}
	return nil
}

// closeOutputs closes every output and returns the first sink close error.
// Outputs are rebuilt from settings on the next Run unless injected again.
func (a *App) closeOutputs() error {
	var firstErr error
	if a.frames != nil {
		if err := a.frames.Close(); err != nil {
			a.config.Logger.Errorf("Error closing video output: %v", err)
			firstErr = fmt.Errorf("failed to close video output: %w", err)
		}
	}
	if a.log != nil {
		if err := a.log.Close(); err != nil {
			a.config.Logger.Errorf("Error closing crossing log: %v", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to close crossing log: %w", err)
			}
		}
	}
	if a.display != nil {
		a.display.Close()
	}
	if a.detector != nil {
		a.detector.Close()
	}

	a.mu.Lock()
	a.frames, a.log, a.display, a.detector = nil, nil, nil, nil
	a.mu.Unlock()

	return firstErr
}

// runSettings is the subset of settings stored with each run.
type runSettings struct {
	MinArea     float64 `json:"min_area"`
	BeltHeight  int     `json:"belt_height"`
	LineY       int     `json:"line_y"`
	Tolerance   int     `json:"tolerance"`
	MatchRadius int     `json:"match_radius"`
}

// startRun records the run in the store, if one is configured.
func (a *App) startRun(p *pipeline) (string, error) {
	if a.config.Store == nil {
		return "", nil
	}

	s := a.config.Settings
	settings, _ := json.Marshal(runSettings{
		MinArea:     s.Detection.MinArea,
		BeltHeight:  s.Metrics.BeltHeight,
		LineY:       p.counter.Line().Y,
		Tolerance:   p.counter.Line().Tolerance,
		MatchRadius: s.Counting.MatchRadius,
	})

	run := &store.Run{
		Source:    s.Input,
		Policy:    string(p.policy),
		Settings:  settings,
		StartedAt: a.config.Clock.Now(),
	}
	if err := a.config.Store.Runs().Create(run); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return run.ID, nil
}
