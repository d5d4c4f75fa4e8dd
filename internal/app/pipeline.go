package app

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/beltcount/internal/annotate"
	"github.com/ayusman/beltcount/internal/capture"
	"github.com/ayusman/beltcount/internal/counter"
	"github.com/ayusman/beltcount/internal/live"
	"github.com/ayusman/beltcount/internal/metrics"
	"github.com/ayusman/beltcount/internal/sink"
	"github.com/ayusman/beltcount/internal/store"
)

// pipeline is the per-run state of the frame loop.
type pipeline struct {
	runID     string
	policy    counter.Policy
	fps       float64
	counter   counter.Counter
	estimator *metrics.Estimator
	annotator *annotate.Annotator
	frames    int
}

// newPipeline builds the counting state for an opened source.
func (a *App) newPipeline() (*pipeline, error) {
	s := a.config.Settings

	fps := a.source.FPS()
	if fps <= 0 {
		a.config.Logger.Warnf("Source reports no frame rate, assuming %d fps", FallbackFPS)
		fps = FallbackFPS
	}

	policy, err := counter.ParsePolicy(s.Counting.Policy)
	if err != nil {
		return nil, err
	}

	line := s.CountingLine(a.source.Size().Y)
	c, err := counter.New(policy, line, s.Counting.MatchRadius)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		policy:    policy,
		fps:       fps,
		counter:   c,
		estimator: metrics.NewEstimator(s.Metrics.BeltHeight, fps, a.config.Clock),
		annotator: annotate.New(line, s.DetectorConfig().Ranges[0].Swatch()),
	}, nil
}

// loop reads frames until the stream ends, the viewer quits, or ctx is done.
func (a *App) loop(ctx context.Context, p *pipeline) (summary *Summary, err error) {
	started := a.config.Clock.Now()

	p.runID, err = a.startRun(p)
	if err != nil {
		a.closeOutputs()
		return nil, err
	}

	summary = &Summary{RunID: p.runID, Source: a.config.Settings.Input}
	a.config.Logger.Infof("Counting %s (policy=%s, line y=%d±%d, %.1f fps)",
		a.config.Settings.Input, p.policy, p.counter.Line().Y, p.counter.Line().Tolerance, p.fps)

	defer func() {
		if cerr := a.closeOutputs(); cerr != nil && err == nil {
			err = cerr
		}

		summary.Frames = p.frames
		summary.Count = p.counter.Count()
		summary.Duration = a.config.Clock.Since(started)

		if a.config.Store != nil && p.runID != "" {
			if ferr := a.config.Store.Runs().Finish(p.runID, p.frames, p.counter.Count(), a.config.Clock.Now()); ferr != nil && err == nil {
				err = fmt.Errorf("failed to finish run: %w", ferr)
			}
		}
		if a.config.Hub != nil {
			status := a.config.Hub.Status()
			status.Running = false
			status.UpdatedAt = a.config.Clock.Now()
			a.config.Hub.Publish(status, nil)
		}

		if err == nil {
			a.config.Logger.Infof("Processed %d frames, total count %d", p.frames, p.counter.Count())
		}
	}()

	for {
		if ctx.Err() != nil {
			a.config.Logger.Info("Run cancelled")
			summary.Stopped = true
			return summary, nil
		}

		frame, err := a.source.ReadFrame()
		if err != nil {
			if !errors.Is(err, capture.ErrEndOfStream) {
				a.config.Logger.Warnf("Error reading frame: %v", err)
			}
			return summary, nil
		}

		quit, err := a.processFrame(p, frame)
		frame.Close()
		if err != nil {
			return summary, err
		}
		if quit {
			a.config.Logger.Info("Stopped by viewer")
			summary.Stopped = true
			return summary, nil
		}
	}
}

// processFrame runs detection, counting, metrics, and output for one frame.
// It reports whether the viewer asked to stop.
func (a *App) processFrame(p *pipeline, frame *capture.Frame) (bool, error) {
	p.estimator.BeginFrame()
	p.frames++

	blobs, err := a.detector.Detect(&frame.Mat)
	if err != nil {
		return false, fmt.Errorf("detection failed on frame %d: %w", frame.Index, err)
	}

	crossings := p.counter.Update(frame.Index, blobs)
	if err := a.recordCrossings(p, crossings, frame.MediaTime()); err != nil {
		return false, err
	}

	m := p.estimator.Compute(frame.Mat.Cols(), blobs, frame.MediaTime())
	count := p.counter.Count()

	annotated := p.annotator.Annotate(frame.Mat, blobs, count, m)
	defer annotated.Close()

	if err := a.writeFrame(p, &annotated); err != nil {
		return false, err
	}

	if a.config.Exporter != nil {
		a.config.Exporter.Observe(count, m)
	}
	if a.config.Hub != nil {
		a.config.Hub.Publish(live.Status{
			RunID:     p.runID,
			Source:    a.config.Settings.Input,
			Policy:    string(p.policy),
			Running:   true,
			Frame:     frame.Index,
			Count:     count,
			Line:      p.counter.Line(),
			Metrics:   m,
			UpdatedAt: a.config.Clock.Now(),
		}, &annotated)
	}
	if len(crossings) > 0 && a.onCount != nil {
		a.onCount(count)
	}

	return a.display.Show(&annotated), nil
}

// recordCrossings appends each crossing to the log, in order, and stores
// them with the run.
func (a *App) recordCrossings(p *pipeline, crossings []counter.Crossing, mediaTime float64) error {
	if len(crossings) == 0 {
		return nil
	}

	for _, c := range crossings {
		if err := a.log.Record(c.Frame, c.Count); err != nil {
			return fmt.Errorf("failed to write crossing log: %w", err)
		}
		a.config.Logger.Debugf("Crossing at frame %d: count=%d centroid=(%d,%d) area=%.0f",
			c.Frame, c.Count, c.Blob.Centroid.X, c.Blob.Centroid.Y, c.Blob.Area)
	}

	if a.config.Store == nil || p.runID == "" {
		return nil
	}

	events := make([]store.CrossingEvent, 0, len(crossings))
	for _, c := range crossings {
		events = append(events, store.CrossingEvent{
			RunID:      p.runID,
			FrameIndex: c.Frame,
			Count:      c.Count,
			CX:         c.Blob.Centroid.X,
			CY:         c.Blob.Centroid.Y,
			Area:       c.Blob.Area,
			MediaTime:  mediaTime,
		})
	}
	if err := a.config.Store.Crossings().Create(events); err != nil {
		return fmt.Errorf("failed to store crossings: %w", err)
	}
	return nil
}

// writeFrame writes the annotated frame, opening the video output on the
// first frame so its size matches the decoded frames.
func (a *App) writeFrame(p *pipeline, annotated *gocv.Mat) error {
	if a.frames == nil {
		if a.config.Settings.Output == "" {
			a.frames = sink.Discard{}
		} else {
			size := image.Pt(annotated.Cols(), annotated.Rows())
			vs, err := sink.NewVideoSink(a.config.Settings.Output, p.fps, size)
			if err != nil {
				return err
			}
			a.frames = vs
		}
	}

	if err := a.frames.Write(annotated); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
