// Package live shares the latest pipeline state with readers outside the
// frame loop.
package live

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/beltcount/internal/counter"
	"github.com/ayusman/beltcount/internal/metrics"
)

// Status is a snapshot of a run after its most recent frame.
type Status struct {
	RunID     string               `json:"run_id,omitempty"`
	Source    string               `json:"source"`
	Policy    string               `json:"policy"`
	Running   bool                 `json:"running"`
	Frame     int                  `json:"frame"`
	Count     int                  `json:"count"`
	Line      counter.Line         `json:"line"`
	Metrics   metrics.FrameMetrics `json:"metrics"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Hub holds the latest status and annotated frame. The frame loop is the only
// writer. Subscribers receive every status on a buffered channel; a slow
// subscriber only ever sees the newest value.
type Hub struct {
	mu     sync.RWMutex
	status Status
	frame  gocv.Mat
	subs   map[chan Status]struct{}
	closed bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		frame: gocv.NewMat(),
		subs:  make(map[chan Status]struct{}),
	}
}

// Publish stores status and a copy of frame, then notifies subscribers.
// frame may be nil to update the status only.
func (h *Hub) Publish(status Status, frame *gocv.Mat) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}
	h.status = status

	if frame != nil && !frame.Empty() {
		frame.CopyTo(&h.frame)
	}

	for ch := range h.subs {
		select {
		case ch <- status:
		default:
			// Drop the stale value and keep the newest.
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}

// Status returns the latest status.
func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Frame returns a copy of the latest annotated frame. ok is false when no
// frame has been published yet. The caller must close the copy.
func (h *Hub) Frame() (gocv.Mat, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed || h.frame.Empty() {
		return gocv.NewMat(), false
	}
	return h.frame.Clone(), true
}

// Subscribe returns a channel of status updates and a function that
// unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan Status, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Status, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Close releases the stored frame and closes all subscriber channels.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	return h.frame.Close()
}
