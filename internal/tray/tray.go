// Package tray provides a system tray indicator for a running count.
package tray

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"
)

// Tray shows the live count and lets the user stop the run.
type Tray struct {
	title   string
	onOpen  func()
	onQuit  func()
	count   int
	mu      sync.RWMutex
	ready   chan struct{}
	started bool

	// Menu items stored for later updates
	menuCount  *systray.MenuItem
	menuSource *systray.MenuItem
}

// New creates a Tray for the given source name.
func New(title string) *Tray {
	return &Tray{
		title: title,
		ready: make(chan struct{}),
	}
}

// OnOpen sets the callback for the "Open Dashboard" item. The item is only
// shown when a callback is set before Run.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the "Stop" item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is called.
func (t *Tray) Run() {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	t.mu.RLock()
	started := t.started
	t.mu.RUnlock()
	if started {
		systray.Quit()
	}
}

func (t *Tray) onReady() {
	systray.SetTitle(CountLabel(0))
	systray.SetTooltip("beltcount: " + t.title)

	t.mu.Lock()
	t.menuSource = systray.AddMenuItem(t.title, "Input video")
	t.menuSource.Disable()
	t.menuCount = systray.AddMenuItem(CountLabel(t.count), "Objects counted so far")
	t.menuCount.Disable()
	onOpen := t.onOpen
	t.mu.Unlock()
	systray.AddSeparator()

	var openCh chan struct{}
	if onOpen != nil {
		openCh = systray.AddMenuItem("Open Dashboard...", "Open the live view in a browser").ClickedCh
	}
	menuQuit := systray.AddMenuItem("Stop", "Stop counting and exit")

	close(t.ready)

	go func() {
		for {
			select {
			case <-openCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetCount updates the count shown in the title and menu.
func (t *Tray) SetCount(count int) {
	t.mu.Lock()
	t.count = count
	item := t.menuCount
	t.mu.Unlock()

	if item == nil {
		return
	}
	label := CountLabel(count)
	item.SetTitle(label)
	systray.SetTitle(label)
}

// Count returns the last count passed to SetCount.
func (t *Tray) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Ready is closed once the menu has been built.
func (t *Tray) Ready() <-chan struct{} {
	return t.ready
}

// CountLabel formats a count for the tray, e.g. "Count: 1,204".
func CountLabel(count int) string {
	return fmt.Sprintf("Count: %s", humanize.Comma(int64(count)))
}
