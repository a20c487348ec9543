// Package display shows rendered frames and reports key presses.
package display

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// NoKey is returned by PollKey when no key was pressed within the timeout.
const NoKey = -1

// Surface defines the interface for frame presentation.
type Surface interface {
	// Show presents frame in the window called name.
	Show(name string, frame gocv.Mat)

	// PollKey waits up to timeout for a key press and returns its code,
	// or NoKey.
	PollKey(timeout time.Duration) int

	// Close tears down every window the surface opened.
	Close() error
}

// Window is a Surface backed by HighGUI windows. On most platforms it must be
// used from the main OS thread.
type Window struct {
	windows map[string]*gocv.Window
	order   []string
	mu      sync.Mutex
}

// NewWindow returns a Window surface. No HighGUI window exists until the
// first Show.
func NewWindow() *Window {
	return &Window{windows: make(map[string]*gocv.Window)}
}

func (w *Window) window(name string) *gocv.Window {
	if win, ok := w.windows[name]; ok {
		return win
	}
	win := gocv.NewWindow(name)
	w.windows[name] = win
	w.order = append(w.order, name)
	return win
}

// Show displays frame. An empty frame is not shown, which leaves the
// previous image on screen.
func (w *Window) Show(name string, frame gocv.Mat) {
	w.mu.Lock()
	defer w.mu.Unlock()

	win := w.window(name)
	if frame.Empty() {
		return
	}
	win.IMShow(frame)
}

// PollKey pumps the HighGUI event loop for the given timeout. Timeouts below
// one millisecond are rounded up so the call never blocks indefinitely.
func (w *Window) PollKey(timeout time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.order) == 0 {
		time.Sleep(timeout)
		return NoKey
	}

	ms := int(timeout / time.Millisecond)
	if ms < 1 {
		ms = 1
	}

	key := w.windows[w.order[0]].WaitKey(ms)
	if key < 0 {
		return NoKey
	}
	return key & 0xFF
}

// Close destroys all windows.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for _, name := range w.order {
		if err := w.windows[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.windows = make(map[string]*gocv.Window)
	w.order = nil

	return firstErr
}
