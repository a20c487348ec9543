// Package app provides the interaction loop that ties a frame source, a face
// detector, the overlay renderer and a display surface together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/facemark/internal/capture"
	"github.com/ayusman/facemark/internal/detector"
	"github.com/ayusman/facemark/internal/display"
	"github.com/ayusman/facemark/internal/overlay"
	"gocv.io/x/gocv"
)

// Process exit codes returned by Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ErrSourceUnavailable is returned when the frame source cannot be opened.
var ErrSourceUnavailable = errors.New("frame source unavailable")

// State is the lifecycle stage of a Loop.
type State int

const (
	StateInitializing State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loop acquires frames, detects faces, draws the overlay and shows the result
// until the exit key is pressed. Iterations are strictly sequential.
type Loop struct {
	config    Config
	source    capture.Source
	detector  detector.Detector
	surface   display.Surface
	renderer  *overlay.Renderer
	activity  *capture.ActivityMeter
	observers []FrameObserver

	mu    sync.RWMutex
	state State
	stats Stats
}

// New creates a Loop. The loop does not own the detector or the surface; it
// opens and closes the source itself.
func New(config Config, source capture.Source, d detector.Detector, surface display.Surface) *Loop {
	return &Loop{
		config:   config,
		source:   source,
		detector: d,
		surface:  surface,
		renderer: overlay.NewRenderer(overlay.DefaultStyle()),
		state:    StateInitializing,
	}
}

// SetActivityMeter attaches a meter whose reading is added to every report.
func (l *Loop) SetActivityMeter(m *capture.ActivityMeter) {
	l.activity = m
}

// AddObserver registers an observer called after every iteration.
func (l *Loop) AddObserver(o FrameObserver) {
	l.observers = append(l.observers, o)
}

// State returns the current lifecycle stage.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Stats returns a snapshot of the running totals.
func (l *Loop) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
}

// Run opens the source and iterates until the exit key is pressed or ctx is
// cancelled, returning the process exit code. The source is closed on every
// path. A context cancellation is honored between iterations.
func (l *Loop) Run(ctx context.Context) (int, error) {
	l.setState(StateInitializing)
	defer l.setState(StateTerminated)

	defer func() {
		if err := l.source.Close(); err != nil {
			log.Printf("Error closing source: %v", err)
		}
	}()

	if err := l.config.Validate(); err != nil {
		return ExitFailure, fmt.Errorf("invalid loop configuration: %w", err)
	}

	if err := l.source.Open(); err != nil {
		return ExitFailure, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	l.setState(StateRunning)
	log.Println("Interaction loop started")

	for index := 0; ; index++ {
		exit, err := l.step(index)
		if err != nil {
			return ExitFailure, err
		}
		if exit {
			log.Println("Exit key pressed, stopping")
			return ExitSuccess, nil
		}

		select {
		case <-ctx.Done():
			log.Println("Interrupted, stopping")
			return ExitSuccess, nil
		default:
		}
	}
}

// step runs one iteration and reports whether the exit key was pressed.
func (l *Loop) step(index int) (bool, error) {
	frame, err := l.source.ReadFrame()
	if err != nil {
		return false, fmt.Errorf("read frame %d: %w", index, err)
	}
	if frame == nil {
		empty := gocv.NewMat()
		frame = &empty
	}
	defer frame.Close()

	report := FrameReport{Index: index, Timestamp: time.Now()}

	if frame.Empty() && l.config.StrictFrames {
		report.Skipped = true
		l.record(report)
		l.notify(report, *frame)
		return l.pollExit(), nil
	}

	if l.activity != nil {
		report.Activity = l.activity.Measure(frame)
	}

	faces, elapsed, err := timedDetect(l.detector, frame, l.config.MinFaceSize, l.config.ScaleFactor)
	if err != nil {
		return false, fmt.Errorf("detect frame %d: %w", index, err)
	}

	shapes, err := overlay.Adapt(faces, l.detector.PointCount())
	if err != nil {
		return false, fmt.Errorf("adapt frame %d: %w", index, err)
	}

	rendered := l.renderer.Render(*frame, shapes)
	defer rendered.Close()

	log.Printf("Number of faces found in the supplied image - %d", len(faces))

	l.surface.Show(l.config.WindowName, rendered)

	report.Faces = faces
	report.Shapes = shapes
	report.Elapsed = elapsed
	l.record(report)
	l.notify(report, rendered)

	return l.pollExit(), nil
}

func (l *Loop) pollExit() bool {
	return l.surface.PollKey(l.config.PollTimeout) == l.config.ExitKey
}

func (l *Loop) record(report FrameReport) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if report.Skipped {
		l.stats.SkippedFrames++
		return
	}
	l.stats.Frames++
	l.stats.Faces += len(report.Faces)
	l.stats.DetectTime += report.Elapsed
}

func (l *Loop) notify(report FrameReport, rendered gocv.Mat) {
	for _, o := range l.observers {
		if err := o.ObserveFrame(report, rendered); err != nil {
			log.Printf("Frame observer failed on frame %d: %v", report.Index, err)
		}
	}
}
