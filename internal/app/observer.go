package app

import (
	"time"

	"github.com/ayusman/facemark/internal/detector"
	"github.com/ayusman/facemark/internal/overlay"
	"gocv.io/x/gocv"
)

// FrameReport summarizes one loop iteration.
type FrameReport struct {
	Index     int
	Timestamp time.Time
	Faces     []detector.Face
	Shapes    []overlay.Shape
	Elapsed   time.Duration
	Skipped   bool
	// Activity is the percentage of pixels that changed since the previous
	// frame, when an activity meter is attached.
	Activity float64
}

// FrameObserver receives every iteration's report together with the
// rendered frame. The frame is only valid during the call; observers that
// keep it must copy it.
type FrameObserver interface {
	ObserveFrame(report FrameReport, rendered gocv.Mat) error
}

// ObserverFunc adapts a function to the FrameObserver interface.
type ObserverFunc func(report FrameReport, rendered gocv.Mat) error

// ObserveFrame calls f.
func (f ObserverFunc) ObserveFrame(report FrameReport, rendered gocv.Mat) error {
	return f(report, rendered)
}

// Stats holds running totals for a loop.
type Stats struct {
	Frames        int
	SkippedFrames int
	Faces         int
	DetectTime    time.Duration
}
