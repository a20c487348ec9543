package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// activityBlur is the Gaussian kernel side applied before differencing.
	activityBlur = 21
	// activityLevel is the per-pixel difference that counts as a change.
	activityLevel = 25
)

// ActivityMeter measures how much of the scene changed between consecutive
// frames, as a percentage of pixels.
type ActivityMeter struct {
	prev        gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewActivityMeter creates an ActivityMeter with no baseline frame.
func NewActivityMeter() *ActivityMeter {
	return &ActivityMeter{prev: gocv.NewMat()}
}

// Measure compares frame with the previous one and returns the percentage of
// changed pixels. The first frame, an empty frame or a frame whose size
// differs from the baseline resets the baseline and reports 0.
func (a *ActivityMeter) Measure(frame *gocv.Mat) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if frame == nil || frame.Empty() {
		return 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 4:
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(activityBlur, activityBlur), 0, 0, gocv.BorderDefault)

	if !a.initialized || blurred.Rows() != a.prev.Rows() || blurred.Cols() != a.prev.Cols() || blurred.Type() != a.prev.Type() {
		blurred.CopyTo(&a.prev)
		a.initialized = true
		return 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, a.prev, &diff)

	changed := gocv.NewMat()
	defer changed.Close()
	gocv.Threshold(diff, &changed, activityLevel, 255, gocv.ThresholdBinary)

	percent := float64(gocv.CountNonZero(changed)) / float64(changed.Rows()*changed.Cols()) * 100.0

	blurred.CopyTo(&a.prev)

	return percent
}

// Reset drops the baseline frame.
func (a *ActivityMeter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.prev.Close()
	a.prev = gocv.NewMat()
	a.initialized = false
}

// Close releases resources used by the meter.
func (a *ActivityMeter) Close() {
	a.Reset()
}
