// Package capture provides frame sources for the detection loop: a live
// camera using GoCV (OpenCV), a decoded still image and a mock for tests.
package capture

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when trying to read from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrNoFrames is returned by MockSource when it has nothing left to play.
	ErrNoFrames = errors.New("no more frames")
)

// Source defines the interface for frame producers.
//
// ReadFrame may return an empty Mat with a nil error when the device
// produced nothing for this poll; the caller decides what to do with it.
// The caller is responsible for closing the returned Mat.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}
