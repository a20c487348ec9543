package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrInvalidParams is returned when Detect is called with a non-positive
	// minimum face size or a scale factor outside (0,1).
	ErrInvalidParams = errors.New("invalid detection parameters")

	// ErrShortLandmarks is returned when a face carries fewer landmark
	// coordinates than the detector's point count.
	ErrShortLandmarks = errors.New("landmark sequence shorter than point count")
)

// Detector defines the interface for face detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected faces.
	// minFaceSize is the smallest face side in pixels the detector searches for
	// and scaleFactor, in (0,1), is the ratio between successive pyramid scales.
	// Returns an empty slice if no faces are detected.
	Detect(frame *gocv.Mat, minFaceSize, scaleFactor float32) ([]Face, error)

	// PointCount returns the fixed number of landmark points per face.
	PointCount() int

	// Close releases any resources held by the detector.
	Close() error
}

// ValidateParams checks the two per-call detection parameters.
func ValidateParams(minFaceSize, scaleFactor float32) error {
	if minFaceSize <= 0 {
		return fmt.Errorf("%w: minimum face size %.2f must be positive", ErrInvalidParams, minFaceSize)
	}
	if scaleFactor <= 0 || scaleFactor >= 1 {
		return fmt.Errorf("%w: scale factor %.3f must be in (0,1)", ErrInvalidParams, scaleFactor)
	}
	return nil
}
