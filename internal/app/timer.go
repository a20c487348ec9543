package app

import (
	"log"
	"time"

	"github.com/ayusman/facemark/internal/detector"
	"gocv.io/x/gocv"
)

// timedDetect runs exactly one detection and logs its wall time, whether or
// not it succeeded. The detector's result is returned untouched.
func timedDetect(d detector.Detector, frame *gocv.Mat, minFaceSize, scaleFactor float32) ([]detector.Face, time.Duration, error) {
	start := time.Now()
	faces, err := d.Detect(frame, minFaceSize, scaleFactor)
	elapsed := time.Since(start)

	log.Printf("%.3f seconds", elapsed.Seconds())

	return faces, elapsed, err
}
