// Package overlay turns face detections into drawable shapes and composites
// them onto video frames.
package overlay

import (
	"image"

	"github.com/ayusman/facemark/internal/detector"
)

// LabeledPoint is a landmark tagged with its position in the landmark list.
type LabeledPoint struct {
	Index int         `json:"index"`
	Pt    image.Point `json:"pt"`
}

// Shape is the renderable form of one detected face.
type Shape struct {
	Rect   image.Rectangle `json:"rect"`
	Points []LabeledPoint  `json:"points"`
}

// Adapt converts faces into shapes, one per face and in the same order.
// Every face must carry at least pointCount landmarks; the first pointCount
// are emitted, labeled 0..pointCount-1.
func Adapt(faces []detector.Face, pointCount int) ([]Shape, error) {
	shapes := make([]Shape, len(faces))

	for i, face := range faces {
		if err := face.Validate(pointCount); err != nil {
			return nil, err
		}

		points := make([]LabeledPoint, pointCount)
		for p := 0; p < pointCount; p++ {
			points[p] = LabeledPoint{Index: p, Pt: face.Point(p)}
		}

		shapes[i] = Shape{Rect: face.Rect, Points: points}
	}

	return shapes, nil
}
