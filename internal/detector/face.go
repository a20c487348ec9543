// Package detector provides face detection interfaces, types and backends.
package detector

import (
	"fmt"
	"image"
	"math"
)

// Facial landmark indices in the order every backend reports them.
const (
	LeftEye    = 0
	RightEye   = 1
	Nose       = 2
	LeftMouth  = 3
	RightMouth = 4
	PointCount = 5
)

// Face is a single detected face: a bounding box plus a flat landmark
// coordinate array laid out as x0, y0, x1, y1, ...
type Face struct {
	Rect   image.Rectangle `json:"rect"`
	Score  float32         `json:"score"`
	Coords []float32       `json:"coords"`
}

// NumPoints returns how many complete (x, y) pairs the face carries.
func (f Face) NumPoints() int {
	return len(f.Coords) / 2
}

// Point returns the i-th landmark rounded to the nearest pixel.
func (f Face) Point(i int) image.Point {
	return image.Point{
		X: int(math.Round(float64(f.Coords[2*i]))),
		Y: int(math.Round(float64(f.Coords[2*i+1]))),
	}
}

// Validate rejects faces whose landmark array holds fewer than pointCount points.
func (f Face) Validate(pointCount int) error {
	if len(f.Coords) < 2*pointCount {
		return fmt.Errorf("%w: got %d coordinates, want %d", ErrShortLandmarks, len(f.Coords), 2*pointCount)
	}
	return nil
}

// NewFace builds a Face from a rectangle and a list of points.
func NewFace(rect image.Rectangle, score float32, pts ...image.Point) Face {
	coords := make([]float32, 0, 2*len(pts))
	for _, p := range pts {
		coords = append(coords, float32(p.X), float32(p.Y))
	}
	return Face{Rect: rect, Score: score, Coords: coords}
}
