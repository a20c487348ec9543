package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Red is the default marker color.
var Red = color.RGBA{R: 255, G: 0, B: 0, A: 0}

// Style defines the parameters for drawing shapes on a frame using GoCV.
type Style struct {
	Color         color.RGBA
	LineThickness int
	MarkerRadius  int

	// Label font
	Face      gocv.HersheyFont
	Scale     float64
	Thickness int
	LineType  gocv.LineType

	// LabelOffset is added to a point to position its text label.
	LabelOffset image.Point
}

// DefaultStyle returns the default overlay style: red outlines, filled
// markers of radius 3 and small anti-aliased index labels.
func DefaultStyle() Style {
	return Style{
		Color:         Red,
		LineThickness: 1,
		MarkerRadius:  3,
		Face:          gocv.FontHersheyDuplex,
		Scale:         0.4,
		Thickness:     1,
		LineType:      gocv.LineAA,
		LabelOffset:   image.Pt(4, -4),
	}
}
