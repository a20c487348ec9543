package overlay

import (
	"strconv"

	"gocv.io/x/gocv"
)

// Renderer composites shapes onto frames.
type Renderer struct {
	Style Style
}

// NewRenderer creates a Renderer with the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{Style: style}
}

// Render returns a new 8-bit BGR frame with every shape drawn on it: the
// box outline, then a filled marker and index label per point, in input
// order. src is never modified. The caller is responsible for closing the
// returned Mat.
func (r *Renderer) Render(src gocv.Mat, shapes []Shape) gocv.Mat {
	out := Normalize(src)
	if out.Empty() {
		return out
	}

	st := r.Style
	for _, s := range shapes {
		gocv.Rectangle(&out, s.Rect, st.Color, st.LineThickness)

		for _, p := range s.Points {
			gocv.Circle(&out, p.Pt, st.MarkerRadius, st.Color, -1)
			gocv.PutTextWithParams(&out, strconv.Itoa(p.Index), p.Pt.Add(st.LabelOffset),
				st.Face, st.Scale, st.Color, st.Thickness, st.LineType, false)
		}
	}

	return out
}

// Normalize returns an 8-bit, 3-channel BGR copy of src. Gray and BGRA
// inputs are converted. An empty input, or one with a channel count other
// than 1, 3 or 4, yields an empty Mat.
func Normalize(src gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	if src.Empty() {
		return out
	}

	eight := gocv.NewMat()
	defer eight.Close()
	src.ConvertTo(&eight, gocv.MatTypeCV8U)

	switch eight.Channels() {
	case 1:
		gocv.CvtColor(eight, &out, gocv.ColorGrayToBGR)
	case 3:
		eight.CopyTo(&out)
	case 4:
		gocv.CvtColor(eight, &out, gocv.ColorBGRAToBGR)
	}

	return out
}
