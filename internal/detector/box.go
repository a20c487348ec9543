package detector

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Proposal network geometry.
const (
	proposalStride = 2
	proposalCell   = 12
)

// nmsMode selects how the overlap of two boxes is normalized.
type nmsMode int

const (
	nmsUnion nmsMode = iota // intersection over union
	nmsMin                  // intersection over the smaller box
)

// candidate is a face box moving through the cascade. Coordinates are
// inclusive pixel positions in the coordinate space of the network input.
type candidate struct {
	x1, y1, x2, y2 float32
	score          float32
	reg            [4]float32
	pts            [2 * PointCount]float32
}

func (c candidate) width() float32  { return c.x2 - c.x1 + 1 }
func (c candidate) height() float32 { return c.y2 - c.y1 + 1 }
func (c candidate) area() float32   { return c.width() * c.height() }

// rect returns the half-open rectangle covering the candidate's pixels.
func (c candidate) rect() image.Rectangle {
	return image.Rect(int(c.x1), int(c.y1), int(c.x2)+1, int(c.y2)+1)
}

// pyramidScales returns the scales at which the proposal network is run.
// The first scale maps minFaceSize onto the network cell; each following
// scale shrinks by scaleFactor until the short side drops below one cell.
func pyramidScales(width, height int, minFaceSize, scaleFactor float32) []float32 {
	var scales []float32

	m := float32(proposalCell) / minFaceSize
	minSide := float32(width)
	if height < width {
		minSide = float32(height)
	}
	minSide *= m

	cur := m
	for minSide >= proposalCell {
		scales = append(scales, cur)
		cur *= scaleFactor
		minSide *= scaleFactor
	}
	return scales
}

// proposalCandidates turns a proposal network output into candidate boxes.
// prob is laid out as [2][h][w] (background, face) and reg as [4][h][w].
func proposalCandidates(prob, reg []float32, w, h int, scale, threshold float32) []candidate {
	size := w * h
	if len(prob) < 2*size || len(reg) < 4*size {
		return nil
	}

	faceProb := prob[size : 2*size]

	var out []candidate
	for i, p := range faceProb {
		if p < threshold {
			continue
		}
		y := i / w
		x := i - y*w
		out = append(out, candidate{
			x1:    float32(x*proposalStride) / scale,
			y1:    float32(y*proposalStride) / scale,
			x2:    float32(x*proposalStride+proposalCell-1) / scale,
			y2:    float32(y*proposalStride+proposalCell-1) / scale,
			score: p,
			reg:   [4]float32{reg[i], reg[i+size], reg[i+2*size], reg[i+3*size]},
		})
	}
	return out
}

// overlap returns the overlap ratio of two candidates under the given mode.
func overlap(a, b candidate, mode nmsMode) float32 {
	ix1 := max(a.x1, b.x1)
	iy1 := max(a.y1, b.y1)
	ix2 := min(a.x2, b.x2)
	iy2 := min(a.y2, b.y2)

	iw := ix2 - ix1 + 1
	ih := iy2 - iy1 + 1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih

	if mode == nmsMin {
		return inter / min(a.area(), b.area())
	}
	return inter / (a.area() + b.area() - inter)
}

// nonMaxSuppression keeps the highest scoring candidates and drops any
// candidate overlapping a kept one by more than threshold. The result is
// ordered by descending score.
func nonMaxSuppression(cands []candidate, threshold float32, mode nmsMode) []candidate {
	if len(cands) == 0 {
		return nil
	}

	scores := make([]float64, len(cands))
	for i, c := range cands {
		scores[i] = float64(c.score)
	}
	order := make([]int, len(cands))
	floats.Argsort(scores, order)

	suppressed := make([]bool, len(cands))
	kept := make([]candidate, 0, len(cands))

	for i := len(order) - 1; i >= 0; i-- {
		a := order[i]
		if suppressed[a] {
			continue
		}
		kept = append(kept, cands[a])

		for j := i - 1; j >= 0; j-- {
			b := order[j]
			if !suppressed[b] && overlap(cands[a], cands[b], mode) > threshold {
				suppressed[b] = true
			}
		}
	}
	return kept
}

// applyRegression shifts every box by its regression offsets. The networks
// see transposed images, so the first two offsets apply to y1/x1.
func applyRegression(cands []candidate, addOne bool) {
	var one float32
	if addOne {
		one = 1
	}
	for i := range cands {
		c := &cands[i]
		w := c.x2 - c.x1 + one
		h := c.y2 - c.y1 + one
		c.x1 += c.reg[1] * w
		c.y1 += c.reg[0] * h
		c.x2 += c.reg[3] * w
		c.y2 += c.reg[2] * h
	}
}

// squareBoxes grows each box to a square around its center and rounds it.
func squareBoxes(cands []candidate) {
	for i := range cands {
		c := &cands[i]
		w := c.x2 - c.x1
		h := c.y2 - c.y1
		side := max(w, h)

		c.x1 += (w - side) * 0.5
		c.y1 += (h - side) * 0.5
		c.x2 = round32(c.x1 + side - 1)
		c.y2 = round32(c.y1 + side - 1)
		c.x1 = round32(c.x1)
		c.y1 = round32(c.y1)
	}
}

// padding is the border to add around a clipped crop so that it covers the
// full requested box.
type padding struct {
	top, bottom, left, right int
}

// clipBox intersects box with bounds and reports how much border is needed
// to restore the original box extent. ok is false when the two do not overlap.
func clipBox(box, bounds image.Rectangle) (inner image.Rectangle, pad padding, ok bool) {
	inner = box.Intersect(bounds)
	if inner.Empty() {
		return image.Rectangle{}, padding{}, false
	}

	pad = padding{
		top:    inner.Min.Y - box.Min.Y,
		bottom: box.Max.Y - inner.Max.Y,
		left:   inner.Min.X - box.Min.X,
		right:  box.Max.X - inner.Max.X,
	}
	return inner, pad, true
}

// toFace converts a candidate from transposed network space back to image
// space.
func (c candidate) toFace() Face {
	f := Face{
		Rect:   image.Rect(int(round32(c.y1)), int(round32(c.x1)), int(round32(c.y2)), int(round32(c.x2))),
		Score:  c.score,
		Coords: make([]float32, 2*PointCount),
	}
	for p := 0; p < PointCount; p++ {
		f.Coords[2*p] = c.pts[2*p+1]
		f.Coords[2*p+1] = c.pts[2*p]
	}
	return f
}

func round32(v float32) float32 {
	return float32(math.Round(float64(v)))
}
