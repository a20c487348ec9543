package detector

import (
	"image"
	"math"
	"testing"
)

const epsilon = 1e-4

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < epsilon
}

func TestPyramidScales(t *testing.T) {
	t.Run("halving pyramid", func(t *testing.T) {
		scales := pyramidScales(100, 100, 20, 0.5)

		want := []float32{0.6, 0.3, 0.15}
		if len(scales) != len(want) {
			t.Fatalf("expected %d scales, got %v", len(want), scales)
		}
		for i := range want {
			if !approx(scales[i], want[i]) {
				t.Errorf("scale %d = %f, want %f", i, scales[i], want[i])
			}
		}
	})

	t.Run("uses the short side", func(t *testing.T) {
		scales := pyramidScales(640, 480, 20, 0.709)

		if len(scales) != 10 {
			t.Errorf("expected 10 scales, got %d", len(scales))
		}
		for i := 1; i < len(scales); i++ {
			if scales[i] >= scales[i-1] {
				t.Errorf("scales should be decreasing: %v", scales)
			}
		}
	})

	t.Run("face larger than image", func(t *testing.T) {
		if scales := pyramidScales(10, 10, 20, 0.709); len(scales) != 0 {
			t.Errorf("expected no scales, got %v", scales)
		}
	})
}

func TestProposalCandidates(t *testing.T) {
	// 2x2 map: background channel then face channel.
	prob := []float32{
		0.9, 0.1, 0.8, 0.2,
		0.1, 0.9, 0.2, 0.8,
	}
	reg := make([]float32, 16)
	for i := range reg {
		reg[i] = float32(i) / 100
	}

	t.Run("keeps cells above threshold", func(t *testing.T) {
		cands := proposalCandidates(prob, reg, 2, 2, 1, 0.6)

		if len(cands) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(cands))
		}

		c := cands[0]
		if c.x1 != 2 || c.y1 != 0 || c.x2 != 13 || c.y2 != 11 {
			t.Errorf("unexpected box (%v,%v,%v,%v)", c.x1, c.y1, c.x2, c.y2)
		}
		if c.score != 0.9 {
			t.Errorf("score = %f, want 0.9", c.score)
		}
		wantReg := [4]float32{0.01, 0.05, 0.09, 0.13}
		for i := range wantReg {
			if !approx(c.reg[i], wantReg[i]) {
				t.Errorf("reg[%d] = %f, want %f", i, c.reg[i], wantReg[i])
			}
		}

		if cands[1].x1 != 2 || cands[1].y1 != 2 {
			t.Errorf("second candidate at (%v,%v), want (2,2)", cands[1].x1, cands[1].y1)
		}
	})

	t.Run("maps back through the scale", func(t *testing.T) {
		cands := proposalCandidates(prob, reg, 2, 2, 0.5, 0.85)

		if len(cands) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(cands))
		}
		if cands[0].x1 != 4 || cands[0].x2 != 26 {
			t.Errorf("unexpected x range %v..%v", cands[0].x1, cands[0].x2)
		}
	})

	t.Run("short buffers", func(t *testing.T) {
		if cands := proposalCandidates(prob[:4], reg, 2, 2, 1, 0.5); cands != nil {
			t.Errorf("expected nil, got %v", cands)
		}
	})
}

func TestOverlap(t *testing.T) {
	a := candidate{x1: 0, y1: 0, x2: 9, y2: 9}
	b := candidate{x1: 5, y1: 0, x2: 14, y2: 9}
	far := candidate{x1: 50, y1: 50, x2: 59, y2: 59}

	tests := []struct {
		name string
		a, b candidate
		mode nmsMode
		want float32
	}{
		{"identical union", a, a, nmsUnion, 1},
		{"half union", a, b, nmsUnion, 1.0 / 3.0},
		{"half min", a, b, nmsMin, 0.5},
		{"disjoint", a, far, nmsUnion, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlap(tt.a, tt.b, tt.mode); !approx(got, tt.want) {
				t.Errorf("overlap = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNonMaxSuppression(t *testing.T) {
	cands := []candidate{
		{x1: 50, y1: 50, x2: 59, y2: 59, score: 0.7},
		{x1: 1, y1: 1, x2: 10, y2: 10, score: 0.8},
		{x1: 0, y1: 0, x2: 9, y2: 9, score: 0.9},
	}

	t.Run("suppresses overlapping lower scores", func(t *testing.T) {
		kept := nonMaxSuppression(cands, 0.5, nmsUnion)

		if len(kept) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(kept))
		}
		if kept[0].score != 0.9 || kept[1].score != 0.7 {
			t.Errorf("unexpected order: %v, %v", kept[0].score, kept[1].score)
		}
	})

	t.Run("high threshold keeps everything sorted", func(t *testing.T) {
		kept := nonMaxSuppression(cands, 0.9, nmsUnion)

		if len(kept) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(kept))
		}
		for i := 1; i < len(kept); i++ {
			if kept[i].score > kept[i-1].score {
				t.Errorf("result not sorted by score: %v", kept)
			}
		}
	})

	t.Run("does not reorder the input", func(t *testing.T) {
		nonMaxSuppression(cands, 0.5, nmsUnion)

		if cands[0].score != 0.7 || cands[2].score != 0.9 {
			t.Error("input slice was modified")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if kept := nonMaxSuppression(nil, 0.5, nmsUnion); kept != nil {
			t.Errorf("expected nil, got %v", kept)
		}
	})
}

func TestApplyRegression(t *testing.T) {
	reg := [4]float32{0.1, 0.2, 0.3, 0.4}

	t.Run("inclusive size", func(t *testing.T) {
		cands := []candidate{{x1: 0, y1: 0, x2: 9, y2: 19, reg: reg}}
		applyRegression(cands, true)

		c := cands[0]
		if !approx(c.x1, 2) || !approx(c.y1, 2) || !approx(c.x2, 13) || !approx(c.y2, 25) {
			t.Errorf("unexpected box (%v,%v,%v,%v)", c.x1, c.y1, c.x2, c.y2)
		}
	})

	t.Run("exclusive size", func(t *testing.T) {
		cands := []candidate{{x1: 0, y1: 0, x2: 9, y2: 19, reg: reg}}
		applyRegression(cands, false)

		c := cands[0]
		if !approx(c.x1, 1.8) || !approx(c.y1, 1.9) || !approx(c.x2, 12.6) || !approx(c.y2, 24.7) {
			t.Errorf("unexpected box (%v,%v,%v,%v)", c.x1, c.y1, c.x2, c.y2)
		}
	})
}

func TestSquareBoxes(t *testing.T) {
	cands := []candidate{{x1: 0, y1: 0, x2: 10, y2: 20}}
	squareBoxes(cands)

	c := cands[0]
	if c.x1 != -5 || c.y1 != 0 || c.x2 != 14 || c.y2 != 19 {
		t.Errorf("unexpected box (%v,%v,%v,%v)", c.x1, c.y1, c.x2, c.y2)
	}
	if c.x2-c.x1 != c.y2-c.y1 {
		t.Error("box is not square")
	}
}

func TestClipBox(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	t.Run("box crossing the top left corner", func(t *testing.T) {
		inner, pad, ok := clipBox(image.Rect(-5, -3, 10, 10), bounds)

		if !ok {
			t.Fatal("expected overlap")
		}
		if inner != image.Rect(0, 0, 10, 10) {
			t.Errorf("inner = %v", inner)
		}
		if pad != (padding{top: 3, bottom: 0, left: 5, right: 0}) {
			t.Errorf("pad = %+v", pad)
		}
	})

	t.Run("box crossing the bottom right corner", func(t *testing.T) {
		_, pad, ok := clipBox(image.Rect(90, 95, 110, 105), bounds)

		if !ok {
			t.Fatal("expected overlap")
		}
		if pad != (padding{bottom: 5, right: 10}) {
			t.Errorf("pad = %+v", pad)
		}
	})

	t.Run("box outside", func(t *testing.T) {
		if _, _, ok := clipBox(image.Rect(200, 200, 210, 210), bounds); ok {
			t.Error("expected no overlap")
		}
	})
}

func TestCandidate_ToFace(t *testing.T) {
	c := candidate{x1: 1, y1: 2, x2: 11, y2: 22, score: 0.95}
	for p := 0; p < PointCount; p++ {
		c.pts[2*p] = float32(10 + p)
		c.pts[2*p+1] = float32(20 + p)
	}

	face := c.toFace()

	if face.Rect != image.Rect(2, 1, 22, 11) {
		t.Errorf("Rect = %v, want transposed (2,1)-(22,11)", face.Rect)
	}
	if face.NumPoints() != PointCount {
		t.Fatalf("expected %d points, got %d", PointCount, face.NumPoints())
	}
	if got := face.Point(0); got != image.Pt(20, 10) {
		t.Errorf("point 0 = %v, want (20,10)", got)
	}
	if got := face.Point(4); got != image.Pt(24, 14) {
		t.Errorf("point 4 = %v, want (24,14)", got)
	}
}
