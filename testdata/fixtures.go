// Package testdata builds synthetic frames and images for tests.
package testdata

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// BlankFrame returns a black 8-bit BGR frame.
func BlankFrame(rows, cols int) *gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
	return &frame
}

// MovingSquare returns n frames showing a white square of the given side
// that moves step pixels to the right per frame.
func MovingSquare(n, rows, cols, side, step int) []*gocv.Mat {
	white := color.RGBA{R: 255, G: 255, B: 255}

	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		frame := BlankFrame(rows, cols)
		x := (i * step) % max(cols-side, 1)
		gocv.Rectangle(frame, image.Rect(x, rows/4, x+side, rows/4+side), white, -1)
		frames = append(frames, frame)
	}
	return frames
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}

// WriteGradient saves a w x h horizontal gray gradient under dir and returns
// its path. The format follows the file extension of name.
func WriteGradient(dir, name string, w, h int) (string, error) {
	img := imaging.New(w, h, color.Black)
	for x := 0; x < w; x++ {
		v := uint8(x * 255 / max(w-1, 1))
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}
