package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// StillSource serves one decoded image as an endless sequence of frames.
type StillSource struct {
	path    string
	maxSide int
	frame   gocv.Mat
	mu      sync.Mutex
	running bool
}

// NewStillSource creates a source for the image at path. When maxSide is
// positive the image is shrunk so that neither side exceeds it.
func NewStillSource(path string, maxSide int) *StillSource {
	return &StillSource{path: path, maxSide: maxSide}
}

// Open decodes the image, honoring its EXIF orientation.
func (s *StillSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	img, err := imaging.Open(s.path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	frame, err := matFromImage(img, s.maxSide)
	if err != nil {
		return fmt.Errorf("convert %s: %w", s.path, err)
	}

	s.frame = frame
	s.running = true

	return nil
}

// matFromImage converts img to a BGR Mat, fitting it inside maxSide first.
func matFromImage(img image.Image, maxSide int) (gocv.Mat, error) {
	b := img.Bounds()
	if maxSide > 0 && (b.Dx() > maxSide || b.Dy() > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	return gocv.ImageToMatRGB(img)
}

// Close releases the decoded frame.
func (s *StillSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.frame.Close()
	}
	s.running = false

	return nil
}

// ReadFrame returns a copy of the decoded image.
func (s *StillSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrCameraNotOpen
	}

	frame := s.frame.Clone()
	return &frame, nil
}

// IsOpen returns true once the image has been decoded.
func (s *StillSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
