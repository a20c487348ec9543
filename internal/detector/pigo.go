package detector

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	pigo "github.com/esimov/pigo/core"
	"gocv.io/x/gocv"
)

// Pigo cascade file names inside the cascade directory.
const (
	pigoFaceCascade  = "facefinder"
	pigoPupilCascade = "puploc"
	pigoNoseCascade  = "lp93"
	pigoMouthCascade = "lp84"
	pigoLandmarkDir  = "lps"
)

// PigoConfig holds configuration options for the pigo backend.
type PigoConfig struct {
	// CascadeDir contains facefinder, puploc and the lps/ landmark cascades.
	CascadeDir string

	// MinQuality is the minimum detection score a face must reach.
	MinQuality float32

	// ShiftFactor is the sliding window step relative to the window size.
	ShiftFactor float64

	// IoUThreshold controls how overlapping detections are clustered.
	IoUThreshold float64

	// Perturbs is the number of perturbations run by the localizers.
	Perturbs int
}

// DefaultPigoConfig returns a PigoConfig with sensible default values.
func DefaultPigoConfig(cascadeDir string) PigoConfig {
	return PigoConfig{
		CascadeDir:   cascadeDir,
		MinQuality:   5.0,
		ShiftFactor:  0.1,
		IoUThreshold: 0.2,
		Perturbs:     63,
	}
}

// Pigo implements Detector with pixel intensity comparison cascades. It
// needs no native inference runtime beyond what gocv already links.
type Pigo struct {
	config PigoConfig
	face   *pigo.Pigo
	pupil  *pigo.PuplocCascade
	nose   *pigo.PuplocCascade
	mouth  *pigo.PuplocCascade
	mu     sync.Mutex
}

// NewPigo unpacks the cascades found in config.CascadeDir.
func NewPigo(config PigoConfig) (*Pigo, error) {
	faceData, err := os.ReadFile(filepath.Join(config.CascadeDir, pigoFaceCascade))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingModel, err)
	}
	face, err := pigo.NewPigo().Unpack(faceData)
	if err != nil {
		return nil, fmt.Errorf("unpack face cascade: %w", err)
	}

	pupilData, err := os.ReadFile(filepath.Join(config.CascadeDir, pigoPupilCascade))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingModel, err)
	}
	plc := &pigo.PuplocCascade{}
	pupil, err := plc.UnpackCascade(pupilData)
	if err != nil {
		return nil, fmt.Errorf("unpack pupil cascade: %w", err)
	}

	nose, err := plc.UnpackFlp(filepath.Join(config.CascadeDir, pigoLandmarkDir, pigoNoseCascade))
	if err != nil {
		return nil, fmt.Errorf("%w: nose cascade: %v", ErrMissingModel, err)
	}
	mouth, err := plc.UnpackFlp(filepath.Join(config.CascadeDir, pigoLandmarkDir, pigoMouthCascade))
	if err != nil {
		return nil, fmt.Errorf("%w: mouth cascade: %v", ErrMissingModel, err)
	}

	return &Pigo{
		config: config,
		face:   face,
		pupil:  pupil,
		nose:   nose,
		mouth:  mouth,
	}, nil
}

// PointCount returns the number of landmarks per face.
func (p *Pigo) PointCount() int {
	return PointCount
}

// Detect finds faces in frame and localizes the five landmarks of each.
func (p *Pigo) Detect(frame *gocv.Mat, minFaceSize, scaleFactor float32) ([]Face, error) {
	if err := ValidateParams(minFaceSize, scaleFactor); err != nil {
		return nil, err
	}
	if frame == nil || frame.Empty() {
		return []Face{}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	params, err := grayParams(*frame)
	if err != nil {
		return nil, err
	}

	dets := p.face.RunCascade(pigo.CascadeParams{
		MinSize:     int(minFaceSize),
		MaxSize:     max(params.Rows, params.Cols),
		ShiftFactor: p.config.ShiftFactor,
		ScaleFactor: 1 / float64(scaleFactor),
		ImageParams: params,
	}, 0.0)
	dets = p.face.ClusterDetections(dets, p.config.IoUThreshold)

	faces := make([]Face, 0, len(dets))
	for _, d := range dets {
		if d.Q < p.config.MinQuality {
			continue
		}
		faces = append(faces, p.landmarks(d, params))
	}
	return faces, nil
}

// landmarks localizes the pupils first and derives nose and mouth corners
// from them.
func (p *Pigo) landmarks(d pigo.Detection, params pigo.ImageParams) Face {
	half := d.Scale / 2
	rect := image.Rect(d.Col-half, d.Row-half, d.Col+half, d.Row+half)

	eye := pigo.Puploc{
		Row:      d.Row - int(0.075*float32(d.Scale)),
		Col:      d.Col - int(0.175*float32(d.Scale)),
		Scale:    float32(d.Scale) * 0.25,
		Perturbs: p.config.Perturbs,
	}
	leftEye := p.pupil.RunDetector(eye, params, 0.0, false)

	eye.Col = d.Col + int(0.185*float32(d.Scale))
	rightEye := p.pupil.RunDetector(eye, params, 0.0, false)

	nose := p.nose.GetLandmarkPoint(leftEye, rightEye, params, p.config.Perturbs, false)
	mouthA := p.mouth.GetLandmarkPoint(leftEye, rightEye, params, p.config.Perturbs, false)
	mouthB := p.mouth.GetLandmarkPoint(leftEye, rightEye, params, p.config.Perturbs, true)

	leftMouth, rightMouth := mouthCorners(mouthA, mouthB)

	return NewFace(rect, d.Q,
		puplocPoint(leftEye),
		puplocPoint(rightEye),
		puplocPoint(nose),
		leftMouth,
		rightMouth,
	)
}

// mouthCorners orders the two mouth localizations left to right in image
// coordinates, whichever flip produced them.
func mouthCorners(a, b *pigo.Puploc) (left, right image.Point) {
	left, right = puplocPoint(a), puplocPoint(b)
	if right.X < left.X {
		left, right = right, left
	}
	return left, right
}

// puplocPoint converts a localization to a pixel; a missing one maps to the
// origin.
func puplocPoint(pl *pigo.Puploc) image.Point {
	if pl == nil {
		return image.Point{}
	}
	return image.Pt(pl.Col, pl.Row)
}

// grayParams converts frame to the 8-bit grayscale buffer pigo works on.
func grayParams(frame gocv.Mat) (pigo.ImageParams, error) {
	gray := gocv.NewMat()
	defer gray.Close()

	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 3:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRAToGray)
	default:
		return pigo.ImageParams{}, fmt.Errorf("unsupported channel count %d", frame.Channels())
	}

	if gray.Type() != gocv.MatTypeCV8U {
		converted := gocv.NewMat()
		defer converted.Close()
		gray.ConvertTo(&converted, gocv.MatTypeCV8U)
		converted.CopyTo(&gray)
	}

	return pigo.ImageParams{
		Pixels: gray.ToBytes(),
		Rows:   gray.Rows(),
		Cols:   gray.Cols(),
		Dim:    gray.Cols(),
	}, nil
}

// Close is a no-op; the cascades live in Go memory.
func (p *Pigo) Close() error {
	return nil
}
