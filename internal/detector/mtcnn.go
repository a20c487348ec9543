package detector

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// Network input normalization: (pixel - 127.5) / 128.
const (
	pixelMean   = 127.5
	pixelInvStd = 0.0078125
)

// Overlap thresholds used between stages.
const (
	perScaleNMS = 0.5
	proposalNMS = 0.7
	refineNMS   = 0.7
	outputNMS   = 0.7
)

// Network layer names of the three Caffe models.
var (
	proposalOutputs = []string{"conv4-2", "prob1"}
	refineOutputs   = []string{"conv5-2", "prob1"}
	outputOutputs   = []string{"conv6-2", "conv6-3", "prob1"}
)

// MTCNN implements Detector with the three-stage multi-task cascaded
// convolutional network, run through OpenCV's dnn module.
type MTCNN struct {
	config   CascadeConfig
	proposal gocv.Net
	refine   gocv.Net
	output   gocv.Net
	closed   bool
	mu       sync.Mutex
}

// NewMTCNN loads the three stage networks described by config.
func NewMTCNN(config CascadeConfig) (*MTCNN, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var nets []gocv.Net
	for _, stage := range config.Stages() {
		net := gocv.ReadNetFromCaffe(stage.Proto, stage.Model)
		if net.Empty() {
			net.Close()
			for i := range nets {
				nets[i].Close()
			}
			return nil, fmt.Errorf("load %s network from %s", stage.Name, stage.Model)
		}
		nets = append(nets, net)
	}

	return &MTCNN{
		config:   config,
		proposal: nets[0],
		refine:   nets[1],
		output:   nets[2],
	}, nil
}

// PointCount returns the number of landmarks per face.
func (m *MTCNN) PointCount() int {
	return PointCount
}

// Detect runs the cascade over frame. An empty frame yields no faces.
func (m *MTCNN) Detect(frame *gocv.Mat, minFaceSize, scaleFactor float32) ([]Face, error) {
	if err := ValidateParams(minFaceSize, scaleFactor); err != nil {
		return nil, err
	}
	if frame == nil || frame.Empty() {
		return []Face{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("detector is closed")
	}

	img, err := networkInput(*frame)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	cands, err := m.runProposal(img, minFaceSize, scaleFactor)
	if err != nil {
		return nil, err
	}
	if len(cands) > 0 {
		cands, err = m.runRefine(img, cands)
		if err != nil {
			return nil, err
		}
	}
	if len(cands) > 0 {
		cands, err = m.runOutput(img, cands)
		if err != nil {
			return nil, err
		}
	}

	faces := make([]Face, len(cands))
	for i, c := range cands {
		faces[i] = c.toFace()
	}
	return faces, nil
}

// Close releases the loaded networks.
func (m *MTCNN) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for _, net := range []*gocv.Net{&m.proposal, &m.refine, &m.output} {
		if err := net.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// networkInput converts a BGR, BGRA or gray frame into the transposed
// 32-bit RGB image the networks were trained on.
func networkInput(frame gocv.Mat) (gocv.Mat, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()

	var code gocv.ColorConversionCode
	switch frame.Channels() {
	case 1:
		code = gocv.ColorGrayToBGR
	case 3:
		code = gocv.ColorBGRToRGB
	case 4:
		code = gocv.ColorBGRAToRGB
	default:
		return gocv.Mat{}, fmt.Errorf("unsupported channel count %d", frame.Channels())
	}
	if err := gocv.CvtColor(frame, &rgb, code); err != nil {
		return gocv.Mat{}, fmt.Errorf("convert to RGB: %w", err)
	}

	f32 := gocv.NewMat()
	defer f32.Close()
	if err := rgb.ConvertTo(&f32, gocv.MatTypeCV32F); err != nil {
		return gocv.Mat{}, fmt.Errorf("convert to float: %w", err)
	}

	transposed := gocv.NewMat()
	if err := gocv.Transpose(f32, &transposed); err != nil {
		transposed.Close()
		return gocv.Mat{}, fmt.Errorf("transpose: %w", err)
	}
	return transposed, nil
}

// runProposal scans the image pyramid with the proposal network.
func (m *MTCNN) runProposal(img gocv.Mat, minFaceSize, scaleFactor float32) ([]candidate, error) {
	threshold := m.config.Proposal.Threshold
	var all []candidate

	for _, scale := range pyramidScales(img.Cols(), img.Rows(), minFaceSize, scaleFactor) {
		w := int(math.Ceil(float64(img.Cols()) * float64(scale)))
		h := int(math.Ceil(float64(img.Rows()) * float64(scale)))

		resized := gocv.NewMat()
		if err := gocv.Resize(img, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationArea); err != nil {
			resized.Close()
			return nil, fmt.Errorf("resize to scale %.3f: %w", scale, err)
		}
		blob := gocv.BlobFromImage(resized, pixelInvStd, image.Point{},
			gocv.NewScalar(pixelMean, pixelMean, pixelMean, 0), false, false)
		resized.Close()

		m.proposal.SetInput(blob, "data")
		outs := m.proposal.ForwardLayers(proposalOutputs)
		blob.Close()

		cands, err := func() ([]candidate, error) {
			defer closeAll(outs)
			if len(outs) != len(proposalOutputs) {
				return nil, fmt.Errorf("proposal network returned %d outputs", len(outs))
			}
			reg, err := outs[0].DataPtrFloat32()
			if err != nil {
				return nil, fmt.Errorf("proposal regression: %w", err)
			}
			prob, err := outs[1].DataPtrFloat32()
			if err != nil {
				return nil, fmt.Errorf("proposal scores: %w", err)
			}
			dims := outs[1].Size()
			if len(dims) != 4 {
				return nil, fmt.Errorf("proposal scores have %d dimensions", len(dims))
			}
			return proposalCandidates(prob, reg, dims[3], dims[2], scale, threshold), nil
		}()
		if err != nil {
			return nil, err
		}

		all = append(all, nonMaxSuppression(cands, perScaleNMS, nmsUnion)...)
	}

	all = nonMaxSuppression(all, proposalNMS, nmsUnion)
	applyRegression(all, false)
	squareBoxes(all)
	return all, nil
}

// runRefine scores 24x24 crops of the proposals.
func (m *MTCNN) runRefine(img gocv.Mat, cands []candidate) ([]candidate, error) {
	outs, cands, err := forwardCrops(&m.refine, img, cands, 24, refineOutputs)
	if err != nil {
		return nil, fmt.Errorf("refine stage: %w", err)
	}
	if len(outs) == 0 {
		return nil, nil
	}
	defer closeAll(outs)

	reg, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("refine regression: %w", err)
	}
	prob, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("refine scores: %w", err)
	}

	threshold := m.config.Refine.Threshold
	kept := make([]candidate, 0, len(cands))
	for i, c := range cands {
		score := prob[2*i+1]
		if score < threshold {
			continue
		}
		c.score = score
		copy(c.reg[:], reg[4*i:4*i+4])
		kept = append(kept, c)
	}

	kept = nonMaxSuppression(kept, refineNMS, nmsUnion)
	applyRegression(kept, true)
	squareBoxes(kept)
	return kept, nil
}

// runOutput scores 48x48 crops and places the landmarks.
func (m *MTCNN) runOutput(img gocv.Mat, cands []candidate) ([]candidate, error) {
	outs, cands, err := forwardCrops(&m.output, img, cands, 48, outputOutputs)
	if err != nil {
		return nil, fmt.Errorf("output stage: %w", err)
	}
	if len(outs) == 0 {
		return nil, nil
	}
	defer closeAll(outs)

	reg, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("output regression: %w", err)
	}
	landmarks, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("output landmarks: %w", err)
	}
	prob, err := outs[2].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("output scores: %w", err)
	}

	threshold := m.config.Output.Threshold
	kept := make([]candidate, 0, len(cands))
	for i, c := range cands {
		score := prob[2*i+1]
		if score < threshold {
			continue
		}
		c.score = score
		copy(c.reg[:], reg[4*i:4*i+4])

		w, h := c.width(), c.height()
		lm := landmarks[2*PointCount*i : 2*PointCount*(i+1)]
		for p := 0; p < PointCount; p++ {
			c.pts[2*p] = c.x1 + lm[p+PointCount]*w - 1
			c.pts[2*p+1] = c.y1 + lm[p]*h - 1
		}
		kept = append(kept, c)
	}

	applyRegression(kept, true)
	return nonMaxSuppression(kept, outputNMS, nmsMin), nil
}

// forwardCrops crops every candidate out of img, resizes the crops to
// size x size and runs them through net as a single batch. Candidates whose
// box lies entirely outside the image are dropped; the returned slice lines
// up with the batch rows.
func forwardCrops(net *gocv.Net, img gocv.Mat, cands []candidate, size int, outputs []string) ([]gocv.Mat, []candidate, error) {
	bounds := image.Rect(0, 0, img.Cols(), img.Rows())

	crops := make([]gocv.Mat, 0, len(cands))
	kept := make([]candidate, 0, len(cands))
	defer func() { closeAll(crops) }()

	for _, c := range cands {
		crop, ok, err := cropPatch(img, c.rect(), bounds, size)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		crops = append(crops, crop)
		kept = append(kept, c)
	}
	if len(crops) == 0 {
		return nil, nil, nil
	}

	blob := gocv.NewMat()
	defer blob.Close()
	gocv.BlobFromImages(crops, &blob, pixelInvStd, image.Pt(size, size),
		gocv.NewScalar(pixelMean, pixelMean, pixelMean, 0), false, false, gocv.MatTypeCV32F)

	net.SetInput(blob, "data")
	outs := net.ForwardLayers(outputs)
	if len(outs) != len(outputs) {
		closeAll(outs)
		return nil, nil, fmt.Errorf("network returned %d outputs, want %d", len(outs), len(outputs))
	}
	return outs, kept, nil
}

// cropPatch extracts box from img, padding with black where the box leaves
// the image, and resizes the result to size x size. ok is false when the box
// lies entirely outside the image.
func cropPatch(img gocv.Mat, box, bounds image.Rectangle, size int) (gocv.Mat, bool, error) {
	inner, pad, ok := clipBox(box, bounds)
	if !ok {
		return gocv.Mat{}, false, nil
	}

	roi := img.Region(inner)
	defer roi.Close()

	padded := gocv.NewMat()
	defer padded.Close()
	if err := gocv.CopyMakeBorder(roi, &padded, pad.top, pad.bottom, pad.left, pad.right,
		gocv.BorderConstant, color.RGBA{}); err != nil {
		return gocv.Mat{}, false, fmt.Errorf("pad crop %v: %w", box, err)
	}

	out := gocv.NewMat()
	if err := gocv.Resize(padded, &out, image.Pt(size, size), 0, 0, gocv.InterpolationLinear); err != nil {
		out.Close()
		return gocv.Mat{}, false, fmt.Errorf("resize crop %v: %w", box, err)
	}
	return out, true, nil
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
