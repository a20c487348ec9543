package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// DetectCall records the arguments of one MockDetector.Detect invocation.
type DetectCall struct {
	Empty       bool
	MinFaceSize float32
	ScaleFactor float32
}

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	faces  []Face
	err    error
	points int
	calls  []DetectCall
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{points: PointCount}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []Face) {
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// SetPointCount overrides the reported landmark count.
func (m *MockDetector) SetPointCount(n int) {
	m.points = n
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat, minFaceSize, scaleFactor float32) ([]Face, error) {
	m.calls = append(m.calls, DetectCall{
		Empty:       frame == nil || frame.Empty(),
		MinFaceSize: minFaceSize,
		ScaleFactor: scaleFactor,
	})
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// PointCount returns the configured landmark count.
func (m *MockDetector) PointCount() int {
	return m.points
}

// Calls returns the recorded Detect invocations.
func (m *MockDetector) Calls() []DetectCall {
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

// SampleFace returns the face used throughout the tests: a 50x50 box at
// (10,10) with five landmarks inside it.
func SampleFace() Face {
	return NewFace(image.Rect(10, 10, 60, 60), 0.99,
		image.Pt(20, 20),
		image.Pt(30, 20),
		image.Pt(25, 30),
		image.Pt(20, 40),
		image.Pt(30, 40),
	)
}
