package segment

import (
	"gocv.io/x/gocv"
)

// MockSegmenter is a test implementation of the Segmenter interface. By
// default it reports no result; SetUniform makes it return a constant mask
// the size of each frame.
type MockSegmenter struct {
	value   float32
	uniform bool
	err     error
	calls   int
}

// NewMockSegmenter creates a segmenter that returns no mask.
func NewMockSegmenter() *MockSegmenter {
	return &MockSegmenter{}
}

// SetUniform makes Segment return a mask filled with v.
func (m *MockSegmenter) SetUniform(v float32) {
	m.value = v
	m.uniform = true
}

// SetNone makes Segment return no mask.
func (m *MockSegmenter) SetNone() {
	m.uniform = false
}

// SetError sets the error returned by Segment.
func (m *MockSegmenter) SetError(err error) {
	m.err = err
}

// Calls returns the number of Segment calls so far.
func (m *MockSegmenter) Calls() int {
	return m.calls
}

// Segment returns the configured mask or error.
func (m *MockSegmenter) Segment(frame *gocv.Mat) (*gocv.Mat, error) {
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if !m.uniform || frame == nil || frame.Empty() {
		return nil, nil
	}

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(m.value), 0, 0, 0),
		frame.Rows(), frame.Cols(), gocv.MatTypeCV32F)
	return &mask, nil
}

// Close is a no-op for the mock segmenter.
func (m *MockSegmenter) Close() error {
	return nil
}
