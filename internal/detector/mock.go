package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns either a fixed set of hands or, when a script is set, one
// scripted entry per Detect call.
type MockDetector struct {
	hands  []HandLandmarks
	script [][]HandLandmarks
	calls  int
	err    error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
	m.script = nil
}

// SetScript makes the n-th Detect call return script[n]. A nil entry means
// no hand in that frame. Once the script runs out Detect returns no hands.
func (m *MockDetector) SetScript(script [][]HandLandmarks) {
	m.script = script
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns the number of Detect calls so far.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	call := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if m.script != nil {
		if call >= len(m.script) {
			return nil, nil
		}
		return m.script[call], nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Hands wraps a single hand for SetHands and SetScript.
func Hands(h HandLandmarks) []HandLandmarks {
	return []HandLandmarks{h}
}

// PointingUpLandmarks returns a hand with only the index finger raised,
// centred horizontally at x. The index tip is the highest point of the
// hand, which is the select pose.
func PointingUpLandmarks(x float64) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: x, Y: 0.85, Z: 0.0}

	// Thumb tucked across the palm
	landmarks.Points[ThumbCMC] = Point3D{X: x + 0.04, Y: 0.80, Z: -0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: x + 0.06, Y: 0.74, Z: -0.02}
	landmarks.Points[ThumbIP] = Point3D{X: x + 0.03, Y: 0.70, Z: -0.03}
	landmarks.Points[ThumbTip] = Point3D{X: x, Y: 0.69, Z: -0.03}

	// Index finger straight up
	landmarks.Points[IndexMCP] = Point3D{X: x + 0.03, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: x + 0.03, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: x + 0.03, Y: 0.46, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: x + 0.03, Y: 0.38, Z: 0.0}

	// Remaining fingers curled into the palm
	landmarks.Points[MiddleMCP] = Point3D{X: x, Y: 0.67, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: x, Y: 0.63, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: x, Y: 0.67, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: x, Y: 0.70, Z: -0.02}

	landmarks.Points[RingMCP] = Point3D{X: x - 0.03, Y: 0.68, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: x - 0.03, Y: 0.65, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: x - 0.03, Y: 0.69, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: x - 0.03, Y: 0.72, Z: -0.02}

	landmarks.Points[PinkyMCP] = Point3D{X: x - 0.06, Y: 0.70, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: x - 0.06, Y: 0.68, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: x - 0.06, Y: 0.71, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: x - 0.06, Y: 0.74, Z: -0.02}

	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm
// centred horizontally at x. The middle finger is the highest point, so the
// pose never selects; it is the pose used for swiping.
func OpenPalmLandmarks(x float64) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: x, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: x + 0.05, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: x + 0.12, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: x + 0.18, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: x + 0.23, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: x + 0.05, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: x + 0.07, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: x + 0.08, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: x + 0.08, Y: 0.35, Z: 0.0}

	// Middle finger is the longest
	landmarks.Points[MiddleMCP] = Point3D{X: x, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: x, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: x, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: x, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: x - 0.05, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: x - 0.07, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: x - 0.08, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: x - 0.08, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: x - 0.10, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: x - 0.13, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: x - 0.15, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: x - 0.16, Y: 0.42, Z: 0.0}

	return landmarks
}
