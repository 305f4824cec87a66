// Package detector provides hand detection interfaces and landmark types.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Connections lists the landmark pairs joined when drawing a hand skeleton.
var Connections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
	{Wrist, PinkyMCP},
}

// Point3D represents a landmark position. X and Y are normalized to the
// frame (0-1, Y growing downward); Z is MediaPipe's relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Sample holds the five landmarks the gesture recognizer looks at.
type Sample struct {
	IndexTip  Point3D `json:"index_tip"`
	MiddleTip Point3D `json:"middle_tip"`
	RingTip   Point3D `json:"ring_tip"`
	PinkyTip  Point3D `json:"pinky_tip"`
	Wrist     Point3D `json:"wrist"`
}

// Sample extracts the recognizer sample from a full hand.
// Returns nil for a nil hand.
func (h *HandLandmarks) Sample() *Sample {
	if h == nil {
		return nil
	}
	return &Sample{
		IndexTip:  h.Points[IndexTip],
		MiddleTip: h.Points[MiddleTip],
		RingTip:   h.Points[RingTip],
		PinkyTip:  h.Points[PinkyTip],
		Wrist:     h.Points[Wrist],
	}
}

// PrimaryHand returns the first detected hand, or nil if there is none.
// Only one hand drives gestures; additional hands are ignored.
func PrimaryHand(hands []HandLandmarks) *HandLandmarks {
	if len(hands) == 0 {
		return nil
	}
	return &hands[0]
}
