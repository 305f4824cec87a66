// Package gesture turns per-frame hand landmark samples into discrete
// navigation events.
package gesture

import (
	"math"

	"github.com/ayusman/backdrop/internal/detector"
)

// Event is the gesture recognized in a single frame.
type Event string

const (
	// None means no gesture was recognized.
	None Event = "none"
	// SwipeLeft is a fast leftward movement of the index finger tip.
	SwipeLeft Event = "swipe_left"
	// SwipeRight is a fast rightward movement of the index finger tip.
	SwipeRight Event = "swipe_right"
	// Select is the index finger raised above the other fingertips and the wrist.
	Select Event = "select"
)

// String implements fmt.Stringer.
func (e Event) String() string {
	return string(e)
}

// Config holds recognizer thresholds.
type Config struct {
	// SwipeThreshold is the horizontal index tip movement between two
	// consecutive frames, in pixels, needed to register a swipe.
	SwipeThreshold int `json:"swipe_threshold"`

	// SelectThreshold is a normalized depth reserved for confirming a
	// selection by pushing the finger toward the camera. It is carried
	// through configuration but not consulted by DetectSelect yet.
	SelectThreshold float64 `json:"select_threshold"`
}

// DefaultConfig returns the recognizer defaults.
func DefaultConfig() Config {
	return Config{
		SwipeThreshold:  70,
		SelectThreshold: 0.8,
	}
}

// Recognizer detects swipes and selections for one tracked hand.
// It is not safe for concurrent use.
type Recognizer struct {
	config    Config
	previousX int
	tracking  bool
}

// NewRecognizer creates a Recognizer. A non-positive swipe threshold falls
// back to the default.
func NewRecognizer(config Config) *Recognizer {
	if config.SwipeThreshold <= 0 {
		config.SwipeThreshold = DefaultConfig().SwipeThreshold
	}
	return &Recognizer{config: config}
}

// Config returns the recognizer's configuration.
func (r *Recognizer) Config() Config {
	return r.config
}

// DetectSwipe compares the index tip's pixel x against the previous frame.
// A nil sample means the hand was lost and clears the tracked position; the
// first sample after that only starts tracking, so no swipe fires on the
// frame a hand appears. The tracked position follows the hand every frame,
// whether or not a swipe fired.
func (r *Recognizer) DetectSwipe(sample *detector.Sample, width, height int) Event {
	if sample == nil {
		r.Reset()
		return None
	}

	currentX := int(math.Round(sample.IndexTip.X * float64(width)))

	if !r.tracking {
		r.previousX = currentX
		r.tracking = true
		return None
	}

	deltaX := currentX - r.previousX
	r.previousX = currentX

	switch {
	case deltaX > r.config.SwipeThreshold:
		return SwipeRight
	case deltaX < -r.config.SwipeThreshold:
		return SwipeLeft
	default:
		return None
	}
}

// DetectSelect reports Select while the index tip is strictly higher in the
// frame (smaller y) than the middle, ring and pinky tips and the wrist.
// It fires on every frame the pose is held.
func (r *Recognizer) DetectSelect(sample *detector.Sample, width, height int) Event {
	if sample == nil {
		return None
	}

	y := sample.IndexTip.Y
	if y < sample.MiddleTip.Y &&
		y < sample.RingTip.Y &&
		y < sample.PinkyTip.Y &&
		y < sample.Wrist.Y {
		return Select
	}

	return None
}

// Reset forgets the tracked position, as if the hand had left the frame.
func (r *Recognizer) Reset() {
	r.previousX = 0
	r.tracking = false
}

// PreviousX returns the tracked index tip pixel x, if any.
func (r *Recognizer) PreviousX() (int, bool) {
	return r.previousX, r.tracking
}
