// Package segment estimates, per pixel, how likely the camera frame shows
// the person in front of it.
package segment

import (
	"gocv.io/x/gocv"
)

// Segmenter produces a foreground probability mask for a frame.
//
// The returned mask is a single-channel float32 Mat the size of the frame,
// with values in [0,1]. A nil mask with a nil error means the model had no
// result for this frame. The caller owns and closes the returned Mat.
type Segmenter interface {
	Segment(frame *gocv.Mat) (*gocv.Mat, error)
	Close() error
}
