// Package render draws the background picker strip, hand landmarks and the
// preview window.
package render

import (
	"image"
	"image/color"
)

// Strip geometry, in pixels.
const (
	ThumbWidth  = 100
	ThumbHeight = 70
	Padding     = 15
	ButtonWidth = 30
	// Visible is the number of thumbnails shown at once.
	Visible = 3

	StripHeight = ThumbHeight + 2*Padding
	StripWidth  = Visible*ThumbWidth + 2*Padding + 2*ButtonWidth + 4*Padding
)

// Border styles, as BGR-mapped colours for gocv.
var (
	FocusColor  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	ActiveColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	PlainColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ButtonColor = color.RGBA{R: 70, G: 70, B: 70, A: 255}
)

// StartIndex returns the first slot shown in the strip so that focus sits
// in the middle whenever count allows it.
func StartIndex(focus, count int) int {
	if count <= Visible {
		return 1
	}
	return max(1, min(focus-1, count-2))
}

// Border returns the outline for slot idx. The active background wins over
// the focused one.
func Border(idx, focus, active int) (color.RGBA, int) {
	switch idx {
	case active:
		return ActiveColor, 5
	case focus:
		return FocusColor, 4
	default:
		return PlainColor, 2
	}
}

// Layout is the position of every strip element inside a frame.
type Layout struct {
	Strip  image.Rectangle
	Left   image.Rectangle
	Right  image.Rectangle
	Thumbs [Visible]image.Rectangle
}

// StripLayout centres the strip along the bottom edge of a frame. It
// reports false when the frame is too small to hold it.
func StripLayout(frameWidth, frameHeight int) (Layout, bool) {
	if frameWidth < StripWidth || frameHeight < StripHeight {
		return Layout{}, false
	}

	var l Layout
	y1 := frameHeight - StripHeight
	l.Strip = image.Rect(0, y1, frameWidth, frameHeight)

	y := y1 + Padding
	x := frameWidth/2 - StripWidth/2

	l.Left = image.Rect(x, y, x+ButtonWidth, y+ThumbHeight)
	x += ButtonWidth + Padding

	for i := range l.Thumbs {
		l.Thumbs[i] = image.Rect(x, y, x+ThumbWidth, y+ThumbHeight)
		x += ThumbWidth + Padding
	}

	l.Right = image.Rect(x, y, x+ButtonWidth, y+ThumbHeight)

	return l, true
}
