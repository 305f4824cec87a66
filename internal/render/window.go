package render

import (
	"gocv.io/x/gocv"
)

// WindowTitle is the title of the preview window.
const WindowTitle = "Backdrop"

// QuitKey closes the preview window.
const QuitKey = 'q'

// Window shows output frames on screen.
type Window struct {
	window *gocv.Window
}

// NewWindow opens the preview window.
func NewWindow() *Window {
	return &Window{window: gocv.NewWindow(WindowTitle)}
}

// Show displays frame and polls the keyboard for a few milliseconds.
// It reports whether the quit key was pressed.
func (w *Window) Show(frame gocv.Mat) bool {
	w.window.IMShow(frame)
	return w.window.WaitKey(5)&0xFF == QuitKey
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}
