package render

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/backdrop/internal/catalog"
	"github.com/ayusman/backdrop/internal/detector"
	"github.com/ayusman/backdrop/internal/selection"
)

// StripAlpha is the weight of the darkening layer behind the strip.
const StripAlpha = 0.5

// Overlay draws the picker strip onto output frames. Thumbnails are
// scaled once per slot and cached.
type Overlay struct {
	catalog *catalog.Catalog
	mu      sync.Mutex
	thumbs  map[int]gocv.Mat
}

// NewOverlay creates an overlay for the backgrounds in cat.
func NewOverlay(cat *catalog.Catalog) *Overlay {
	return &Overlay{
		catalog: cat,
		thumbs:  make(map[int]gocv.Mat),
	}
}

// Draw renders the strip for snap onto frame in place. Nothing is drawn
// while the live feed is active or when the frame cannot hold the strip.
func (o *Overlay) Draw(frame *gocv.Mat, snap selection.Snapshot) {
	if snap.Live || frame == nil || frame.Empty() {
		return
	}

	layout, ok := StripLayout(frame.Cols(), frame.Rows())
	if !ok {
		return
	}

	darken(frame, layout.Strip)

	drawButton(frame, layout.Left, "<")

	start := StartIndex(snap.Focus, snap.Count)
	for i, rect := range layout.Thumbs {
		idx := start + i
		if idx > snap.Count {
			break
		}

		if thumb, ok := o.thumbnail(idx); ok {
			roi := frame.Region(rect)
			thumb.CopyTo(&roi)
			roi.Close()
		}

		c, thickness := Border(idx, snap.Focus, snap.Active)
		gocv.Rectangle(frame, rect, c, thickness)
	}

	drawButton(frame, layout.Right, ">")
}

// Close releases the cached thumbnails.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for idx, m := range o.thumbs {
		m.Close()
		delete(o.thumbs, idx)
	}
}

func (o *Overlay) thumbnail(idx int) (gocv.Mat, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if m, ok := o.thumbs[idx]; ok {
		return m, true
	}

	bg, err := o.catalog.At(idx)
	if err != nil || bg.Image.Empty() {
		return gocv.Mat{}, false
	}

	m := gocv.NewMat()
	gocv.Resize(bg.Image, &m, image.Pt(ThumbWidth, ThumbHeight), 0, 0, gocv.InterpolationArea)
	o.thumbs[idx] = m

	return m, true
}

// darken blends rect of frame halfway towards black.
func darken(frame *gocv.Mat, rect image.Rectangle) {
	roi := frame.Region(rect)
	defer roi.Close()

	black := gocv.NewMatWithSize(roi.Rows(), roi.Cols(), roi.Type())
	defer black.Close()
	black.SetTo(gocv.NewScalar(0, 0, 0, 0))

	gocv.AddWeighted(black, StripAlpha, roi, 1-StripAlpha, 0, &roi)
}

func drawButton(frame *gocv.Mat, rect image.Rectangle, label string) {
	gocv.Rectangle(frame, rect, ButtonColor, -1)
	gocv.PutText(frame, label, image.Pt(rect.Min.X+8, rect.Max.Y-20),
		gocv.FontHersheySimplex, 1, PlainColor, 2)
}

// LandmarkColor and JointColor style the hand skeleton.
var (
	LandmarkColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	JointColor    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// DrawLandmarks draws the hand skeleton over frame in place.
func DrawLandmarks(frame *gocv.Mat, hand *detector.HandLandmarks) {
	if hand == nil || frame == nil || frame.Empty() {
		return
	}

	w, h := frame.Cols(), frame.Rows()
	pixel := func(i int) image.Point {
		p := hand.Points[i]
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, c := range detector.Connections {
		gocv.Line(frame, pixel(c[0]), pixel(c[1]), LandmarkColor, 2)
	}
	for i := range hand.Points {
		gocv.Circle(frame, pixel(i), 4, JointColor, -1)
	}
}
