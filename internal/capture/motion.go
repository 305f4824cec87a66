package capture

import (
	"image"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Capture pacing.
const (
	// IdleFPS is the capture rate while the scene is still.
	IdleFPS = 10
	// ActiveFPS is the capture rate while something moves.
	ActiveFPS = 30
	// IdleTimeout is how long the scene must stay still before dropping
	// back to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// MotionDetector reports how much of the frame changed since the previous
// one, using blurred grayscale frame differencing.
type MotionDetector struct {
	threshold float64
	prevGray  gocv.Mat
	mu        sync.Mutex
}

// NewMotionDetector creates a detector that reports motion when more than
// threshold percent of the pixels change. Non-positive thresholds use 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = 1.0
	}
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion
// was detected and the percentage of pixels that changed. The first frame,
// and any frame of a different size than its predecessor, only sets the
// baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	prev := m.prevGray
	m.prevGray = blurred
	defer prev.Close()

	if prev.Empty() || prev.Rows() != blurred.Rows() || prev.Cols() != blurred.Cols() {
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, prev, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changePercent := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0

	return changePercent > m.threshold, changePercent
}

// Threshold returns the motion threshold in percent.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// SetThreshold sets the motion detection threshold.
// Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prevGray.Close()
	m.prevGray = gocv.NewMat()
}

// Close releases resources used by the motion detector. The detector may
// still be used afterwards; it starts from a new baseline.
func (m *MotionDetector) Close() {
	m.Reset()
}

// Pacer switches a camera between IdleFPS and ActiveFPS depending on
// scene motion. It only chooses how often frames are read; every frame
// read is still processed in full.
type Pacer struct {
	camera     Camera
	motion     *MotionDetector
	active     bool
	lastMotion time.Time
	now        func() time.Time
}

// NewPacer paces camera using motion. The camera starts in idle mode.
func NewPacer(camera Camera, motion *MotionDetector) *Pacer {
	p := &Pacer{
		camera: camera,
		motion: motion,
		now:    time.Now,
	}
	camera.SetFPS(IdleFPS)
	return p
}

// Observe feeds one frame to the motion detector and updates the capture
// rate. It reports whether the mode changed.
func (p *Pacer) Observe(frame *gocv.Mat) bool {
	moving, _ := p.motion.Detect(frame)
	now := p.now()

	if moving {
		p.lastMotion = now
		if !p.active {
			p.active = true
			p.camera.SetFPS(ActiveFPS)
			log.Println("Switched to active capture")
			return true
		}
		return false
	}

	if p.active && now.Sub(p.lastMotion) > IdleTimeout {
		p.active = false
		p.camera.SetFPS(IdleFPS)
		log.Println("Switched to idle capture")
		return true
	}

	return false
}

// Active reports whether the pacer is in active mode.
func (p *Pacer) Active() bool {
	return p.active
}

// Interval returns the time between frame reads for the current mode.
func (p *Pacer) Interval() time.Duration {
	if p.active {
		return time.Second / ActiveFPS
	}
	return time.Second / IdleFPS
}
