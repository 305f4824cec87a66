// Package app wires capture, hand tracking, selection and compositing into
// the Backdrop frame loop.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/backdrop/internal/capture"
	"github.com/ayusman/backdrop/internal/catalog"
	"github.com/ayusman/backdrop/internal/detector"
	"github.com/ayusman/backdrop/internal/gesture"
	"github.com/ayusman/backdrop/internal/render"
	"github.com/ayusman/backdrop/internal/segment"
	"github.com/ayusman/backdrop/internal/selection"
	"github.com/ayusman/backdrop/internal/server"
	"github.com/ayusman/backdrop/internal/store"
)

// StatePublisher receives the selection state after every change.
type StatePublisher interface {
	PublishState(server.State)
}

// StatePublisherFunc adapts a function to StatePublisher.
type StatePublisherFunc func(server.State)

// PublishState calls f(s).
func (f StatePublisherFunc) PublishState(s server.State) { f(s) }

// FramePublisher receives every composited output frame.
type FramePublisher interface {
	PublishFrame(frame gocv.Mat) error
}

// EventRecorder journals gestures that changed the selection.
type EventRecorder interface {
	Create(e *store.Event) error
}

// Display shows output frames and reports whether the user asked to quit.
type Display interface {
	Show(frame gocv.Mat) bool
	Close() error
}

// Deps holds the collaborators of an App. Catalog is required; a nil
// Camera, Detector or Segmenter is replaced by the real implementation
// built from Config, and the rest are optional.
//
// NewDisplay is called by Run on the frame loop goroutine, which stays
// locked to its OS thread while the display is open.
type Deps struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Segmenter  segment.Segmenter
	Catalog    *catalog.Catalog
	Events     EventRecorder
	State      []StatePublisher
	Frames     FramePublisher
	NewDisplay func() Display
}

// App is the main application: it reads frames, turns hand landmarks into
// gestures, drives the selection machine and composites the output.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	pacer      *capture.Pacer
	detector   detector.Detector
	segmenter  segment.Segmenter
	catalog    *catalog.Catalog
	recognizer *gesture.Recognizer
	machine    *selection.Machine
	overlay    *render.Overlay
	events     EventRecorder
	state      []StatePublisher
	frames     FramePublisher
	newDisplay func() Display
	display    Display

	enabled bool
	latest  selection.Snapshot
	mu      sync.RWMutex
}

// New creates an App. Gesture control starts enabled.
func New(config Config, deps Deps) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Catalog == nil {
		return nil, errors.New("app needs a background catalog")
	}

	machine, err := selection.New(deps.Catalog.Count())
	if err != nil {
		return nil, err
	}

	motion := capture.NewMotionDetector(config.MotionThresh)

	a := &App{
		config:     config,
		camera:     deps.Camera,
		motion:     motion,
		detector:   deps.Detector,
		segmenter:  deps.Segmenter,
		catalog:    deps.Catalog,
		recognizer: gesture.NewRecognizer(config.Gesture),
		machine:    machine,
		overlay:    render.NewOverlay(deps.Catalog),
		events:     deps.Events,
		state:      deps.State,
		frames:     deps.Frames,
		newDisplay: deps.NewDisplay,
		enabled:    true,
		latest:     machine.Snapshot(),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.Config{
			DeviceID: config.CameraID,
			Width:    config.Width,
			Height:   config.Height,
			Mirror:   config.Mirror,
		})
	}
	a.pacer = capture.NewPacer(a.camera, motion)

	// Try MediaPipe first, fall back to the mocks
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}
	if a.segmenter == nil {
		if mp, err := segment.NewMediaPipeSegmenter(); err == nil {
			a.segmenter = mp
			log.Println("Using MediaPipe selfie segmentation")
		} else {
			log.Printf("MediaPipe segmentation not available (%v), backgrounds will not be composited", err)
			a.segmenter = segment.NewMockSegmenter()
		}
	}

	return a, nil
}

// SetEnabled switches gesture control on or off. While disabled the
// selection is frozen and the output keeps the active background.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if changed {
		log.Printf("Gesture control enabled: %v", enabled)
		a.publishState()
	}
}

// IsEnabled returns whether gesture control is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Snapshot returns the selection state as of the last processed frame.
func (a *App) Snapshot() selection.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// State returns the published form of the current selection state.
func (a *App) State() server.State {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := server.State{Snapshot: a.latest, Enabled: a.enabled}
	if !a.latest.Live {
		s.ActiveName = a.catalog.Name(a.latest.Active)
	}
	return s
}

// Config returns the configuration the App was built with.
func (a *App) Config() Config {
	return a.config
}

// Close releases the detector, segmenter and overlay.
func (a *App) Close() {
	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	if err := a.segmenter.Close(); err != nil {
		log.Printf("Error closing segmenter: %v", err)
	}
	a.motion.Close()
	a.overlay.Close()
}

func (a *App) publishState() {
	s := a.State()
	for _, p := range a.state {
		p.PublishState(s)
	}
}
