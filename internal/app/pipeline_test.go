package app

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/backdrop/internal/capture"
	"github.com/ayusman/backdrop/internal/catalog"
	"github.com/ayusman/backdrop/internal/detector"
	"github.com/ayusman/backdrop/internal/gesture"
	"github.com/ayusman/backdrop/internal/segment"
	"github.com/ayusman/backdrop/internal/selection"
	"github.com/ayusman/backdrop/internal/server"
	"github.com/ayusman/backdrop/internal/store"
	"github.com/ayusman/backdrop/internal/testutil"
)

const (
	testWidth  = 640
	testHeight = 360
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

type recorder struct {
	events []*store.Event
}

func (r *recorder) Create(e *store.Event) error {
	r.events = append(r.events, e)
	return nil
}

type testApp struct {
	*App
	detector  *detector.MockDetector
	segmenter *segment.MockSegmenter
	camera    *capture.MockCamera
	events    *recorder
	states    []server.State
}

// newTestApp builds an App over three solid backgrounds: red, green, blue.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteImage(t, dir, "1_red.png", testWidth, testHeight, red)
	testutil.WriteImage(t, dir, "2_green.png", testWidth, testHeight, green)
	testutil.WriteImage(t, dir, "3_blue.png", testWidth, testHeight, blue)

	cat, err := catalog.Load(dir, testWidth, testHeight)
	require.NoError(t, err)
	t.Cleanup(cat.Close)
	require.Equal(t, 3, cat.Count())

	ta := &testApp{
		detector:  detector.NewMockDetector(),
		segmenter: segment.NewMockSegmenter(),
		camera:    capture.NewMockCamera(nil, false),
		events:    &recorder{},
	}

	config := DefaultConfig()
	config.Width, config.Height = testWidth, testHeight
	config.BackgroundsDir = dir

	a, err := New(config, Deps{
		Camera:    ta.camera,
		Detector:  ta.detector,
		Segmenter: ta.segmenter,
		Catalog:   cat,
		Events:    ta.events,
		State: []StatePublisher{StatePublisherFunc(func(s server.State) {
			ta.states = append(ta.states, s)
		})},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ta.App = a
	return ta
}

// process runs one black frame through the pipeline.
func (ta *testApp) process(t *testing.T) [3]uint8 {
	t.Helper()

	frame := testutil.SolidFrame(testWidth, testHeight, black)
	defer frame.Close()

	out := ta.ProcessFrame(&frame)
	defer out.Close()

	require.Equal(t, testWidth, out.Cols())
	require.Equal(t, testHeight, out.Rows())
	return testutil.PixelAt(out, 10, 10)
}

// scenarioScript yields Select, SwipeLeft, Select, SwipeLeft, SwipeLeft,
// SwipeLeft at 640 pixels wide: each open palm step moves the index tip
// 96 pixels left, and the select poses keep the index tip in place.
func scenarioScript() [][]detector.HandLandmarks {
	return [][]detector.HandLandmarks{
		detector.Hands(detector.PointingUpLandmarks(0.50)), // tip 0.53: Select
		detector.Hands(detector.OpenPalmLandmarks(0.30)),   // tip 0.38: SwipeLeft
		detector.Hands(detector.PointingUpLandmarks(0.35)), // tip 0.38: Select
		detector.Hands(detector.OpenPalmLandmarks(0.15)),   // tip 0.23: SwipeLeft
		detector.Hands(detector.OpenPalmLandmarks(0.00)),   // tip 0.08: SwipeLeft
		detector.Hands(detector.OpenPalmLandmarks(-0.15)),  // tip -0.07: SwipeLeft
	}
}

func TestProcessFrame_Scenario(t *testing.T) {
	ta := newTestApp(t)
	ta.detector.SetScript(scenarioScript())

	for range scenarioScript() {
		ta.process(t)
	}

	assert.Equal(t, selection.Snapshot{Focus: 2, Active: 2, Count: 3}, ta.Snapshot())

	var got []string
	for _, e := range ta.events.events {
		got = append(got, e.Gesture)
	}
	assert.Equal(t, []string{"select", "swipe_left", "select", "swipe_left", "swipe_left", "swipe_left"}, got)

	last := ta.events.events[len(ta.events.events)-1]
	assert.Equal(t, 2, last.Focus)
	assert.Equal(t, 2, last.Active)
	assert.Equal(t, "SWIPE LEFT: focus 2", last.Message)

	require.Len(t, ta.states, 6)
	assert.Equal(t, "2_green", ta.states[5].ActiveName)
	assert.True(t, ta.states[5].Enabled)
}

func TestProcessFrame_HeldSelectJournalsOnce(t *testing.T) {
	ta := newTestApp(t)
	ta.detector.SetHands(detector.Hands(detector.PointingUpLandmarks(0.5)))

	for i := 0; i < 5; i++ {
		ta.process(t)
	}

	assert.Equal(t, 1, ta.Snapshot().Active)
	assert.Len(t, ta.events.events, 1)
	assert.Len(t, ta.states, 1)
}

func TestProcessFrame_LiveSkipsSegmentation(t *testing.T) {
	ta := newTestApp(t)
	ta.segmenter.SetUniform(0)

	px := ta.process(t)

	assert.Equal(t, [3]uint8{0, 0, 0}, px, "live output is the raw frame")
	assert.Zero(t, ta.segmenter.Calls())
	assert.True(t, ta.Snapshot().Live)
}

func TestProcessFrame_Composites(t *testing.T) {
	tests := []struct {
		name string
		mask func(*segment.MockSegmenter)
		want [3]uint8
	}{
		{"background where mask is zero", func(s *segment.MockSegmenter) { s.SetUniform(0) }, [3]uint8{0, 0, 255}},
		{"frame where mask is one", func(s *segment.MockSegmenter) { s.SetUniform(1) }, [3]uint8{0, 0, 0}},
		{"raw frame without a mask", func(s *segment.MockSegmenter) { s.SetNone() }, [3]uint8{0, 0, 0}},
		{"raw frame on segmenter error", func(s *segment.MockSegmenter) { s.SetError(errors.New("pipe closed")) }, [3]uint8{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			tt.mask(ta.segmenter)

			// Select activates slot 1, the red background.
			ta.detector.SetScript([][]detector.HandLandmarks{detector.Hands(detector.PointingUpLandmarks(0.5))})
			px := ta.process(t)

			assert.Equal(t, 1, ta.Snapshot().Active)
			assert.Equal(t, 1, ta.segmenter.Calls())
			assert.Equal(t, tt.want, px)
		})
	}
}

func TestProcessFrame_DetectorErrorIsNoHand(t *testing.T) {
	ta := newTestApp(t)
	ta.detector.SetError(errors.New("service crashed"))

	ta.process(t)
	ta.process(t)

	assert.Equal(t, 2, ta.detector.Calls())
	assert.True(t, ta.Snapshot().Live)
	assert.Empty(t, ta.events.events)
	_, tracking := ta.recognizer.PreviousX()
	assert.False(t, tracking)
}

func TestProcessFrame_Disabled(t *testing.T) {
	ta := newTestApp(t)
	ta.detector.SetHands(detector.Hands(detector.PointingUpLandmarks(0.5)))

	ta.SetEnabled(false)
	require.Len(t, ta.states, 1)
	assert.False(t, ta.states[0].Enabled)

	ta.process(t)

	assert.Zero(t, ta.detector.Calls())
	assert.True(t, ta.Snapshot().Live)

	ta.SetEnabled(true)
	ta.process(t)
	assert.Equal(t, 1, ta.Snapshot().Active)
}

func TestProcessFrame_DoesNotModifyInput(t *testing.T) {
	ta := newTestApp(t)
	ta.detector.SetHands(detector.Hands(detector.PointingUpLandmarks(0.5)))
	ta.segmenter.SetUniform(0)

	frame := testutil.SolidFrame(testWidth, testHeight, white)
	defer frame.Close()

	out := ta.ProcessFrame(&frame)
	defer out.Close()

	assert.Equal(t, [3]uint8{255, 255, 255}, testutil.PixelAt(frame, testWidth/2, testHeight-20))
	assert.NotEqual(t, testutil.PixelAt(frame, testWidth/2, testHeight-20), testutil.PixelAt(out, testWidth/2, testHeight-20),
		"the strip is drawn on the output")
}

func TestNew_Validates(t *testing.T) {
	config := DefaultConfig()
	config.MaxReadFailures = 0

	_, err := New(config, Deps{})
	assert.Error(t, err)

	_, err = New(DefaultConfig(), Deps{})
	assert.Error(t, err, "a catalog is required")
}

func TestState_Live(t *testing.T) {
	ta := newTestApp(t)

	s := ta.State()
	assert.True(t, s.Live)
	assert.Empty(t, s.ActiveName)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, gesture.DefaultConfig(), ta.Config().Gesture)
}
