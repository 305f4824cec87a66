package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/backdrop/internal/app"
	"github.com/ayusman/backdrop/internal/capture"
	"github.com/ayusman/backdrop/internal/catalog"
	"github.com/ayusman/backdrop/internal/detector"
	"github.com/ayusman/backdrop/internal/segment"
	"github.com/ayusman/backdrop/internal/server"
	"github.com/ayusman/backdrop/internal/store"
	"github.com/ayusman/backdrop/internal/testutil"
)

const (
	width  = 640
	height = 360
)

// quitAfter is a display that asks to quit after n frames.
type quitAfter struct {
	n     int
	shown int
}

func (d *quitAfter) Show(frame gocv.Mat) bool {
	d.shown++
	return d.shown >= d.n
}

func (d *quitAfter) Close() error { return nil }

func TestE2E_GestureSessionOverAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	bgDir := filepath.Join(tmpDir, "Backgrounds")
	if err := os.MkdirAll(bgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteImage(t, bgDir, "beach.png", width, height, color.NRGBA{R: 240, G: 200, B: 120, A: 255})
	testutil.WriteImage(t, bgDir, "forest.jpg", width, height, color.NRGBA{G: 120, A: 255})
	testutil.WriteImage(t, bgDir, "space.png", width, height, color.NRGBA{B: 40, A: 255})

	cat, err := catalog.Load(bgDir, width, height)
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	defer cat.Close()

	hub := server.NewStateHub()
	frames := server.NewFrameBuffer()

	srv := server.New(server.Config{
		Store:    s,
		Catalog:  cat,
		State:    hub,
		Frames:   frames,
		Validate: app.ValidateSettings,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("RejectsUnknownSettings", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", strings.NewReader(`{"fps": 60}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/settings error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("StoresSettingsForNextStart", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewBufferString(`{"swipe_threshold": 60, "mirror": false}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/settings error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		stored, err := s.Settings().All()
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		config := app.DefaultConfig()
		if err := config.ApplySettings(stored); err != nil {
			t.Fatalf("ApplySettings() error = %v", err)
		}
		if config.Gesture.SwipeThreshold != 60 || config.Mirror {
			t.Errorf("config = %+v", config)
		}
	})

	// Select, swipe left, select, then three more swipes left: the third
	// background ends up focused and the second stays active.
	mockDetector := detector.NewMockDetector()
	mockDetector.SetScript([][]detector.HandLandmarks{
		detector.Hands(detector.PointingUpLandmarks(0.50)),
		detector.Hands(detector.OpenPalmLandmarks(0.30)),
		detector.Hands(detector.PointingUpLandmarks(0.35)),
		detector.Hands(detector.OpenPalmLandmarks(0.15)),
		detector.Hands(detector.OpenPalmLandmarks(0.00)),
		detector.Hands(detector.OpenPalmLandmarks(-0.15)),
		nil,
	})
	segmenter := segment.NewMockSegmenter()
	segmenter.SetUniform(0)

	source := make([]*gocv.Mat, 2)
	for i := range source {
		m := testutil.PatternFrame(width, height, i)
		source[i] = &m
		defer m.Close()
	}

	config := app.DefaultConfig()
	config.Width, config.Height = width, height
	config.BackgroundsDir = bgDir

	application, err := app.New(config, app.Deps{
		Camera:     capture.NewMockCamera(source, true),
		Detector:   mockDetector,
		Segmenter:  segmenter,
		Catalog:    cat,
		Events:     s.Events(),
		State:      []app.StatePublisher{hub},
		Frames:     frames,
		NewDisplay: func() app.Display { return &quitAfter{n: 7} },
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	t.Run("State", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("GET /api/state error = %v", err)
		}
		defer resp.Body.Close()

		var state server.State
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if state.Focus != 2 || state.Active != 2 || state.ActiveName != "forest" || !state.Enabled {
			t.Errorf("state = %+v, want focus 2, active 2 (forest)", state)
		}
	})

	t.Run("Journal", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/events?limit=10")
		if err != nil {
			t.Fatalf("GET /api/events error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Events []store.Event `json:"events"`
			Total  int           `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode events: %v", err)
		}
		if body.Total != 6 {
			t.Fatalf("total = %d, want 6", body.Total)
		}

		want := []string{"swipe_left", "swipe_left", "swipe_left", "select", "swipe_left", "select"}
		for i, e := range body.Events {
			if e.Gesture != want[i] {
				t.Errorf("events[%d] = %s, want %s", i, e.Gesture, want[i])
			}
		}
	})

	t.Run("Preview", func(t *testing.T) {
		data, seq := frames.Latest()
		if seq != 7 || len(data) == 0 {
			t.Errorf("latest frame seq = %d (%d bytes), want 7 frames", seq, len(data))
		}
	})

	t.Run("Thumbnail", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/backgrounds/2/thumbnail")
		if err != nil {
			t.Fatalf("GET thumbnail error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
			t.Errorf("thumbnail status = %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	})
}
