package app

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/ayusman/backdrop/internal/capture"
	"github.com/ayusman/backdrop/internal/detector"
	"github.com/ayusman/backdrop/internal/gesture"
)

// DefaultMaxReadFailures is the number of consecutive unreadable frames
// after which Run gives up.
const DefaultMaxReadFailures = 300

// Setting keys accepted by ApplySettings.
const (
	KeyCameraID        = "camera_id"
	KeyWidth           = "width"
	KeyHeight          = "height"
	KeyMirror          = "mirror"
	KeyBackgroundsDir  = "backgrounds_dir"
	KeySwipeThreshold  = "swipe_threshold"
	KeyMinConfidence   = "min_confidence"
	KeyMotionThreshold = "motion_threshold"
	KeyMaxReadFailures = "max_read_failures"
	KeyShowWindow      = "show_window"
)

// ErrUnknownSetting is returned by ApplySettings for a key it does not know.
var ErrUnknownSetting = errors.New("unknown setting")

// Config holds configuration options for the application.
type Config struct {
	CameraID       int
	Width          int
	Height         int
	Mirror         bool
	BackgroundsDir string

	Gesture  gesture.Config
	Detector detector.Config

	// MotionThresh is the percentage of changed pixels that counts as motion.
	MotionThresh    float64
	MaxReadFailures int
	ShowWindow      bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		CameraID:        0,
		Width:           capture.DefaultWidth,
		Height:          capture.DefaultHeight,
		Mirror:          true,
		BackgroundsDir:  "Backgrounds",
		Gesture:         gesture.DefaultConfig(),
		Detector:        detector.DefaultConfig(),
		MotionThresh:    1.0,
		MaxReadFailures: DefaultMaxReadFailures,
		ShowWindow:      true,
	}
}

// Validate reports the first field that cannot drive a run.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("invalid capture size %dx%d", c.Width, c.Height)
	case c.CameraID < 0:
		return fmt.Errorf("invalid camera id %d", c.CameraID)
	case c.Gesture.SwipeThreshold <= 0:
		return fmt.Errorf("swipe threshold must be positive, got %d", c.Gesture.SwipeThreshold)
	case c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1:
		return fmt.Errorf("min confidence must be within [0, 1], got %g", c.Detector.MinConfidence)
	case c.MotionThresh <= 0:
		return fmt.Errorf("motion threshold must be positive, got %g", c.MotionThresh)
	case c.MaxReadFailures <= 0:
		return fmt.Errorf("max read failures must be positive, got %d", c.MaxReadFailures)
	case c.BackgroundsDir == "":
		return errors.New("backgrounds directory is empty")
	}
	return nil
}

// ApplySettings overrides fields from persisted key/value settings.
// Nothing is changed unless every setting parses and the result validates.
func (c *Config) ApplySettings(settings map[string]string) error {
	next := *c

	// Sorted so the reported error does not depend on map order.
	for _, key := range slices.Sorted(maps.Keys(settings)) {
		if err := next.apply(key, settings[key]); err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
	}

	if err := next.Validate(); err != nil {
		return err
	}

	*c = next
	return nil
}

// ValidateSettings checks settings against the default configuration
// without keeping the result.
func ValidateSettings(settings map[string]string) error {
	c := DefaultConfig()
	return c.ApplySettings(settings)
}

func (c *Config) apply(key, value string) error {
	var err error
	switch key {
	case KeyCameraID:
		c.CameraID, err = strconv.Atoi(value)
	case KeyWidth:
		c.Width, err = strconv.Atoi(value)
	case KeyHeight:
		c.Height, err = strconv.Atoi(value)
	case KeyMirror:
		c.Mirror, err = strconv.ParseBool(value)
	case KeyBackgroundsDir:
		c.BackgroundsDir = value
	case KeySwipeThreshold:
		c.Gesture.SwipeThreshold, err = strconv.Atoi(value)
	case KeyMinConfidence:
		c.Detector.MinConfidence, err = strconv.ParseFloat(value, 64)
	case KeyMotionThreshold:
		c.MotionThresh, err = strconv.ParseFloat(value, 64)
	case KeyMaxReadFailures:
		c.MaxReadFailures, err = strconv.Atoi(value)
	case KeyShowWindow:
		c.ShowWindow, err = strconv.ParseBool(value)
	default:
		return ErrUnknownSetting
	}
	return err
}
