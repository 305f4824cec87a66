package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, 1280, c.Width)
	assert.Equal(t, 720, c.Height)
	assert.True(t, c.Mirror)
	assert.Equal(t, "Backgrounds", c.BackgroundsDir)
	assert.Equal(t, 1.0, c.MotionThresh)
	assert.Equal(t, 300, c.MaxReadFailures)
	assert.Equal(t, 70, c.Gesture.SwipeThreshold)
	require.NoError(t, c.Validate())
}

func TestConfig_ApplySettings(t *testing.T) {
	c := DefaultConfig()

	err := c.ApplySettings(map[string]string{
		KeyCameraID:        "2",
		KeyWidth:           "640",
		KeyHeight:          "360",
		KeyMirror:          "false",
		KeyBackgroundsDir:  "/tmp/bg",
		KeySwipeThreshold:  "40",
		KeyMinConfidence:   "0.7",
		KeyMotionThreshold: "2.5",
		KeyMaxReadFailures: "10",
		KeyShowWindow:      "false",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, c.CameraID)
	assert.Equal(t, 640, c.Width)
	assert.Equal(t, 360, c.Height)
	assert.False(t, c.Mirror)
	assert.Equal(t, "/tmp/bg", c.BackgroundsDir)
	assert.Equal(t, 40, c.Gesture.SwipeThreshold)
	assert.Equal(t, 0.7, c.Detector.MinConfidence)
	assert.Equal(t, 2.5, c.MotionThresh)
	assert.Equal(t, 10, c.MaxReadFailures)
	assert.False(t, c.ShowWindow)
}

func TestConfig_ApplySettings_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
		unknown  bool
	}{
		{"unknown key", map[string]string{"fps": "60"}, true},
		{"not a number", map[string]string{KeyWidth: "wide"}, false},
		{"not a bool", map[string]string{KeyMirror: "sometimes"}, false},
		{"zero width", map[string]string{KeyWidth: "0"}, false},
		{"negative camera", map[string]string{KeyCameraID: "-1"}, false},
		{"zero swipe threshold", map[string]string{KeySwipeThreshold: "0"}, false},
		{"confidence above one", map[string]string{KeyMinConfidence: "1.5"}, false},
		{"empty backgrounds dir", map[string]string{KeyBackgroundsDir: ""}, false},
		{"one bad among good", map[string]string{KeyWidth: "640", KeyMaxReadFailures: "0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()

			err := c.ApplySettings(tt.settings)
			require.Error(t, err)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownSetting)
			}
			assert.Equal(t, DefaultConfig(), c, "a rejected update must leave the config unchanged")
			assert.Error(t, ValidateSettings(tt.settings))
		})
	}
}

func TestValidateSettings(t *testing.T) {
	assert.NoError(t, ValidateSettings(nil))
	assert.NoError(t, ValidateSettings(map[string]string{KeyMirror: "true", KeySwipeThreshold: "90"}))
}
