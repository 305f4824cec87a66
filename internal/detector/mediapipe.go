package detector

import (
	"bufio"
	"encoding/json"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/backdrop/internal/mediapipe"
)

// ScriptName is the hand landmark service run by MediaPipeDetector.
const ScriptName = "mediapipe_service.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
// The service answers every frame with one JSON line: {"hands": [...]}.
type MediaPipeDetector struct {
	config  Config
	service *mediapipe.Service
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	args, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	service, err := mediapipe.NewService(ScriptName, "--config", string(args))
	if err != nil {
		return nil, err
	}

	return &MediaPipeDetector{
		config:  config,
		service: service,
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	var result []HandLandmarks

	err := d.service.Exchange(frame, func(r *bufio.Reader) error {
		hands, err := readHands(r)
		if err != nil {
			return err
		}
		result = hands
		return nil
	})
	if err != nil {
		return nil, err
	}

	if d.config.MaxHands > 0 && len(result) > d.config.MaxHands {
		result = result[:d.config.MaxHands]
	}

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.service.Close()
}

// readHands parses one JSON response line.
func readHands(r *bufio.Reader) ([]HandLandmarks, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}

	return result, nil
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = h.Points[i]
	}

	return lm
}
