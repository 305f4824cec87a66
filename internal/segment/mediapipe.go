package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/backdrop/internal/mediapipe"
)

// ScriptName is the selfie segmentation service run by MediaPipeSegmenter.
const ScriptName = "segmentation_service.py"

// maxMaskPixels bounds a response so a corrupt header cannot allocate
// unbounded memory.
const maxMaskPixels = 8192 * 8192

// ErrMaskHeader is returned for a response header the segmenter cannot use.
var ErrMaskHeader = errors.New("invalid mask header")

// MediaPipeSegmenter implements Segmenter using a Python MediaPipe selfie
// segmentation subprocess. Each response is a 4-byte big-endian row count,
// a 4-byte big-endian column count and rows*cols little-endian float32
// values. A 0x0 response means no result.
type MediaPipeSegmenter struct {
	service *mediapipe.Service
}

// NewMediaPipeSegmenter creates a segmenter. The Python process is started
// lazily on the first frame.
func NewMediaPipeSegmenter() (*MediaPipeSegmenter, error) {
	service, err := mediapipe.NewService(ScriptName)
	if err != nil {
		return nil, err
	}
	return &MediaPipeSegmenter{service: service}, nil
}

// Segment returns the foreground mask for frame.
func (s *MediaPipeSegmenter) Segment(frame *gocv.Mat) (*gocv.Mat, error) {
	var mask *gocv.Mat

	err := s.service.Exchange(frame, func(r *bufio.Reader) error {
		m, err := readMask(r)
		if err != nil {
			return err
		}
		mask = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mask == nil {
		return nil, nil
	}

	if mask.Rows() != frame.Rows() || mask.Cols() != frame.Cols() {
		resized := gocv.NewMat()
		gocv.Resize(*mask, &resized, image.Pt(frame.Cols(), frame.Rows()), 0, 0, gocv.InterpolationLinear)
		mask.Close()
		mask = &resized
	}

	return mask, nil
}

// Close shuts down the Python process.
func (s *MediaPipeSegmenter) Close() error {
	return s.service.Close()
}

// readMask decodes one response.
func readMask(r io.Reader) (*gocv.Mat, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rows := int(binary.BigEndian.Uint32(header[0:4]))
	cols := int(binary.BigEndian.Uint32(header[4:8]))
	if rows == 0 && cols == 0 {
		return nil, nil
	}
	if rows <= 0 || cols <= 0 || rows*cols > maxMaskPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrMaskHeader, cols, rows)
	}

	raw := make([]byte, rows*cols*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read mask: %w", err)
	}

	mask := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	data, err := mask.DataPtrFloat32()
	if err != nil {
		mask.Close()
		return nil, err
	}
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &mask, nil
}
