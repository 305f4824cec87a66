// Package composite blends the live camera frame over a replacement
// background using a foreground probability mask.
package composite

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// BlurSize is the Gaussian kernel used to soften the mask edges.
const BlurSize = 5

var (
	// ErrSizeMismatch is returned when the frame, mask and background
	// dimensions differ.
	ErrSizeMismatch = errors.New("frame, mask and background sizes differ")
	// ErrFormat is returned for unsupported Mat types.
	ErrFormat = errors.New("unsupported pixel format")
)

// Blend composites frame over background. mask holds the per-pixel
// probability that the frame pixel is foreground, as float32 in [0,1] or as
// 8-bit 0..255. frame and background must be 8-bit BGR.
//
// The mask is smoothed with a BlurSize×BlurSize Gaussian, then every channel
// is computed as frame*m + background*(1-m) and truncated to 8 bits.
// The caller owns the returned Mat.
func Blend(frame, mask, background gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() || mask.Empty() || background.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: empty input", ErrFormat)
	}
	if frame.Type() != gocv.MatTypeCV8UC3 || background.Type() != gocv.MatTypeCV8UC3 {
		return gocv.NewMat(), fmt.Errorf("%w: frame and background must be 8-bit BGR", ErrFormat)
	}
	if frame.Rows() != mask.Rows() || frame.Cols() != mask.Cols() ||
		frame.Rows() != background.Rows() || frame.Cols() != background.Cols() {
		return gocv.NewMat(), fmt.Errorf("%w: frame %dx%d, mask %dx%d, background %dx%d",
			ErrSizeMismatch,
			frame.Cols(), frame.Rows(), mask.Cols(), mask.Rows(), background.Cols(), background.Rows())
	}

	prob, err := probability(mask)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer prob.Close()

	smoothed := gocv.NewMat()
	defer smoothed.Close()
	gocv.GaussianBlur(prob, &smoothed, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	fg := continuous(frame)
	defer fg.Close()
	bg := continuous(background)
	defer bg.Close()

	out := gocv.NewMatWithSize(frame.Rows(), frame.Cols(), gocv.MatTypeCV8UC3)

	fgData, err := fg.DataPtrUint8()
	if err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("frame data: %w", err)
	}
	bgData, err := bg.DataPtrUint8()
	if err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("background data: %w", err)
	}
	maskData, err := smoothed.DataPtrFloat32()
	if err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("mask data: %w", err)
	}
	outData, err := out.DataPtrUint8()
	if err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("output data: %w", err)
	}

	if err := BlendPixels(outData, fgData, bgData, maskData); err != nil {
		out.Close()
		return gocv.NewMat(), err
	}

	return out, nil
}

// BlendPixels blends interleaved 3-channel buffers with a single-channel
// mask: dst[3i+c] = trunc(frame[3i+c]*m[i] + background[3i+c]*(1-m[i])).
// Mask values outside [0,1] are clamped. dst may alias frame or background.
func BlendPixels(dst, frame, background []uint8, mask []float32) error {
	n := len(mask)
	if len(frame) != 3*n || len(background) != 3*n || len(dst) != 3*n {
		return fmt.Errorf("%w: %d mask values for %d/%d/%d bytes",
			ErrSizeMismatch, n, len(frame), len(background), len(dst))
	}

	for i, v := range mask {
		m := float64(v)
		if m < 0 {
			m = 0
		} else if m > 1 {
			m = 1
		}

		// f*m + b*(1-m) written as b + (f-b)*m: the product is exact in
		// float64, so m=1, m=0 and f==b reproduce their input byte exactly.
		for c := 3 * i; c < 3*i+3; c++ {
			b := float64(background[c])
			dst[c] = uint8(b + (float64(frame[c])-b)*m)
		}
	}

	return nil
}

// probability returns the mask as a continuous float32 Mat in [0,1].
func probability(mask gocv.Mat) (gocv.Mat, error) {
	if mask.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("%w: mask must be single channel, got %d", ErrFormat, mask.Channels())
	}

	out := gocv.NewMat()
	switch mask.Type() {
	case gocv.MatTypeCV32F:
		mask.CopyTo(&out)
	case gocv.MatTypeCV8U:
		mask.ConvertToWithParams(&out, gocv.MatTypeCV32F, 1.0/255.0, 0)
	default:
		out.Close()
		return gocv.NewMat(), fmt.Errorf("%w: mask type %v", ErrFormat, mask.Type())
	}
	return out, nil
}

// continuous returns a Mat whose data can be addressed as one slice.
// The result is always a new header the caller must close.
func continuous(m gocv.Mat) gocv.Mat {
	if m.IsContinuous() {
		return m.Region(image.Rect(0, 0, m.Cols(), m.Rows()))
	}
	return m.Clone()
}
