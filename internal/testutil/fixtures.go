// Package testutil provides synthetic frames, masks and background files
// for tests.
package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// SolidFrame returns an 8-bit BGR frame filled with c.
func SolidFrame(width, height int, c color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
		height, width, gocv.MatTypeCV8UC3)
}

// PatternFrame returns an 8-bit BGR frame whose bytes follow a
// deterministic pattern offset by seed, so two frames with different seeds
// differ at nearly every byte.
func PatternFrame(width, height int, seed int) gocv.Mat {
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	data, err := m.DataPtrUint8()
	if err != nil {
		panic(err)
	}
	for i := range data {
		data[i] = uint8((i*7 + seed*31) % 256)
	}
	return m
}

// UniformMask returns a float32 mask filled with v.
func UniformMask(width, height int, v float32) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(v), 0, 0, 0), height, width, gocv.MatTypeCV32F)
}

// SplitMask returns a float32 mask that is 1 on the left half of the frame
// and 0 on the right half.
func SplitMask(width, height int) gocv.Mat {
	m := UniformMask(width, height, 0)
	data, err := m.DataPtrFloat32()
	if err != nil {
		panic(err)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width/2; x++ {
			data[y*width+x] = 1
		}
	}
	return m
}

// PixelAt returns the BGR bytes at (x, y) of an 8-bit 3-channel Mat.
func PixelAt(m gocv.Mat, x, y int) [3]uint8 {
	return [3]uint8{
		m.GetUCharAt(y, x*3),
		m.GetUCharAt(y, x*3+1),
		m.GetUCharAt(y, x*3+2),
	}
}

// WriteImage writes a solid-colour image file; the format follows the
// extension of name.
func WriteImage(tb testing.TB, dir, name string, width, height int, c color.Color) string {
	tb.Helper()

	img := imaging.New(width, height, c)
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		tb.Fatalf("save %s: %v", name, err)
	}
	return path
}
