// Package catalog loads the selectable background images.
//
// Slot 0 is reserved for the live camera feed and carries no image. Slots
// 1..Count hold backgrounds resized to the capture resolution. A catalog is
// immutable once loaded.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// LiveSlot is the index of the live-feed sentinel.
const LiveSlot = 0

// FallbackName is the name of the synthetic background used when no image
// could be loaded.
const FallbackName = "Solid fallback"

// FallbackColor fills the synthetic background.
var FallbackColor = color.RGBA{R: 0, G: 100, B: 255, A: 255}

var (
	// ErrNoImage is returned for slots without an image (the live slot).
	ErrNoImage = errors.New("slot has no image")
	// ErrSlotRange is returned for slot indices outside the catalog.
	ErrSlotRange = errors.New("slot out of range")
)

// supported lists the accepted file extensions.
var supported = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Background is one catalog slot.
type Background struct {
	Index int
	Name  string
	Path  string // empty for the live slot and the fallback
	Image gocv.Mat
}

// Live reports whether this is the live-feed sentinel.
func (b *Background) Live() bool {
	return b.Index == LiveSlot
}

// Catalog is an ordered list of backgrounds.
type Catalog struct {
	slots  []*Background
	width  int
	height int
}

// Load reads every supported image in dir, in file name order, resizing
// each to width×height. Unreadable files are skipped. When nothing could be
// loaded, including when dir does not exist, a solid-colour background is
// synthesized so the catalog always has at least one custom slot.
func Load(dir string, width, height int) (*Catalog, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid catalog size %dx%d", width, height)
	}

	c := &Catalog{
		slots:  []*Background{{Index: LiveSlot, Name: "Live feed", Image: gocv.NewMat()}},
		width:  width,
		height: height,
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cannot read backgrounds directory %s: %v", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !supported[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		mat, err := loadImage(path, width, height)
		if err != nil {
			log.Printf("Skipping background %s: %v", entry.Name(), err)
			continue
		}

		c.slots = append(c.slots, &Background{
			Index: len(c.slots),
			Name:  strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Path:  path,
			Image: mat,
		})
	}

	if len(c.slots) == 1 {
		log.Printf("WARNING: no custom backgrounds found in %q, adding solid colour fallback", dir)
		c.slots = append(c.slots, &Background{
			Index: 1,
			Name:  FallbackName,
			Image: solid(width, height, FallbackColor),
		})
	}

	log.Printf("Loaded %d backgrounds from %s", c.Count(), dir)
	return c, nil
}

// loadImage decodes an image file, honouring EXIF orientation, and returns
// it as a BGR Mat of exactly width×height.
func loadImage(path string, width, height int) (gocv.Mat, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), err
	}

	resized := imaging.Resize(img, width, height, imaging.Linear)

	mat, err := gocv.ImageToMatRGB(resized)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert: %w", err)
	}
	return mat, nil
}

func solid(width, height int, c color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
		height, width, gocv.MatTypeCV8UC3)
}

// Count returns the number of custom backgrounds (slots 1..Count).
func (c *Catalog) Count() int {
	return len(c.slots) - 1
}

// Len returns the number of slots including the live slot.
func (c *Catalog) Len() int {
	return len(c.slots)
}

// Size returns the frame size every background was resized to.
func (c *Catalog) Size() (width, height int) {
	return c.width, c.height
}

// At returns the background in slot i.
func (c *Catalog) At(i int) (*Background, error) {
	if i < 0 || i >= len(c.slots) {
		return nil, fmt.Errorf("%w: %d", ErrSlotRange, i)
	}
	return c.slots[i], nil
}

// Slots returns all slots, live slot first.
func (c *Catalog) Slots() []*Background {
	out := make([]*Background, len(c.slots))
	copy(out, c.slots)
	return out
}

// Name returns the name of slot i, or "" when out of range.
func (c *Catalog) Name(i int) string {
	b, err := c.At(i)
	if err != nil {
		return ""
	}
	return b.Name
}

// Thumbnail returns slot i scaled and cropped to width×height, PNG encoded.
func (c *Catalog) Thumbnail(i, width, height int) ([]byte, error) {
	b, err := c.At(i)
	if err != nil {
		return nil, err
	}
	if b.Live() || b.Image.Empty() {
		return nil, ErrNoImage
	}

	img, err := b.Image.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert slot %d: %w", i, err)
	}

	var buf bytes.Buffer
	thumb := imaging.Thumbnail(img, width, height, imaging.Linear)
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases every background image.
func (c *Catalog) Close() {
	for _, b := range c.slots {
		b.Image.Close()
	}
}
