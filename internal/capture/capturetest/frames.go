// Package capturetest builds synthetic frames for detector tests.
package capturetest

import (
	"image"
	"image/color"
	"time"

	"github.com/ayusman/mudra/internal/capture"
)

// Region is a rectangle in normalised frame coordinates.
type Region struct {
	MinX, MinY, MaxX, MaxY float64
}

// Solid returns a width×height image filled with a single grey level.
func Solid(width, height int, level uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	c := color.RGBA{R: level, G: level, B: level, A: 0xff}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// WithPatch returns a copy of base with the region painted at the given level.
func WithPatch(base *image.RGBA, r Region, level uint8) *image.RGBA {
	img := image.NewRGBA(base.Rect)
	copy(img.Pix, base.Pix)

	w, h := base.Rect.Dx(), base.Rect.Dy()
	x0, x1 := int(r.MinX*float64(w)), int(r.MaxX*float64(w))
	y0, y1 := int(r.MinY*float64(h)), int(r.MaxY*float64(h))

	c := color.RGBA{R: level, G: level, B: level, A: 0xff}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Frame converts img to a capture.Frame without scaling.
func Frame(img image.Image) *capture.Frame {
	f, err := capture.FrameFromImage(img, 0, time.Now())
	if err != nil {
		panic(err)
	}
	return f
}

// Alternating returns n images that alternate between a plain background and
// the same background with a patch, so every consecutive pair differs only
// inside the patch.
func Alternating(width, height, n int, r Region) []image.Image {
	base := Solid(width, height, 40)
	patched := WithPatch(base, r, 220)

	frames := make([]image.Image, n)
	for i := range frames {
		if i%2 == 0 {
			frames[i] = base
		} else {
			frames[i] = patched
		}
	}
	return frames
}
