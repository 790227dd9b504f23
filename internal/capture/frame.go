// Package capture provides frame sources and the fixed-size frame sampler
// that feeds the motion detector.
package capture

import (
	"errors"
	"image"
	"time"

	"golang.org/x/image/draw"
)

// ErrSourceNotReady is returned when a source has no usable frame yet.
// It is a normal, recoverable state: the caller skips the tick.
var ErrSourceNotReady = errors.New("frame source not ready")

// Frame is a downscaled RGBA pixel buffer with its capture time.
type Frame struct {
	// Pix holds 4 bytes per pixel (R, G, B, A), row-major, stride Width*4.
	Pix       []uint8
	Width     int
	Height    int
	Timestamp time.Time
}

// NewFrame allocates a black, opaque frame.
func NewFrame(width, height int, ts time.Time) *Frame {
	f := &Frame{
		Pix:       make([]uint8, width*height*4),
		Width:     width,
		Height:    height,
		Timestamp: ts,
	}
	for i := 3; i < len(f.Pix); i += 4 {
		f.Pix[i] = 0xff
	}
	return f
}

// Valid reports whether the frame has positive dimensions and a matching buffer.
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height*4
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Pix = append([]uint8(nil), f.Pix...)
	return &c
}

// SameSize reports whether both frames have identical dimensions.
func (f *Frame) SameSize(other *Frame) bool {
	return f != nil && other != nil && f.Width == other.Width && f.Height == other.Height
}

// Luminance returns the perceptual brightness (0-255) of the pixel at x, y.
func (f *Frame) Luminance(x, y int) float64 {
	i := (y*f.Width + x) * 4
	return Luminance(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
}

// Image returns an *image.RGBA view that shares the frame's buffer.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Luminance weights RGB channels using the Rec. 601 coefficients.
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// FrameFromImage copies img into a new Frame no wider than maxWidth,
// preserving the aspect ratio. Images narrower than maxWidth are not upscaled.
func FrameFromImage(img image.Image, maxWidth int, ts time.Time) (*Frame, error) {
	if img == nil {
		return nil, ErrSourceNotReady
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrSourceNotReady
	}

	width, height := bounds.Dx(), bounds.Dy()
	if maxWidth > 0 && width > maxWidth {
		height = height * maxWidth / width
		width = maxWidth
		if height < 1 {
			height = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Copy(dst, image.Point{}, img, bounds, draw.Src, nil)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	}

	return &Frame{
		Pix:       dst.Pix,
		Width:     width,
		Height:    height,
		Timestamp: ts,
	}, nil
}
