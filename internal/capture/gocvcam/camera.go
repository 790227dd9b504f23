// Package gocvcam implements capture.Camera on top of OpenCV.
package gocvcam

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
)

var _ capture.Camera = (*Camera)(nil)

// Camera reads frames from a camera device through OpenCV.
type Camera struct {
	deviceID   int
	scaleWidth int
	capture    *gocv.VideoCapture
	mu         sync.Mutex
	running    bool
	fps        int
}

// New creates a Camera for the given device ID.
// Frames wider than scaleWidth are resized by OpenCV before they leave the
// camera; a scaleWidth of 0 keeps the native resolution.
func New(deviceID, scaleWidth int) *Camera {
	return &Camera{
		deviceID:   deviceID,
		scaleWidth: scaleWidth,
		fps:        capture.DefaultFPS,
	}
}

// Open opens the camera for capturing frames.
// It sets the resolution to 640x480 for performance.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, capture.DefaultWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, capture.DefaultHeight)
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera as an RGBA image.
// A camera that is warming up and delivers empty frames reports
// capture.ErrSourceNotReady.
func (c *Camera) ReadFrame() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, capture.ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w: empty frame from camera %d", capture.ErrSourceNotReady, c.deviceID)
	}

	if c.scaleWidth > 0 && mat.Cols() > c.scaleWidth {
		height := mat.Rows() * c.scaleWidth / mat.Cols()
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, image.Point{X: c.scaleWidth, Y: height}, 0, 0, gocv.InterpolationArea)
		return resized.ToImage()
	}

	return mat.ToImage()
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *Camera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *Camera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
