package capture

import (
	"fmt"
	"image"
)

// Default camera settings
const (
	DefaultFPS    = 10
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = fmt.Errorf("%w: camera is not open", ErrSourceNotReady)

// Source is a live video source owned by the caller.
// The detector only reads frames; it never opens or closes the source.
type Source interface {
	ReadFrame() (image.Image, error)
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Source
	Open() error
	Close() error
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}
