// Package detector provides the interchangeable recognition strategies that
// turn sampled frames into gesture events.
//
// Every strategy produces the same gesture.Event contract, so consumers do
// not change when the heuristic motion strategy is swapped for a landmark
// model.
package detector

import (
	"errors"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/motion"
)

// Status describes what a strategy did with a frame.
type Status string

const (
	// StatusNotReady means the frame could not be used and the tick was skipped.
	StatusNotReady Status = "not-ready"
	// StatusCalibrating means the frame fed calibration and no gesture was emitted.
	StatusCalibrating Status = "calibrating"
	// StatusDetecting means the frame was classified.
	StatusDetecting Status = "detecting"
)

// Result is the outcome of processing one frame.
type Result struct {
	Event  gesture.Event
	Status Status
	// Sample is set by strategies that measure frame motion.
	Sample motion.Sample
	// Err explains a not-ready or calibrating status. It is never fatal.
	Err error
}

// Strategy recognises gestures from a stream of frames.
// A strategy is owned by one detection loop and holds per-session state.
type Strategy interface {
	// Name identifies the strategy in logs and status output.
	Name() string

	// Process analyses one frame.
	Process(frame *capture.Frame) Result

	// Reset discards all per-session state, including calibration.
	Reset()

	// Close releases any resources held by the strategy.
	Close() error
}

// Calibrated is implemented by strategies that learn a noise baseline.
type Calibrated interface {
	CalibrationProgress() float64
	Thresholds() (calibration.Thresholds, error)
}

// ErrModelUnavailable is returned when the landmark model service cannot be found.
var ErrModelUnavailable = errors.New("landmark model unavailable")

// HandDetector defines the interface for hand landmark detection implementations.
type HandDetector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *capture.Frame) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
