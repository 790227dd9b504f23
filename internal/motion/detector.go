// Package motion measures frame-to-frame motion on a strided luminance grid
// and splits it into the coarse zones used as hand and body proxies.
package motion

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
)

// ErrDegenerateFrame is returned when a frame's dimensions differ from the
// stored previous frame. The detector re-anchors on the new frame.
var ErrDegenerateFrame = errors.New("frame dimensions changed")

// Sample is the per-tick motion aggregate. All ratios lie in [0,1].
type Sample struct {
	Timestamp time.Time

	MotionRatio float64
	LeftRatio   float64
	RightRatio  float64
	CenterRatio float64
	EdgeRatio   float64

	ActivePoints  int
	SampledPoints int
	LeftActive    int
	RightActive   int
	CenterActive  int
	EdgeActive    int

	// Compared is false when there was no previous frame to compare with.
	Compared bool
}

// Detector detects motion between consecutive sampled frames.
// It owns the previous-frame reference; nothing else writes to it.
type Detector struct {
	cfg  config.MotionConfig
	prev *capture.Frame
	mu   sync.Mutex
	log  *zap.Logger
}

// New creates a Detector. Invalid settings are rejected before any frame is seen.
func New(cfg config.MotionConfig) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		cfg: cfg,
		log: zap.L().Named("motion"),
	}, nil
}

// Detect compares frame with the previous one and returns the motion sample.
//
// Algorithm:
//  1. Without a previous frame, store this one and report zero motion.
//  2. Walk a grid that skips BorderMargin pixels at each edge and visits
//     every Stride-th pixel on both axes.
//  3. A point is active when its luminance changed by more than NoiseFloor.
//  4. Active points are counted into the overlapping left, right, center
//     and edge zones by normalised position.
//  5. Ratios are active points over sampled points, overall and per zone.
//
// The frame becomes the previous frame for the next call.
func (d *Detector) Detect(frame *capture.Frame) (Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !frame.Valid() {
		return Sample{}, capture.ErrSourceNotReady
	}

	sample := Sample{Timestamp: frame.Timestamp}

	if d.prev == nil {
		d.prev = frame
		return sample, nil
	}

	if !frame.SameSize(d.prev) {
		d.log.Warn("frame size changed, resetting reference",
			zap.Int("prev_width", d.prev.Width),
			zap.Int("prev_height", d.prev.Height),
			zap.Int("width", frame.Width),
			zap.Int("height", frame.Height))
		d.prev = frame
		return sample, ErrDegenerateFrame
	}

	zones := d.cfg.Zones
	var leftSampled, rightSampled, centerSampled, edgeSampled int

	w, h := float64(frame.Width), float64(frame.Height)
	margin, stride := d.cfg.BorderMargin, d.cfg.Stride

	for y := margin; y < frame.Height-margin; y += stride {
		ny := float64(y) / h
		for x := margin; x < frame.Width-margin; x += stride {
			nx := float64(x) / w

			inLeft := zones.Left.Contains(nx, ny)
			inRight := zones.Right.Contains(nx, ny)
			inCenter := zones.Center.Contains(nx, ny)
			inEdge := nx < zones.EdgeWidth || nx > 1-zones.EdgeWidth

			sample.SampledPoints++
			if inLeft {
				leftSampled++
			}
			if inRight {
				rightSampled++
			}
			if inCenter {
				centerSampled++
			}
			if inEdge {
				edgeSampled++
			}

			delta := math.Abs(frame.Luminance(x, y) - d.prev.Luminance(x, y))
			if delta <= d.cfg.NoiseFloor {
				continue
			}

			sample.ActivePoints++
			if inLeft {
				sample.LeftActive++
			}
			if inRight {
				sample.RightActive++
			}
			if inCenter {
				sample.CenterActive++
			}
			if inEdge {
				sample.EdgeActive++
			}
		}
	}

	sample.Compared = true
	sample.MotionRatio = ratio(sample.ActivePoints, sample.SampledPoints)
	sample.LeftRatio = ratio(sample.LeftActive, leftSampled)
	sample.RightRatio = ratio(sample.RightActive, rightSampled)
	sample.CenterRatio = ratio(sample.CenterActive, centerSampled)
	sample.EdgeRatio = ratio(sample.EdgeActive, edgeSampled)

	d.prev = frame

	return sample, nil
}

// Reset drops the previous-frame reference.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = nil
}

// HasReference reports whether a previous frame is stored.
func (d *Detector) HasReference() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prev != nil
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
