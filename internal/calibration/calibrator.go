// Package calibration learns the ambient motion noise of a camera during an
// initial still period and derives adaptive detection thresholds from it.
package calibration

import (
	"errors"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/config"
)

// ErrIncomplete is returned when thresholds are requested before the
// calibration window has filled.
var ErrIncomplete = errors.New("calibration incomplete")

// Thresholds are the adaptive thresholds derived from the baseline.
type Thresholds struct {
	Baseline          float64 `json:"baseline"`
	SignificantMotion float64 `json:"significant_motion"`
	HandMotion        float64 `json:"hand_motion"`
	Wave              float64 `json:"wave"`
}

// Stats summarises the calibration window.
type Stats struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
}

// Calibrator accumulates motion ratios until its window is full, then
// freezes the baseline for the rest of the session. It is safe for
// concurrent use.
type Calibrator struct {
	mu       sync.RWMutex
	cfg      config.CalibrationConfig
	window   []float64
	baseline float64
	complete bool
	log      *zap.Logger
}

// New creates a Calibrator. Invalid multipliers or floors fail here.
func New(cfg config.CalibrationConfig) (*Calibrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calibrator{
		cfg:    cfg,
		window: make([]float64, 0, cfg.Window),
		log:    zap.L().Named("calibration"),
	}, nil
}

// Add records a motion ratio and reports whether calibration is complete.
// Ratios arriving after completion are ignored.
func (c *Calibrator) Add(ratio float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.complete {
		return true
	}

	c.window = append(c.window, ratio)
	if len(c.window) < c.cfg.Window {
		return false
	}

	c.baseline = stat.Mean(c.window, nil)
	c.complete = true

	th := c.thresholds()
	c.log.Info("calibration complete",
		zap.Int("samples", len(c.window)),
		zap.Float64("baseline", th.Baseline),
		zap.Float64("significant_motion", th.SignificantMotion),
		zap.Float64("hand_motion", th.HandMotion),
		zap.Float64("wave", th.Wave))

	return true
}

// Complete reports whether the baseline has been learned.
func (c *Calibrator) Complete() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.complete
}

// Baseline returns the mean of the full window.
func (c *Calibrator) Baseline() (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.complete {
		return 0, ErrIncomplete
	}
	return c.baseline, nil
}

// Thresholds returns max(baseline × multiplier, floor) for each rule.
func (c *Calibrator) Thresholds() (Thresholds, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.complete {
		return Thresholds{}, ErrIncomplete
	}
	return c.thresholds(), nil
}

func (c *Calibrator) thresholds() Thresholds {
	return Thresholds{
		Baseline:          c.baseline,
		SignificantMotion: c.cfg.SignificantMotion.Apply(c.baseline),
		HandMotion:        c.cfg.HandMotion.Apply(c.baseline),
		Wave:              c.cfg.Wave.Apply(c.baseline),
	}
}

// Len returns the number of samples in the window.
func (c *Calibrator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.window)
}

// Progress returns the filled fraction of the window in [0,1].
func (c *Calibrator) Progress() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return float64(len(c.window)) / float64(c.cfg.Window)
}

// Stats returns the mean and standard deviation of the samples so far.
func (c *Calibrator) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Samples: len(c.window)}
	if len(c.window) == 0 {
		return s
	}
	s.Mean = stat.Mean(c.window, nil)
	if len(c.window) > 1 {
		s.StdDev = stat.StdDev(c.window, nil)
	}
	return s
}

// Reset discards the window and the learned baseline.
func (c *Calibrator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = c.window[:0]
	c.baseline = 0
	c.complete = false
}
