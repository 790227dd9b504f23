// Package config holds the tunable parameters of the hand-activity detector.
//
// Every threshold, window and cutoff the detector uses lives here so that a
// deployment can adjust it without a rebuild. Load overlays a JSON file on top
// of Default, so partial files are valid.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Error describes a single invalid configuration field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalid).
func (e *Error) Unwrap() error {
	return ErrInvalid
}

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Duration is a time.Duration that reads and writes JSON as "120ms".
type Duration time.Duration

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string such as "150ms".
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration of the detector.
type Config struct {
	Sampler     SamplerConfig     `json:"sampler"`
	Motion      MotionConfig      `json:"motion"`
	Calibration CalibrationConfig `json:"calibration"`
	Classifier  ClassifierConfig  `json:"classifier"`
	History     HistoryConfig     `json:"history"`
}

// SamplerConfig controls how often and at which size frames are pulled.
type SamplerConfig struct {
	// Interval between ticks of the detection loop.
	Interval Duration `json:"interval"`
	// Width is the maximum width of a sampled frame in pixels.
	Width int `json:"width"`
}

// Rect is a rectangle in normalised frame coordinates, both axes in [0,1].
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Contains reports whether the normalised point lies inside r.
// The lower bounds are inclusive and the upper bounds exclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

func (r Rect) validate(field string) error {
	if r.MinX < 0 || r.MinY < 0 || r.MaxX > 1 || r.MaxY > 1 {
		return invalid(field, "must lie within [0,1], got %+v", r)
	}
	if r.MinX >= r.MaxX || r.MinY >= r.MaxY {
		return invalid(field, "must have positive area, got %+v", r)
	}
	return nil
}

// ZoneConfig places the coarse regions used as hand and body proxies.
// Zones may overlap.
type ZoneConfig struct {
	Left   Rect `json:"left"`
	Right  Rect `json:"right"`
	Center Rect `json:"center"`
	// EdgeWidth is the width of the two vertical edge bands used for wave
	// detection: x < EdgeWidth or x > 1-EdgeWidth.
	EdgeWidth float64 `json:"edge_width"`
}

// MotionConfig controls frame differencing.
type MotionConfig struct {
	// Stride samples every N-th pixel in each axis.
	Stride int `json:"stride"`
	// BorderMargin skips this many pixels at every frame edge.
	BorderMargin int `json:"border_margin"`
	// NoiseFloor is the luminance delta (0-255) a point must exceed to count as active.
	NoiseFloor float64    `json:"noise_floor"`
	Zones      ZoneConfig `json:"zones"`
}

// ThresholdRule derives a threshold as max(baseline × Multiplier, Floor).
type ThresholdRule struct {
	Multiplier float64 `json:"multiplier"`
	Floor      float64 `json:"floor"`
}

// Apply returns the threshold for the given baseline.
func (r ThresholdRule) Apply(baseline float64) float64 {
	return max(baseline*r.Multiplier, r.Floor)
}

func (r ThresholdRule) validate(field string) error {
	if r.Multiplier <= 0 {
		return invalid(field+".multiplier", "must be positive, got %g", r.Multiplier)
	}
	// Below one the threshold could sit under the learned noise level.
	if r.Multiplier < 1 {
		return invalid(field+".multiplier", "must be at least 1, got %g", r.Multiplier)
	}
	if r.Floor <= 0 {
		return invalid(field+".floor", "must be positive, got %g", r.Floor)
	}
	if r.Floor > 1 {
		return invalid(field+".floor", "must not exceed 1, got %g", r.Floor)
	}
	return nil
}

// CalibrationConfig controls baseline learning.
type CalibrationConfig struct {
	// Window is the number of motion samples averaged into the baseline.
	Window            int           `json:"window"`
	SignificantMotion ThresholdRule `json:"significant_motion"`
	HandMotion        ThresholdRule `json:"hand_motion"`
	Wave              ThresholdRule `json:"wave"`
}

// ClassifierConfig controls gesture classification and debouncing.
type ClassifierConfig struct {
	// DebounceWindow (K) is the number of ticks a gesture stays active after
	// the last significant motion.
	DebounceWindow int `json:"debounce_window"`
	// Decay multiplies the confidence of a held gesture on each quiet tick.
	Decay float64 `json:"decay"`
	// Vocabulary is the placeholder word list for two-hand activity.
	// These words carry no meaning derived from the signer.
	Vocabulary []string `json:"vocabulary"`
	// WaveToken is the placeholder attached to wave events. Empty disables it.
	WaveToken string `json:"wave_token"`
}

// HistoryConfig controls the recognition history and its cutoffs.
type HistoryConfig struct {
	Capacity int `json:"capacity"`
	// DisplayCutoff is the confidence an event must exceed to enter the history.
	DisplayCutoff float64 `json:"display_cutoff"`
	// LogCutoff is the confidence an event must exceed for its tokens to reach the transcript.
	LogCutoff float64 `json:"log_cutoff"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Sampler: SamplerConfig{
			Interval: Duration(120 * time.Millisecond),
			Width:    240,
		},
		Motion: MotionConfig{
			Stride:       6,
			BorderMargin: 6,
			NoiseFloor:   25,
			Zones: ZoneConfig{
				Left:      Rect{MinX: 0, MinY: 0.2, MaxX: 0.35, MaxY: 0.8},
				Right:     Rect{MinX: 0.65, MinY: 0.2, MaxX: 1, MaxY: 0.8},
				Center:    Rect{MinX: 0.3, MinY: 0.25, MaxX: 0.7, MaxY: 0.85},
				EdgeWidth: 0.25,
			},
		},
		Calibration: CalibrationConfig{
			Window:            30,
			SignificantMotion: ThresholdRule{Multiplier: 3, Floor: 0.015},
			HandMotion:        ThresholdRule{Multiplier: 2, Floor: 0.01},
			Wave:              ThresholdRule{Multiplier: 4, Floor: 0.02},
		},
		Classifier: ClassifierConfig{
			DebounceWindow: 3,
			Decay:          0.5,
			Vocabulary: []string{
				"hello", "help", "problem", "service", "please",
				"thank-you", "yes", "no", "need", "complaint",
			},
			WaveToken: "hello",
		},
		History: HistoryConfig{
			Capacity:      150,
			DisplayCutoff: 0.4,
			LogCutoff:     0.6,
		},
	}
}

// Load reads a JSON configuration file and overlays it on Default.
// The result is validated before it is returned.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	if err := c.Sampler.Validate(); err != nil {
		return err
	}
	if err := c.Motion.Validate(); err != nil {
		return err
	}
	if err := c.Calibration.Validate(); err != nil {
		return err
	}
	if err := c.Classifier.Validate(); err != nil {
		return err
	}
	return c.History.Validate()
}

// Validate checks the sampler settings.
func (c SamplerConfig) Validate() error {
	if c.Interval <= 0 {
		return invalid("sampler.interval", "must be positive, got %s", c.Interval.Std())
	}
	if c.Width <= 0 {
		return invalid("sampler.width", "must be positive, got %d", c.Width)
	}
	return nil
}

// Validate checks the motion settings.
func (c MotionConfig) Validate() error {
	if c.Stride < 1 {
		return invalid("motion.stride", "must be at least 1, got %d", c.Stride)
	}
	if c.BorderMargin < 0 {
		return invalid("motion.border_margin", "must not be negative, got %d", c.BorderMargin)
	}
	if c.NoiseFloor <= 0 || c.NoiseFloor >= 255 {
		return invalid("motion.noise_floor", "must be in (0,255), got %g", c.NoiseFloor)
	}
	if err := c.Zones.Left.validate("motion.zones.left"); err != nil {
		return err
	}
	if err := c.Zones.Right.validate("motion.zones.right"); err != nil {
		return err
	}
	if err := c.Zones.Center.validate("motion.zones.center"); err != nil {
		return err
	}
	if c.Zones.EdgeWidth <= 0 || c.Zones.EdgeWidth >= 0.5 {
		return invalid("motion.zones.edge_width", "must be in (0,0.5), got %g", c.Zones.EdgeWidth)
	}
	return nil
}

// Validate checks the calibration settings.
func (c CalibrationConfig) Validate() error {
	if c.Window < 1 {
		return invalid("calibration.window", "must be at least 1, got %d", c.Window)
	}
	if err := c.SignificantMotion.validate("calibration.significant_motion"); err != nil {
		return err
	}
	if err := c.HandMotion.validate("calibration.hand_motion"); err != nil {
		return err
	}
	return c.Wave.validate("calibration.wave")
}

// Validate checks the classifier settings.
func (c ClassifierConfig) Validate() error {
	if c.DebounceWindow < 1 {
		return invalid("classifier.debounce_window", "must be at least 1, got %d", c.DebounceWindow)
	}
	if c.Decay < 0 || c.Decay > 1 {
		return invalid("classifier.decay", "must be in [0,1], got %g", c.Decay)
	}
	if len(c.Vocabulary) == 0 {
		return invalid("classifier.vocabulary", "must not be empty")
	}
	for i, w := range c.Vocabulary {
		if w == "" {
			return invalid("classifier.vocabulary", "entry %d is empty", i)
		}
	}
	return nil
}

// Validate checks the history settings.
func (c HistoryConfig) Validate() error {
	if c.Capacity < 1 {
		return invalid("history.capacity", "must be at least 1, got %d", c.Capacity)
	}
	if c.DisplayCutoff <= 0 || c.DisplayCutoff > 1 {
		return invalid("history.display_cutoff", "must be in (0,1], got %g", c.DisplayCutoff)
	}
	if c.LogCutoff < c.DisplayCutoff || c.LogCutoff > 1 {
		return invalid("history.log_cutoff", "must be in [display_cutoff,1], got %g", c.LogCutoff)
	}
	return nil
}
