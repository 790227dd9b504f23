package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{
			name:   "zero multiplier",
			mutate: func(c *Config) { c.Calibration.SignificantMotion.Multiplier = 0 },
			field:  "calibration.significant_motion.multiplier",
		},
		{
			name:   "negative floor",
			mutate: func(c *Config) { c.Calibration.HandMotion.Floor = -0.01 },
			field:  "calibration.hand_motion.floor",
		},
		{
			name:   "multiplier below one",
			mutate: func(c *Config) { c.Calibration.Wave.Multiplier = 0.5 },
			field:  "calibration.wave.multiplier",
		},
		{
			name:   "empty window",
			mutate: func(c *Config) { c.Calibration.Window = 0 },
			field:  "calibration.window",
		},
		{
			name:   "zero interval",
			mutate: func(c *Config) { c.Sampler.Interval = 0 },
			field:  "sampler.interval",
		},
		{
			name:   "zero stride",
			mutate: func(c *Config) { c.Motion.Stride = 0 },
			field:  "motion.stride",
		},
		{
			name:   "zone outside frame",
			mutate: func(c *Config) { c.Motion.Zones.Right.MaxX = 1.2 },
			field:  "motion.zones.right",
		},
		{
			name:   "zero debounce",
			mutate: func(c *Config) { c.Classifier.DebounceWindow = 0 },
			field:  "classifier.debounce_window",
		},
		{
			name:   "empty vocabulary",
			mutate: func(c *Config) { c.Classifier.Vocabulary = nil },
			field:  "classifier.vocabulary",
		},
		{
			name:   "log cutoff below display cutoff",
			mutate: func(c *Config) { c.History.LogCutoff = 0.3 },
			field:  "history.log_cutoff",
		},
		{
			name:   "zero capacity",
			mutate: func(c *Config) { c.History.Capacity = 0 },
			field:  "history.capacity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("errors.Is(err, ErrInvalid) = false for %v", err)
			}

			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %T is not *Error", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestThresholdRule_Apply(t *testing.T) {
	rule := ThresholdRule{Multiplier: 3, Floor: 0.015}

	if got := rule.Apply(0); got != 0.015 {
		t.Errorf("Apply(0) = %g, want floor 0.015", got)
	}
	if got := rule.Apply(0.01); got != 0.03 {
		t.Errorf("Apply(0.01) = %g, want 0.03", got)
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detector.json")
	data := `{
		"sampler": {"interval": "100ms"},
		"calibration": {"window": 20},
		"history": {"capacity": 200}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sampler.Interval.Std() != 100*time.Millisecond {
		t.Errorf("Interval = %s, want 100ms", cfg.Sampler.Interval.Std())
	}
	if cfg.Calibration.Window != 20 {
		t.Errorf("Window = %d, want 20", cfg.Calibration.Window)
	}
	if cfg.History.Capacity != 200 {
		t.Errorf("Capacity = %d, want 200", cfg.History.Capacity)
	}
	// Untouched fields keep their defaults.
	if cfg.Motion.Stride != Default().Motion.Stride {
		t.Errorf("Stride = %d, want default %d", cfg.Motion.Stride, Default().Motion.Stride)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("wrong extension", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "detector.yaml")); err == nil {
			t.Error("expected error for non-JSON extension")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte(`{"sampler": {"interval": "soon"}}`), 0o644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for unparsable duration")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		os.WriteFile(path, []byte(`{"calibration": {"hand_motion": {"multiplier": 0, "floor": 0.01}}}`), 0o644)
		_, err := Load(path)
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("Load() error = %v, want ErrInvalid", err)
		}
	})
}

func TestRect_Contains(t *testing.T) {
	r := Rect{MinX: 0.65, MinY: 0.2, MaxX: 1, MaxY: 0.8}

	tests := []struct {
		x, y float64
		want bool
	}{
		{0.7, 0.5, true},
		{0.65, 0.2, true},
		{0.6, 0.5, false},
		{0.7, 0.8, false},
		{0.7, 0.1, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%g, %g) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}
