package gesture

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/motion"
)

// quietThresholds are the thresholds learned from a baseline of 0.005.
var quietThresholds = calibration.Thresholds{
	Baseline:          0.005,
	SignificantMotion: 0.015,
	HandMotion:        0.01,
	Wave:              0.02,
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(config.Default().Classifier)
	require.NoError(t, err)
	return c
}

func TestNewClassifier_InvalidConfig(t *testing.T) {
	cfg := config.Default().Classifier
	cfg.DebounceWindow = 0
	_, err := NewClassifier(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestEvaluate_NoSignificantMotionAtOrBelowBaseline(t *testing.T) {
	rules := config.Default().Calibration
	for _, baseline := range []float64{0, 0.001, 0.005, 0.02, 0.1, 0.3} {
		th := calibration.Thresholds{
			Baseline:          baseline,
			SignificantMotion: rules.SignificantMotion.Apply(baseline),
			HandMotion:        rules.HandMotion.Apply(baseline),
			Wave:              rules.Wave.Apply(baseline),
		}
		for _, frac := range []float64{0, 0.25, 0.5, 0.99, 1} {
			s := motion.Sample{MotionRatio: baseline * frac}
			assert.False(t, Evaluate(s, th).SignificantMotion,
				"ratio %g with baseline %g", s.MotionRatio, baseline)
		}
	}
}

func TestEvaluate_LeftZoneOnly(t *testing.T) {
	s := motion.Sample{MotionRatio: 0.04, LeftRatio: 0.12, LeftActive: 30}

	p := Evaluate(s, quietThresholds)

	assert.True(t, p.SignificantMotion)
	assert.True(t, p.LeftHand)
	assert.False(t, p.RightHand)
	assert.False(t, p.BothHands)
}

func TestEvaluate_WavingNeedsAHand(t *testing.T) {
	edgeOnly := motion.Sample{MotionRatio: 0.05, EdgeRatio: 0.1}
	assert.False(t, Evaluate(edgeOnly, quietThresholds).Waving)

	edgeAndHand := motion.Sample{MotionRatio: 0.05, EdgeRatio: 0.1, RightRatio: 0.1}
	assert.True(t, Evaluate(edgeAndHand, quietThresholds).Waving)
}

func TestBaseConfidence(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{name: "at baseline", ratio: 0.005, want: 0.2},
		{name: "below baseline clamps", ratio: 0, want: 0.2},
		{name: "one threshold above", ratio: 0.02, want: 0.5},
		{name: "far above clamps", ratio: 0.5, want: 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BaseConfidence(motion.Sample{MotionRatio: tt.ratio}, quietThresholds)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestClassify_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		sample    motion.Sample
		want      Category
		hands     HandPresence
		maxConf   float64
		hasTokens bool
	}{
		{
			name:      "wave beats everything",
			sample:    motion.Sample{MotionRatio: 0.08, LeftRatio: 0.2, RightRatio: 0.2, EdgeRatio: 0.1, LeftActive: 20, RightActive: 20},
			want:      CategoryWave,
			hands:     HandPresence{Left: true, Right: true},
			maxConf:   0.95,
			hasTokens: true,
		},
		{
			name:      "two hands with strong motion",
			sample:    motion.Sample{MotionRatio: 0.05, LeftRatio: 0.1, RightRatio: 0.1, LeftActive: 10, RightActive: 10},
			want:      CategoryTwoHand,
			hands:     HandPresence{Left: true, Right: true},
			maxConf:   0.9,
			hasTokens: true,
		},
		{
			name:    "two hands with weak motion fall through to generic",
			sample:  motion.Sample{MotionRatio: 0.02, LeftRatio: 0.05, RightRatio: 0.05, LeftActive: 10, RightActive: 10},
			want:    CategoryGenericHand,
			hands:   HandPresence{Left: true, Right: true},
			maxConf: 0.75,
		},
		{
			name:    "left hand dominant",
			sample:  motion.Sample{MotionRatio: 0.03, LeftRatio: 0.1, LeftActive: 25, RightActive: 3},
			want:    CategorySingleHandDominant,
			hands:   HandPresence{Left: true},
			maxConf: 0.8,
		},
		{
			name:    "right hand without dominance",
			sample:  motion.Sample{MotionRatio: 0.03, RightRatio: 0.05, RightActive: 10, LeftActive: 6},
			want:    CategoryGenericHand,
			hands:   HandPresence{Right: true},
			maxConf: 0.75,
		},
		{
			name:    "torso only",
			sample:  motion.Sample{MotionRatio: 0.03, CenterRatio: 0.08, CenterActive: 20},
			want:    CategoryBodyMovement,
			maxConf: 0.6,
		},
		{
			name:   "significant motion outside every zone",
			sample: motion.Sample{MotionRatio: 0.03},
			want:   CategoryNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClassifier(t)
			tt.sample.Timestamp = t0

			ev := c.Classify(tt.sample, quietThresholds)

			assert.Equal(t, tt.want, ev.Category)
			assert.Equal(t, tt.hands, ev.Hands)
			assert.LessOrEqual(t, ev.Confidence, tt.maxConf)
			assert.GreaterOrEqual(t, ev.Confidence, 0.0)
			assert.Equal(t, tt.hasTokens, len(ev.Tokens) > 0)
			if ev.Category == CategoryBodyMovement {
				assert.Empty(t, ev.Tokens)
			}
		})
	}
}

func TestClassify_RightHandDominantAfterQuietCalibration(t *testing.T) {
	c := newClassifier(t)

	ev := c.Classify(motion.Sample{
		Timestamp:   t0,
		MotionRatio: 0.05,
		RightRatio:  0.2,
		RightActive: 40,
		Compared:    true,
	}, quietThresholds)

	want := Event{
		Timestamp:  t0,
		Category:   CategorySingleHandDominant,
		Confidence: 0.8,
		Hands:      HandPresence{Left: false, Right: true},
	}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_DebounceHoldsForKMinusOneTicks(t *testing.T) {
	cfg := config.Default().Classifier
	cfg.DebounceWindow = 3
	c, err := NewClassifier(cfg)
	require.NoError(t, err)

	quiet := motion.Sample{Compared: true}
	spike := motion.Sample{MotionRatio: 0.05, RightRatio: 0.2, RightActive: 40, Compared: true}

	for i := 0; i < 3; i++ {
		ev := c.Classify(quiet, quietThresholds)
		require.Equal(t, CategoryNone, ev.Category, "quiet tick %d before the spike", i)
	}
	assert.False(t, c.Active())

	first := c.Classify(spike, quietThresholds)
	require.Equal(t, CategorySingleHandDominant, first.Category)
	assert.False(t, first.Held)
	assert.True(t, c.Active())

	prev := first.Confidence
	for i := 1; i <= 2; i++ {
		ev := c.Classify(quiet, quietThresholds)
		assert.Equal(t, CategorySingleHandDominant, ev.Category, "held tick %d", i)
		assert.Less(t, ev.Confidence, prev, "confidence decays on held tick %d", i)
		assert.Empty(t, ev.Tokens)
		assert.True(t, ev.Held, "held tick %d is marked as a repeat", i)
		prev = ev.Confidence
	}

	ev := c.Classify(quiet, quietThresholds)
	assert.Equal(t, CategoryNone, ev.Category)
	assert.Zero(t, ev.Confidence)
	assert.False(t, c.Active())
}

func TestClassify_TwoHandTokensRoundRobin(t *testing.T) {
	cfg := config.Default().Classifier
	cfg.Vocabulary = []string{"alpha", "beta"}
	c, err := NewClassifier(cfg)
	require.NoError(t, err)

	s := motion.Sample{MotionRatio: 0.06, LeftRatio: 0.1, RightRatio: 0.1, LeftActive: 10, RightActive: 10}

	var got []string
	for i := 0; i < 3; i++ {
		ev := c.Classify(s, quietThresholds)
		require.Equal(t, CategoryTwoHand, ev.Category)
		require.Len(t, ev.Tokens, 1)
		got = append(got, ev.Tokens[0])
	}

	assert.Equal(t, []string{"alpha", "beta", "alpha"}, got)
	assert.Equal(t, uint64(3), c.Vocabulary().Drawn())
}

func TestClassify_ResetClearsDebounce(t *testing.T) {
	c := newClassifier(t)
	c.Classify(motion.Sample{MotionRatio: 0.05, RightRatio: 0.2, RightActive: 40}, quietThresholds)
	require.True(t, c.Active())

	c.Reset()

	assert.False(t, c.Active())
	ev := c.Classify(motion.Sample{}, quietThresholds)
	assert.Equal(t, CategoryNone, ev.Category)
}

func TestEvent_Clone(t *testing.T) {
	ev := Event{Category: CategoryTwoHand, Tokens: []string{"help"}}
	cp := ev.Clone()
	cp.Tokens[0] = "changed"

	assert.Equal(t, "help", ev.Tokens[0])
	assert.True(t, ev.IsGesture())
	assert.False(t, NoneEvent(t0).IsGesture())
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), "category %q", c)
	}
	assert.False(t, Category("thumbs-up").Valid())
}

func TestCeiling(t *testing.T) {
	assert.Equal(t, 0.95, Ceiling(CategoryWave))
	assert.Equal(t, 0.6, Ceiling(CategoryBodyMovement))
	assert.Zero(t, Ceiling(CategoryNone))
}
