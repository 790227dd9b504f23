package gesture

import (
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/motion"
)

// Confidence bonuses and ceilings per category.
const (
	baseConfidenceMin = 0.2
	baseConfidenceMax = 0.9

	waveBonus    = 0.5
	waveCeiling  = 0.95
	twoHandBonus = 0.4
	twoHandCeil  = 0.9
	singleBonus  = 0.3
	singleCeil   = 0.8
	genericBonus = 0.2
	genericCeil  = 0.75
	bodyCeiling  = 0.6

	// dominanceFactor is how many times more active points one hand zone
	// needs than the other to count as dominant.
	dominanceFactor = 2
	// twoHandIntensity scales the significant-motion threshold the overall
	// motion ratio must exceed for two-hand activity.
	twoHandIntensity = 2
)

// Predicates are the boolean motion conditions for one sample.
type Predicates struct {
	SignificantMotion bool
	LeftHand          bool
	RightHand         bool
	BothHands         bool
	Waving            bool
	Torso             bool
}

// Evaluate computes the predicates for s under th.
func Evaluate(s motion.Sample, th calibration.Thresholds) Predicates {
	p := Predicates{
		SignificantMotion: s.MotionRatio > th.SignificantMotion,
		LeftHand:          s.LeftRatio > th.HandMotion,
		RightHand:         s.RightRatio > th.HandMotion,
		Torso:             s.CenterRatio > th.HandMotion,
	}
	p.BothHands = p.LeftHand && p.RightHand
	p.Waving = s.EdgeRatio > th.Wave && (p.LeftHand || p.RightHand)
	return p
}

// BaseConfidence scales how far the motion ratio rises above the baseline,
// relative to the significant-motion threshold, into [0.2, 0.9].
func BaseConfidence(s motion.Sample, th calibration.Thresholds) float64 {
	if th.SignificantMotion <= 0 {
		return baseConfidenceMin
	}
	c := baseConfidenceMin + 0.3*(s.MotionRatio-th.Baseline)/th.SignificantMotion
	return clamp(c, baseConfidenceMin, baseConfidenceMax)
}

// Classifier assigns categories to motion samples and debounces them.
// It is owned by a single detection loop and is not safe for concurrent use.
type Classifier struct {
	cfg        config.ClassifierConfig
	vocabulary *Vocabulary

	// quiet counts ticks since the last significant motion.
	quiet      int
	held       Event
	confidence float64

	log *zap.Logger
}

// NewClassifier creates a Classifier with its own vocabulary.
func NewClassifier(cfg config.ClassifierConfig) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{
		cfg:        cfg,
		vocabulary: NewVocabulary(cfg.Vocabulary),
		log:        zap.L().Named("classifier"),
	}
	c.Reset()
	return c, nil
}

// Classify returns the event for s.
//
// Significant motion resets the debounce counter and classifies the sample
// with the first matching rule: wave, two-hand, single-hand-dominant,
// generic-hand, body-movement. Quiet ticks increment the counter; while it
// stays below the debounce window the last gesture is held with decaying
// confidence and no tokens, after that the result is none with zero
// confidence.
func (c *Classifier) Classify(s motion.Sample, th calibration.Thresholds) Event {
	p := Evaluate(s, th)

	if p.SignificantMotion {
		c.quiet = 0
		ev := c.classify(s, th, p)
		if ev.IsGesture() {
			c.held = ev
			c.confidence = ev.Confidence
		} else {
			c.held = NoneEvent(s.Timestamp)
			c.confidence = 0
		}
		return ev
	}

	if c.quiet < c.cfg.DebounceWindow {
		c.quiet++
	}

	if c.quiet < c.cfg.DebounceWindow && c.held.IsGesture() {
		c.confidence *= c.cfg.Decay
		return Event{
			Timestamp:  s.Timestamp,
			Category:   c.held.Category,
			Confidence: c.confidence,
			Hands:      c.held.Hands,
			Held:       true,
		}
	}

	c.held = NoneEvent(s.Timestamp)
	c.confidence = 0
	return NoneEvent(s.Timestamp)
}

func (c *Classifier) classify(s motion.Sample, th calibration.Thresholds, p Predicates) Event {
	base := BaseConfidence(s, th)
	ev := Event{
		Timestamp: s.Timestamp,
		Hands:     HandPresence{Left: p.LeftHand, Right: p.RightHand},
	}

	switch {
	case p.Waving:
		ev.Category = CategoryWave
		ev.Confidence = min(base+waveBonus, waveCeiling)
		if c.cfg.WaveToken != "" {
			ev.Tokens = []string{c.cfg.WaveToken}
		}
	case p.BothHands && s.MotionRatio > twoHandIntensity*th.SignificantMotion:
		ev.Category = CategoryTwoHand
		ev.Confidence = min(base+twoHandBonus, twoHandCeil)
		ev.Tokens = []string{c.vocabulary.Next()}
	case dominant(s, p):
		ev.Category = CategorySingleHandDominant
		ev.Confidence = min(base+singleBonus, singleCeil)
	case p.LeftHand || p.RightHand:
		ev.Category = CategoryGenericHand
		ev.Confidence = min(base+genericBonus, genericCeil)
	case p.Torso:
		ev.Category = CategoryBodyMovement
		ev.Confidence = min(base, bodyCeiling)
	default:
		ev.Category = CategoryNone
	}

	c.log.Debug("classified",
		zap.String("category", string(ev.Category)),
		zap.Float64("confidence", ev.Confidence),
		zap.Float64("motion_ratio", s.MotionRatio))

	return ev
}

func dominant(s motion.Sample, p Predicates) bool {
	if p.LeftHand && s.LeftActive > dominanceFactor*s.RightActive {
		return true
	}
	return p.RightHand && s.RightActive > dominanceFactor*s.LeftActive
}

// Ceiling returns the highest confidence an event of category c may carry.
func Ceiling(c Category) float64 {
	switch c {
	case CategoryWave:
		return waveCeiling
	case CategoryTwoHand:
		return twoHandCeil
	case CategorySingleHandDominant:
		return singleCeil
	case CategoryGenericHand:
		return genericCeil
	case CategoryBodyMovement:
		return bodyCeiling
	}
	return 0
}

// Active reports whether a gesture is within its debounce window.
func (c *Classifier) Active() bool {
	return c.quiet < c.cfg.DebounceWindow
}

// Reset clears the debounce state. The vocabulary keeps counting.
func (c *Classifier) Reset() {
	c.quiet = c.cfg.DebounceWindow
	c.held = Event{Category: CategoryNone}
	c.confidence = 0
}

// Vocabulary returns the classifier's token source.
func (c *Classifier) Vocabulary() *Vocabulary {
	return c.vocabulary
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
