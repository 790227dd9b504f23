package detector

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
)

const (
	// waveHistory is how many recent wrist positions are kept per hand.
	waveHistory = 6
	// waveTravel is the horizontal wrist span, in normalised image width,
	// that counts as a wave.
	waveTravel = 0.12
	// openPalm is the minimum Openness of a waving hand.
	openPalm = 2.2
)

// LandmarkModelStrategy classifies hands found by a landmark model.
// It emits the same categories and debounce behaviour as the heuristic
// strategy, and needs no calibration.
type LandmarkModelStrategy struct {
	hands      HandDetector
	minScore   float64
	cfg        config.ClassifierConfig
	vocabulary *gesture.Vocabulary

	tracks map[string][]float64
	quiet  int
	held   gesture.Event

	log *zap.Logger
}

// NewLandmarkModelStrategy wraps hd. Hands scoring below dcfg.MinConfidence
// are ignored.
func NewLandmarkModelStrategy(hd HandDetector, dcfg Config, cfg config.ClassifierConfig) (*LandmarkModelStrategy, error) {
	if hd == nil {
		return nil, fmt.Errorf("%w: nil hand detector", ErrModelUnavailable)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &LandmarkModelStrategy{
		hands:      hd,
		minScore:   dcfg.MinConfidence,
		cfg:        cfg,
		vocabulary: gesture.NewVocabulary(cfg.Vocabulary),
		log:        zap.L().Named("landmark"),
	}
	s.Reset()
	return s, nil
}

// Name returns "landmark".
func (s *LandmarkModelStrategy) Name() string {
	return "landmark"
}

// Process runs the landmark model on frame and classifies the hands it finds.
func (s *LandmarkModelStrategy) Process(frame *capture.Frame) Result {
	ts := frameTime(frame)

	found, err := s.hands.Detect(frame)
	if err != nil {
		s.log.Debug("hand detection failed", zap.Error(err))
		return Result{Event: gesture.NoneEvent(ts), Status: StatusNotReady, Err: err}
	}

	hands := found[:0]
	for _, h := range found {
		if h.Score >= s.minScore {
			hands = append(hands, h)
		}
	}

	if len(hands) == 0 {
		clear(s.tracks)
		return Result{Event: s.hold(ts), Status: StatusDetecting}
	}

	ev := gesture.Event{Timestamp: ts}
	seen := make(map[string]bool, len(hands))
	waving := false
	var score float64

	for i, h := range hands {
		key := h.Handedness
		switch key {
		case "Left":
			ev.Hands.Left = true
		case "Right":
			ev.Hands.Right = true
		default:
			key = fmt.Sprintf("hand%d", i)
		}
		seen[key] = true
		score += h.Score

		track := append(s.tracks[key], h.Wrist().X)
		if len(track) > waveHistory {
			track = track[len(track)-waveHistory:]
		}
		s.tracks[key] = track

		if h.Openness() >= openPalm && isWave(track) {
			waving = true
		}
	}
	for key := range s.tracks {
		if !seen[key] {
			delete(s.tracks, key)
		}
	}
	score /= float64(len(hands))

	switch {
	case waving:
		ev.Category = gesture.CategoryWave
		if s.cfg.WaveToken != "" {
			ev.Tokens = []string{s.cfg.WaveToken}
		}
	case len(hands) >= 2:
		ev.Category = gesture.CategoryTwoHand
		ev.Tokens = []string{s.vocabulary.Next()}
	case ev.Hands.Left || ev.Hands.Right:
		ev.Category = gesture.CategorySingleHandDominant
	default:
		ev.Category = gesture.CategoryGenericHand
	}
	ev.Confidence = min(score, gesture.Ceiling(ev.Category))

	s.quiet = 0
	s.held = ev

	return Result{Event: ev, Status: StatusDetecting}
}

// hold returns the debounced event for a tick without hands.
func (s *LandmarkModelStrategy) hold(ts time.Time) gesture.Event {
	if s.quiet < s.cfg.DebounceWindow {
		s.quiet++
	}
	if s.quiet < s.cfg.DebounceWindow && s.held.IsGesture() {
		s.held.Confidence *= s.cfg.Decay
		return gesture.Event{
			Timestamp:  ts,
			Category:   s.held.Category,
			Confidence: s.held.Confidence,
			Hands:      s.held.Hands,
			Held:       true,
		}
	}
	s.held = gesture.NoneEvent(ts)
	return gesture.NoneEvent(ts)
}

// isWave reports whether the wrist travelled far enough and changed direction.
func isWave(xs []float64) bool {
	if len(xs) < 3 {
		return false
	}
	lo, hi := xs[0], xs[0]
	reversals := 0
	prev := 0.0
	for i := 1; i < len(xs); i++ {
		lo, hi = min(lo, xs[i]), max(hi, xs[i])
		d := xs[i] - xs[i-1]
		if d == 0 {
			continue
		}
		if prev != 0 && (d > 0) != (prev > 0) {
			reversals++
		}
		prev = d
	}
	return hi-lo >= waveTravel && reversals >= 1
}

// Reset clears wrist tracks and debounce state.
func (s *LandmarkModelStrategy) Reset() {
	s.tracks = make(map[string][]float64)
	s.quiet = s.cfg.DebounceWindow
	s.held = gesture.Event{Category: gesture.CategoryNone}
}

// Close releases the hand detector.
func (s *LandmarkModelStrategy) Close() error {
	return s.hands.Close()
}
