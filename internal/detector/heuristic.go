package detector

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/motion"
)

// HeuristicMotionStrategy classifies frame-differencing motion by zone.
// Output is suppressed until the noise baseline has been learned.
type HeuristicMotionStrategy struct {
	motion      *motion.Detector
	calibration *calibration.Calibrator
	classifier  *gesture.Classifier
	log         *zap.Logger
}

// NewHeuristicMotionStrategy builds the motion, calibration and classifier
// stages from cfg. Any invalid setting fails here.
func NewHeuristicMotionStrategy(cfg config.Config) (*HeuristicMotionStrategy, error) {
	md, err := motion.New(cfg.Motion)
	if err != nil {
		return nil, err
	}
	cal, err := calibration.New(cfg.Calibration)
	if err != nil {
		return nil, err
	}
	cls, err := gesture.NewClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}

	return &HeuristicMotionStrategy{
		motion:      md,
		calibration: cal,
		classifier:  cls,
		log:         zap.L().Named("heuristic"),
	}, nil
}

// Name returns "heuristic".
func (s *HeuristicMotionStrategy) Name() string {
	return "heuristic"
}

// Process measures motion against the previous frame and classifies it.
// A frame whose size differs from the previous one restarts calibration.
func (s *HeuristicMotionStrategy) Process(frame *capture.Frame) Result {
	var ts = frameTime(frame)

	sample, err := s.motion.Detect(frame)
	switch {
	case errors.Is(err, motion.ErrDegenerateFrame):
		s.calibration.Reset()
		s.classifier.Reset()
		s.log.Warn("degenerate frame, restarting calibration", zap.Error(err))
		return Result{Event: gesture.NoneEvent(ts), Status: StatusCalibrating, Err: err}
	case err != nil:
		return Result{Event: gesture.NoneEvent(ts), Status: StatusNotReady, Err: err}
	}

	return s.ProcessSample(sample)
}

// ProcessSample runs calibration and classification on a measured sample.
func (s *HeuristicMotionStrategy) ProcessSample(sample motion.Sample) Result {
	none := gesture.NoneEvent(sample.Timestamp)

	if !sample.Compared {
		if s.calibration.Complete() {
			return Result{Event: none, Status: StatusDetecting, Sample: sample}
		}
		return Result{Event: none, Status: StatusCalibrating, Sample: sample, Err: calibration.ErrIncomplete}
	}

	if !s.calibration.Complete() {
		if s.calibration.Add(sample.MotionRatio) {
			return Result{Event: none, Status: StatusDetecting, Sample: sample}
		}
		return Result{Event: none, Status: StatusCalibrating, Sample: sample, Err: calibration.ErrIncomplete}
	}

	th, err := s.calibration.Thresholds()
	if err != nil {
		return Result{Event: none, Status: StatusCalibrating, Sample: sample, Err: err}
	}

	return Result{
		Event:  s.classifier.Classify(sample, th),
		Status: StatusDetecting,
		Sample: sample,
	}
}

// CalibrationProgress returns the filled fraction of the calibration window.
func (s *HeuristicMotionStrategy) CalibrationProgress() float64 {
	return s.calibration.Progress()
}

// Thresholds returns the learned thresholds once calibration is complete.
func (s *HeuristicMotionStrategy) Thresholds() (calibration.Thresholds, error) {
	return s.calibration.Thresholds()
}

// CalibrationStats returns the statistics of the calibration window.
func (s *HeuristicMotionStrategy) CalibrationStats() calibration.Stats {
	return s.calibration.Stats()
}

// Reset clears the previous frame, calibration and debounce state.
func (s *HeuristicMotionStrategy) Reset() {
	s.motion.Reset()
	s.calibration.Reset()
	s.classifier.Reset()
}

// Close is a no-op; the strategy holds no external resources.
func (s *HeuristicMotionStrategy) Close() error {
	return nil
}
