package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/detector/mediapipe"
)

const (
	strategyHeuristic = "heuristic"
	strategyLandmark  = "landmark"

	cameraRetries = 5
)

// openCamera opens cam, retrying with exponential backoff while the device
// is busy or still initialising.
func openCamera(ctx context.Context, cam capture.Camera, retries uint64) error {
	return openCameraWith(ctx, cam, retries, 500*time.Millisecond)
}

func openCameraWith(ctx context.Context, cam capture.Camera, retries uint64, initial time.Duration) error {
	log := zap.L().Named("camera")

	ebo := backoff.NewExponentialBackOff()
	ebo.InitialInterval = initial
	ebo.Reset()

	attempt := 0
	op := func() error {
		attempt++
		err := cam.Open()
		if err != nil {
			log.Warn("open camera failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(ebo, retries), ctx)); err != nil {
		return fmt.Errorf("open camera after %d attempts: %w", attempt, err)
	}
	return nil
}

// chooseStrategy returns the factory for the named strategy. The landmark
// strategy falls back to the heuristic one when the model service is missing.
func chooseStrategy(name string) (app.StrategyFactory, error) {
	switch name {
	case strategyHeuristic:
		return app.HeuristicFactory, nil
	case strategyLandmark:
		return landmarkFactory(detector.DefaultConfig(), func(dcfg detector.Config) (detector.HandDetector, error) {
			d, err := mediapipe.New(dcfg)
			if err != nil {
				return nil, err
			}
			return d, nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

type handDetectorFunc func(detector.Config) (detector.HandDetector, error)

func landmarkFactory(dcfg detector.Config, newDetector handDetectorFunc) app.StrategyFactory {
	return func(cfg config.Config) (detector.Strategy, error) {
		hd, err := newDetector(dcfg)
		if errors.Is(err, detector.ErrModelUnavailable) {
			zap.L().Named("main").Warn("landmark model unavailable, using heuristic strategy", zap.Error(err))
			return app.HeuristicFactory(cfg)
		}
		if err != nil {
			return nil, err
		}
		return detector.NewLandmarkModelStrategy(hd, dcfg, cfg.Classifier)
	}
}
