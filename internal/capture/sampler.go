package capture

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
)

// Sampler pulls one downscaled frame from a source per call.
// It keeps no reference to the frames it returns.
type Sampler struct {
	source Source
	width  int
	now    func() time.Time
	log    *zap.Logger
}

// NewSampler creates a Sampler over src.
func NewSampler(src Source, cfg config.SamplerConfig) (*Sampler, error) {
	if src == nil {
		return nil, errors.New("sampler: nil source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Sampler{
		source: src,
		width:  cfg.Width,
		now:    time.Now,
		log:    zap.L().Named("sampler"),
	}, nil
}

// Sample reads the current frame from the source and downscales it.
// Any source failure is reported as ErrSourceNotReady so the caller can skip
// the tick and try again.
func (s *Sampler) Sample() (*Frame, error) {
	img, err := s.source.ReadFrame()
	if err != nil {
		if !errors.Is(err, ErrSourceNotReady) {
			err = fmt.Errorf("%w: %v", ErrSourceNotReady, err)
		}
		s.log.Debug("source not ready", zap.Error(err))
		return nil, err
	}

	frame, err := FrameFromImage(img, s.width, s.now())
	if err != nil {
		return nil, err
	}

	return frame, nil
}
