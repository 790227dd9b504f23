package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/history"
)

// session is the mutable state of one detector run. It is created by Start
// and discarded by Stop; only the loop mutates the sampler and strategy.
type session struct {
	id       string
	started  time.Time
	source   capture.Source
	sampler  *capture.Sampler
	strategy detector.Strategy
	history  *history.Aggregator

	// latest is the most recently sampled frame, read by the preview.
	latest atomic.Pointer[capture.Frame]

	busy    atomic.Bool
	ticks   atomic.Uint64
	skipped atomic.Uint64

	mu    sync.Mutex
	ended time.Time
}

func newSession(src capture.Source, cfg config.Config, factory StrategyFactory) (*session, error) {
	sampler, err := capture.NewSampler(src, cfg.Sampler)
	if err != nil {
		return nil, err
	}
	agg, err := history.NewAggregator(cfg.History)
	if err != nil {
		return nil, err
	}
	strategy, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	return &session{
		id:       uuid.NewString(),
		started:  time.Now(),
		source:   src,
		sampler:  sampler,
		strategy: strategy,
		history:  agg,
	}, nil
}

// finish marks the session ended and releases the strategy and source.
func (s *session) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ended = time.Now()
	s.sampler = nil
	s.source = nil
	return s.strategy.Close()
}

func (s *session) frameSource() capture.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *session) endedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// baseline returns the learned noise baseline, if the strategy has one.
func (s *session) baseline() *float64 {
	c, ok := s.strategy.(detector.Calibrated)
	if !ok {
		return nil
	}
	th, err := c.Thresholds()
	if err != nil {
		return nil
	}
	return &th.Baseline
}
