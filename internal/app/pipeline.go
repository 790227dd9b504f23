package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/detector"
)

// run is the detection loop of one session. Ticks fire at the sample
// interval and never overlap.
func (a *App) run(ctx context.Context, sess *session) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.Detection.Sampler.Interval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.expire(sess)
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				a.expire(sess)
				return
			}
			if _, err := a.tick(sess); err != nil && !errors.Is(err, ErrBusy) {
				a.log.Debug("tick skipped", zap.Error(err))
			}
		}
	}
}

// Tick runs one detection step on the active session outside the timer.
func (a *App) Tick() (detector.Result, error) {
	a.mu.RLock()
	sess := a.sess
	a.mu.RUnlock()

	if sess == nil {
		return detector.Result{}, ErrNotRunning
	}
	return a.tick(sess)
}

// tick samples a frame, runs the strategy and records the result.
//
// Steps:
// 1. Refuse to run if another tick holds the busy flag
// 2. Sample a frame; a source that is not ready skips the tick
// 3. Process the frame with the session strategy
// 4. Move between calibrating and ready according to the result
// 5. Record qualifying events in the history and publish detections
func (a *App) tick(sess *session) (detector.Result, error) {
	if !sess.busy.CompareAndSwap(false, true) {
		sess.skipped.Add(1)
		return detector.Result{}, ErrBusy
	}
	defer sess.busy.Store(false)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.sampler == nil || !a.current(sess) {
		return detector.Result{}, ErrNotRunning
	}

	frame, err := sess.sampler.Sample()
	if err != nil {
		sess.skipped.Add(1)
		return detector.Result{Status: detector.StatusNotReady, Err: err}, nil
	}

	sess.latest.Store(frame)

	res := sess.strategy.Process(frame)
	sess.ticks.Add(1)

	switch res.Status {
	case detector.StatusNotReady:
		sess.skipped.Add(1)
		a.log.Debug("strategy not ready", zap.Error(res.Err))
		return res, nil
	case detector.StatusCalibrating:
		a.setState(sess, StateCalibrating)
		return res, nil
	}

	a.setState(sess, StateReady)

	if sess.history.Add(res.Event) {
		a.log.Debug("gesture recorded",
			zap.String("category", string(res.Event.Category)),
			zap.Float64("confidence", res.Event.Confidence),
			zap.Strings("tokens", res.Event.Tokens))
	}
	a.publish(res.Event)

	return res, nil
}
