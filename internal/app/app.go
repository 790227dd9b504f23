// Package app runs the detection loop and owns the per-session state.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/history"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/transcript"
)

// State is the detector lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateCalibrating State = "calibrating"
	StateReady       State = "ready"
)

var (
	// ErrRunning is returned by Start when a session is already active.
	ErrRunning = errors.New("detector already running")
	// ErrNotRunning is returned when an operation needs an active session.
	ErrNotRunning = errors.New("detector not running")
	// ErrBusy is returned by Tick while a previous tick is still in progress.
	ErrBusy = errors.New("previous tick still running")
	// ErrNoSource is returned by Start when no frame source is available.
	ErrNoSource = errors.New("no frame source")
	// ErrNoSession is returned when no session has run yet.
	ErrNoSession = errors.New("no session recorded")
)

// subscriberBuffer is the channel capacity of each subscriber.
const subscriberBuffer = 32

// StrategyFactory builds a fresh strategy for each session.
type StrategyFactory func(cfg config.Config) (detector.Strategy, error)

// HeuristicFactory builds the motion heuristic strategy.
func HeuristicFactory(cfg config.Config) (detector.Strategy, error) {
	return detector.NewHeuristicMotionStrategy(cfg)
}

// Config holds configuration options for the application.
type Config struct {
	Detection config.Config
	// Source is used by Start when it is called without one.
	Source capture.Source
	// Store persists sessions on Stop when set.
	Store *store.Store
	// Strategy builds the per-session strategy. Defaults to HeuristicFactory.
	Strategy StrategyFactory
}

// Status is a point-in-time view of the detector.
type Status struct {
	State               State                   `json:"state"`
	SessionID           string                  `json:"session_id,omitempty"`
	Strategy            string                  `json:"strategy,omitempty"`
	StartedAt           *time.Time              `json:"started_at,omitempty"`
	CalibrationProgress float64                 `json:"calibration_progress"`
	Thresholds          *calibration.Thresholds `json:"thresholds,omitempty"`
	LastEvent           *gesture.Event          `json:"last_event,omitempty"`
	Ticks               uint64                  `json:"ticks"`
	Skipped             uint64                  `json:"skipped"`
	HistoryLen          int                     `json:"history_len"`
}

// App coordinates the sampler, the active strategy and the history for one
// session at a time.
type App struct {
	config Config

	mu      sync.RWMutex
	state   State
	factory StrategyFactory
	sess    *session
	last    *session
	parent  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	subsMu  sync.Mutex
	subs    map[int]chan gesture.Event
	nextSub int

	log *zap.Logger
}

// New validates the configuration and creates an idle App.
func New(cfg Config) (*App, error) {
	if err := cfg.Detection.Validate(); err != nil {
		return nil, err
	}

	factory := cfg.Strategy
	if factory == nil {
		factory = HeuristicFactory
	}

	return &App{
		config:  cfg,
		state:   StateIdle,
		factory: factory,
		subs:    make(map[int]chan gesture.Event),
		log:     zap.L().Named("app"),
	}, nil
}

// SetStrategyFactory replaces the strategy used by the next session.
func (a *App) SetStrategyFactory(f StrategyFactory) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if f == nil {
		f = HeuristicFactory
	}
	a.factory = f
}

// Config returns the detection configuration.
func (a *App) Config() config.Config {
	return a.config.Detection
}

// Start begins a new session reading from src, or from the configured source
// when src is nil. The loop runs until Stop is called or ctx is cancelled.
func (a *App) Start(ctx context.Context, src capture.Source) error {
	if src == nil {
		src = a.config.Source
	}
	if src == nil {
		return ErrNoSource
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateIdle {
		return ErrRunning
	}

	sess, err := newSession(src, a.config.Detection, a.factory)
	if err != nil {
		return err
	}

	a.sess = sess
	a.state = StateCalibrating
	if _, ok := sess.strategy.(detector.Calibrated); !ok {
		a.state = StateReady
	}
	a.parent = ctx

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.recordStart(sess)

	a.wg.Add(1)
	go a.run(loopCtx, sess)

	a.log.Info("detection started",
		zap.String("session", sess.id),
		zap.String("strategy", sess.strategy.Name()),
		zap.Duration("interval", a.config.Detection.Sampler.Interval.Std()))

	return nil
}

// Stop cancels the loop, waits for it to exit, releases the source and
// strategy, and persists the session. Stopping an idle App only waits for a
// loop that is still winding down.
func (a *App) Stop() error {
	a.mu.Lock()
	if a.state == StateIdle {
		a.mu.Unlock()
		a.wg.Wait()
		return nil
	}
	sess := a.detachLocked()
	a.mu.Unlock()

	a.wg.Wait()
	return a.end(sess)
}

// expire ends sess after its loop context was cancelled by the caller.
// It runs on the loop goroutine and does nothing if Stop got there first.
func (a *App) expire(sess *session) {
	a.mu.Lock()
	if a.sess != sess {
		a.mu.Unlock()
		return
	}
	a.detachLocked()
	a.mu.Unlock()

	a.log.Info("detection context cancelled", zap.String("session", sess.id))
	if err := a.end(sess); err != nil {
		a.log.Warn("persist session", zap.String("session", sess.id), zap.Error(err))
	}
}

// detachLocked cancels the loop and returns to Idle. a.mu must be held.
func (a *App) detachLocked() *session {
	a.cancel()
	sess := a.sess
	a.sess = nil
	a.last = sess
	a.state = StateIdle
	a.cancel = nil
	return sess
}

// end releases the session's resources and persists it.
func (a *App) end(sess *session) error {
	if err := sess.finish(); err != nil {
		a.log.Warn("close strategy", zap.String("session", sess.id), zap.Error(err))
	}

	a.log.Info("detection stopped",
		zap.String("session", sess.id),
		zap.Uint64("ticks", sess.ticks.Load()),
		zap.Uint64("skipped", sess.skipped.Load()),
		zap.Int("events", sess.history.Added()))

	return a.persist(sess)
}

// LatestFrame returns a copy of the frame most recently sampled by the
// active session.
func (a *App) LatestFrame() (*capture.Frame, bool) {
	a.mu.RLock()
	sess := a.sess
	a.mu.RUnlock()

	if sess == nil {
		return nil, false
	}
	f := sess.latest.Load()
	if f == nil {
		return nil, false
	}
	return f.Clone(), true
}

// Restart ends the current session and starts a new one on the same source,
// discarding calibration.
func (a *App) Restart() error {
	a.mu.RLock()
	sess, parent := a.sess, a.parent
	a.mu.RUnlock()

	if sess == nil {
		return ErrNotRunning
	}
	src := sess.frameSource()

	if err := a.Stop(); err != nil {
		a.log.Warn("persist session on restart", zap.Error(err))
	}
	return a.Start(parent, src)
}

// State returns the lifecycle state.
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Status returns a snapshot of the detector.
func (a *App) Status() Status {
	a.mu.RLock()
	state, sess := a.state, a.sess
	a.mu.RUnlock()

	st := Status{State: state}
	if sess == nil {
		return st
	}

	started := sess.started
	st.SessionID = sess.id
	st.Strategy = sess.strategy.Name()
	st.StartedAt = &started
	st.Ticks = sess.ticks.Load()
	st.Skipped = sess.skipped.Load()
	st.HistoryLen = len(sess.history.Snapshot())

	if c, ok := sess.strategy.(detector.Calibrated); ok {
		st.CalibrationProgress = c.CalibrationProgress()
		if th, err := c.Thresholds(); err == nil {
			st.Thresholds = &th
		}
	} else {
		st.CalibrationProgress = 1
	}

	if ev, ok := sess.history.Last(); ok {
		st.LastEvent = &ev
	}
	return st
}

// History returns the recognition history of the active session, or of the
// last finished one.
func (a *App) History() []gesture.Event {
	sess := a.currentOrLast()
	if sess == nil {
		return []gesture.Event{}
	}
	return sess.history.Snapshot()
}

// Tokens returns the placeholder token tally of the active or last session.
func (a *App) Tokens() []history.TokenStat {
	sess := a.currentOrLast()
	if sess == nil {
		return []history.TokenStat{}
	}
	return sess.history.Tokens()
}

// Transcript builds the manual-completion template for the active or last
// session.
func (a *App) Transcript() (transcript.Template, error) {
	sess := a.currentOrLast()
	if sess == nil {
		return transcript.Template{}, ErrNoSession
	}

	ended := sess.endedAt()
	if ended.IsZero() {
		ended = time.Now()
	}
	return transcript.Build(sess.id, sess.started, ended, sess.history.Snapshot(), sess.history.Tokens()), nil
}

// Subscribe returns a channel of events and a function that ends the
// subscription. Events are dropped for subscribers that fall behind.
func (a *App) Subscribe() (<-chan gesture.Event, func()) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	id := a.nextSub
	a.nextSub++
	ch := make(chan gesture.Event, subscriberBuffer)
	a.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subsMu.Lock()
			defer a.subsMu.Unlock()
			delete(a.subs, id)
			close(ch)
		})
	}
}

func (a *App) publish(ev gesture.Event) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	for id, ch := range a.subs {
		select {
		case ch <- ev.Clone():
		default:
			a.log.Debug("subscriber behind, dropping event", zap.Int("subscriber", id))
		}
	}
}

func (a *App) currentOrLast() *session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.sess != nil {
		return a.sess
	}
	return a.last
}

func (a *App) current(sess *session) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sess == sess
}

func (a *App) setState(sess *session, st State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess != sess || a.state == st {
		return
	}
	prev := a.state
	a.state = st

	fields := []zap.Field{zap.String("from", string(prev)), zap.String("to", string(st))}
	if c, ok := sess.strategy.(detector.Calibrated); ok {
		if th, err := c.Thresholds(); err == nil {
			fields = append(fields,
				zap.Float64("baseline", th.Baseline),
				zap.Float64("significant_motion", th.SignificantMotion))
		}
	}
	a.log.Info("detector state changed", fields...)
}
