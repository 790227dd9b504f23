package history

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
)

// TokenStat tallies one placeholder token across a session.
type TokenStat struct {
	Token     string    `json:"token"`
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Aggregator filters classifier output into the recognition history and
// tallies the tokens of confident events.
type Aggregator struct {
	cfg  config.HistoryConfig
	ring *Ring

	mu     sync.RWMutex
	tokens map[string]*TokenStat
	order  []string
	added  int

	log *zap.Logger
}

// NewAggregator creates an Aggregator from cfg.
func NewAggregator(cfg config.HistoryConfig) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		cfg:    cfg,
		ring:   NewRing(cfg.Capacity),
		tokens: make(map[string]*TokenStat),
		log:    zap.L().Named("history"),
	}, nil
}

// Add records ev if it is a fresh gesture whose confidence is above the
// display cutoff. Held repeats are skipped so one gesture is recorded once.
// Tokens are tallied only above the log cutoff. It reports whether ev
// entered the history.
func (a *Aggregator) Add(ev gesture.Event) bool {
	if !ev.IsGesture() || ev.Held || ev.Confidence <= a.cfg.DisplayCutoff {
		return false
	}

	if a.ring.Append(ev) {
		a.log.Debug("history full, evicted oldest event", zap.Int("capacity", a.ring.Cap()))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.added++

	if ev.Confidence <= a.cfg.LogCutoff {
		return true
	}
	for _, tok := range ev.Tokens {
		st, ok := a.tokens[tok]
		if !ok {
			st = &TokenStat{Token: tok, FirstSeen: ev.Timestamp}
			a.tokens[tok] = st
			a.order = append(a.order, tok)
		}
		st.Count++
		st.LastSeen = ev.Timestamp
	}
	return true
}

// Snapshot returns the recognition history oldest first.
func (a *Aggregator) Snapshot() []gesture.Event {
	return a.ring.Snapshot()
}

// Last returns the newest recorded event.
func (a *Aggregator) Last() (gesture.Event, bool) {
	return a.ring.Last()
}

// Tokens returns the token tally ordered by first appearance.
func (a *Aggregator) Tokens() []TokenStat {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]TokenStat, 0, len(a.order))
	for _, tok := range a.order {
		out = append(out, *a.tokens[tok])
	}
	return out
}

// Added returns how many events entered the history since the last Reset,
// including evicted ones.
func (a *Aggregator) Added() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.added
}

// Reset clears the history and the token tally.
func (a *Aggregator) Reset() {
	a.ring.Reset()

	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.tokens)
	a.order = nil
	a.added = 0
}
