package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// recordStart creates the session row. Storage failures do not stop detection.
func (a *App) recordStart(sess *session) {
	if a.config.Store == nil {
		return
	}
	err := a.config.Store.Sessions().Create(&store.Session{
		ID:        sess.id,
		Strategy:  sess.strategy.Name(),
		StartedAt: sess.started,
	})
	if err != nil {
		a.log.Warn("record session start", zap.String("session", sess.id), zap.Error(err))
	}
}

// persist writes the session history and closes the session row.
func (a *App) persist(sess *session) error {
	if a.config.Store == nil {
		return nil
	}

	events := sess.history.Snapshot()
	rows := make([]store.Event, len(events))
	for i, ev := range events {
		rows[i] = toStoreEvent(ev)
	}

	if err := a.config.Store.Events().AppendBatch(sess.id, rows); err != nil {
		return fmt.Errorf("persist session %s events: %w", sess.id, err)
	}
	if err := a.config.Store.Sessions().End(sess.id, sess.endedAt(), sess.baseline(), sess.history.Added()); err != nil {
		return fmt.Errorf("persist session %s: %w", sess.id, err)
	}

	a.log.Info("session persisted", zap.String("session", sess.id), zap.Int("events", len(rows)))
	return nil
}

// toStoreEvent converts a gesture event to its stored form.
func toStoreEvent(ev gesture.Event) store.Event {
	return store.Event{
		Timestamp:  ev.Timestamp,
		Category:   string(ev.Category),
		Confidence: ev.Confidence,
		LeftHand:   ev.Hands.Left,
		RightHand:  ev.Hands.Right,
		Tokens:     ev.Tokens,
	}
}

// FromStoreEvent converts a stored event back to a gesture event.
func FromStoreEvent(ev store.Event) gesture.Event {
	return gesture.Event{
		Timestamp:  ev.Timestamp,
		Category:   gesture.Category(ev.Category),
		Confidence: ev.Confidence,
		Hands:      gesture.HandPresence{Left: ev.LeftHand, Right: ev.RightHand},
		Tokens:     ev.Tokens,
	}
}
