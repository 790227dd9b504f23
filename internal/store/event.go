package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event is a recorded gesture event belonging to a session.
type Event struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Sequence   int       `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	LeftHand   bool      `json:"left_hand"`
	RightHand  bool      `json:"right_hand"`
	Tokens     []string  `json:"tokens,omitempty"`
}

// EventRepository provides storage for gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// AppendBatch inserts events for a session in a single transaction.
// Sequence numbers continue after any events already stored for the session.
func (r *EventRepository) AppendBatch(sessionID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(sequence) + 1, 0) FROM gesture_events WHERE session_id = ?`,
		sessionID,
	).Scan(&next); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO gesture_events
		 (session_id, sequence, timestamp, category, confidence, left_hand, right_hand, tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ev := range events {
		tokens := ev.Tokens
		if tokens == nil {
			tokens = []string{}
		}
		data, err := json.Marshal(tokens)
		if err != nil {
			return fmt.Errorf("encode tokens: %w", err)
		}
		if _, err := stmt.Exec(sessionID, next+i, ev.Timestamp, ev.Category, ev.Confidence,
			ev.LeftHand, ev.RightHand, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession retrieves all events for a session in sequence order.
func (r *EventRepository) ListBySession(sessionID string) ([]Event, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, sequence, timestamp, category, confidence, left_hand, right_hand, tokens
		 FROM gesture_events
		 WHERE session_id = ?
		 ORDER BY sequence`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var tokens string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Sequence, &ev.Timestamp, &ev.Category,
			&ev.Confidence, &ev.LeftHand, &ev.RightHand, &tokens); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tokens), &ev.Tokens); err != nil {
			return nil, fmt.Errorf("decode tokens: %w", err)
		}
		if len(ev.Tokens) == 0 {
			ev.Tokens = nil
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
