package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is one run of the detector between start and stop.
type Session struct {
	ID         string     `json:"id"`
	Strategy   string     `json:"strategy"`
	Baseline   *float64   `json:"baseline,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	EventCount int        `json:"event_count"`
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. StartedAt defaults to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, strategy, baseline, started_at, ended_at, event_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Strategy, nullFloat(sess.Baseline), sess.StartedAt, nullTime(sess.EndedAt), sess.EventCount,
	)
	return err
}

// End records the end of a session together with its learned baseline and
// the number of events it recorded.
func (r *SessionRepository) End(id string, endedAt time.Time, baseline *float64, eventCount int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, baseline = ?, event_count = ? WHERE id = ?`,
		endedAt, nullFloat(baseline), eventCount, id,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, strategy, baseline, started_at, ended_at, event_count
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, strategy, baseline, started_at, ended_at, event_count
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var baseline sql.NullFloat64
	var ended sql.NullTime

	if err := row.Scan(&sess.ID, &sess.Strategy, &baseline, &sess.StartedAt, &ended, &sess.EventCount); err != nil {
		return nil, err
	}

	if baseline.Valid {
		sess.Baseline = &baseline.Float64
	}
	if ended.Valid {
		sess.EndedAt = &ended.Time
	}
	return sess, nil
}

func expectRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
