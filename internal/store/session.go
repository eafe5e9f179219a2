package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/telemetry"
)

// Session is one run of the controller, from camera start to stop.
type Session struct {
	ID              string
	StartedAt       time.Time
	EndedAt         *time.Time
	Frames          uint64
	FramesWithHands uint64
	AvgFPS          float64
	AvgFrameTime    time.Duration
}

// Active reports whether the session has not ended yet.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. An empty ID is replaced with a fresh UUID and
// a zero StartedAt with the current time.
func (r *SessionRepository) Create(s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		s.ID, s.StartedAt.UTC(),
	)
	return err
}

// End closes a session and stores its final frame statistics.
func (r *SessionRepository) End(id string, at time.Time, stats telemetry.FrameStats) error {
	result, err := r.db.Exec(
		`UPDATE sessions
		 SET ended_at = ?, frames = ?, frames_with_hands = ?, avg_fps = ?, avg_frame_time_ms = ?
		 WHERE id = ?`,
		at.UTC(), stats.Frames, stats.FramesWithHands, stats.FPS,
		float64(stats.AvgFrameTime)/float64(time.Millisecond), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `id, started_at, ended_at, frames, frames_with_hands, avg_fps, avg_frame_time_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime
	var frameMs float64
	if err := row.Scan(&s.ID, &s.StartedAt, &ended, &s.Frames, &s.FramesWithHands, &s.AvgFPS, &frameMs); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	s.AvgFrameTime = time.Duration(frameMs * float64(time.Millisecond))
	return s, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Latest returns the most recently started session.
func (r *SessionRepository) Latest() (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC LIMIT 1`,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// Delete removes a session and, by cascade, its outcomes.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
