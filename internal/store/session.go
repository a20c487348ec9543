package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the interaction loop.
type Session struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Backend     string     `json:"backend"`
	MinFaceSize float64    `json:"min_face_size"`
	ScaleFactor float64    `json:"scale_factor"`
	Frames      int        `json:"frames"`
	Faces       int        `json:"faces"`
	ExitCode    *int       `json:"exit_code,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	s *Store
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{s: s}
}

// Create inserts a new session. An empty ID is filled with a random UUID and
// StartedAt is set to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	sess.StartedAt = time.Now().UTC()

	_, err := r.s.db.Exec(r.s.rebind(
		`INSERT INTO sessions (id, source, backend, min_face_size, scale_factor, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		sess.ID, sess.Source, sess.Backend, sess.MinFaceSize, sess.ScaleFactor, sess.StartedAt,
	)
	return err
}

// Finish records the totals and exit code of a session.
func (r *SessionRepository) Finish(id string, frames, faces, exitCode int) error {
	result, err := r.s.db.Exec(r.s.rebind(
		`UPDATE sessions SET frames = ?, faces = ?, exit_code = ?, finished_at = ?
		 WHERE id = ?`),
		frames, faces, exitCode, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `id, source, backend, min_face_size, scale_factor, frames, faces, exit_code, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var (
		exitCode sql.NullInt64
		finished sql.NullTime
	)

	err := row.Scan(&sess.ID, &sess.Source, &sess.Backend, &sess.MinFaceSize, &sess.ScaleFactor,
		&sess.Frames, &sess.Faces, &exitCode, &sess.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	if exitCode.Valid {
		code := int(exitCode.Int64)
		sess.ExitCode = &code
	}
	if finished.Valid {
		t := finished.Time
		sess.FinishedAt = &t
	}
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.s.db.QueryRow(r.s.rebind(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns up to limit sessions, newest first. A non-positive limit
// returns all sessions.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.s.db.Query(r.s.rebind(query), args...)
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

	return sessions, rows.Err()
}

// Delete removes a session and its frame stats.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.s.db.Exec(r.s.rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
