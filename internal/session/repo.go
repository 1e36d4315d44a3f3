package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
)

// Repository persists sessions in Postgres. All status mutations are
// conditional on the expected prior status so concurrent callers cannot
// apply a transition twice.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `id, class_id, lecturer_id, start_time, end_time, status, start_token, end_token, created_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.ClassID, &s.LecturerID, &s.StartTime, &s.EndTime, &s.Status, &s.StartToken, &s.EndToken, &s.CreatedAt)
	return s, err
}

// Insert writes a new session.
func (r *Repository) Insert(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, class_id, lecturer_id, start_time, end_time, status, start_token)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, s.ID, s.ClassID, s.LecturerID, s.StartTime, s.EndTime, s.Status, s.StartToken)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Session{}, apperr.Wrap(apperr.Infrastructure, "insert session", err)
	}
	return s, nil
}

// Get returns a session by id.
func (r *Repository) Get(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, apperr.New(apperr.NotFound, "session not found")
	}
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Infrastructure, "get session", err)
	}
	return s, nil
}

// ListByLecturer returns the lecturer's sessions, newest first. With
// activeOnly, ended sessions are retired from the view.
func (r *Repository) ListByLecturer(ctx context.Context, lecturerID string, activeOnly bool) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE lecturer_id = $1`
	if activeOnly {
		query += ` AND status <> 'ended'`
	}
	query += ` ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, lecturerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "list sessions", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListForStudent returns sessions of classes the student is enrolled in.
func (r *Repository) ListForStudent(ctx context.Context, studentID string, activeOnly bool) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM sessions s
		WHERE EXISTS (
			SELECT 1 FROM enrollments e WHERE e.class_id = s.class_id AND e.student_id = $1
		)`
	if activeOnly {
		query += ` AND s.status <> 'ended'`
	}
	query += ` ORDER BY s.start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "list student sessions", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Infrastructure, "scan session", err)
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "scan sessions", err)
	}
	return res, nil
}

// Transition moves a session from one status to the next. Returns false when
// the session was not in the expected prior status.
func (r *Repository) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, apperr.Wrap(apperr.Infrastructure, "transition session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.Infrastructure, "transition session", err)
	}
	return n == 1, nil
}

// SetEndToken stores the end token, replacing any prior value. Only legal
// while the session is in progress.
func (r *Repository) SetEndToken(ctx context.Context, id, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET end_token = $2 WHERE id = $1 AND status = 'in_progress'
	`, id, token)
	if err != nil {
		return false, apperr.Wrap(apperr.Infrastructure, "set end token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.Infrastructure, "set end token", err)
	}
	return n == 1, nil
}

// EndAndSweep moves the session to ended and marks every attendee still
// present with no end scan as left_early, in one transaction. The
// conditional status update makes the pair exactly-once: a retry finds the
// session already ended, changes nothing, and sweeps nothing.
func (r *Repository) EndAndSweep(ctx context.Context, id string) (bool, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, apperr.Wrap(apperr.Infrastructure, "end session", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET status = 'ended' WHERE id = $1 AND status = 'in_progress'
	`, id)
	if err != nil {
		return false, 0, apperr.Wrap(apperr.Infrastructure, "end session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, apperr.Wrap(apperr.Infrastructure, "end session", err)
	}
	if n == 0 {
		return false, 0, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE attendance SET status = 'left_early'
		WHERE session_id = $1 AND status = 'present' AND end_scan_time IS NULL
	`, id)
	if err != nil {
		return false, 0, apperr.Wrap(apperr.Infrastructure, "sweep attendance", err)
	}
	swept, err := res.RowsAffected()
	if err != nil {
		return false, 0, apperr.Wrap(apperr.Infrastructure, "sweep attendance", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, apperr.Wrap(apperr.Infrastructure, "end session", err)
	}
	return true, swept, nil
}
