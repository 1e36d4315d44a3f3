package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
)

// Repository persists attendance rows in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertStart creates the attendance row for a first start scan. The unique
// constraint on (session_id, student_id) turns a duplicate into zero inserted
// rows, so two simultaneous scans yield exactly one row.
func (r *Repository) InsertStart(ctx context.Context, sessionID, studentID string, at time.Time) (Record, bool, error) {
	rec := Record{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		StudentID:     studentID,
		Status:        StatusPresent,
		StartScanTime: &at,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, session_id, student_id, status, start_scan_time)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (session_id, student_id) DO NOTHING
		RETURNING created_at
	`, rec.ID, sessionID, studentID, rec.Status, at)
	err := row.Scan(&rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, apperr.Wrap(apperr.Infrastructure, "insert attendance", err)
	}
	return rec, true, nil
}

// CompleteEnd sets the end scan on an existing row. Conditional on the row
// not being completed yet; returns false when no row matched.
func (r *Repository) CompleteEnd(ctx context.Context, sessionID, studentID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET status = $4, end_scan_time = $3
		WHERE session_id = $1 AND student_id = $2 AND status <> 'completed'
	`, sessionID, studentID, at, StatusCompleted)
	if err != nil {
		return false, apperr.Wrap(apperr.Infrastructure, "complete attendance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.Infrastructure, "complete attendance", err)
	}
	return n == 1, nil
}

// Get returns the attendance row for a (session, student) pair, or nil when
// the student is absent.
func (r *Repository) Get(ctx context.Context, sessionID, studentID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, student_id, status, start_scan_time, end_scan_time, created_at
		FROM attendance WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID)
	var rec Record
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status, &rec.StartScanTime, &rec.EndScanTime, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "get attendance", err)
	}
	return &rec, nil
}

// ListBySession returns all attendance rows for a session.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, student_id, status, start_scan_time, end_scan_time, created_at
		FROM attendance WHERE session_id = $1 ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "list attendance", err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status, &rec.StartScanTime, &rec.EndScanTime, &rec.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Infrastructure, "scan attendance", err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "scan attendance", err)
	}
	return res, nil
}

// RecentForStudent returns the student's latest records with class context.
func (r *Repository) RecentForStudent(ctx context.Context, studentID string, limit int) ([]RecentRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.session_id, a.student_id, a.status, a.start_scan_time, a.end_scan_time, a.created_at,
		       c.name, c.unit_code, s.start_time
		FROM attendance a
		JOIN sessions s ON s.id = a.session_id
		JOIN classes c ON c.id = s.class_id
		WHERE a.student_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "recent attendance", err)
	}
	defer rows.Close()
	var res []RecentRecord
	for rows.Next() {
		var rec RecentRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status, &rec.StartScanTime, &rec.EndScanTime, &rec.CreatedAt,
			&rec.ClassName, &rec.UnitCode, &rec.SessionStartTime); err != nil {
			return nil, apperr.Wrap(apperr.Infrastructure, "scan recent attendance", err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "scan recent attendance", err)
	}
	return res, nil
}
