// Package stats maintains per-class scan counters derived from the scan
// event stream. The numbers are advisory; attendance rows are the truth.
package stats

import (
	"context"
	"database/sql"
	"time"

	"classtrack/internal/apperr"
)

// Repository upserts daily counters in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// BumpStartScans increments the start-scan counter for a class on a day.
func (r *Repository) BumpStartScans(ctx context.Context, classID string, day time.Time) error {
	return r.bump(ctx, classID, day, "start_scans")
}

// BumpEndScans increments the end-scan counter for a class on a day.
func (r *Repository) BumpEndScans(ctx context.Context, classID string, day time.Time) error {
	return r.bump(ctx, classID, day, "end_scans")
}

func (r *Repository) bump(ctx context.Context, classID string, day time.Time, column string) error {
	// column is one of two constants above, never caller input.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_attendance_stats (class_id, day, `+column+`)
		VALUES ($1, $2, 1)
		ON CONFLICT (class_id, day) DO UPDATE SET `+column+` = class_attendance_stats.`+column+` + 1
	`, classID, day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return apperr.Wrap(apperr.Infrastructure, "bump stats", err)
	}
	return nil
}

// DailyStat is one class's counters for one day.
type DailyStat struct {
	ClassID    string    `json:"class_id"`
	Day        time.Time `json:"day"`
	StartScans int       `json:"start_scans"`
	EndScans   int       `json:"end_scans"`
}

// ForClass returns a class's daily counters, newest first.
func (r *Repository) ForClass(ctx context.Context, classID string, limit int) ([]DailyStat, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT class_id, day, start_scans, end_scans
		FROM class_attendance_stats WHERE class_id = $1
		ORDER BY day DESC LIMIT $2
	`, classID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "list stats", err)
	}
	defer rows.Close()
	var res []DailyStat
	for rows.Next() {
		var st DailyStat
		if err := rows.Scan(&st.ClassID, &st.Day, &st.StartScans, &st.EndScans); err != nil {
			return nil, apperr.Wrap(apperr.Infrastructure, "scan stats", err)
		}
		res = append(res, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "scan stats", err)
	}
	return res, nil
}
