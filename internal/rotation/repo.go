package rotation

import (
	"context"
	"database/sql"

	"classtrack/internal/apperr"
	"classtrack/internal/token"
)

// Repository rotates tokens directly in Postgres. One UPDATE per session
// keeps each rotation atomic with respect to concurrent scans: a scan
// compares against either the old or the new token, never a torn value.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RotateStartTokens re-mints the start token of every active session.
func (r *Repository) RotateStartTokens(ctx context.Context) (int, error) {
	return r.rotate(ctx, `SELECT id FROM sessions WHERE status <> 'ended'`,
		`UPDATE sessions SET start_token = $2 WHERE id = $1 AND status <> 'ended'`)
}

// RotateEndTokens re-mints the end token of every active session that has one.
func (r *Repository) RotateEndTokens(ctx context.Context) (int, error) {
	return r.rotate(ctx, `SELECT id FROM sessions WHERE status <> 'ended' AND end_token IS NOT NULL`,
		`UPDATE sessions SET end_token = $2 WHERE id = $1 AND status <> 'ended' AND end_token IS NOT NULL`)
}

func (r *Repository) rotate(ctx context.Context, selectQuery, updateQuery string) (int, error) {
	rows, err := r.db.QueryContext(ctx, selectQuery)
	if err != nil {
		return 0, apperr.Wrap(apperr.Infrastructure, "list active sessions", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperr.Wrap(apperr.Infrastructure, "scan session id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, apperr.Wrap(apperr.Infrastructure, "list active sessions", err)
	}
	rows.Close()

	rotated := 0
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx, updateQuery, id, token.New())
		if err != nil {
			// Sessions already rotated stay rotated; report what happened.
			return rotated, apperr.Wrap(apperr.Infrastructure, "rotate token", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return rotated, apperr.Wrap(apperr.Infrastructure, "rotate token", err)
		}
		// A session that ended between the select and the update matches
		// zero rows and is skipped.
		rotated += int(n)
	}
	return rotated, nil
}
