package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied at startup. The unique constraints on enrollments and
// attendance are load-bearing: concurrent duplicate inserts must lose at the
// database, not in application code.
const Schema = `
CREATE TABLE IF NOT EXISTS classes (
    id UUID PRIMARY KEY,
    lecturer_id UUID NOT NULL,
    name VARCHAR(255) NOT NULL,
    unit_code VARCHAR(50) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    class_id UUID NOT NULL REFERENCES classes(id),
    student_id UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (class_id, student_id)
);

CREATE TABLE IF NOT EXISTS sessions (
    id UUID PRIMARY KEY,
    class_id UUID NOT NULL REFERENCES classes(id),
    lecturer_id UUID NOT NULL,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
    start_token VARCHAR(64) NOT NULL,
    end_token VARCHAR(64),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES sessions(id),
    student_id UUID NOT NULL,
    status VARCHAR(20) NOT NULL,
    start_scan_time TIMESTAMPTZ,
    end_scan_time TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (session_id, student_id)
);

CREATE TABLE IF NOT EXISTS class_attendance_stats (
    class_id UUID NOT NULL REFERENCES classes(id),
    day DATE NOT NULL,
    start_scans INTEGER NOT NULL DEFAULT 0,
    end_scans INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (class_id, day)
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_attendance_session ON attendance(session_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id);
`

// InitSchema initializes the database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
