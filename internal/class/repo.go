package class

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"classtrack/internal/apperr"
)

// Class is a unit taught by one lecturer. Classes are never updated once
// sessions reference them.
type Class struct {
	ID          string    `json:"id"`
	LecturerID  string    `json:"lecturer_id"`
	Name        string    `json:"name"`
	UnitCode    string    `json:"unit_code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrollment links a student to a class and gates scan eligibility.
type Enrollment struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists classes and enrollments in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new class.
func (r *Repository) Insert(ctx context.Context, cl Class) (Class, error) {
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, lecturer_id, name, unit_code, description)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, cl.ID, cl.LecturerID, cl.Name, cl.UnitCode, cl.Description)
	if err := row.Scan(&cl.CreatedAt); err != nil {
		return Class{}, apperr.Wrap(apperr.Infrastructure, "insert class", err)
	}
	return cl, nil
}

// Get returns a class by id.
func (r *Repository) Get(ctx context.Context, id string) (Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, lecturer_id, name, unit_code, description, created_at
		FROM classes WHERE id = $1
	`, id)
	var cl Class
	err := row.Scan(&cl.ID, &cl.LecturerID, &cl.Name, &cl.UnitCode, &cl.Description, &cl.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Class{}, apperr.New(apperr.NotFound, "class not found")
	}
	if err != nil {
		return Class{}, apperr.Wrap(apperr.Infrastructure, "get class", err)
	}
	return cl, nil
}

// ListByLecturer returns classes owned by a lecturer.
func (r *Repository) ListByLecturer(ctx context.Context, lecturerID string) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lecturer_id, name, unit_code, description, created_at
		FROM classes WHERE lecturer_id = $1 ORDER BY created_at DESC
	`, lecturerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "list classes", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

// ListForStudent returns classes the student is enrolled in.
func (r *Repository) ListForStudent(ctx context.Context, studentID string) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.lecturer_id, c.name, c.unit_code, c.description, c.created_at
		FROM classes c
		JOIN enrollments e ON e.class_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.created_at DESC
	`, studentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "list enrolled classes", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

func scanClasses(rows *sql.Rows) ([]Class, error) {
	var res []Class
	for rows.Next() {
		var cl Class
		if err := rows.Scan(&cl.ID, &cl.LecturerID, &cl.Name, &cl.UnitCode, &cl.Description, &cl.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Infrastructure, "scan class", err)
		}
		res = append(res, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "scan classes", err)
	}
	return res, nil
}

// InsertEnrollment adds a student to a class. The unique constraint on
// (class_id, student_id) rejects duplicates atomically.
func (r *Repository) InsertEnrollment(ctx context.Context, en Enrollment) (Enrollment, error) {
	if en.ID == "" {
		en.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO enrollments (id, class_id, student_id)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, en.ID, en.ClassID, en.StudentID)
	if err := row.Scan(&en.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Enrollment{}, apperr.New(apperr.Conflict, "student already enrolled in this class")
		}
		return Enrollment{}, apperr.Wrap(apperr.Infrastructure, "insert enrollment", err)
	}
	return en, nil
}

// ListEnrollments returns the roster for a class.
func (r *Repository) ListEnrollments(ctx context.Context, classID string) ([]Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, class_id, student_id, created_at
		FROM enrollments WHERE class_id = $1 ORDER BY created_at
	`, classID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "list enrollments", err)
	}
	defer rows.Close()
	var res []Enrollment
	for rows.Next() {
		var en Enrollment
		if err := rows.Scan(&en.ID, &en.ClassID, &en.StudentID, &en.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Infrastructure, "scan enrollment", err)
		}
		res = append(res, en)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "scan enrollments", err)
	}
	return res, nil
}

// IsEnrolled reports whether the student belongs to the class.
func (r *Repository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM enrollments WHERE class_id = $1 AND student_id = $2
		)
	`, classID, studentID).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.Infrastructure, "check enrollment", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
