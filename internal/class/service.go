package class

import (
	"context"
	"strings"

	"classtrack/internal/apperr"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, cl Class) (Class, error)
	Get(ctx context.Context, id string) (Class, error)
	ListByLecturer(ctx context.Context, lecturerID string) ([]Class, error)
	ListForStudent(ctx context.Context, studentID string) ([]Class, error)
	InsertEnrollment(ctx context.Context, en Enrollment) (Enrollment, error)
	ListEnrollments(ctx context.Context, classID string) ([]Enrollment, error)
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
}

// Service owns class and enrollment rules: lecturers create classes and
// manage their own rosters, nothing else.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and persists a new class for the lecturer.
func (s *Service) Create(ctx context.Context, lecturerID, name, unitCode, description string) (Class, error) {
	name = strings.TrimSpace(name)
	unitCode = strings.TrimSpace(unitCode)
	if name == "" || unitCode == "" {
		return Class{}, apperr.New(apperr.Validation, "name and unit code are required")
	}
	return s.store.Insert(ctx, Class{
		LecturerID:  lecturerID,
		Name:        name,
		UnitCode:    unitCode,
		Description: strings.TrimSpace(description),
	})
}

// Get returns a class by id.
func (s *Service) Get(ctx context.Context, id string) (Class, error) {
	return s.store.Get(ctx, id)
}

// ListByLecturer returns the lecturer's classes.
func (s *Service) ListByLecturer(ctx context.Context, lecturerID string) ([]Class, error) {
	return s.store.ListByLecturer(ctx, lecturerID)
}

// ListForStudent returns classes the student is enrolled in.
func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]Class, error) {
	return s.store.ListForStudent(ctx, studentID)
}

// Enroll adds a student to a class the lecturer owns.
func (s *Service) Enroll(ctx context.Context, lecturerID, classID, studentID string) (Enrollment, error) {
	if strings.TrimSpace(studentID) == "" {
		return Enrollment{}, apperr.New(apperr.Validation, "student id is required")
	}
	cl, err := s.store.Get(ctx, classID)
	if err != nil {
		return Enrollment{}, err
	}
	if cl.LecturerID != lecturerID {
		return Enrollment{}, apperr.New(apperr.Authorization, "class belongs to another lecturer")
	}
	return s.store.InsertEnrollment(ctx, Enrollment{ClassID: classID, StudentID: studentID})
}

// Roster returns the enrollments of a class the lecturer owns.
func (s *Service) Roster(ctx context.Context, lecturerID, classID string) ([]Enrollment, error) {
	cl, err := s.store.Get(ctx, classID)
	if err != nil {
		return nil, err
	}
	if cl.LecturerID != lecturerID {
		return nil, apperr.New(apperr.Authorization, "class belongs to another lecturer")
	}
	return s.store.ListEnrollments(ctx, classID)
}

// IsEnrolled reports whether the student belongs to the class.
func (s *Service) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	return s.store.IsEnrolled(ctx, classID, studentID)
}
