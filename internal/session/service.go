package session

import (
	"context"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/class"
	"classtrack/internal/metrics"
	"classtrack/internal/token"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	ListByLecturer(ctx context.Context, lecturerID string, activeOnly bool) ([]Session, error)
	ListForStudent(ctx context.Context, studentID string, activeOnly bool) ([]Session, error)
	Transition(ctx context.Context, id string, from, to Status) (bool, error)
	SetEndToken(ctx context.Context, id, token string) (bool, error)
	EndAndSweep(ctx context.Context, id string) (bool, int64, error)
}

// ClassStore resolves class ownership for session creation.
type ClassStore interface {
	Get(ctx context.Context, id string) (class.Class, error)
}

// Service enforces the session state machine and ownership rules. Errors are
// typed so lecturer-facing callers can tell a state conflict from an outage.
type Service struct {
	store   Store
	classes ClassStore
}

// NewService creates a service backed by a store.
func NewService(store Store, classes ClassStore) *Service {
	return &Service{store: store, classes: classes}
}

// Create schedules a new session and mints its start token.
func (s *Service) Create(ctx context.Context, lecturerID, classID string, start, end time.Time) (Session, error) {
	if classID == "" || start.IsZero() || end.IsZero() {
		return Session{}, apperr.New(apperr.Validation, "class, start time and end time are required")
	}
	if !start.Before(end) {
		return Session{}, apperr.New(apperr.Validation, "start time must be before end time")
	}
	cl, err := s.classes.Get(ctx, classID)
	if err != nil {
		return Session{}, err
	}
	if cl.LecturerID != lecturerID {
		return Session{}, apperr.New(apperr.Authorization, "class belongs to another lecturer")
	}
	created, err := s.store.Insert(ctx, Session{
		ClassID:    classID,
		LecturerID: lecturerID,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		Status:     StatusScheduled,
		StartToken: token.New(),
	})
	if err != nil {
		return Session{}, err
	}
	metrics.SessionTransitions.WithLabelValues(string(StatusScheduled)).Inc()
	return created, nil
}

// Get returns a session the caller owns.
func (s *Service) Get(ctx context.Context, sessionID, lecturerID string) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.LecturerID != lecturerID {
		return Session{}, apperr.New(apperr.Authorization, "session belongs to another lecturer")
	}
	return sess, nil
}

// ListByLecturer returns the lecturer's sessions.
func (s *Service) ListByLecturer(ctx context.Context, lecturerID string, activeOnly bool) ([]Session, error) {
	return s.store.ListByLecturer(ctx, lecturerID, activeOnly)
}

// ListForStudent returns sessions of classes the student is enrolled in.
func (s *Service) ListForStudent(ctx context.Context, studentID string, activeOnly bool) ([]Session, error) {
	return s.store.ListForStudent(ctx, studentID, activeOnly)
}

// Start moves a scheduled session to in_progress.
func (s *Service) Start(ctx context.Context, sessionID, lecturerID string) (Session, error) {
	sess, err := s.Get(ctx, sessionID, lecturerID)
	if err != nil {
		return Session{}, err
	}
	ok, err := s.store.Transition(ctx, sessionID, StatusScheduled, StatusInProgress)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, apperr.New(apperr.InvalidState, "session has already started or ended")
	}
	metrics.SessionTransitions.WithLabelValues(string(StatusInProgress)).Inc()
	sess.Status = StatusInProgress
	return sess, nil
}

// GenerateEndToken mints and stores the end token, replacing any prior one.
// Rotating the value is how a leaked end QR is invalidated mid-session.
func (s *Service) GenerateEndToken(ctx context.Context, sessionID, lecturerID string) (Session, error) {
	sess, err := s.Get(ctx, sessionID, lecturerID)
	if err != nil {
		return Session{}, err
	}
	tok := token.New()
	ok, err := s.store.SetEndToken(ctx, sessionID, tok)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, apperr.New(apperr.InvalidState, "session is not in progress")
	}
	sess.EndToken = &tok
	return sess, nil
}

// End moves an in-progress session to ended and sweeps attendees who never
// scanned out to left_early. The second of two concurrent calls observes an
// InvalidState error and performs zero attendance mutations.
func (s *Service) End(ctx context.Context, sessionID, lecturerID string) (Session, error) {
	sess, err := s.Get(ctx, sessionID, lecturerID)
	if err != nil {
		return Session{}, err
	}
	ok, swept, err := s.store.EndAndSweep(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, apperr.New(apperr.InvalidState, "session is not in progress")
	}
	metrics.SessionTransitions.WithLabelValues(string(StatusEnded)).Inc()
	metrics.LeftEarlySwept.Add(float64(swept))
	sess.Status = StatusEnded
	return sess, nil
}
