package attendance

import (
	"context"
	"time"

	"classtrack/internal/apperr"
)

// Store is the persistence surface the recorder needs.
type Store interface {
	InsertStart(ctx context.Context, sessionID, studentID string, at time.Time) (Record, bool, error)
	CompleteEnd(ctx context.Context, sessionID, studentID string, at time.Time) (bool, error)
	Get(ctx context.Context, sessionID, studentID string) (*Record, error)
	ListBySession(ctx context.Context, sessionID string) ([]Record, error)
	RecentForStudent(ctx context.Context, studentID string, limit int) ([]RecentRecord, error)
}

// Recorder applies verified scans to attendance records. It assumes the scan
// has already been validated against session state, window, token and
// enrollment; its only concern is the record's own state machine.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a recorder.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// RecordStart marks a student present. A second start scan is rejected as a
// conflict, not deduplicated into the existing row.
func (r *Recorder) RecordStart(ctx context.Context, sessionID, studentID string) (Record, error) {
	rec, inserted, err := r.store.InsertStart(ctx, sessionID, studentID, r.now().UTC())
	if err != nil {
		return Record{}, err
	}
	if !inserted {
		return Record{}, apperr.New(apperr.Conflict, "You have already marked attendance for this session")
	}
	return rec, nil
}

// RecordEnd completes a student's attendance. End cannot precede start, and
// completed is terminal.
func (r *Recorder) RecordEnd(ctx context.Context, sessionID, studentID string) error {
	existing, err := r.store.Get(ctx, sessionID, studentID)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.New(apperr.NotFound, "You need to scan the start QR first")
	}
	if existing.Status == StatusCompleted {
		return apperr.New(apperr.InvalidState, "You have already completed attendance")
	}
	ok, err := r.store.CompleteEnd(ctx, sessionID, studentID, r.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race with another end scan for the same student.
		return apperr.New(apperr.InvalidState, "You have already completed attendance")
	}
	return nil
}

// ListBySession returns all attendance rows for a session.
func (r *Recorder) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	return r.store.ListBySession(ctx, sessionID)
}

// RecentForStudent returns the student's latest attendance with class context.
func (r *Recorder) RecentForStudent(ctx context.Context, studentID string, limit int) ([]RecentRecord, error) {
	return r.store.RecentForStudent(ctx, studentID, limit)
}
