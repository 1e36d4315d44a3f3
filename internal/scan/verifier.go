package scan

import (
	"context"
	"errors"
	"log"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/metrics"
	"classtrack/internal/session"
)

// Result is the only thing a student ever sees from a scan. Raw errors never
// cross this boundary.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SessionStore resolves the session a payload points at.
type SessionStore interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

// EnrollmentStore answers the enrollment predicate.
type EnrollmentStore interface {
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
}

// AttendanceRecorder applies a verified scan.
type AttendanceRecorder interface {
	RecordStart(ctx context.Context, sessionID, studentID string) (attendance.Record, error)
	RecordEnd(ctx context.Context, sessionID, studentID string) error
}

// Verifier runs the server-side checks for a decoded QR payload, in an order
// chosen so the failure message names the earliest real problem.
type Verifier struct {
	sessions    SessionStore
	enrollments EnrollmentStore
	recorder    AttendanceRecorder
	now         func() time.Time
}

// NewVerifier creates a verifier.
func NewVerifier(sessions SessionStore, enrollments EnrollmentStore, recorder AttendanceRecorder) *Verifier {
	return &Verifier{
		sessions:    sessions,
		enrollments: enrollments,
		recorder:    recorder,
		now:         time.Now,
	}
}

// VerifyAndRecord validates the payload against session state, time window,
// token and enrollment, then dispatches to the recorder. A session that is
// still scheduled accepts scans while the wall clock is inside its window;
// the lecturer pressing Start is not the only way to open it.
func (v *Verifier) VerifyAndRecord(ctx context.Context, studentID string, p Payload) (Result, error) {
	if err := p.Validate(); err != nil {
		return v.reject(err)
	}

	sess, err := v.sessions.Get(ctx, p.SessionID)
	if errors.Is(err, apperr.NotFound) {
		return v.reject(apperr.New(apperr.NotFound, "Invalid session"))
	}
	if err != nil {
		return v.infrastructure(err)
	}

	if sess.Status == session.StatusEnded {
		return v.reject(apperr.New(apperr.InvalidState, "This session has already ended"))
	}

	if sess.Status == session.StatusScheduled && !sess.InWindow(v.now()) {
		return v.reject(apperr.New(apperr.InvalidState, "This session has not started yet"))
	}

	if !tokenMatches(sess, p) {
		return v.reject(apperr.New(apperr.Validation, "Invalid QR code"))
	}

	enrolled, err := v.enrollments.IsEnrolled(ctx, sess.ClassID, studentID)
	if err != nil {
		return v.infrastructure(err)
	}
	if !enrolled {
		return v.reject(apperr.New(apperr.Authorization, "You are not enrolled in this class"))
	}

	// An abandoned verification must commit nothing.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch p.Type {
	case TypeStart:
		if _, err := v.recorder.RecordStart(ctx, sess.ID, studentID); err != nil {
			return v.recordFailure(err)
		}
		metrics.ScansTotal.WithLabelValues("accepted").Inc()
		return Result{Success: true, Message: "Attendance marked successfully!"}, nil
	default:
		if err := v.recorder.RecordEnd(ctx, sess.ID, studentID); err != nil {
			return v.recordFailure(err)
		}
		metrics.ScansTotal.WithLabelValues("accepted").Inc()
		return Result{Success: true, Message: "Attendance completed!"}, nil
	}
}

// tokenMatches compares the payload token against the current stored token
// for its type. The comparison is a single read of the current value, so a
// scan racing a rotation sees either the old or the new token, never a mix.
func tokenMatches(sess session.Session, p Payload) bool {
	switch p.Type {
	case TypeStart:
		return sess.StartToken != "" && p.Token == sess.StartToken
	case TypeEnd:
		return sess.EndToken != nil && *sess.EndToken != "" && p.Token == *sess.EndToken
	}
	return false
}

func (v *Verifier) reject(err error) (Result, error) {
	metrics.ScansTotal.WithLabelValues("rejected").Inc()
	return Result{Success: false, Message: apperr.MessageOf(err)}, nil
}

func (v *Verifier) recordFailure(err error) (Result, error) {
	if errors.Is(err, apperr.Infrastructure) {
		return v.infrastructure(err)
	}
	return v.reject(err)
}

func (v *Verifier) infrastructure(err error) (Result, error) {
	log.Printf("scan verification storage failure: %v", err)
	metrics.ScansTotal.WithLabelValues("error").Inc()
	return Result{Success: false, Message: "An error occurred. Please try again."}, nil
}
