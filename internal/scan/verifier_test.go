package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/session"
)

type fakeSessions struct {
	sessions map[string]session.Session
	err      error
}

func (f *fakeSessions) Get(_ context.Context, id string) (session.Session, error) {
	if f.err != nil {
		return session.Session{}, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return session.Session{}, apperr.New(apperr.NotFound, "session not found")
	}
	return s, nil
}

type fakeEnrollments struct {
	enrolled map[string]bool // classID|studentID
	err      error
}

func (f *fakeEnrollments) IsEnrolled(_ context.Context, classID, studentID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.enrolled[classID+"|"+studentID], nil
}

type fakeRecorder struct {
	records    map[string]*attendance.Record // sessionID|studentID
	startCalls int
	endCalls   int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{records: make(map[string]*attendance.Record)}
}

func (f *fakeRecorder) RecordStart(_ context.Context, sessionID, studentID string) (attendance.Record, error) {
	f.startCalls++
	key := sessionID + "|" + studentID
	if f.records[key] != nil {
		return attendance.Record{}, apperr.New(apperr.Conflict, "You have already marked attendance for this session")
	}
	now := time.Now()
	rec := attendance.Record{SessionID: sessionID, StudentID: studentID, Status: attendance.StatusPresent, StartScanTime: &now}
	f.records[key] = &rec
	return rec, nil
}

func (f *fakeRecorder) RecordEnd(_ context.Context, sessionID, studentID string) error {
	f.endCalls++
	key := sessionID + "|" + studentID
	rec := f.records[key]
	if rec == nil {
		return apperr.New(apperr.NotFound, "You need to scan the start QR first")
	}
	if rec.Status == attendance.StatusCompleted {
		return apperr.New(apperr.InvalidState, "You have already completed attendance")
	}
	rec.Status = attendance.StatusCompleted
	return nil
}

func endToken(s string) *string { return &s }

func testVerifier(t *testing.T, now time.Time) (*Verifier, *fakeSessions, *fakeEnrollments, *fakeRecorder) {
	t.Helper()
	sessions := &fakeSessions{sessions: make(map[string]session.Session)}
	enrollments := &fakeEnrollments{enrolled: make(map[string]bool)}
	recorder := newFakeRecorder()
	v := NewVerifier(sessions, enrollments, recorder)
	v.now = func() time.Time { return now }
	return v, sessions, enrollments, recorder
}

func TestVerifyAndRecord_UnknownSession(t *testing.T) {
	v, _, _, _ := testVerifier(t, time.Now())

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "missing", ClassID: "c1", Type: TypeStart, Token: "tok",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid session", res.Message)
}

func TestVerifyAndRecord_EndedSession(t *testing.T) {
	v, sessions, _, _ := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusEnded, StartToken: "tok",
	}

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "This session has already ended", res.Message)
}

func TestVerifyAndRecord_ScheduledOutsideWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	// Ten minutes before the scheduled window opens.
	v, sessions, enrollments, _ := testVerifier(t, start.Add(-10*time.Minute))
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusScheduled,
		StartTime: start, EndTime: start.Add(time.Hour), StartToken: "tok-A",
	}
	enrollments.enrolled["c1|student-1"] = true

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok-A",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "This session has not started yet", res.Message)
}

func TestVerifyAndRecord_ScheduledInsideWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	// The lecturer never pressed Start, but the clock is inside the window.
	v, sessions, enrollments, recorder := testVerifier(t, start.Add(5*time.Minute))
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusScheduled,
		StartTime: start, EndTime: start.Add(time.Hour), StartToken: "tok-A",
	}
	enrollments.enrolled["c1|student-1"] = true

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok-A",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Attendance marked successfully!", res.Message)
	assert.Equal(t, 1, recorder.startCalls)
}

func TestVerifyAndRecord_TokenMismatch(t *testing.T) {
	v, sessions, enrollments, recorder := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusInProgress, StartToken: "current",
	}
	enrollments.enrolled["c1|student-1"] = true

	// A stale pre-rotation token never matches.
	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "stale",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid QR code", res.Message)
	assert.Zero(t, recorder.startCalls)
}

func TestVerifyAndRecord_EndTokenAbsent(t *testing.T) {
	v, sessions, enrollments, _ := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusInProgress, StartToken: "tok",
	}
	enrollments.enrolled["c1|student-1"] = true

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeEnd, Token: "anything",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid QR code", res.Message)
}

func TestVerifyAndRecord_NotEnrolled(t *testing.T) {
	v, sessions, _, recorder := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusInProgress, StartToken: "tok",
	}

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "You are not enrolled in this class", res.Message)
	assert.Zero(t, recorder.startCalls)
}

func TestVerifyAndRecord_DuplicateStartScan(t *testing.T) {
	v, sessions, enrollments, recorder := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusInProgress, StartToken: "tok",
	}
	enrollments.enrolled["c1|student-1"] = true

	payload := Payload{SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok"}

	first, err := v.VerifyAndRecord(context.Background(), "student-1", payload)
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := v.VerifyAndRecord(context.Background(), "student-1", payload)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, "You have already marked attendance for this session", second.Message)
	assert.Len(t, recorder.records, 1)
}

func TestVerifyAndRecord_EndBeforeStart(t *testing.T) {
	v, sessions, enrollments, recorder := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusInProgress,
		StartToken: "tok", EndToken: endToken("end-tok"),
	}
	enrollments.enrolled["c1|student-1"] = true

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeEnd, Token: "end-tok",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "You need to scan the start QR first", res.Message)
	assert.Empty(t, recorder.records)
}

func TestVerifyAndRecord_CompleteFlow(t *testing.T) {
	v, sessions, enrollments, _ := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusInProgress,
		StartToken: "tok", EndToken: endToken("end-tok"),
	}
	enrollments.enrolled["c1|student-1"] = true

	start, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok",
	})
	require.NoError(t, err)
	require.True(t, start.Success)

	end, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeEnd, Token: "end-tok",
	})
	require.NoError(t, err)
	assert.True(t, end.Success)
	assert.Equal(t, "Attendance completed!", end.Message)

	again, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeEnd, Token: "end-tok",
	})
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, "You have already completed attendance", again.Message)
}

func TestVerifyAndRecord_StorageFailureIsGeneric(t *testing.T) {
	v, sessions, _, _ := testVerifier(t, time.Now())
	sessions.err = apperr.Wrap(apperr.Infrastructure, "get session", assert.AnError)

	res, err := v.VerifyAndRecord(context.Background(), "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "An error occurred. Please try again.", res.Message)
}

func TestVerifyAndRecord_CancelledContextCommitsNothing(t *testing.T) {
	v, sessions, enrollments, recorder := testVerifier(t, time.Now())
	sessions.sessions["s1"] = session.Session{
		ID: "s1", ClassID: "c1", Status: session.StatusInProgress, StartToken: "tok",
	}
	enrollments.enrolled["c1|student-1"] = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.VerifyAndRecord(ctx, "student-1", Payload{
		SessionID: "s1", ClassID: "c1", Type: TypeStart, Token: "tok",
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.records)
}
