package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/apperr"
	"classtrack/internal/class"
)

type fakeStore struct {
	sessions   map[string]*Session
	sweepCalls int
	swept      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*Session)}
}

func (f *fakeStore) Insert(_ context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = "sess-" + time.Now().Format("150405.000000")
	}
	s.CreatedAt = time.Now()
	cp := s
	f.sessions[s.ID] = &cp
	return s, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return Session{}, apperr.New(apperr.NotFound, "session not found")
	}
	return *s, nil
}

func (f *fakeStore) ListByLecturer(_ context.Context, lecturerID string, activeOnly bool) ([]Session, error) {
	var res []Session
	for _, s := range f.sessions {
		if s.LecturerID != lecturerID {
			continue
		}
		if activeOnly && s.Status == StatusEnded {
			continue
		}
		res = append(res, *s)
	}
	return res, nil
}

func (f *fakeStore) ListForStudent(_ context.Context, _ string, _ bool) ([]Session, error) {
	return nil, nil
}

func (f *fakeStore) Transition(_ context.Context, id string, from, to Status) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (f *fakeStore) SetEndToken(_ context.Context, id, token string) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != StatusInProgress {
		return false, nil
	}
	s.EndToken = &token
	return true, nil
}

func (f *fakeStore) EndAndSweep(_ context.Context, id string) (bool, int64, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != StatusInProgress {
		return false, 0, nil
	}
	s.Status = StatusEnded
	f.sweepCalls++
	return true, f.swept, nil
}

type fakeClasses struct {
	classes map[string]class.Class
}

func (f *fakeClasses) Get(_ context.Context, id string) (class.Class, error) {
	cl, ok := f.classes[id]
	if !ok {
		return class.Class{}, apperr.New(apperr.NotFound, "class not found")
	}
	return cl, nil
}

func testService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	classes := &fakeClasses{classes: map[string]class.Class{
		"c1": {ID: "c1", LecturerID: "lect-1", Name: "Databases", UnitCode: "CS305"},
	}}
	return NewService(store, classes), store
}

func TestCreate(t *testing.T) {
	svc, _ := testService(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	sess, err := svc.Create(context.Background(), "lect-1", "c1", start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, sess.Status)
	assert.NotEmpty(t, sess.StartToken)
	assert.Nil(t, sess.EndToken)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := testService(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), "lect-1", "c1", start, start)
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = svc.Create(context.Background(), "lect-1", "c1", start.Add(time.Hour), start)
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = svc.Create(context.Background(), "lect-1", "", start, start.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestCreate_UnknownClass(t *testing.T) {
	svc, _ := testService(t)
	start := time.Now()

	_, err := svc.Create(context.Background(), "lect-1", "nope", start, start.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestCreate_ForeignClass(t *testing.T) {
	svc, _ := testService(t)
	start := time.Now()

	_, err := svc.Create(context.Background(), "lect-2", "c1", start, start.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.Authorization)
}

func TestStart(t *testing.T) {
	svc, store := testService(t)
	start := time.Now()
	sess, err := svc.Create(context.Background(), "lect-1", "c1", start, start.Add(time.Hour))
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), sess.ID, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
	assert.Equal(t, StatusInProgress, store.sessions[sess.ID].Status)

	// A double-click applies once; the second caller sees the state error.
	_, err = svc.Start(context.Background(), sess.ID, "lect-1")
	assert.ErrorIs(t, err, apperr.InvalidState)
}

func TestStart_Ownership(t *testing.T) {
	svc, _ := testService(t)
	start := time.Now()
	sess, err := svc.Create(context.Background(), "lect-1", "c1", start, start.Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), sess.ID, "lect-2")
	assert.ErrorIs(t, err, apperr.Authorization)
}

func TestGenerateEndToken(t *testing.T) {
	svc, store := testService(t)
	start := time.Now()
	sess, err := svc.Create(context.Background(), "lect-1", "c1", start, start.Add(time.Hour))
	require.NoError(t, err)

	// Not legal while scheduled.
	_, err = svc.GenerateEndToken(context.Background(), sess.ID, "lect-1")
	assert.ErrorIs(t, err, apperr.InvalidState)

	_, err = svc.Start(context.Background(), sess.ID, "lect-1")
	require.NoError(t, err)

	first, err := svc.GenerateEndToken(context.Background(), sess.ID, "lect-1")
	require.NoError(t, err)
	require.NotNil(t, first.EndToken)

	// Regeneration replaces the value rather than accumulating.
	second, err := svc.GenerateEndToken(context.Background(), sess.ID, "lect-1")
	require.NoError(t, err)
	require.NotNil(t, second.EndToken)
	assert.NotEqual(t, *first.EndToken, *second.EndToken)
	assert.Equal(t, *second.EndToken, *store.sessions[sess.ID].EndToken)
}

func TestEnd_SweepRunsOnce(t *testing.T) {
	svc, store := testService(t)
	store.swept = 3
	start := time.Now()
	sess, err := svc.Create(context.Background(), "lect-1", "c1", start, start.Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), sess.ID, "lect-1")
	require.NoError(t, err)

	ended, err := svc.End(context.Background(), sess.ID, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, ended.Status)
	assert.Equal(t, 1, store.sweepCalls)

	// The retry transitions nothing and sweeps nothing.
	_, err = svc.End(context.Background(), sess.ID, "lect-1")
	assert.ErrorIs(t, err, apperr.InvalidState)
	assert.Equal(t, 1, store.sweepCalls)
}

func TestEnd_RequiresInProgress(t *testing.T) {
	svc, _ := testService(t)
	start := time.Now()
	sess, err := svc.Create(context.Background(), "lect-1", "c1", start, start.Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.End(context.Background(), sess.ID, "lect-1")
	assert.ErrorIs(t, err, apperr.InvalidState)
}

func TestInWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sess := Session{StartTime: start, EndTime: start.Add(time.Hour)}

	assert.False(t, sess.InWindow(start.Add(-time.Second)))
	assert.True(t, sess.InWindow(start))
	assert.True(t, sess.InWindow(start.Add(30*time.Minute)))
	assert.True(t, sess.InWindow(start.Add(time.Hour)))
	assert.False(t, sess.InWindow(start.Add(time.Hour+time.Second)))
}
