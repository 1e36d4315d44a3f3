// Package session owns the scheduled → in_progress → ended lifecycle and the
// QR tokens attached to each session.
package session

import "time"

// Status is a session lifecycle state. Transitions are one-directional:
// scheduled → in_progress → ended.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusEnded      Status = "ended"
)

// Session is one scheduled occurrence of a class with its own attendance
// window and tokens.
type Session struct {
	ID         string    `json:"id"`
	ClassID    string    `json:"class_id"`
	LecturerID string    `json:"lecturer_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     Status    `json:"status"`
	StartToken string    `json:"start_token,omitempty"`
	EndToken   *string   `json:"end_token,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Redacted returns a copy with both tokens stripped, for student-facing
// views. A student who can read tokens has no reason to scan anything.
func (s Session) Redacted() Session {
	s.StartToken = ""
	s.EndToken = nil
	return s
}

// InWindow reports whether t falls inside the scheduled window.
func (s Session) InWindow(t time.Time) bool {
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}
