// Package attendance owns the per-student attendance record and its state
// machine: absent (no row) → present → completed, with left_early applied by
// the session-end sweep.
package attendance

import "time"

// Status of a single student's attendance within one session. Absence is the
// lack of a row, never a stored value.
type Status string

const (
	StatusPresent   Status = "present"
	StatusCompleted Status = "completed"
	StatusLeftEarly Status = "left_early"
)

// Record is one (session, student) attendance row.
type Record struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"session_id"`
	StudentID     string     `json:"student_id"`
	Status        Status     `json:"status"`
	StartScanTime *time.Time `json:"start_scan_time,omitempty"`
	EndScanTime   *time.Time `json:"end_scan_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RecentRecord is a Record joined with its class, for the student dashboard.
type RecentRecord struct {
	Record
	ClassName        string    `json:"class_name"`
	UnitCode         string    `json:"unit_code"`
	SessionStartTime time.Time `json:"session_start_time"`
}
