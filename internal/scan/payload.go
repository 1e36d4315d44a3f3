// Package scan validates decoded QR payloads and turns them into attendance
// records. All authority comes from server-side checks; the device-decoded
// payload is untrusted input.
package scan

import (
	"encoding/json"

	"classtrack/internal/apperr"
)

// Type distinguishes the two QR codes a session displays.
type Type string

const (
	TypeStart Type = "START"
	TypeEnd   Type = "END"
)

// Payload is the decoded content of an attendance QR code. Timestamp is the
// client's clock at render time and is advisory only; it is never used in
// verification.
type Payload struct {
	SessionID string `json:"sessionId"`
	ClassID   string `json:"classId"`
	Type      Type   `json:"type"`
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"`
}

// ParsePayload parses raw decoded QR text. Malformed or incomplete payloads
// are rejected before any storage access.
func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, apperr.New(apperr.Validation, "Invalid QR code")
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// Validate checks the required fields are present and the type is known.
func (p Payload) Validate() error {
	if p.SessionID == "" || p.ClassID == "" || p.Token == "" {
		return apperr.New(apperr.Validation, "Invalid QR code")
	}
	if p.Type != TypeStart && p.Type != TypeEnd {
		return apperr.New(apperr.Validation, "Invalid QR code")
	}
	return nil
}
