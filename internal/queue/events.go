package queue

import (
	"context"
	"encoding/json"
	"log"
)

// MessageTypeScan marks a scan event body.
const MessageTypeScan = "scan"

// ScanEvent is published after a scan is accepted. It feeds derived data
// (per-class stats); attendance itself is already committed by then.
type ScanEvent struct {
	SessionID string `json:"session_id"`
	ClassID   string `json:"class_id"`
	StudentID string `json:"student_id"`
	Kind      string `json:"kind"` // "start" or "end"
}

// PublishScan enqueues a scan event, best effort. A publish failure skews a
// counter, never attendance, so it is logged and swallowed.
func PublishScan(ctx context.Context, q Queue, evt ScanEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		log.Printf("encode scan event failed: %v", err)
		return
	}
	if err := q.Publish(ctx, Message{Type: MessageTypeScan, Body: body}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}
