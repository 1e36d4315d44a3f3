package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/queue"
	"classtrack/internal/scan"
)

// handleScan accepts either a parsed payload or the raw decoded QR text.
// The response is always 200 with a structured result; a rejected scan is
// not an HTTP error.
func (h *Handlers) handleScan(c *gin.Context) {
	var req struct {
		Raw     string        `json:"raw"`
		Payload *scan.Payload `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payload scan.Payload
	if req.Payload != nil {
		payload = *req.Payload
	} else {
		parsed, err := scan.ParsePayload([]byte(req.Raw))
		if err != nil {
			c.JSON(http.StatusOK, scan.Result{Success: false, Message: "Invalid QR code"})
			return
		}
		payload = parsed
	}

	studentID := identity(c).UserID
	result, err := h.Verifier.VerifyAndRecord(c.Request.Context(), studentID, payload)
	if err != nil {
		// Only context cancellation reaches here; the client is gone.
		c.Abort()
		return
	}

	if result.Success && h.Queue != nil {
		kind := "start"
		if payload.Type == scan.TypeEnd {
			kind = "end"
		}
		queue.PublishScan(c.Request.Context(), h.Queue, queue.ScanEvent{
			SessionID: payload.SessionID,
			ClassID:   payload.ClassID,
			StudentID: studentID,
			Kind:      kind,
		})
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handlers) recentAttendance(c *gin.Context) {
	records, err := h.Recorder.RecentForStudent(c.Request.Context(), identity(c).UserID, 5)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records})
}
