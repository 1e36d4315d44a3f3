package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/qr"
	"classtrack/internal/scan"
)

func (h *Handlers) createSession(c *gin.Context) {
	var req struct {
		ClassID   string    `json:"class_id" binding:"required"`
		StartTime time.Time `json:"start_time" binding:"required"`
		EndTime   time.Time `json:"end_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.Sessions.Create(c.Request.Context(), identity(c).UserID, req.ClassID, req.StartTime, req.EndTime)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// listSessions is role-variant: lecturers see sessions they own, students see
// sessions of classes they are enrolled in. ?active=1 retires ended sessions
// from the view.
func (h *Handlers) listSessions(c *gin.Context) {
	ident := identity(c)
	activeOnly := c.Query("active") == "1" || c.Query("active") == "true"
	if ident.Role == auth.RoleStudent {
		sessions, err := h.Sessions.ListForStudent(c.Request.Context(), ident.UserID, activeOnly)
		if err != nil {
			writeError(c, err)
			return
		}
		for i := range sessions {
			sessions[i] = sessions[i].Redacted()
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
		return
	}
	sessions, err := h.Sessions.ListByLecturer(c.Request.Context(), ident.UserID, activeOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handlers) startSession(c *gin.Context) {
	sess, err := h.Sessions.Start(c.Request.Context(), c.Param("id"), identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handlers) endSession(c *gin.Context) {
	sess, err := h.Sessions.End(c.Request.Context(), c.Param("id"), identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handlers) generateEndToken(c *gin.Context) {
	sess, err := h.Sessions.GenerateEndToken(c.Request.Context(), c.Param("id"), identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handlers) sessionAttendance(c *gin.Context) {
	// Ownership check first; the attendance list itself has no owner column.
	if _, err := h.Sessions.Get(c.Request.Context(), c.Param("id"), identity(c).UserID); err != nil {
		writeError(c, err)
		return
	}
	records, err := h.Recorder.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

func (h *Handlers) buildPayload(c *gin.Context) (scan.Payload, bool) {
	sess, err := h.Sessions.Get(c.Request.Context(), c.Param("id"), identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return scan.Payload{}, false
	}
	typ := scan.Type(c.DefaultQuery("type", string(scan.TypeStart)))
	payload, err := qr.Build(sess, typ)
	if err != nil {
		writeError(c, err)
		return scan.Payload{}, false
	}
	return payload, true
}

func (h *Handlers) sessionQRImage(c *gin.Context) {
	payload, ok := h.buildPayload(c)
	if !ok {
		return
	}
	size := 256
	if v := c.Query("size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			size = parsed
		}
	}
	png, err := qr.RenderPNG(payload, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handlers) sessionQRPayload(c *gin.Context) {
	payload, ok := h.buildPayload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, payload)
}
