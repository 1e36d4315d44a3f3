package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/rotation"
)

func (h *Handlers) rotateStart(c *gin.Context) {
	count, err := h.Rotator.RotateStartTokens(c.Request.Context())
	h.writeRotation(c, "start", count, err)
}

func (h *Handlers) rotateEnd(c *gin.Context) {
	count, err := h.Rotator.RotateEndTokens(c.Request.Context())
	h.writeRotation(c, "end", count, err)
}

func (h *Handlers) writeRotation(c *gin.Context, kind string, count int, err error) {
	if errors.Is(err, rotation.ErrLocked) {
		c.JSON(http.StatusConflict, gin.H{"error": "rotation already running"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "rotated": count})
}
