// Package httpapi exposes the application over gin. Handlers translate HTTP
// to service calls and typed errors back to statuses; no business rules live
// here.
package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/class"
	"classtrack/internal/queue"
	"classtrack/internal/rotation"
	"classtrack/internal/scan"
	"classtrack/internal/session"
	"classtrack/internal/stats"
)

// Handlers holds the services behind the API.
type Handlers struct {
	Classes  *class.Service
	Sessions *session.Service
	Recorder *attendance.Recorder
	Verifier *scan.Verifier
	Rotator  *rotation.Rotator
	Stats    *stats.Repository
	Queue    queue.Queue
}

// AuthConfig carries the auth material so main stays the only place reading
// config.
type AuthConfig struct {
	SigningKey string
	Issuer     string
	ServiceKey string
}

// Register attaches every route to the engine.
func (h *Handlers) Register(r *gin.Engine, authCfg AuthConfig) {
	v1 := r.Group("/v1", auth.Authenticate(authCfg.SigningKey, authCfg.Issuer))

	lecturer := v1.Group("", auth.RequireRole(auth.RoleLecturer, auth.RoleAdmin))
	lecturer.POST("/classes", h.createClass)
	lecturer.POST("/classes/:id/enrollments", h.enrollStudent)
	lecturer.GET("/classes/:id/enrollments", h.listEnrollments)
	lecturer.GET("/classes/:id/stats", h.classStats)
	lecturer.POST("/sessions", h.createSession)
	lecturer.POST("/sessions/:id/start", h.startSession)
	lecturer.POST("/sessions/:id/end", h.endSession)
	lecturer.POST("/sessions/:id/end-token", h.generateEndToken)
	lecturer.GET("/sessions/:id/attendance", h.sessionAttendance)
	lecturer.GET("/sessions/:id/qr", h.sessionQRImage)
	lecturer.GET("/sessions/:id/qr/payload", h.sessionQRPayload)

	v1.GET("/classes", h.listClasses)
	v1.GET("/sessions", h.listSessions)

	student := v1.Group("", auth.RequireRole(auth.RoleStudent))
	student.POST("/scan", h.handleScan)
	student.GET("/attendance/recent", h.recentAttendance)

	rot := r.Group("/v1/rotation", auth.RequireServiceKey(authCfg.ServiceKey))
	rot.POST("/start", h.rotateStart)
	rot.POST("/end", h.rotateEnd)
}

// writeError maps typed errors to HTTP statuses. Infrastructure details are
// logged, never returned.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.Validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": apperr.MessageOf(err)})
	case errors.Is(err, apperr.Authorization):
		c.JSON(http.StatusForbidden, gin.H{"error": apperr.MessageOf(err)})
	case errors.Is(err, apperr.NotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": apperr.MessageOf(err)})
	case errors.Is(err, apperr.InvalidState), errors.Is(err, apperr.Conflict):
		c.JSON(http.StatusConflict, gin.H{"error": apperr.MessageOf(err)})
	case errors.Is(err, apperr.Infrastructure):
		log.Printf("storage failure: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, try again"})
	default:
		log.Printf("unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func identity(c *gin.Context) auth.Identity {
	ident, _ := auth.FromContext(c)
	return ident
}
