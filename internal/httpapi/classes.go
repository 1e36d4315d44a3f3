package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
)

func (h *Handlers) createClass(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		UnitCode    string `json:"unit_code" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cl, err := h.Classes.Create(c.Request.Context(), identity(c).UserID, req.Name, req.UnitCode, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cl)
}

// listClasses is role-variant: lecturers see classes they own, students see
// classes they are enrolled in.
func (h *Handlers) listClasses(c *gin.Context) {
	ident := identity(c)
	switch ident.Role {
	case auth.RoleStudent:
		classes, err := h.Classes.ListForStudent(c.Request.Context(), ident.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"classes": classes})
	default:
		classes, err := h.Classes.ListByLecturer(c.Request.Context(), ident.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"classes": classes})
	}
}

func (h *Handlers) enrollStudent(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	en, err := h.Classes.Enroll(c.Request.Context(), identity(c).UserID, c.Param("id"), req.StudentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, en)
}

func (h *Handlers) listEnrollments(c *gin.Context) {
	roster, err := h.Classes.Roster(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": roster})
}

func (h *Handlers) classStats(c *gin.Context) {
	// Ownership check rides on Roster's predicate via the class service.
	if _, err := h.Classes.Roster(c.Request.Context(), identity(c).UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	daily, err := h.Stats.ForClass(c.Request.Context(), c.Param("id"), 30)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": daily})
}
