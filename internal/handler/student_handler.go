package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type studentProfiles interface {
	Profile(ctx context.Context, studentID, term string) (*models.StudentProfile, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentProfiles
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentProfiles) *StudentHandler {
	return &StudentHandler{students: students}
}

// Me godoc
// @Summary Student dashboard
// @Description Profile, term registrations and credit summary of the signed-in student
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param term query string false "Term, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /students/me [get]
func (h *StudentHandler) Me(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	profile, err := h.students.Profile(c.Request.Context(), studentID, c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
