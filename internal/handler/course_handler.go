package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type courseCatalog interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseListing, error)
	Get(ctx context.Context, code string) (*models.CourseListing, error)
}

// CourseHandler exposes the course catalog.
type CourseHandler struct {
	catalog courseCatalog
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(catalog courseCatalog) *CourseHandler {
	return &CourseHandler{catalog: catalog}
}

// List godoc
// @Summary List courses
// @Description Catalog with remaining seats, ordered by course code
// @Tags Courses
// @Produce json
// @Param department query string false "Department"
// @Param semester query int false "Semester (1-8)"
// @Param category query string false "CORE, ELECTIVE, LAB, SEMINAR or THESIS"
// @Param search query string false "Matches code, title, description or instructor"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Category:   models.CourseCategory(strings.TrimSpace(c.Query("category"))),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("semester"); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be a number"))
			return
		}
		filter.Semester = semester
	}

	courses, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, map[string]interface{}{"count": len(courses)})
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{code} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.catalog.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}
