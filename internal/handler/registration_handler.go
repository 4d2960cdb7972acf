package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type registrationLedger interface {
	Register(ctx context.Context, studentID string, req models.RegisterRequest) (*models.Registration, error)
	Drop(ctx context.Context, studentID, courseID, term string, status models.RegistrationStatus) (*models.Registration, error)
	List(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error)
	ResolveTerm(term string) string
}

type slipRenderer interface {
	RegistrationSlip(ctx context.Context, studentID, term string, format models.SlipFormat) (*models.RegistrationSlip, error)
}

// RegistrationHandler exposes the authoritative registration ledger.
type RegistrationHandler struct {
	registrations registrationLedger
	slips         slipRenderer
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations registrationLedger, slips slipRenderer) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, slips: slips}
}

// List godoc
// @Summary List my registrations
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param term query string false "Term, defaults to the current term"
// @Param status query string false "Registration status"
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	term := h.registrations.ResolveTerm(c.Query("term"))
	status := models.RegistrationStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))

	items, err := h.registrations.List(c.Request.Context(), studentID, term, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"term": term})
}

// Create godoc
// @Summary Register for a course
// @Description Atomically claims a seat and records the registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RegisterRequest true "Course to register"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	reg, err := h.registrations.Register(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Drop godoc
// @Summary Drop or withdraw from a course
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param term query string false "Term, defaults to the current term"
// @Param status query string false "DROPPED (default) or WITHDRAWN"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{courseId} [delete]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	reg, err := h.registrations.Drop(c.Request.Context(), studentID, c.Param("courseId"), c.Query("term"), models.RegistrationStatus(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Slip godoc
// @Summary Download registration slip
// @Tags Registrations
// @Produce application/pdf
// @Produce text/csv
// @Security BearerAuth
// @Param term query string false "Term, defaults to the current term"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /registrations/slip [get]
func (h *RegistrationHandler) Slip(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	format := models.SlipFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	slip, err := h.slips.RegistrationSlip(c.Request.Context(), studentID, c.Query("term"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, slip.Filename, slip.ContentType, slip.Body)
}
