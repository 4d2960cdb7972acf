package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type selectionWorkflow interface {
	View(ctx context.Context, studentID, term string) (*models.SelectionView, error)
	Toggle(ctx context.Context, studentID, term string, req models.ToggleSelectionRequest) (*models.ToggleResult, error)
	Commit(ctx context.Context, studentID, term string) (*models.CommitResult, error)
	Clear(ctx context.Context, studentID, term string) error
}

// SelectionHandler exposes the provisional course selection.
type SelectionHandler struct {
	selections selectionWorkflow
}

// NewSelectionHandler constructs SelectionHandler.
func NewSelectionHandler(selections selectionWorkflow) *SelectionHandler {
	return &SelectionHandler{selections: selections}
}

// View godoc
// @Summary Current selection
// @Tags Selection
// @Produce json
// @Security BearerAuth
// @Param term query string false "Term, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /selection [get]
func (h *SelectionHandler) View(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	view, err := h.selections.View(c.Request.Context(), studentID, c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Toggle godoc
// @Summary Select or deselect a course
// @Description Adding a course that is already registered, breaks the credit ceiling or is full is refused with a warning
// @Tags Selection
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param term query string false "Term, defaults to the current term"
// @Param payload body models.ToggleSelectionRequest true "Course to toggle"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /selection/toggle [post]
func (h *SelectionHandler) Toggle(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	var req models.ToggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.selections.Toggle(c.Request.Context(), studentID, c.Query("term"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Commit godoc
// @Summary Commit the selection
// @Description Registers each selected course in order and reports a per-course outcome
// @Tags Selection
// @Produce json
// @Security BearerAuth
// @Param term query string false "Term, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /selection/commit [post]
func (h *SelectionHandler) Commit(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.selections.Commit(c.Request.Context(), studentID, c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{}
	if failures := result.FailuresByKind(); len(failures) > 0 {
		meta["failures"] = failures
	}
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// Clear godoc
// @Summary Clear the selection
// @Tags Selection
// @Security BearerAuth
// @Param term query string false "Term, defaults to the current term"
// @Success 204
// @Router /selection [delete]
func (h *SelectionHandler) Clear(c *gin.Context) {
	studentID, ok := studentIDFromContext(c)
	if !ok {
		return
	}
	if err := h.selections.Clear(c.Request.Context(), studentID, c.Query("term")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
