package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type selectionStub struct {
	term    string
	toggled string
	cleared bool
	result  *models.CommitResult
	err     error
}

func (s *selectionStub) View(_ context.Context, studentID, term string) (*models.SelectionView, error) {
	s.term = term
	return &models.SelectionView{Session: models.NewSelectionSession(studentID, "Fall 2025"), CreditCeiling: 21, RemainingCredits: 21}, nil
}

func (s *selectionStub) Toggle(_ context.Context, _, term string, req models.ToggleSelectionRequest) (*models.ToggleResult, error) {
	s.term = term
	s.toggled = req.CourseID
	return &models.ToggleResult{CourseID: req.CourseID, Selected: false, Warning: "course full"}, nil
}

func (s *selectionStub) Commit(_ context.Context, _, term string) (*models.CommitResult, error) {
	s.term = term
	return s.result, s.err
}

func (s *selectionStub) Clear(_ context.Context, _, term string) error {
	s.term = term
	s.cleared = true
	return nil
}

func TestSelectionHandlerViewAndToggle(t *testing.T) {
	stub := &selectionStub{}
	h := NewSelectionHandler(stub)

	c, w := newGinContext(http.MethodGet, "/selection", nil)
	asStudent(c, "stu-1")
	h.View(c)
	assert.Equal(t, http.StatusOK, w.Code)

	payload, _ := json.Marshal(models.ToggleSelectionRequest{CourseID: "course-2"})
	c, w = newGinContext(http.MethodPost, "/selection/toggle", payload)
	asStudent(c, "stu-1")
	h.Toggle(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "course-2", stub.toggled)

	var result models.ToggleResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.False(t, result.Selected)
	assert.Equal(t, "course full", result.Warning)
}

func TestSelectionHandlerCommitReportsFailures(t *testing.T) {
	stub := &selectionStub{result: &models.CommitResult{
		Term: "Fall 2025",
		Outcomes: []models.CommitOutcome{
			{CourseID: "a", State: models.SelectionStateCommitted},
			{CourseID: "b", State: models.SelectionStateFailed, FailureKind: models.FailureCourseFull},
		},
		Committed: 1,
		Failed:    1,
	}}
	h := NewSelectionHandler(stub)

	c, w := newGinContext(http.MethodPost, "/selection/commit", nil)
	asStudent(c, "stu-1")
	h.Commit(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, map[string]interface{}{"COURSE_FULL": float64(1)}, env.Meta["failures"])
}

func TestSelectionHandlerCommitEmpty(t *testing.T) {
	h := NewSelectionHandler(&selectionStub{err: appErrors.Clone(appErrors.ErrValidation, "select at least one course before committing")})
	c, w := newGinContext(http.MethodPost, "/selection/commit", nil)
	asStudent(c, "stu-1")
	h.Commit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectionHandlerClear(t *testing.T) {
	stub := &selectionStub{}
	h := NewSelectionHandler(stub)
	c, w := newGinContext(http.MethodDelete, "/selection", nil)
	asStudent(c, "stu-1")
	h.Clear(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, stub.cleared)
	assert.Empty(t, stub.term)
}

func TestSelectionHandlerPassesTermQuery(t *testing.T) {
	stub := &selectionStub{result: &models.CommitResult{Term: "Spring 2026"}}
	h := NewSelectionHandler(stub)

	c, w := newGinContext(http.MethodGet, "/selection?term=Spring+2026", nil)
	asStudent(c, "stu-1")
	h.View(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Spring 2026", stub.term)

	payload, _ := json.Marshal(models.ToggleSelectionRequest{CourseID: "course-2"})
	c, w = newGinContext(http.MethodPost, "/selection/toggle?term=Summer+2026", payload)
	asStudent(c, "stu-1")
	h.Toggle(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Summer 2026", stub.term)

	c, w = newGinContext(http.MethodPost, "/selection/commit?term=Spring+2026", nil)
	asStudent(c, "stu-1")
	h.Commit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Spring 2026", stub.term)
}
