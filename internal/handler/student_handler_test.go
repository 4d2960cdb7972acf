package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/student-portal-api/internal/models"
)

type profileStub struct{ term string }

func (s *profileStub) Profile(_ context.Context, studentID, term string) (*models.StudentProfile, error) {
	s.term = term
	return &models.StudentProfile{Student: models.Student{ID: studentID}, Term: "Fall 2025", CreditCeiling: 21}, nil
}

func TestStudentHandlerMe(t *testing.T) {
	stub := &profileStub{}
	h := NewStudentHandler(stub)

	c, w := newGinContext(http.MethodGet, "/students/me?term=Spring+2026", nil)
	asStudent(c, "stu-1")
	h.Me(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Spring 2026", stub.term)

	c, w = newGinContext(http.MethodGet, "/students/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
