package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/export"
)

type stubProfileSource struct {
	profile *models.StudentProfile
	err     error
}

func (s stubProfileSource) Profile(ctx context.Context, studentID, term string) (*models.StudentProfile, error) {
	return s.profile, s.err
}

type failingPDF struct{}

func (failingPDF) Render(data export.Dataset, title string) ([]byte, error) {
	return nil, errors.New("font missing")
}

func slipProfile() *models.StudentProfile {
	registeredAt := time.Date(2024, 8, 20, 9, 30, 0, 0, time.UTC)
	return &models.StudentProfile{
		Student:       models.Student{ID: "stu-1", RollNumber: "23FA-003-SE", FirstName: "Ali", LastName: "Ahmed", Department: "Software Engineering", Semester: 4},
		Term:          "Fall 2024",
		TermCredits:   7,
		CreditCeiling: 21,
		Registrations: []models.RegistrationDetail{
			{Registration: models.Registration{Status: models.RegistrationStatusRegistered, RegisteredAt: registeredAt}, CourseCode: "CS301", CourseTitle: "Software Engineering", Credits: 4, Instructor: "Dr. Sarah Johnson"},
			{Registration: models.Registration{Status: models.RegistrationStatusRegistered, RegisteredAt: registeredAt}, CourseCode: "CS302", CourseTitle: "Computer Networks", Credits: 3, Instructor: "Dr. Michael Chen"},
		},
	}
}

func TestExportServiceCSVSlip(t *testing.T) {
	svc := NewExportService(stubProfileSource{profile: slipProfile()}, nil, nil, nil)

	slip, err := svc.RegistrationSlip(context.Background(), "stu-1", "", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "registration-slip-23FA-003-SE-fall-2024.csv", slip.Filename)
	assert.Equal(t, "text/csv", slip.ContentType)

	lines := strings.Split(strings.TrimSpace(string(slip.Body)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, []string{
		"# Ali Ahmed (23FA-003-SE)",
		"# Software Engineering, semester 4",
		"# Term credits: 7 of 21",
	}, lines[:3])
	assert.Equal(t, "Code,Title,Credits,Instructor,Status,Registered At", lines[3])
	assert.Equal(t, "CS301,Software Engineering,4,Dr. Sarah Johnson,REGISTERED,2024-08-20 09:30", lines[4])
}

func TestExportServicePDFSlipIsDefault(t *testing.T) {
	svc := NewExportService(stubProfileSource{profile: slipProfile()}, nil, nil, nil)

	slip, err := svc.RegistrationSlip(context.Background(), "stu-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", slip.ContentType)
	assert.True(t, bytes.HasPrefix(slip.Body, []byte("%PDF-")))
}

func TestExportServiceErrors(t *testing.T) {
	svc := NewExportService(stubProfileSource{profile: slipProfile()}, nil, nil, failingPDF{})

	_, err := svc.RegistrationSlip(context.Background(), "stu-1", "", "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.RegistrationSlip(context.Background(), "stu-1", "", models.SlipFormatPDF)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	missing := NewExportService(stubProfileSource{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}, nil, nil, nil)
	_, err = missing.RegistrationSlip(context.Background(), "ghost", "", models.SlipFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
