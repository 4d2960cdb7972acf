package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type slipProfileSource interface {
	Profile(ctx context.Context, studentID, term string) (*models.StudentProfile, error)
}

var (
	slipHeaders = []string{"Code", "Title", "Credits", "Instructor", "Status", "Registered At"}
	slipWidths  = []float64{1, 3, 0.7, 2, 1.2, 1.6}
)

// ExportService renders registration slips.
type ExportService struct {
	profiles slipProfileSource
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(profiles slipProfileSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{profiles: profiles, csv: csv, pdf: pdf, logger: logger}
}

// RegistrationSlip renders the student's active registrations for term.
func (s *ExportService) RegistrationSlip(ctx context.Context, studentID, term string, format models.SlipFormat) (*models.RegistrationSlip, error) {
	format = models.SlipFormat(strings.ToLower(string(format)))
	if format == "" {
		format = models.SlipFormatPDF
	}
	if format != models.SlipFormatCSV && format != models.SlipFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	profile, err := s.profiles.Profile(ctx, studentID, term)
	if err != nil {
		return nil, err
	}
	dataset := buildSlipDataset(profile)
	title := fmt.Sprintf("Registration Slip - %s", profile.Term)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case models.SlipFormatCSV:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv"
	default:
		body, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render registration slip")
	}

	s.logger.Info("registration slip rendered", zap.String("student_id", studentID), zap.String("term", profile.Term), zap.String("format", string(format)))
	return &models.RegistrationSlip{
		Filename:    slipFilename(profile, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func buildSlipDataset(profile *models.StudentProfile) export.Dataset {
	rows := make([]map[string]string, 0, len(profile.Registrations))
	for _, r := range profile.Registrations {
		rows = append(rows, map[string]string{
			"Code":          r.CourseCode,
			"Title":         r.CourseTitle,
			"Credits":       strconv.Itoa(r.Credits),
			"Instructor":    r.Instructor,
			"Status":        string(r.Status),
			"Registered At": r.RegisteredAt.Format("2006-01-02 15:04"),
		})
	}
	student := profile.Student
	return export.Dataset{
		Headers: slipHeaders,
		Widths:  slipWidths,
		Rows:    rows,
		Notes: []string{
			fmt.Sprintf("%s (%s)", student.FullName(), student.RollNumber),
			fmt.Sprintf("%s, semester %d", student.Department, student.Semester),
			fmt.Sprintf("Term credits: %d of %d", profile.TermCredits, profile.CreditCeiling),
		},
	}
}

func slipFilename(profile *models.StudentProfile, format models.SlipFormat) string {
	term := strings.ToLower(strings.ReplaceAll(profile.Term, " ", "-"))
	return fmt.Sprintf("registration-slip-%s-%s.%s", profile.Student.RollNumber, term, format)
}
