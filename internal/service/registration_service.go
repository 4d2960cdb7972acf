package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/creditpolicy"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type registrationLedger interface {
	Register(ctx context.Context, params models.RegisterParams) (*models.Registration, error)
	Drop(ctx context.Context, params models.DropParams) (*models.Registration, error)
	CommittedCredits(ctx context.Context, studentID, term string) (int, error)
	ListByStudent(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error)
}

type ledgerMetrics interface {
	ObserveLedgerCall(operation string, duration time.Duration)
	RecordRegistrationOutcome(outcome string)
}

// RegistrationConfig carries the term defaults and ledger limits.
type RegistrationConfig struct {
	CreditCeiling int
	CurrentTerm   string
	AcademicYear  string
	LedgerTimeout time.Duration
}

// RegistrationService fronts the enrollment ledger. Every call carries the
// configured timeout and failures are normalised onto the registration error
// taxonomy.
type RegistrationService struct {
	ledger    registrationLedger
	validator *validator.Validate
	metrics   ledgerMetrics
	logger    *zap.Logger
	cfg       RegistrationConfig
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(ledger registrationLedger, validate *validator.Validate, metrics ledgerMetrics, logger *zap.Logger, cfg RegistrationConfig) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if cfg.CreditCeiling <= 0 {
		cfg.CreditCeiling = creditpolicy.DefaultCeiling
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 5 * time.Second
	}
	return &RegistrationService{ledger: ledger, validator: validate, metrics: metrics, logger: logger, cfg: cfg}
}

// CreditCeiling returns the configured per-term ceiling.
func (s *RegistrationService) CreditCeiling() int {
	return s.cfg.CreditCeiling
}

// ResolveTerm returns term, or the current term when term is blank.
func (s *RegistrationService) ResolveTerm(term string) string {
	if term = strings.TrimSpace(term); term != "" {
		return term
	}
	return s.cfg.CurrentTerm
}

// Register commits one course for the student.
func (s *RegistrationService) Register(ctx context.Context, studentID string, req models.RegisterRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	params := models.RegisterParams{
		StudentID:     studentID,
		CourseID:      req.CourseID,
		Term:          s.ResolveTerm(req.Term),
		AcademicYear:  s.cfg.AcademicYear,
		CreditCeiling: s.cfg.CreditCeiling,
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()

	start := time.Now()
	registration, err := s.ledger.Register(ctx, params)
	s.metrics.ObserveLedgerCall("register", time.Since(start))
	if err != nil {
		err = normalizeLedgerError(ctx, err)
		kind := FailureKindOf(err)
		s.metrics.RecordRegistrationOutcome(strings.ToLower(string(kind)))
		if kind == models.FailureTransient {
			s.logger.Warn("ledger register failed", zap.String("student_id", studentID), zap.String("course_id", req.CourseID), zap.Error(err))
		}
		return nil, err
	}
	s.metrics.RecordRegistrationOutcome("committed")
	s.logger.Info("course registered",
		zap.String("student_id", studentID),
		zap.String("course_id", req.CourseID),
		zap.String("term", params.Term),
		zap.String("registration_id", registration.ID))
	return registration, nil
}

// Drop ends the student's active registration in courseID for term.
func (s *RegistrationService) Drop(ctx context.Context, studentID, courseID, term string, status models.RegistrationStatus) (*models.Registration, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	params := models.DropParams{
		StudentID: studentID,
		CourseID:  courseID,
		Term:      s.ResolveTerm(term),
		Status:    models.RegistrationStatus(strings.ToUpper(string(status))),
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()

	start := time.Now()
	registration, err := s.ledger.Drop(ctx, params)
	s.metrics.ObserveLedgerCall("drop", time.Since(start))
	if err != nil {
		return nil, normalizeLedgerError(ctx, err)
	}
	s.logger.Info("registration dropped",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.String("term", params.Term),
		zap.String("status", string(registration.Status)))
	return registration, nil
}

// CommittedCredits returns the student's committed credits for term.
func (s *RegistrationService) CommittedCredits(ctx context.Context, studentID, term string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()
	credits, err := s.ledger.CommittedCredits(ctx, studentID, s.ResolveTerm(term))
	if err != nil {
		return 0, normalizeLedgerError(ctx, err)
	}
	return credits, nil
}

// List returns the student's registrations for term. An empty status lists all.
func (s *RegistrationService) List(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()
	details, err := s.ledger.ListByStudent(ctx, studentID, s.ResolveTerm(term), status)
	if err != nil {
		return nil, normalizeLedgerError(ctx, err)
	}
	return details, nil
}

// normalizeLedgerError keeps typed ledger errors and turns deadline expiry
// into Transient.
func normalizeLedgerError(ctx context.Context, err error) error {
	appErr := asAppError(err)
	if appErr != nil && appErr.Code != appErrors.ErrInternal.Code {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "ledger call timed out")
	}
	if appErr != nil {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "ledger call failed")
}

// FailureKindOf maps a ledger error to the kind reported on a selection item.
// Anything outside the taxonomy is reported as transient.
func FailureKindOf(err error) models.FailureKind {
	switch {
	case errors.Is(err, appErrors.ErrDuplicateEnrollment):
		return models.FailureDuplicateEnrollment
	case errors.Is(err, appErrors.ErrCourseFull):
		return models.FailureCourseFull
	case errors.Is(err, appErrors.ErrCreditLimitExceeded):
		return models.FailureCreditLimitExceeded
	case errors.Is(err, appErrors.ErrNotFound):
		return models.FailureNotFound
	default:
		return models.FailureTransient
	}
}
