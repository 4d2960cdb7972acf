package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/creditpolicy"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type registrationLister interface {
	List(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error)
	ResolveTerm(term string) string
	CreditCeiling() int
}

// StudentService assembles the student dashboard.
type StudentService struct {
	repo          studentRepository
	registrations registrationLister
	logger        *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, registrations registrationLister, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, registrations: registrations, logger: logger}
}

// Profile returns the student with their active registrations and credit
// summary for term.
func (s *StudentService) Profile(ctx context.Context, studentID, term string) (*models.StudentProfile, error) {
	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		return nil, wrapRepoError(err, "failed to load student")
	}
	term = s.registrations.ResolveTerm(term)
	active, err := s.registrations.List(ctx, studentID, term, models.RegistrationStatusRegistered)
	if err != nil {
		return nil, err
	}

	credits := 0
	for _, r := range active {
		credits += r.Credits
	}
	ceiling := s.registrations.CreditCeiling()
	return &models.StudentProfile{
		Student:          *student,
		Term:             term,
		TermCredits:      credits,
		CreditCeiling:    ceiling,
		RemainingCredits: creditpolicy.Remaining(credits, 0, ceiling),
		Registrations:    active,
	}, nil
}
