package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

// CourseStore reads the course catalog.
type CourseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// StudentStore reads student records.
type StudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
}

// LedgerStore is the authoritative enrollment ledger.
type LedgerStore interface {
	Register(ctx context.Context, params models.RegisterParams) (*models.Registration, error)
	Drop(ctx context.Context, params models.DropParams) (*models.Registration, error)
	CommittedCredits(ctx context.Context, studentID, term string) (int, error)
	ListByStudent(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error)
}

// SelectionStore keeps provisional selections between requests.
type SelectionStore interface {
	Get(ctx context.Context, studentID, term string) (*models.SelectionSession, error)
	Save(ctx context.Context, session *models.SelectionSession) error
	Delete(ctx context.Context, studentID, term string) error
}

// Backend groups the stores of one data source.
type Backend struct {
	Courses       CourseStore
	Students      StudentStore
	Registrations LedgerStore
}

// NewPostgresBackend wires the sqlx repositories.
func NewPostgresBackend(db *sqlx.DB) Backend {
	return Backend{
		Courses:       NewCourseRepository(db),
		Students:      NewStudentRepository(db),
		Registrations: NewRegistrationRepository(db),
	}
}

// Backend exposes the fixture views as one data source.
func (s *FixtureStore) Backend() Backend {
	return Backend{
		Courses:       s.Courses(),
		Students:      s.Students(),
		Registrations: s.Registrations(),
	}
}
