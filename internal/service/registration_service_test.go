package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/repository"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

func scrapeMetrics(t *testing.T, metrics *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

type blockingLedger struct {
	lastParams models.RegisterParams
}

func (l *blockingLedger) Register(ctx context.Context, params models.RegisterParams) (*models.Registration, error) {
	l.lastParams = params
	<-ctx.Done()
	return nil, ctx.Err()
}

func (l *blockingLedger) Drop(ctx context.Context, params models.DropParams) (*models.Registration, error) {
	return nil, errors.New("unused")
}

func (l *blockingLedger) CommittedCredits(ctx context.Context, studentID, term string) (int, error) {
	return 0, nil
}

func (l *blockingLedger) ListByStudent(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error) {
	return nil, nil
}

func TestRegistrationServiceTimeoutIsTransient(t *testing.T) {
	ledger := &blockingLedger{}
	metrics := NewMetricsService()
	svc := NewRegistrationService(ledger, nil, metrics, nil, RegistrationConfig{
		CreditCeiling: 18,
		CurrentTerm:   "Fall 2024",
		AcademicYear:  "2024-2025",
		LedgerTimeout: 20 * time.Millisecond,
	})

	_, err := svc.Register(context.Background(), "stu-1", models.RegisterRequest{CourseID: "c-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTransient))
	assert.Equal(t, "Fall 2024", ledger.lastParams.Term)
	assert.Equal(t, "2024-2025", ledger.lastParams.AcademicYear)
	assert.Equal(t, 18, ledger.lastParams.CreditCeiling)
	assert.Contains(t, scrapeMetrics(t, metrics), `registration_outcomes_total{outcome="transient"} 1`)
}

func TestRegistrationServiceValidatesPayload(t *testing.T) {
	svc := NewRegistrationService(&blockingLedger{}, nil, nil, nil, RegistrationConfig{})

	_, err := svc.Register(context.Background(), "stu-1", models.RegisterRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Drop(context.Background(), "stu-1", " ", "", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRegistrationServiceRaceForLastSeat(t *testing.T) {
	f := newWorkflowFixture(t)
	metrics := NewMetricsService()
	svc := NewRegistrationService(f.store.Registrations(), nil, metrics, nil, RegistrationConfig{CurrentTerm: workflowTerm})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, student := range []string{"stu-1", "stu-2"} {
		wg.Add(1)
		go func(i int, student string) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), student, models.RegisterRequest{CourseID: "c-last"})
		}(i, student)
	}
	wg.Wait()

	var succeeded, full int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if errors.Is(err, appErrors.ErrCourseFull) {
			full++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, full)
	course := f.course(t, "c-last")
	assert.Equal(t, course.Capacity, course.Occupancy)
	body := scrapeMetrics(t, metrics)
	assert.Contains(t, body, `registration_outcomes_total{outcome="committed"} 1`)
	assert.Contains(t, body, `registration_outcomes_total{outcome="course_full"} 1`)
}

func TestRegistrationServiceDropRoundTrip(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	before := f.course(t, "c-4").Occupancy

	_, err := f.ledger.Register(ctx, "stu-1", models.RegisterRequest{CourseID: "c-4"})
	require.NoError(t, err)
	assert.Equal(t, before+1, f.course(t, "c-4").Occupancy)

	dropped, err := f.ledger.Drop(ctx, "stu-1", "c-4", "", "withdrawn")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusWithdrawn, dropped.Status)
	assert.Equal(t, before, f.course(t, "c-4").Occupancy)

	_, err = f.ledger.Register(ctx, "stu-1", models.RegisterRequest{CourseID: "c-4", Term: workflowTerm})
	require.NoError(t, err)

	list, err := f.ledger.List(ctx, "stu-1", "", "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRegistrationServiceResolveTerm(t *testing.T) {
	svc := NewRegistrationService(&blockingLedger{}, nil, nil, nil, RegistrationConfig{CurrentTerm: "Spring 2025"})
	assert.Equal(t, "Spring 2025", svc.ResolveTerm("  "))
	assert.Equal(t, "Fall 2024", svc.ResolveTerm("Fall 2024"))
	assert.Equal(t, 21, svc.CreditCeiling())
}

func TestRegistrationServiceCourseCodeAsIDIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM course_registrations")).
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "CS101"`})
	mock.ExpectRollback()

	metrics := NewMetricsService()
	svc := NewRegistrationService(repository.NewRegistrationRepository(sqlx.NewDb(db, "sqlmock")), nil, metrics, nil, RegistrationConfig{
		CreditCeiling: 21,
		CurrentTerm:   "Fall 2024",
	})

	_, err = svc.Register(context.Background(), "stu-1", models.RegisterRequest{CourseID: "CS101"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
	assert.Equal(t, models.FailureNotFound, FailureKindOf(err))
	assert.NotContains(t, scrapeMetrics(t, metrics), `outcome="transient"`)
	require.NoError(t, mock.ExpectationsWereMet())
}
