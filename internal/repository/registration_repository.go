package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/creditpolicy"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

const committedCreditsQuery = `SELECT COALESCE(SUM(c.credits), 0) FROM course_registrations r JOIN courses c ON c.id = r.course_id WHERE r.student_id = $1 AND r.term = $2 AND r.status = $3`

// RegistrationRepository is the authoritative enrollment ledger backed by Postgres.
//
// Register and Drop each run in one transaction. Seat accounting is a
// conditional update on the course row, so two writers racing for the last
// seat cannot both succeed. The student row is locked for the duration of a
// registration to serialize the credit check per student.
type RegistrationRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Register records an active registration and takes one seat.
func (r *RegistrationRepository) Register(ctx context.Context, params models.RegisterParams) (*models.Registration, error) {
	ceiling := params.CreditCeiling
	if ceiling <= 0 {
		ceiling = creditpolicy.DefaultCeiling
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateError(err, "begin register")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	var studentID string
	if err := tx.GetContext(ctx, &studentID, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, params.StudentID); err != nil {
		return nil, lookupError(err, "student not found", "lock student")
	}

	var exists bool
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM course_registrations WHERE student_id = $1 AND course_id = $2 AND term = $3 AND status = $4)`
	if err := tx.GetContext(ctx, &exists, existsQuery, params.StudentID, params.CourseID, params.Term, models.RegistrationStatusRegistered); err != nil {
		return nil, lookupError(err, "course not found", "check existing registration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	}

	var course models.Course
	if err := tx.GetContext(ctx, &course, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, params.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "load course")
	}
	if course.Full() {
		return nil, appErrors.Clone(appErrors.ErrCourseFull, fmt.Sprintf("%s is full", course.Code))
	}

	var termCredits int
	if err := tx.GetContext(ctx, &termCredits, committedCreditsQuery, params.StudentID, params.Term, models.RegistrationStatusRegistered); err != nil {
		return nil, translateError(err, "sum term credits")
	}
	if !creditpolicy.CanAdd(termCredits, 0, course.Credits, ceiling) {
		return nil, appErrors.Clone(appErrors.ErrCreditLimitExceeded,
			fmt.Sprintf("adding %s (%d credits) to %d committed credits exceeds the %d credit ceiling", course.Code, course.Credits, termCredits, ceiling))
	}

	now := r.now()
	res, err := tx.ExecContext(ctx, `UPDATE courses SET occupancy = occupancy + 1, updated_at = $2 WHERE id = $1 AND occupancy < capacity`, params.CourseID, now)
	if err != nil {
		return nil, translateError(err, "take seat")
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, translateError(err, "take seat")
	} else if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrCourseFull, fmt.Sprintf("%s is full", course.Code))
	}

	registration := &models.Registration{
		ID:           uuid.NewString(),
		StudentID:    params.StudentID,
		CourseID:     params.CourseID,
		Term:         params.Term,
		AcademicYear: params.AcademicYear,
		Status:       models.RegistrationStatusRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	const insert = `INSERT INTO course_registrations (id, student_id, course_id, term, academic_year, status, registered_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, insert, registration.ID, registration.StudentID, registration.CourseID, registration.Term,
		registration.AcademicYear, registration.Status, registration.RegisteredAt, registration.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
		}
		return nil, translateError(err, "insert registration")
	}

	if err := tx.Commit(); err != nil {
		return nil, translateError(err, "commit register")
	}
	committed = true
	return registration, nil
}

// Drop ends the active registration for the triple and releases its seat.
func (r *RegistrationRepository) Drop(ctx context.Context, params models.DropParams) (*models.Registration, error) {
	status, err := dropStatus(params.Status)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateError(err, "begin drop")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	now := r.now()
	const update = `UPDATE course_registrations SET status = $4, updated_at = $5 WHERE student_id = $1 AND course_id = $2 AND term = $3 AND status = $6
RETURNING id, student_id, course_id, term, academic_year, status, registered_at, updated_at, grade, grade_points`
	var registration models.Registration
	if err := tx.GetContext(ctx, &registration, update, params.StudentID, params.CourseID, params.Term, status, now, models.RegistrationStatusRegistered); err != nil {
		return nil, lookupError(err, "registration not found", "mark registration dropped")
	}

	if _, err := tx.ExecContext(ctx, `UPDATE courses SET occupancy = occupancy - 1, updated_at = $2 WHERE id = $1 AND occupancy > 0`, params.CourseID, now); err != nil {
		return nil, translateError(err, "release seat")
	}

	if err := tx.Commit(); err != nil {
		return nil, translateError(err, "commit drop")
	}
	committed = true
	return &registration, nil
}

// CommittedCredits sums the credits of the student's active registrations in term.
func (r *RegistrationRepository) CommittedCredits(ctx context.Context, studentID, term string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, committedCreditsQuery, studentID, term, models.RegistrationStatusRegistered); err != nil {
		return 0, translateError(err, "sum term credits")
	}
	return total, nil
}

// ListByStudent returns the student's registrations in term, optionally by status.
func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error) {
	query := `SELECT r.id, r.student_id, r.course_id, r.term, r.academic_year, r.status, r.registered_at, r.updated_at, r.grade, r.grade_points,
c.code AS course_code, c.title AS course_title, c.credits, c.instructor
FROM course_registrations r JOIN courses c ON c.id = r.course_id
WHERE r.student_id = $1 AND r.term = $2`
	args := []interface{}{studentID, term}
	if status != "" {
		query += " AND r.status = $3"
		args = append(args, status)
	}
	query += " ORDER BY c.code ASC"

	details := []models.RegistrationDetail{}
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, translateError(err, "list registrations")
	}
	return details, nil
}

func dropStatus(status models.RegistrationStatus) (models.RegistrationStatus, error) {
	switch status {
	case "":
		return models.RegistrationStatusDropped, nil
	case models.RegistrationStatusDropped, models.RegistrationStatusWithdrawn:
		return status, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "status must be DROPPED or WITHDRAWN")
}
