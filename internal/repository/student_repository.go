package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

const studentColumns = `id, roll_number, email, password_hash, first_name, last_name, department, semester, batch, cgpa, credit_hours, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE id = $1 LIMIT 1`
	return r.get(ctx, query, id, "find student by id")
}

// FindByRollNumber returns a student by roll number, compared case-insensitively.
func (r *StudentRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE UPPER(roll_number) = UPPER($1) LIMIT 1`
	return r.get(ctx, query, rollNumber, "find student by roll number")
}

func (r *StudentRepository) get(ctx context.Context, query, arg, op string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, arg); err != nil {
		return nil, lookupError(err, "student not found", op)
	}
	return &student, nil
}
