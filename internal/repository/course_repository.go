package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

const courseColumns = `id, code, title, description, credits, category, department, semester, instructor, capacity, occupancy, created_at, updated_at`

// CourseRepository reads the course catalog from Postgres.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching filter ordered by code.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR title ILIKE $%d OR description ILIKE $%d OR instructor ILIKE $%d)", idx, idx, idx, idx))
		args = append(args, "%"+search+"%")
	}

	query := "SELECT " + courseColumns + " FROM courses"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY code ASC"

	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, translateError(err, "list courses")
	}
	return courses, nil
}

// FindByCode returns the course with the given code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	return r.findOne(ctx, "code", code)
}

// FindByID returns the course with the given id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return r.findOne(ctx, "id", id)
}

func (r *CourseRepository) findOne(ctx context.Context, column, value string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE %s = $1 LIMIT 1", courseColumns, column)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, value); err != nil {
		return nil, lookupError(err, "course not found", "find course by "+column)
	}
	return &course, nil
}
