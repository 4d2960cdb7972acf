package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CatalogService answers course catalog queries.
type CatalogService struct {
	repo   courseRepository
	logger *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo courseRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// List returns courses ordered by code with their remaining seats.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseListing, error) {
	filter.Category = models.CourseCategory(strings.ToUpper(string(filter.Category)))
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course category")
	}
	if filter.Semester < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be positive")
	}

	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, wrapRepoError(err, "failed to list courses")
	}
	listings := make([]models.CourseListing, 0, len(courses))
	for _, c := range courses {
		listings = append(listings, models.NewCourseListing(c))
	}
	return listings, nil
}

// Get returns one course by code.
func (s *CatalogService) Get(ctx context.Context, code string) (*models.CourseListing, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	course, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, wrapRepoError(err, "failed to load course")
	}
	listing := models.NewCourseListing(*course)
	return &listing, nil
}

// GetByID returns one course by id.
func (s *CatalogService) GetByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, "failed to load course")
	}
	return course, nil
}

// wrapRepoError keeps typed application errors and wraps anything else as internal.
func wrapRepoError(err error, message string) error {
	if appErr := asAppError(err); appErr != nil {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func asAppError(err error) *appErrors.Error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
