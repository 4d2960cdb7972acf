package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/repository"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type mockCourseRepo struct {
	lastFilter models.CourseFilter
	err        error
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	m.lastFilter = filter
	return nil, m.err
}

func (m *mockCourseRepo) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	return nil, m.err
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return nil, m.err
}

func TestCatalogServiceListsWithRemainingSeats(t *testing.T) {
	store, err := repository.LoadFixtureStore([]byte(workflowCatalog))
	require.NoError(t, err)
	svc := NewCatalogService(store.Courses(), nil)

	listings, err := svc.List(context.Background(), models.CourseFilter{Category: "seminar"})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "SE390", listings[0].Code)
	assert.Equal(t, 1, listings[0].RemainingSeats)

	all, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 9)
	assert.Equal(t, "SE101", all[0].Code)

	listing, err := svc.Get(context.Background(), "se220")
	require.NoError(t, err)
	assert.Equal(t, 0, listing.RemainingSeats)
}

func TestCatalogServiceRejectsUnknownCategory(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCatalogService(repo, nil)

	_, err := svc.List(context.Background(), models.CourseFilter{Category: "workshop"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.List(context.Background(), models.CourseFilter{Category: "lab", Department: "Physics"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseCategoryLab, repo.lastFilter.Category)
	assert.Equal(t, "Physics", repo.lastFilter.Department)
}

func TestCatalogServiceWrapsUntypedErrors(t *testing.T) {
	svc := NewCatalogService(&mockCourseRepo{err: errors.New("boom")}, nil)
	_, err := svc.Get(context.Background(), "CS101")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	svc = NewCatalogService(&mockCourseRepo{err: appErrors.Clone(appErrors.ErrNotFound, "course not found")}, nil)
	_, err = svc.Get(context.Background(), "CS101")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Get(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
