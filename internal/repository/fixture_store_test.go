package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

// password_hash is preset so loading skips bcrypt.
const testCatalog = `
students:
  - {id: stu-1, roll_number: 24SP-001-CS, password_hash: x, first_name: Hina, department: Computer Science, semester: 1}
  - {id: stu-2, roll_number: 24SP-002-CS, password_hash: x, first_name: Omar, department: Computer Science, semester: 1}
courses:
  - {id: c-a, code: CS110, title: Discrete Structures, credits: 5, category: CORE, department: Computer Science, semester: 1, instructor: Dr. A, capacity: 10, occupancy: 8}
  - {id: c-b, code: CS120, title: Logic, credits: 5, category: CORE, department: Computer Science, semester: 1, instructor: Dr. B, capacity: 10, occupancy: 10}
  - {id: c-c, code: CS130, title: Systems Seminar, credits: 2, category: SEMINAR, department: Computer Science, semester: 2, instructor: Dr. C, capacity: 1, occupancy: 0}
  - {id: c-d, code: MA100, title: Calculus, credits: 4, category: CORE, department: Mathematics, semester: 1, instructor: Dr. D, capacity: 40, occupancy: 0}
`

func newTestStore(t *testing.T) *FixtureStore {
	t.Helper()
	store, err := LoadFixtureStore([]byte(testCatalog))
	require.NoError(t, err)
	return store
}

func TestNewFixtureStoreLoadsDemoCatalog(t *testing.T) {
	store, err := NewFixtureStore()
	require.NoError(t, err)
	ctx := context.Background()

	student, err := store.Students().FindByRollNumber(ctx, "23fa-003-se")
	require.NoError(t, err)
	assert.Equal(t, "Ali Ahmed", student.FullName())
	assert.Equal(t, "Software Engineering", student.Department)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte("12345678")))

	courses, err := store.Courses().List(ctx, models.CourseFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, courses)
	for i := 1; i < len(courses); i++ {
		assert.Less(t, courses[i-1].Code, courses[i].Code)
	}
	for _, c := range courses {
		assert.True(t, c.Occupancy >= 0 && c.Occupancy <= c.Capacity, c.Code)
	}
}

func TestFixtureCourseRepositoryFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	courses, err := store.Courses().List(ctx, models.CourseFilter{Department: "Computer Science", Semester: 1, Category: models.CourseCategoryCore})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "CS110", courses[0].Code)
	assert.Equal(t, "CS120", courses[1].Code)

	courses, err = store.Courses().List(ctx, models.CourseFilter{Search: "SEMINAR"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS130", courses[0].Code)

	course, err := store.Courses().FindByCode(ctx, "ma100")
	require.NoError(t, err)
	assert.Equal(t, "c-d", course.ID)

	_, err = store.Courses().FindByCode(ctx, "XX999")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestFixtureCourseRepositoryReturnsCopies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	course, err := store.Courses().FindByID(ctx, "c-a")
	require.NoError(t, err)
	course.Occupancy = 0

	again, err := store.Courses().FindByID(ctx, "c-a")
	require.NoError(t, err)
	assert.Equal(t, 8, again.Occupancy)
}

func TestFixtureLedgerRegisterErrors(t *testing.T) {
	store := newTestStore(t)
	ledger := store.Registrations()
	ctx := context.Background()

	_, err := ledger.Register(ctx, models.RegisterParams{StudentID: "ghost", CourseID: "c-a", Term: "Fall 2024", CreditCeiling: 21})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "missing", Term: "Fall 2024", CreditCeiling: 21})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-b", Term: "Fall 2024", CreditCeiling: 21})
	assert.True(t, errors.Is(err, appErrors.ErrCourseFull))

	_, err = ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-a", Term: "Fall 2024", CreditCeiling: 21})
	require.NoError(t, err)
	_, err = ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-a", Term: "Fall 2024", CreditCeiling: 21})
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEnrollment))

	// a different term is a different triple
	_, err = ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-a", Term: "Spring 2025", CreditCeiling: 21})
	require.NoError(t, err)

	course, err := store.Courses().FindByID(ctx, "c-a")
	require.NoError(t, err)
	assert.Equal(t, 10, course.Occupancy)
}

func TestFixtureLedgerCreditCeilingIsInclusive(t *testing.T) {
	store := newTestStore(t)
	ledger := store.Registrations()
	ctx := context.Background()

	_, err := ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-a", Term: "Fall 2024", CreditCeiling: 9})
	require.NoError(t, err)
	_, err = ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-d", Term: "Fall 2024", CreditCeiling: 9})
	require.NoError(t, err, "5+4 equals the ceiling")
	_, err = ledger.Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-c", Term: "Fall 2024", CreditCeiling: 9})
	assert.True(t, errors.Is(err, appErrors.ErrCreditLimitExceeded))

	credits, err := ledger.CommittedCredits(ctx, "stu-1", "Fall 2024")
	require.NoError(t, err)
	assert.Equal(t, 9, credits)

	seminar, err := store.Courses().FindByID(ctx, "c-c")
	require.NoError(t, err)
	assert.Equal(t, 0, seminar.Occupancy)
}

func TestFixtureLedgerDropRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ledger := store.Registrations()
	ctx := context.Background()
	params := models.RegisterParams{StudentID: "stu-1", CourseID: "c-d", Term: "Fall 2024", CreditCeiling: 21}

	_, err := ledger.Register(ctx, params)
	require.NoError(t, err)
	course, _ := store.Courses().FindByID(ctx, "c-d")
	assert.Equal(t, 1, course.Occupancy)

	dropped, err := ledger.Drop(ctx, models.DropParams{StudentID: "stu-1", CourseID: "c-d", Term: "Fall 2024"})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusDropped, dropped.Status)
	course, _ = store.Courses().FindByID(ctx, "c-d")
	assert.Equal(t, 0, course.Occupancy)

	_, err = ledger.Drop(ctx, models.DropParams{StudentID: "stu-1", CourseID: "c-d", Term: "Fall 2024"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = ledger.Register(ctx, params)
	require.NoError(t, err)
	course, _ = store.Courses().FindByID(ctx, "c-d")
	assert.Equal(t, 1, course.Occupancy)

	all, err := ledger.ListByStudent(ctx, "stu-1", "Fall 2024", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := ledger.ListByStudent(ctx, "stu-1", "Fall 2024", models.RegistrationStatusRegistered)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "MA100", active[0].CourseCode)
	assert.Equal(t, 4, active[0].Credits)
}

func TestFixtureLedgerRaceForLastSeat(t *testing.T) {
	store := newTestStore(t)
	ledger := store.Registrations()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, student := range []string{"stu-1", "stu-2"} {
		wg.Add(1)
		go func(i int, student string) {
			defer wg.Done()
			_, errs[i] = ledger.Register(ctx, models.RegisterParams{StudentID: student, CourseID: "c-c", Term: "Fall 2024", CreditCeiling: 21})
		}(i, student)
	}
	wg.Wait()

	succeeded, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, appErrors.ErrCourseFull):
			full++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, full)

	course, err := store.Courses().FindByID(ctx, "c-c")
	require.NoError(t, err)
	assert.Equal(t, course.Capacity, course.Occupancy)
}

func TestFixtureLedgerOccupancyStaysBoundedUnderChurn(t *testing.T) {
	var b strings.Builder
	b.WriteString("students:\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "  - {id: s-%d, roll_number: R-%d, password_hash: x}\n", i, i)
	}
	b.WriteString("courses:\n  - {id: hot, code: HOT101, title: Hot, credits: 3, category: ELECTIVE, capacity: 5, occupancy: 0}\n")
	store, err := LoadFixtureStore([]byte(b.String()))
	require.NoError(t, err)
	ledger := store.Registrations()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for round := 0; round < 25; round++ {
				if _, err := ledger.Register(ctx, models.RegisterParams{StudentID: id, CourseID: "hot", Term: "T", CreditCeiling: 21}); err == nil && round%2 == 0 {
					_, _ = ledger.Drop(ctx, models.DropParams{StudentID: id, CourseID: "hot", Term: "T"})
				}
			}
		}(fmt.Sprintf("s-%d", i))
	}
	wg.Wait()

	course, err := store.Courses().FindByID(ctx, "hot")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, course.Occupancy, 0)
	assert.LessOrEqual(t, course.Occupancy, course.Capacity)

	active := 0
	for i := 0; i < 20; i++ {
		list, err := ledger.ListByStudent(ctx, fmt.Sprintf("s-%d", i), "T", models.RegistrationStatusRegistered)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(list), 1)
		active += len(list)
	}
	assert.Equal(t, active, course.Occupancy)
}

func TestFixtureLedgerHonoursCancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Registrations().Register(ctx, models.RegisterParams{StudentID: "stu-1", CourseID: "c-d", Term: "Fall 2024"})
	assert.True(t, errors.Is(err, appErrors.ErrTransient))
	course, _ := store.Courses().FindByID(context.Background(), "c-d")
	assert.Equal(t, 0, course.Occupancy)
}

func TestLoadFixtureStoreRejectsInvalidCatalog(t *testing.T) {
	cases := map[string]string{
		"overbooked":     "courses:\n  - {id: a, code: A1, credits: 3, category: CORE, capacity: 1, occupancy: 2}\n",
		"duplicate code": "courses:\n  - {id: a, code: A1, credits: 3, category: CORE, capacity: 1}\n  - {id: b, code: a1, credits: 3, category: CORE, capacity: 1}\n",
		"bad category":   "courses:\n  - {id: a, code: A1, credits: 3, category: WORKSHOP, capacity: 1}\n",
		"zero credits":   "courses:\n  - {id: a, code: A1, credits: 0, category: CORE, capacity: 1}\n",
		"duplicate roll": "students:\n  - {id: a, roll_number: R1}\n  - {id: b, roll_number: r1}\n",
	}
	for name, catalog := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFixtureStore([]byte(catalog))
			assert.Error(t, err)
		})
	}
}
