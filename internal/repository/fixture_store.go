package repository

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/creditpolicy"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

//go:embed fixtures/catalog.yaml
var defaultCatalog []byte

type fixtureStudent struct {
	models.Student `yaml:",inline"`
	Password       string `yaml:"password"`
}

type fixtureFile struct {
	Students []fixtureStudent `yaml:"students"`
	Courses  []models.Course  `yaml:"courses"`
}

// FixtureStore is the in-memory data source used when DATA_SOURCE=fixture.
// One mutex guards catalog, students and ledger, so every ledger operation
// is atomic with respect to every other.
type FixtureStore struct {
	mu            sync.Mutex
	courses       map[string]*models.Course
	students      map[string]*models.Student
	registrations []*models.Registration
	now           func() time.Time
}

// NewFixtureStore loads the embedded demo catalog.
func NewFixtureStore() (*FixtureStore, error) {
	return LoadFixtureStore(defaultCatalog)
}

// LoadFixtureStore parses a YAML catalog. Plaintext student passwords are
// hashed with bcrypt while loading.
func LoadFixtureStore(data []byte) (*FixtureStore, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixture catalog: %w", err)
	}

	store := &FixtureStore{
		courses:  make(map[string]*models.Course, len(file.Courses)),
		students: make(map[string]*models.Student, len(file.Students)),
		now:      func() time.Time { return time.Now().UTC() },
	}
	loadedAt := store.now()

	codes := make(map[string]bool, len(file.Courses))
	for i := range file.Courses {
		course := file.Courses[i]
		if course.ID == "" {
			course.ID = uuid.NewString()
		}
		if err := validateFixtureCourse(course); err != nil {
			return nil, err
		}
		key := strings.ToUpper(course.Code)
		if codes[key] {
			return nil, fmt.Errorf("fixture course %s: duplicate code", course.Code)
		}
		if _, ok := store.courses[course.ID]; ok {
			return nil, fmt.Errorf("fixture course %s: duplicate id %s", course.Code, course.ID)
		}
		codes[key] = true
		course.CreatedAt, course.UpdatedAt = loadedAt, loadedAt
		store.courses[course.ID] = &course
	}

	rolls := make(map[string]bool, len(file.Students))
	for _, fs := range file.Students {
		student := fs.Student
		if student.ID == "" {
			student.ID = uuid.NewString()
		}
		if student.RollNumber == "" {
			return nil, fmt.Errorf("fixture student %s: roll number is required", student.ID)
		}
		key := strings.ToUpper(student.RollNumber)
		if rolls[key] {
			return nil, fmt.Errorf("fixture student %s: duplicate roll number", student.RollNumber)
		}
		rolls[key] = true
		if student.PasswordHash == "" && fs.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(fs.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash fixture password for %s: %w", student.RollNumber, err)
			}
			student.PasswordHash = string(hash)
		}
		student.CreatedAt, student.UpdatedAt = loadedAt, loadedAt
		store.students[student.ID] = &student
	}

	return store, nil
}

func validateFixtureCourse(c models.Course) error {
	switch {
	case c.Code == "":
		return fmt.Errorf("fixture course %s: code is required", c.ID)
	case c.Credits <= 0:
		return fmt.Errorf("fixture course %s: credits must be positive", c.Code)
	case !c.Category.Valid():
		return fmt.Errorf("fixture course %s: unknown category %q", c.Code, c.Category)
	case c.Capacity < 0 || c.Occupancy < 0 || c.Occupancy > c.Capacity:
		return fmt.Errorf("fixture course %s: occupancy %d outside [0, %d]", c.Code, c.Occupancy, c.Capacity)
	}
	return nil
}

// Courses exposes the catalog side of the store.
func (s *FixtureStore) Courses() *FixtureCourseRepository {
	return &FixtureCourseRepository{store: s}
}

// Students exposes student lookups.
func (s *FixtureStore) Students() *FixtureStudentRepository {
	return &FixtureStudentRepository{store: s}
}

// Registrations exposes the ledger side of the store.
func (s *FixtureStore) Registrations() *FixtureRegistrationRepository {
	return &FixtureRegistrationRepository{store: s}
}

// FixtureCourseRepository serves catalog queries from a FixtureStore.
type FixtureCourseRepository struct {
	store *FixtureStore
}

// List returns courses matching filter ordered by code.
func (r *FixtureCourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "list courses")
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	r.store.mu.Lock()
	courses := make([]models.Course, 0, len(r.store.courses))
	for _, c := range r.store.courses {
		if filter.Department != "" && c.Department != filter.Department {
			continue
		}
		if filter.Semester > 0 && c.Semester != filter.Semester {
			continue
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if search != "" && !matchesSearch(*c, search) {
			continue
		}
		courses = append(courses, *c)
	}
	r.store.mu.Unlock()

	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func matchesSearch(c models.Course, needle string) bool {
	for _, field := range []string{c.Code, c.Title, c.Description, c.Instructor} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// FindByCode returns the course with code, compared case-insensitively.
func (r *FixtureCourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "find course by code")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.courses {
		if strings.EqualFold(c.Code, code) {
			course := *c
			return &course, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
}

// FindByID returns the course with id.
func (r *FixtureCourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "find course by id")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.courses[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	course := *c
	return &course, nil
}

// FixtureStudentRepository serves student lookups from a FixtureStore.
type FixtureStudentRepository struct {
	store *FixtureStore
}

// FindByID returns a student by identifier.
func (r *FixtureStudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "find student by id")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.students[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	student := *s
	return &student, nil
}

// FindByRollNumber returns a student by roll number.
func (r *FixtureStudentRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "find student by roll number")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, s := range r.store.students {
		if strings.EqualFold(s.RollNumber, rollNumber) {
			student := *s
			return &student, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// FixtureRegistrationRepository is the in-memory enrollment ledger.
type FixtureRegistrationRepository struct {
	store *FixtureStore
}

// Register records an active registration and takes one seat. The checks run
// in the same order as the Postgres ledger.
func (r *FixtureRegistrationRepository) Register(ctx context.Context, params models.RegisterParams) (*models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "register")
	}
	ceiling := params.CreditCeiling
	if ceiling <= 0 {
		ceiling = creditpolicy.DefaultCeiling
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[params.StudentID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if s.activeLocked(params.StudentID, params.CourseID, params.Term) != nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	}
	course, ok := s.courses[params.CourseID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if course.Full() {
		return nil, appErrors.Clone(appErrors.ErrCourseFull, fmt.Sprintf("%s is full", course.Code))
	}
	termCredits := s.committedCreditsLocked(params.StudentID, params.Term)
	if !creditpolicy.CanAdd(termCredits, 0, course.Credits, ceiling) {
		return nil, appErrors.Clone(appErrors.ErrCreditLimitExceeded,
			fmt.Sprintf("adding %s (%d credits) to %d committed credits exceeds the %d credit ceiling", course.Code, course.Credits, termCredits, ceiling))
	}

	now := s.now()
	course.Occupancy++
	course.UpdatedAt = now
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
	s.registrations = append(s.registrations, registration)
	out := *registration
	return &out, nil
}

// Drop ends the active registration for the triple and releases its seat.
func (r *FixtureRegistrationRepository) Drop(ctx context.Context, params models.DropParams) (*models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "drop")
	}
	status, err := dropStatus(params.Status)
	if err != nil {
		return nil, err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	registration := s.activeLocked(params.StudentID, params.CourseID, params.Term)
	if registration == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	now := s.now()
	registration.Status = status
	registration.UpdatedAt = now
	if course, ok := s.courses[params.CourseID]; ok && course.Occupancy > 0 {
		course.Occupancy--
		course.UpdatedAt = now
	}
	out := *registration
	return &out, nil
}

// CommittedCredits sums the credits of the student's active registrations in term.
func (r *FixtureRegistrationRepository) CommittedCredits(ctx context.Context, studentID, term string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, translateError(err, "sum term credits")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.committedCreditsLocked(studentID, term), nil
}

// ListByStudent returns the student's registrations in term, optionally by status.
func (r *FixtureRegistrationRepository) ListByStudent(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err, "list registrations")
	}
	s := r.store
	s.mu.Lock()
	details := []models.RegistrationDetail{}
	for _, reg := range s.registrations {
		if reg.StudentID != studentID || reg.Term != term {
			continue
		}
		if status != "" && reg.Status != status {
			continue
		}
		detail := models.RegistrationDetail{Registration: *reg}
		if c, ok := s.courses[reg.CourseID]; ok {
			detail.CourseCode = c.Code
			detail.CourseTitle = c.Title
			detail.Credits = c.Credits
			detail.Instructor = c.Instructor
		}
		details = append(details, detail)
	}
	s.mu.Unlock()

	sort.SliceStable(details, func(i, j int) bool { return details[i].CourseCode < details[j].CourseCode })
	return details, nil
}

func (s *FixtureStore) activeLocked(studentID, courseID, term string) *models.Registration {
	for _, reg := range s.registrations {
		if reg.StudentID == studentID && reg.CourseID == courseID && reg.Term == term && reg.Status == models.RegistrationStatusRegistered {
			return reg
		}
	}
	return nil
}

func (s *FixtureStore) committedCreditsLocked(studentID, term string) int {
	total := 0
	for _, reg := range s.registrations {
		if reg.StudentID != studentID || reg.Term != term || reg.Status != models.RegistrationStatusRegistered {
			continue
		}
		if c, ok := s.courses[reg.CourseID]; ok {
			total += c.Credits
		}
	}
	return total
}
