package service

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/creditpolicy"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type selectionStore interface {
	Get(ctx context.Context, studentID, term string) (*models.SelectionSession, error)
	Save(ctx context.Context, session *models.SelectionSession) error
	Delete(ctx context.Context, studentID, term string) error
}

type selectionCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Course, error)
}

type selectionLedger interface {
	CommittedCredits(ctx context.Context, studentID, term string) (int, error)
	List(ctx context.Context, studentID, term string, status models.RegistrationStatus) ([]models.RegistrationDetail, error)
}

// SelectionService holds each student's selection between requests and
// drives the registration workflow. Every operation takes an optional term;
// blank means the current term.
//
// Load, modify and save of one student's selection for one term run under a
// per-process lock. Replicas sharing the Redis store are still last write wins.
type SelectionService struct {
	store     selectionStore
	catalog   selectionCatalog
	ledger    selectionLedger
	workflow  *RegistrationWorkflow
	validator *validator.Validate
	logger    *zap.Logger
	term      string
	ceiling   int
	locks     sessionLocks
}

// NewSelectionService constructs a SelectionService.
func NewSelectionService(store selectionStore, catalog selectionCatalog, ledger selectionLedger, workflow *RegistrationWorkflow, validate *validator.Validate, logger *zap.Logger, term string, ceiling int) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if ceiling <= 0 {
		ceiling = creditpolicy.DefaultCeiling
	}
	return &SelectionService{
		store:     store,
		catalog:   catalog,
		ledger:    ledger,
		workflow:  workflow,
		validator: validate,
		logger:    logger,
		term:      term,
		ceiling:   ceiling,
	}
}

// View returns the student's selection with the credit summary.
func (s *SelectionService) View(ctx context.Context, studentID, term string) (*models.SelectionView, error) {
	term = s.resolveTerm(term)
	session, err := s.load(ctx, studentID, term)
	if err != nil {
		return nil, err
	}
	committed, err := s.ledger.CommittedCredits(ctx, studentID, term)
	if err != nil {
		return nil, err
	}
	return s.view(session, committed), nil
}

// Toggle selects or deselects one course. Selecting a course the student is
// already registered in is refused with a warning.
func (s *SelectionService) Toggle(ctx context.Context, studentID, term string, req models.ToggleSelectionRequest) (*models.ToggleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	term = s.resolveTerm(term)
	course, err := s.catalog.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	held, err := s.ledger.List(ctx, studentID, term, models.RegistrationStatusRegistered)
	if err != nil {
		return nil, err
	}
	committed, registered := 0, false
	for _, r := range held {
		committed += r.Credits
		if r.CourseID == course.ID {
			registered = true
		}
	}

	unlock := s.locks.lock(studentID, term)
	defer unlock()
	session, err := s.load(ctx, studentID, term)
	if err != nil {
		return nil, err
	}
	result := s.workflow.ToggleSelect(session, *course, committed, registered)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return &result, nil
}

// Commit registers every selected course and reports per-course outcomes.
func (s *SelectionService) Commit(ctx context.Context, studentID, term string) (*models.CommitResult, error) {
	term = s.resolveTerm(term)
	unlock := s.locks.lock(studentID, term)
	defer unlock()
	session, err := s.load(ctx, studentID, term)
	if err != nil {
		return nil, err
	}
	if session.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select at least one course before committing")
	}

	result := s.workflow.Commit(ctx, session)
	// The batch has run; save the remainder even if the caller went away.
	if err := s.persist(context.WithoutCancel(ctx), session); err != nil {
		s.logger.Warn("failed to save selection after commit", zap.String("student_id", studentID), zap.Error(err))
	}
	return &result, nil
}

// Clear discards the student's selection.
func (s *SelectionService) Clear(ctx context.Context, studentID, term string) error {
	term = s.resolveTerm(term)
	unlock := s.locks.lock(studentID, term)
	defer unlock()
	session, err := s.load(ctx, studentID, term)
	if err != nil {
		return err
	}
	s.workflow.ClearSelection(session)
	return s.persist(ctx, session)
}

func (s *SelectionService) resolveTerm(term string) string {
	if term = strings.TrimSpace(term); term != "" {
		return term
	}
	return s.term
}

func (s *SelectionService) load(ctx context.Context, studentID, term string) (*models.SelectionSession, error) {
	session, err := s.store.Get(ctx, studentID, term)
	if err != nil {
		return nil, wrapRepoError(err, "failed to load selection")
	}
	if session == nil {
		session = models.NewSelectionSession(studentID, term)
	}
	return session, nil
}

func (s *SelectionService) persist(ctx context.Context, session *models.SelectionSession) error {
	var err error
	if session.Empty() {
		err = s.store.Delete(ctx, session.StudentID, session.Term)
	} else {
		err = s.store.Save(ctx, session)
	}
	if err != nil {
		return wrapRepoError(err, "failed to save selection")
	}
	return nil
}

func (s *SelectionService) view(session *models.SelectionSession, committed int) *models.SelectionView {
	selected := session.SelectedCredits()
	return &models.SelectionView{
		Session:          session,
		CommittedCredits: committed,
		SelectedCredits:  selected,
		CreditCeiling:    s.ceiling,
		RemainingCredits: creditpolicy.Remaining(committed, selected, s.ceiling),
	}
}

// sessionLocks hands out one mutex per student and term, dropping it once
// no caller holds or waits on it.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) lock(studentID, term string) func() {
	key := studentID + "|" + term
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*sessionLock)
	}
	entry, ok := l.entries[key]
	if !ok {
		entry = &sessionLock{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
