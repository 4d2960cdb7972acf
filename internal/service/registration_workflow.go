package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/creditpolicy"
)

type commitRegistrar interface {
	Register(ctx context.Context, studentID string, req models.RegisterRequest) (*models.Registration, error)
}

type workflowMetrics interface {
	ObserveCommitBatch(size int)
	RecordSelectionToggle(result string)
}

// RegistrationWorkflow moves courses from a student's selection into the
// ledger. It owns no state: the session is passed into every operation and
// mutated in place.
type RegistrationWorkflow struct {
	registrar commitRegistrar
	ceiling   int
	metrics   workflowMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationWorkflow constructs a RegistrationWorkflow.
func NewRegistrationWorkflow(registrar commitRegistrar, ceiling int, metrics workflowMetrics, logger *zap.Logger) *RegistrationWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if ceiling <= 0 {
		ceiling = creditpolicy.DefaultCeiling
	}
	return &RegistrationWorkflow{registrar: registrar, ceiling: ceiling, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ToggleSelect removes course from the selection when present, otherwise
// adds it if the advisory pre-check passes. registered reports that the
// student already holds course in the ledger for the session's term. A failed
// pre-check leaves the selection untouched and reports a warning; it is never
// an error.
func (w *RegistrationWorkflow) ToggleSelect(session *models.SelectionSession, course models.Course, committedCredits int, registered bool) models.ToggleResult {
	result := models.ToggleResult{CourseID: course.ID}

	if idx := session.Index(course.ID); idx >= 0 {
		session.Items = append(session.Items[:idx], session.Items[idx+1:]...)
		session.UpdatedAt = w.now()
		w.metrics.RecordSelectionToggle("deselected")
	} else {
		selected := session.SelectedCredits()
		switch {
		case registered:
			result.Warning = models.FailureDuplicateEnrollment.Reason()
		case !creditpolicy.CanAdd(committedCredits, selected, course.Credits, w.ceiling):
			result.Warning = models.FailureCreditLimitExceeded.Reason()
		case course.Full():
			result.Warning = models.FailureCourseFull.Reason()
		}
		if result.Warning != "" {
			w.metrics.RecordSelectionToggle("rejected")
		} else {
			now := w.now()
			session.Items = append(session.Items, models.SelectionItem{
				CourseID:   course.ID,
				CourseCode: course.Code,
				Title:      course.Title,
				Credits:    course.Credits,
				State:      models.SelectionStateSelected,
				SelectedAt: now,
			})
			session.UpdatedAt = now
			result.Selected = true
			w.metrics.RecordSelectionToggle("selected")
		}
	}

	result.SelectedCredits = session.SelectedCredits()
	result.RemainingCredit = creditpolicy.Remaining(committedCredits, result.SelectedCredits, w.ceiling)
	return result
}

// Commit registers the selected courses one at a time in selection order.
// Committed and failed items leave the selection; a failure never stops the
// batch and nothing already committed is rolled back. Cancellation of ctx is
// observed between items: the call in flight runs to completion and the
// unprocessed items are reported SKIPPED and stay selected.
func (w *RegistrationWorkflow) Commit(ctx context.Context, session *models.SelectionSession) models.CommitResult {
	result := models.CommitResult{
		Term:     session.Term,
		Outcomes: make([]models.CommitOutcome, 0, len(session.Items)),
	}
	kept := make([]models.SelectionItem, 0)

	for _, item := range session.Items {
		outcome := models.CommitOutcome{CourseID: item.CourseID, CourseCode: item.CourseCode, Credits: item.Credits}

		if ctx.Err() != nil {
			result.Cancelled = true
			item.State = models.SelectionStateSelected
			kept = append(kept, item)
			outcome.State = models.SelectionStateSkipped
			result.Outcomes = append(result.Outcomes, outcome)
			result.Skipped++
			continue
		}

		item.State = models.SelectionStateCommitting
		registration, err := w.registrar.Register(context.WithoutCancel(ctx), session.StudentID, models.RegisterRequest{
			CourseID: item.CourseID,
			Term:     session.Term,
		})
		if err != nil {
			kind := FailureKindOf(err)
			outcome.State = models.SelectionStateFailed
			outcome.FailureKind = kind
			outcome.Reason = kind.Reason()
			result.Failed++
			w.logger.Info("selection item failed",
				zap.String("student_id", session.StudentID),
				zap.String("course_code", item.CourseCode),
				zap.String("kind", string(kind)),
				zap.Error(err))
		} else {
			outcome.State = models.SelectionStateCommitted
			outcome.RegistrationID = registration.ID
			result.Committed++
			result.CommittedCredits += item.Credits
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	session.Items = kept
	session.UpdatedAt = w.now()
	w.metrics.ObserveCommitBatch(result.Committed + result.Failed)
	w.logger.Info("selection committed",
		zap.String("student_id", session.StudentID),
		zap.String("term", session.Term),
		zap.Int("committed", result.Committed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result
}

// ClearSelection empties the selection without touching the ledger.
func (w *RegistrationWorkflow) ClearSelection(session *models.SelectionSession) {
	session.Items = []models.SelectionItem{}
	session.UpdatedAt = w.now()
}
