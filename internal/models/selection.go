package models

import "time"

// SelectionState is the lifecycle of one course inside a selection.
type SelectionState string

// Selection item states. Unselected courses are simply absent.
const (
	SelectionStateSelected   SelectionState = "SELECTED"
	SelectionStateCommitting SelectionState = "COMMITTING"
	SelectionStateCommitted  SelectionState = "COMMITTED"
	SelectionStateFailed     SelectionState = "FAILED"
	SelectionStateSkipped    SelectionState = "SKIPPED"
)

// FailureKind is the ledger error kind reported for a failed commit item.
type FailureKind string

// Failure kinds surfaced to the presentation layer.
const (
	FailureDuplicateEnrollment FailureKind = "DUPLICATE_ENROLLMENT"
	FailureCourseFull          FailureKind = "COURSE_FULL"
	FailureCreditLimitExceeded FailureKind = "CREDIT_LIMIT_EXCEEDED"
	FailureNotFound            FailureKind = "NOT_FOUND"
	FailureTransient           FailureKind = "TRANSIENT"
)

// Reason returns the phrase shown to the student for the kind.
func (k FailureKind) Reason() string {
	switch k {
	case FailureDuplicateEnrollment:
		return "already registered"
	case FailureCourseFull:
		return "course full"
	case FailureCreditLimitExceeded:
		return "credit limit exceeded"
	case FailureNotFound:
		return "course not found"
	case FailureTransient:
		return "temporarily unavailable, try this course again"
	}
	return ""
}

// SelectionItem is one provisionally chosen course.
type SelectionItem struct {
	CourseID   string         `json:"course_id"`
	CourseCode string         `json:"course_code"`
	Title      string         `json:"title"`
	Credits    int            `json:"credits"`
	State      SelectionState `json:"state"`
	SelectedAt time.Time      `json:"selected_at"`
}

// SelectionSession is a student's ephemeral selection set for one term.
// Items keep insertion order, which is the commit order.
type SelectionSession struct {
	StudentID string          `json:"student_id"`
	Term      string          `json:"term"`
	Items     []SelectionItem `json:"items"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSelectionSession starts an empty selection.
func NewSelectionSession(studentID, term string) *SelectionSession {
	return &SelectionSession{StudentID: studentID, Term: term, Items: []SelectionItem{}}
}

// Index returns the position of courseID or -1.
func (s *SelectionSession) Index(courseID string) int {
	for i, item := range s.Items {
		if item.CourseID == courseID {
			return i
		}
	}
	return -1
}

// Contains reports whether courseID is selected.
func (s *SelectionSession) Contains(courseID string) bool {
	return s.Index(courseID) >= 0
}

// SelectedCredits sums credits of the selected items.
func (s *SelectionSession) SelectedCredits() int {
	total := 0
	for _, item := range s.Items {
		total += item.Credits
	}
	return total
}

// Empty reports whether nothing is selected.
func (s *SelectionSession) Empty() bool {
	return len(s.Items) == 0
}

// ToggleResult reports what a toggle did.
type ToggleResult struct {
	CourseID        string `json:"course_id"`
	Selected        bool   `json:"selected"`
	Warning         string `json:"warning,omitempty"`
	SelectedCredits int    `json:"selected_credits"`
	RemainingCredit int    `json:"remaining_credits"`
}

// CommitOutcome is the per-course result of a commit, in selection order.
type CommitOutcome struct {
	CourseID       string         `json:"course_id"`
	CourseCode     string         `json:"course_code"`
	Credits        int            `json:"credits"`
	State          SelectionState `json:"state"`
	RegistrationID string         `json:"registration_id,omitempty"`
	FailureKind    FailureKind    `json:"failure_kind,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}

// CommitResult summarises one commit batch.
type CommitResult struct {
	Term             string          `json:"term"`
	Outcomes         []CommitOutcome `json:"outcomes"`
	Committed        int             `json:"committed"`
	Failed           int             `json:"failed"`
	Skipped          int             `json:"skipped"`
	CommittedCredits int             `json:"committed_credits"`
	Cancelled        bool            `json:"cancelled"`
}

// FailuresByKind counts failed outcomes per kind.
func (r CommitResult) FailuresByKind() map[FailureKind]int {
	counts := make(map[FailureKind]int)
	for _, o := range r.Outcomes {
		if o.State == SelectionStateFailed {
			counts[o.FailureKind]++
		}
	}
	return counts
}

// SelectionView is the selection plus the credit summary shown next to it.
type SelectionView struct {
	Session          *SelectionSession `json:"session"`
	CommittedCredits int               `json:"committed_credits"`
	SelectedCredits  int               `json:"selected_credits"`
	CreditCeiling    int               `json:"credit_ceiling"`
	RemainingCredits int               `json:"remaining_credits"`
}

// ToggleSelectionRequest is the payload for toggling one course.
type ToggleSelectionRequest struct {
	CourseID string `json:"course_id" validate:"required,max=64"`
}
