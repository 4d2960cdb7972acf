package models

import "time"

// RegistrationStatus represents the lifecycle of an enrollment record.
type RegistrationStatus string

// Possible registration statuses.
const (
	RegistrationStatusRegistered RegistrationStatus = "REGISTERED"
	RegistrationStatusDropped    RegistrationStatus = "DROPPED"
	RegistrationStatusCompleted  RegistrationStatus = "COMPLETED"
	RegistrationStatusFailed     RegistrationStatus = "FAILED"
	RegistrationStatusWithdrawn  RegistrationStatus = "WITHDRAWN"
)

// Registration ties one student to one course for one named term.
type Registration struct {
	ID           string             `db:"id" json:"id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	CourseID     string             `db:"course_id" json:"course_id"`
	Term         string             `db:"term" json:"term"`
	AcademicYear string             `db:"academic_year" json:"academic_year"`
	Status       RegistrationStatus `db:"status" json:"status"`
	RegisteredAt time.Time          `db:"registered_at" json:"registered_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
	Grade        *string            `db:"grade" json:"grade,omitempty"`
	GradePoints  *float64           `db:"grade_points" json:"grade_points,omitempty"`
}

// RegistrationDetail enriches Registration with course info.
type RegistrationDetail struct {
	Registration
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Credits     int    `db:"credits" json:"credits"`
	Instructor  string `db:"instructor" json:"instructor"`
}

// RegisterParams is the ledger input for a registration.
type RegisterParams struct {
	StudentID     string
	CourseID      string
	Term          string
	AcademicYear  string
	CreditCeiling int
}

// DropParams is the ledger input for ending an active registration.
type DropParams struct {
	StudentID string
	CourseID  string
	Term      string
	Status    RegistrationStatus
}

// RegisterRequest is the authoritative registration payload.
type RegisterRequest struct {
	CourseID string `json:"course_id" validate:"required,max=64"`
	Term     string `json:"term" validate:"omitempty,max=40"`
}

// SlipFormat enumerates registration slip encodings.
type SlipFormat string

// Supported slip formats.
const (
	SlipFormatCSV SlipFormat = "csv"
	SlipFormatPDF SlipFormat = "pdf"
)

// RegistrationSlip is a rendered slip ready to be streamed.
type RegistrationSlip struct {
	Filename    string
	ContentType string
	Body        []byte
}
