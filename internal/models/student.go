package models

import "time"

// Student represents a learner provisioned in the portal.
type Student struct {
	ID           string    `db:"id" json:"id" yaml:"id"`
	RollNumber   string    `db:"roll_number" json:"roll_number" yaml:"roll_number"`
	Email        string    `db:"email" json:"email" yaml:"email"`
	PasswordHash string    `db:"password_hash" json:"-" yaml:"password_hash"`
	FirstName    string    `db:"first_name" json:"first_name" yaml:"first_name"`
	LastName     string    `db:"last_name" json:"last_name" yaml:"last_name"`
	Department   string    `db:"department" json:"department" yaml:"department"`
	Semester     int       `db:"semester" json:"semester" yaml:"semester"`
	Batch        string    `db:"batch" json:"batch" yaml:"batch"`
	CGPA         float64   `db:"cgpa" json:"cgpa" yaml:"cgpa"`
	CreditHours  int       `db:"credit_hours" json:"credit_hours" yaml:"credit_hours"`
	CreatedAt    time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at" yaml:"-"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentProfile is the dashboard view of a student for one term.
type StudentProfile struct {
	Student          Student              `json:"student"`
	Term             string               `json:"term"`
	TermCredits      int                  `json:"term_credits"`
	CreditCeiling    int                  `json:"credit_ceiling"`
	RemainingCredits int                  `json:"remaining_credits"`
	Registrations    []RegistrationDetail `json:"registrations"`
}
