package models

import "time"

// CourseCategory classifies catalog entries.
type CourseCategory string

// Supported course categories.
const (
	CourseCategoryCore     CourseCategory = "CORE"
	CourseCategoryElective CourseCategory = "ELECTIVE"
	CourseCategoryLab      CourseCategory = "LAB"
	CourseCategorySeminar  CourseCategory = "SEMINAR"
	CourseCategoryThesis   CourseCategory = "THESIS"
)

// Valid reports whether c is a known category.
func (c CourseCategory) Valid() bool {
	switch c {
	case CourseCategoryCore, CourseCategoryElective, CourseCategoryLab, CourseCategorySeminar, CourseCategoryThesis:
		return true
	}
	return false
}

// Course is a catalog entry. Occupancy is owned by the registration ledger.
type Course struct {
	ID          string         `db:"id" json:"id" yaml:"id"`
	Code        string         `db:"code" json:"code" yaml:"code"`
	Title       string         `db:"title" json:"title" yaml:"title"`
	Description string         `db:"description" json:"description" yaml:"description"`
	Credits     int            `db:"credits" json:"credits" yaml:"credits"`
	Category    CourseCategory `db:"category" json:"category" yaml:"category"`
	Department  string         `db:"department" json:"department" yaml:"department"`
	Semester    int            `db:"semester" json:"semester" yaml:"semester"`
	Instructor  string         `db:"instructor" json:"instructor" yaml:"instructor"`
	Capacity    int            `db:"capacity" json:"capacity" yaml:"capacity"`
	Occupancy   int            `db:"occupancy" json:"occupancy" yaml:"occupancy"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at" yaml:"-"`
}

// RemainingSeats returns capacity minus occupancy, never negative.
func (c Course) RemainingSeats() int {
	if c.Occupancy >= c.Capacity {
		return 0
	}
	return c.Capacity - c.Occupancy
}

// Full reports whether no seat is left.
func (c Course) Full() bool {
	return c.Occupancy >= c.Capacity
}

// CourseListing is the catalog representation returned to clients.
type CourseListing struct {
	Course
	RemainingSeats int `json:"remaining_seats"`
}

// NewCourseListing derives the listing view for a course.
func NewCourseListing(c Course) CourseListing {
	return CourseListing{Course: c, RemainingSeats: c.RemainingSeats()}
}

// CourseFilter captures the supported catalog filters.
type CourseFilter struct {
	Department string
	Semester   int
	Category   CourseCategory
	Search     string
}
