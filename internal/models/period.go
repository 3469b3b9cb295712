package models

import "time"

// PeriodType distinguishes course and exam enrollment windows.
type PeriodType string

const (
	PeriodCourse PeriodType = "COURSE"
	PeriodExam   PeriodType = "EXAM"
)

// EnrollmentPeriod is an administrative window during which enrollments of
// the given type may be created.
type EnrollmentPeriod struct {
	ID       int64      `db:"id" json:"id"`
	Name     string     `db:"name" json:"name"`
	Type     PeriodType `db:"type" json:"type"`
	StartsAt time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt   time.Time  `db:"ends_at" json:"ends_at"`
	Active   bool       `db:"active" json:"active"`
}
