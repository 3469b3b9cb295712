package models

// Section is a scheduled offering of a subject for one calendar year.
// Capacity is advisory only; nil means unbounded.
type Section struct {
	ID        int64  `db:"id" json:"id"`
	SubjectID int64  `db:"subject_id" json:"subject_id"`
	Shift     string `db:"shift" json:"shift"`
	Year      int    `db:"year" json:"year"`
	Capacity  *int   `db:"capacity" json:"capacity,omitempty"`
}

// SectionDetail enriches Section with its owning subject.
type SectionDetail struct {
	Section
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectYear int    `db:"subject_year" json:"subject_year"`
}

// TimeSlot is a weekly meeting of a section. Day runs 1 (Monday) through 6
// (Saturday); start/end are minutes from midnight with start < end. Slots
// within one section are pre-validated as non-overlapping at data entry.
type TimeSlot struct {
	ID          int64 `db:"id" json:"id"`
	SectionID   int64 `db:"section_id" json:"section_id"`
	Day         int   `db:"day_of_week" json:"day_of_week"`
	StartMinute int   `db:"start_minute" json:"start_minute"`
	EndMinute   int   `db:"end_minute" json:"end_minute"`
}

// EnrolledSlot is a time slot of a section the student is actively enrolled
// in, flattened with the owning subject for conflict reporting.
type EnrolledSlot struct {
	EnrollmentID int64  `db:"enrollment_id" json:"enrollment_id"`
	SectionID    int64  `db:"section_id" json:"section_id"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SubjectYear  int    `db:"subject_year" json:"subject_year"`
	Day          int    `db:"day_of_week" json:"day_of_week"`
	StartMinute  int    `db:"start_minute" json:"start_minute"`
	EndMinute    int    `db:"end_minute" json:"end_minute"`
}
