package models

import "time"

// CourseEnrollmentStatus represents the lifecycle of a course enrollment.
// WITHDRAWN acts as a soft delete: it frees the (student, section)
// uniqueness slot without removing the row.
type CourseEnrollmentStatus string

// Possible course enrollment statuses.
const (
	CourseEnrollmentPending     CourseEnrollmentStatus = "PENDING"
	CourseEnrollmentConfirmed   CourseEnrollmentStatus = "CONFIRMED"
	CourseEnrollmentConditional CourseEnrollmentStatus = "CONDITIONAL"
	CourseEnrollmentRegular     CourseEnrollmentStatus = "REGULAR"
	CourseEnrollmentAuditor     CourseEnrollmentStatus = "AUDITOR"
	CourseEnrollmentWithdrawn   CourseEnrollmentStatus = "WITHDRAWN"
)

// CourseEnrollment captures a student's registration to a section.
// At most one non-WITHDRAWN row exists per (student, section) pair.
type CourseEnrollment struct {
	ID              int64                  `db:"id" json:"id"`
	StudentID       int64                  `db:"student_id" json:"student_id"`
	SectionID       int64                  `db:"section_id" json:"section_id"`
	Status          CourseEnrollmentStatus `db:"status" json:"status"`
	ConditionReason string                 `db:"condition_reason" json:"condition_reason,omitempty"`
	EnrolledAt      time.Time              `db:"enrolled_at" json:"enrolled_at"`
	StatusChangedAt time.Time              `db:"status_changed_at" json:"status_changed_at"`
}

// CourseEnrollmentDetail enriches CourseEnrollment with catalog context.
type CourseEnrollmentDetail struct {
	CourseEnrollment
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SectionYear int    `db:"section_year" json:"section_year"`
}

// CourseEnrollmentFilter provides filters for listing course enrollments.
type CourseEnrollmentFilter struct {
	StudentID int64
	SectionID int64
	Status    CourseEnrollmentStatus
	Page      int
	PageSize  int
}

// ExamEnrollmentStatus represents the lifecycle of an exam enrollment.
type ExamEnrollmentStatus string

// Possible exam enrollment statuses.
const (
	ExamEnrollmentPending   ExamEnrollmentStatus = "PENDING"
	ExamEnrollmentConfirmed ExamEnrollmentStatus = "CONFIRMED"
	ExamEnrollmentPresent   ExamEnrollmentStatus = "PRESENT"
	ExamEnrollmentAbsent    ExamEnrollmentStatus = "ABSENT"
	ExamEnrollmentPassed    ExamEnrollmentStatus = "PASSED"
	ExamEnrollmentFailed    ExamEnrollmentStatus = "FAILED"
)

// ExamEnrollment records a student's exam attempt for a subject. The rules
// engine reads it only to answer "has the student passed subject X".
type ExamEnrollment struct {
	ID         int64                `db:"id" json:"id"`
	StudentID  int64                `db:"student_id" json:"student_id"`
	SubjectID  int64                `db:"subject_id" json:"subject_id"`
	Attempt    int                  `db:"attempt" json:"attempt"`
	Status     ExamEnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time            `db:"enrolled_at" json:"enrolled_at"`
}

// ConflictDirective tells the caller how a schedule conflict must be
// resolved. The engine never resolves conflicts itself.
type ConflictDirective string

const (
	// DirectivePrioritizeLowerYear applies when the target subject sits in a
	// strictly higher year than the conflicting one.
	DirectivePrioritizeLowerYear ConflictDirective = "PRIORITIZE_LOWER_YEAR"
	// DirectiveWithdrawExisting applies otherwise: the existing enrollment
	// must be withdrawn before retrying.
	DirectiveWithdrawExisting ConflictDirective = "WITHDRAW_EXISTING_FIRST"
)

// ConflictReport describes the first schedule conflict found.
type ConflictReport struct {
	ExistingSubjectCode string            `json:"existing_subject_code"`
	ExistingSubjectYear int               `json:"existing_subject_year"`
	TargetSubjectYear   int               `json:"target_subject_year"`
	Directive           ConflictDirective `json:"directive"`
	Message             string            `json:"message"`
}

// EnrollmentResult is the orchestrator's success payload. Advisory is
// non-empty only when the section's advisory capacity is reached.
type EnrollmentResult struct {
	Enrollment *CourseEnrollment `json:"enrollment"`
	Advisory   string            `json:"advisory,omitempty"`
}
