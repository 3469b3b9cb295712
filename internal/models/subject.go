package models

// Subject is an immutable catalog entry within a study plan.
type Subject struct {
	ID       int64  `db:"id" json:"id"`
	PlanID   int64  `db:"plan_id" json:"plan_id"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	Year     int    `db:"year_level" json:"year_level"`
	Semester *int   `db:"semester" json:"semester,omitempty"`
}

// PrerequisiteEdge declares that enrolling into Subject requires a standing
// on RequiredSubject. Both flags may be set independently. At most one edge
// exists per (subject, required subject) pair.
type PrerequisiteEdge struct {
	SubjectID           int64  `db:"subject_id" json:"subject_id"`
	RequiredSubjectID   int64  `db:"required_subject_id" json:"required_subject_id"`
	RequiredSubjectCode string `db:"required_subject_code" json:"required_subject_code"`
	RequiresPassed      bool   `db:"requires_passed" json:"requires_passed"`
	RequiresRegular     bool   `db:"requires_regular" json:"requires_regular"`
}

// ViolationKind classifies an unmet prerequisite.
type ViolationKind string

const (
	ViolationNeedsPassed  ViolationKind = "NEEDS_PASSED"
	ViolationNeedsRegular ViolationKind = "NEEDS_REGULAR"
)

// PrerequisiteViolation reports one unmet prerequisite edge.
type PrerequisiteViolation struct {
	RequiredSubjectID   int64         `json:"required_subject_id"`
	RequiredSubjectCode string        `json:"required_subject_code"`
	Kind                ViolationKind `json:"kind"`
}
