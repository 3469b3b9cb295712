package models

import "time"

// LegajoStatus is the aggregate completeness of a career enrollment's
// document checklist.
type LegajoStatus string

const (
	LegajoComplete   LegajoStatus = "COMPLETE"
	LegajoIncomplete LegajoStatus = "INCOMPLETE"
)

// StudentCondition is the administrative standing derived from the legajo.
type StudentCondition string

const (
	ConditionRegular     StudentCondition = "REGULAR"
	ConditionConditional StudentCondition = "CONDITIONAL"
)

// CareerEnrollment registers a student into a career and carries the
// aggregate legajo state. Unique per (student, career).
type CareerEnrollment struct {
	ID           int64            `db:"id" json:"id"`
	StudentID    int64            `db:"student_id" json:"student_id"`
	CareerID     int64            `db:"career_id" json:"career_id"`
	LegajoStatus LegajoStatus     `db:"legajo_status" json:"legajo_status"`
	Condition    StudentCondition `db:"condition" json:"condition"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// ChecklistItemDefinition is the per-career catalog of required documents,
// e.g. "DNI", "Título secundario".
type ChecklistItemDefinition struct {
	ID       int64  `db:"id" json:"id"`
	CareerID int64  `db:"career_id" json:"career_id"`
	Name     string `db:"name" json:"name"`
	Required bool   `db:"required" json:"required"`
}

// ChecklistItem tracks one definition for one career enrollment. Unique per
// (career enrollment, definition); created unfulfilled alongside the
// enrollment and never deleted individually.
type ChecklistItem struct {
	ID                 int64  `db:"id" json:"id"`
	CareerEnrollmentID int64  `db:"career_enrollment_id" json:"career_enrollment_id"`
	DefinitionID       int64  `db:"definition_id" json:"definition_id"`
	DefinitionName     string `db:"definition_name" json:"definition_name"`
	Fulfilled          bool   `db:"fulfilled" json:"fulfilled"`
	Note               string `db:"note" json:"note"`
}

// ChecklistUpdate mutates one checklist item. A nil Note leaves the stored
// note untouched.
type ChecklistUpdate struct {
	ItemID    int64   `json:"item_id" validate:"required"`
	Fulfilled bool    `json:"fulfilled"`
	Note      *string `json:"note,omitempty"`
}

// LegajoRecalc is the outcome of a checklist recomputation.
type LegajoRecalc struct {
	CareerEnrollmentID int64            `json:"career_enrollment_id"`
	ItemsChanged       int              `json:"items_changed"`
	TotalItems         int              `json:"total_items"`
	FulfilledItems     int              `json:"fulfilled_items"`
	LegajoStatus       LegajoStatus     `json:"legajo_status"`
	Condition          StudentCondition `json:"condition"`
}

// DeriveLegajoState computes the aggregate state from item counts. A
// checklist with zero items is never complete.
func DeriveLegajoState(total, fulfilled int) (LegajoStatus, StudentCondition) {
	if total > 0 && fulfilled == total {
		return LegajoComplete, ConditionRegular
	}
	return LegajoIncomplete, ConditionConditional
}
