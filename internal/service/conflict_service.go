package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siga-ar/siga-api/internal/models"
)

type conflictScheduleReader interface {
	ListActiveSlotsByStudent(ctx context.Context, studentID int64) ([]models.EnrolledSlot, error)
}

// ConflictDetector finds schedule clashes between a target section and the
// student's active enrollments. It is a pure read; it never withdraws or
// modifies anything.
type ConflictDetector struct {
	history conflictScheduleReader
	logger  *zap.Logger
}

// NewConflictDetector constructs ConflictDetector.
func NewConflictDetector(history conflictScheduleReader, logger *zap.Logger) *ConflictDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictDetector{history: history, logger: logger}
}

// FindConflict compares every target slot against every slot the student is
// already committed to on the same weekday and reports the first overlap
// found, or nil when the schedule is clear. Slots are half-open intervals:
// one ending exactly when another starts is not a clash. A section with no
// slots can never conflict.
func (d *ConflictDetector) FindConflict(ctx context.Context, studentID int64, target *models.SectionDetail, targetSlots []models.TimeSlot) (*models.ConflictReport, error) {
	if len(targetSlots) == 0 {
		return nil, nil
	}

	existing, err := d.history.ListActiveSlotsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	for _, have := range existing {
		for _, want := range targetSlots {
			if have.Day != want.Day {
				continue
			}
			if !intervalsOverlap(have.StartMinute, have.EndMinute, want.StartMinute, want.EndMinute) {
				continue
			}

			report := buildConflictReport(have, target)
			d.logger.Debug("schedule conflict detected",
				zap.Int64("student_id", studentID),
				zap.Int64("target_section_id", target.ID),
				zap.String("existing_subject", have.SubjectCode),
				zap.String("directive", string(report.Directive)),
			)
			return report, nil
		}
	}
	return nil, nil
}

// intervalsOverlap applies half-open interval intersection: the overlap is
// non-empty iff max(startA, startB) < min(endA, endB).
func intervalsOverlap(aStart, aEnd, bStart, bEnd int) bool {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	return start < end
}

// buildConflictReport chooses the tie-break directive: when the target
// subject sits in a strictly higher year than the clashing one, the
// lower-year subject wins and the new enrollment is rejected; otherwise the
// existing enrollment must be withdrawn first. Either way the enrollment is
// rejected.
func buildConflictReport(existing models.EnrolledSlot, target *models.SectionDetail) *models.ConflictReport {
	report := &models.ConflictReport{
		ExistingSubjectCode: existing.SubjectCode,
		ExistingSubjectYear: existing.SubjectYear,
		TargetSubjectYear:   target.SubjectYear,
	}
	if target.SubjectYear > existing.SubjectYear {
		report.Directive = models.DirectivePrioritizeLowerYear
		report.Message = fmt.Sprintf(
			"schedule conflict with %s (year %d): the lower-year subject must be prioritized",
			existing.SubjectCode, existing.SubjectYear,
		)
	} else {
		report.Directive = models.DirectiveWithdrawExisting
		report.Message = fmt.Sprintf(
			"schedule conflict with %s: withdraw the existing enrollment before continuing",
			existing.SubjectCode,
		)
	}
	return report
}
