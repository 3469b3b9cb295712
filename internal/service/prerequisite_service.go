package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/siga-ar/siga-api/internal/models"
)

type prerequisiteCatalogReader interface {
	GetSubjectPrerequisites(ctx context.Context, subjectID int64) ([]models.PrerequisiteEdge, error)
}

type prerequisiteHistoryReader interface {
	HasPassedExam(ctx context.Context, studentID, subjectID int64) (bool, error)
	HasRegularCourse(ctx context.Context, studentID, subjectID int64) (bool, error)
}

// PrerequisiteValidator checks a student's standing against the declared
// prerequisite edges of a subject. Evaluation walks one hop per edge; it
// never follows chains transitively, so cycles in catalog data are harmless.
type PrerequisiteValidator struct {
	catalog prerequisiteCatalogReader
	history prerequisiteHistoryReader
	logger  *zap.Logger
}

// NewPrerequisiteValidator constructs PrerequisiteValidator.
func NewPrerequisiteValidator(catalog prerequisiteCatalogReader, history prerequisiteHistoryReader, logger *zap.Logger) *PrerequisiteValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteValidator{catalog: catalog, history: history, logger: logger}
}

// Validate evaluates every edge and returns the full set of violations so
// the caller can report all unmet prerequisites at once. An empty slice
// means the subject may be taken. Edges arrive ordered by required subject
// id, which keeps the output deterministic.
func (v *PrerequisiteValidator) Validate(ctx context.Context, studentID, subjectID int64) ([]models.PrerequisiteViolation, error) {
	edges, err := v.catalog.GetSubjectPrerequisites(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	var violations []models.PrerequisiteViolation
	for _, edge := range edges {
		hasPassed, err := v.history.HasPassedExam(ctx, studentID, edge.RequiredSubjectID)
		if err != nil {
			return nil, err
		}

		// REGULAR-or-better: a passed final always covers a regular requirement.
		hasRegular := hasPassed
		if !hasRegular && edge.RequiresRegular {
			hasRegular, err = v.history.HasRegularCourse(ctx, studentID, edge.RequiredSubjectID)
			if err != nil {
				return nil, err
			}
		}

		if edge.RequiresPassed && !hasPassed {
			violations = append(violations, models.PrerequisiteViolation{
				RequiredSubjectID:   edge.RequiredSubjectID,
				RequiredSubjectCode: edge.RequiredSubjectCode,
				Kind:                models.ViolationNeedsPassed,
			})
		}
		if edge.RequiresRegular && !hasRegular {
			violations = append(violations, models.PrerequisiteViolation{
				RequiredSubjectID:   edge.RequiredSubjectID,
				RequiredSubjectCode: edge.RequiredSubjectCode,
				Kind:                models.ViolationNeedsRegular,
			})
		}
	}

	if len(violations) > 0 {
		v.logger.Debug("prerequisites unmet",
			zap.Int64("student_id", studentID),
			zap.Int64("subject_id", subjectID),
			zap.Int("violations", len(violations)),
		)
	}
	return violations, nil
}
