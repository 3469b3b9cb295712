package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/siga-ar/siga-api/internal/models"
	"github.com/siga-ar/siga-api/internal/repository"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
)

type legajoRepository interface {
	GetCareerEnrollment(ctx context.Context, id int64) (*models.CareerEnrollment, error)
	ListChecklist(ctx context.Context, careerEnrollmentID int64) ([]models.ChecklistItem, error)
	ApplyChecklistUpdates(ctx context.Context, careerEnrollmentID int64, updates []models.ChecklistUpdate) (*models.LegajoRecalc, error)
	RecomputeLegajo(ctx context.Context, careerEnrollmentID int64) (*models.LegajoRecalc, error)
}

// LegajoDetail is the read model of a career enrollment's checklist.
type LegajoDetail struct {
	Enrollment *models.CareerEnrollment `json:"enrollment"`
	Items      []models.ChecklistItem   `json:"items"`
}

// LegajoService recomputes the document-checklist state of career
// enrollments. The repository serializes each operation on a per-enrollment
// row lock; both operations are idempotent.
type LegajoService struct {
	repo      legajoRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLegajoService constructs LegajoService.
func NewLegajoService(repo legajoRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LegajoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LegajoService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// ApplyChecklistUpdates applies the updates transactionally and recomputes
// the aggregate state. Item ids outside the target enrollment fail the whole
// batch with ITEM_NOT_FOUND and leave prior state untouched.
func (s *LegajoService) ApplyChecklistUpdates(ctx context.Context, careerEnrollmentID int64, updates []models.ChecklistUpdate) (*models.LegajoRecalc, error) {
	for _, update := range updates {
		if err := s.validator.Struct(update); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checklist update")
		}
	}

	result, err := s.repo.ApplyChecklistUpdates(ctx, careerEnrollmentID, updates)
	if err != nil {
		return nil, s.mapError(err, "failed to apply checklist updates")
	}

	s.metrics.IncLegajoRecompute(string(result.LegajoStatus))
	s.logger.Info("legajo recomputed",
		zap.Int64("career_enrollment_id", careerEnrollmentID),
		zap.Int("items_changed", result.ItemsChanged),
		zap.String("legajo_status", string(result.LegajoStatus)),
		zap.String("condition", string(result.Condition)),
	)
	return result, nil
}

// Recompute re-derives the aggregate state without applying updates; used
// after external changes such as catalog edits.
func (s *LegajoService) Recompute(ctx context.Context, careerEnrollmentID int64) (*models.LegajoRecalc, error) {
	result, err := s.repo.RecomputeLegajo(ctx, careerEnrollmentID)
	if err != nil {
		return nil, s.mapError(err, "failed to recompute legajo")
	}

	s.metrics.IncLegajoRecompute(string(result.LegajoStatus))
	return result, nil
}

// GetDetail returns the career enrollment with its checklist items.
func (s *LegajoService) GetDetail(ctx context.Context, careerEnrollmentID int64) (*LegajoDetail, error) {
	enrollment, err := s.repo.GetCareerEnrollment(ctx, careerEnrollmentID)
	if err != nil {
		return nil, s.mapError(err, "failed to load career enrollment")
	}
	items, err := s.repo.ListChecklist(ctx, careerEnrollmentID)
	if err != nil {
		return nil, s.mapError(err, "failed to load checklist items")
	}
	return &LegajoDetail{Enrollment: enrollment, Items: items}, nil
}

func (s *LegajoService) mapError(err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		return appErrors.Clone(appErrors.ErrChecklistItemMissing, "")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "career enrollment not found")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
	}
}
