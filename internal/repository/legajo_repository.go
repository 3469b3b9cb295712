package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/siga-ar/siga-api/internal/models"
)

// ErrItemNotFound is returned when a checklist update references an item id
// that does not belong to the target career enrollment.
var ErrItemNotFound = errors.New("checklist item not found for career enrollment")

// LegajoRepository owns the document-checklist state of career enrollments.
// All mutations run inside one transaction holding a per-enrollment row lock,
// so concurrent staff edits on the same legajo serialize instead of losing
// updates. Different enrollments never contend.
type LegajoRepository struct {
	db *sqlx.DB
}

// NewLegajoRepository constructs the repository.
func NewLegajoRepository(db *sqlx.DB) *LegajoRepository {
	return &LegajoRepository{db: db}
}

const careerEnrollmentColumns = `id, student_id, career_id, legajo_status, condition, created_at`

// GetCareerEnrollment returns a career enrollment by id.
func (r *LegajoRepository) GetCareerEnrollment(ctx context.Context, id int64) (*models.CareerEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM career_enrollments WHERE id = $1`, careerEnrollmentColumns)
	var enrollment models.CareerEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListChecklist returns the checklist items of a career enrollment joined
// with their definitions.
func (r *LegajoRepository) ListChecklist(ctx context.Context, careerEnrollmentID int64) ([]models.ChecklistItem, error) {
	const query = `SELECT i.id, i.career_enrollment_id, i.definition_id, d.name AS definition_name, i.fulfilled, i.note
        FROM checklist_items i
        JOIN checklist_item_definitions d ON d.id = i.definition_id
        WHERE i.career_enrollment_id = $1
        ORDER BY d.name`
	var items []models.ChecklistItem
	if err := r.db.SelectContext(ctx, &items, query, careerEnrollmentID); err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	return items, nil
}

// ApplyChecklistUpdates applies item updates and recomputes the aggregate
// legajo state under a per-enrollment exclusive lock. Updates referencing
// items outside the enrollment fail the whole transaction with
// ErrItemNotFound. Items are written only when a value actually changes;
// the returned result counts those writes.
func (r *LegajoRepository) ApplyChecklistUpdates(ctx context.Context, careerEnrollmentID int64, updates []models.ChecklistUpdate) (result *models.LegajoRecalc, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin legajo transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment, err := lockCareerEnrollment(ctx, tx, careerEnrollmentID)
	if err != nil {
		return nil, err
	}

	changed := 0
	for _, update := range updates {
		var item models.ChecklistItem
		const itemQuery = `SELECT id, career_enrollment_id, definition_id, fulfilled, note
            FROM checklist_items WHERE id = $1 AND career_enrollment_id = $2 FOR UPDATE`
		if err = tx.GetContext(ctx, &item, itemQuery, update.ItemID, careerEnrollmentID); err != nil {
			if err == sql.ErrNoRows {
				err = fmt.Errorf("item %d: %w", update.ItemID, ErrItemNotFound)
			} else {
				err = fmt.Errorf("lock checklist item: %w", err)
			}
			return nil, err
		}

		dirty := false
		if item.Fulfilled != update.Fulfilled {
			item.Fulfilled = update.Fulfilled
			dirty = true
		}
		if update.Note != nil && item.Note != *update.Note {
			item.Note = *update.Note
			dirty = true
		}
		if !dirty {
			continue
		}

		const updateQuery = `UPDATE checklist_items SET fulfilled = $2, note = $3 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, updateQuery, item.ID, item.Fulfilled, item.Note); err != nil {
			return nil, fmt.Errorf("update checklist item: %w", err)
		}
		changed++
	}

	result, err = recomputeLocked(ctx, tx, enrollment)
	if err != nil {
		return nil, err
	}
	result.ItemsChanged = changed

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit legajo transaction: %w", err)
	}
	return result, nil
}

// RecomputeLegajo re-derives the aggregate state from the stored items
// without applying updates, under the same per-enrollment lock.
func (r *LegajoRepository) RecomputeLegajo(ctx context.Context, careerEnrollmentID int64) (result *models.LegajoRecalc, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin legajo transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment, err := lockCareerEnrollment(ctx, tx, careerEnrollmentID)
	if err != nil {
		return nil, err
	}

	result, err = recomputeLocked(ctx, tx, enrollment)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit legajo transaction: %w", err)
	}
	return result, nil
}

func lockCareerEnrollment(ctx context.Context, tx *sqlx.Tx, id int64) (*models.CareerEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM career_enrollments WHERE id = $1 FOR UPDATE`, careerEnrollmentColumns)
	var enrollment models.CareerEnrollment
	if err := tx.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock career enrollment: %w", err)
	}
	return &enrollment, nil
}

// recomputeLocked derives the aggregate state from item counts and persists
// the career enrollment only when a field actually changes.
func recomputeLocked(ctx context.Context, tx *sqlx.Tx, enrollment *models.CareerEnrollment) (*models.LegajoRecalc, error) {
	var counts struct {
		Total     int `db:"total"`
		Fulfilled int `db:"fulfilled"`
	}
	const countQuery = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE fulfilled) AS fulfilled
        FROM checklist_items WHERE career_enrollment_id = $1`
	if err := tx.GetContext(ctx, &counts, countQuery, enrollment.ID); err != nil {
		return nil, fmt.Errorf("count checklist items: %w", err)
	}

	status, condition := models.DeriveLegajoState(counts.Total, counts.Fulfilled)
	if status != enrollment.LegajoStatus || condition != enrollment.Condition {
		const updateQuery = `UPDATE career_enrollments SET legajo_status = $2, condition = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateQuery, enrollment.ID, status, condition); err != nil {
			return nil, fmt.Errorf("update career enrollment: %w", err)
		}
	}

	return &models.LegajoRecalc{
		CareerEnrollmentID: enrollment.ID,
		TotalItems:         counts.Total,
		FulfilledItems:     counts.Fulfilled,
		LegajoStatus:       status,
		Condition:          condition,
	}, nil
}
