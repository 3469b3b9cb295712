package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/siga-ar/siga-api/internal/models"
)

// CatalogRepository reads the academic reference catalog: subjects, sections,
// time slots and prerequisite edges. The catalog is maintained elsewhere;
// this repository is read-only.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetSectionDetail returns a section joined with its owning subject.
func (r *CatalogRepository) GetSectionDetail(ctx context.Context, id int64) (*models.SectionDetail, error) {
	const query = `SELECT c.id, c.subject_id, c.shift, c.year, c.capacity,
        s.code AS subject_code, s.name AS subject_name, s.year_level AS subject_year
        FROM sections c
        JOIN subjects s ON s.id = c.subject_id
        WHERE c.id = $1`
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetTimeSlots returns the weekly slots of a section ordered by day and start.
func (r *CatalogRepository) GetTimeSlots(ctx context.Context, sectionID int64) ([]models.TimeSlot, error) {
	const query = `SELECT id, section_id, day_of_week, start_minute, end_minute
        FROM time_slots WHERE section_id = $1 ORDER BY day_of_week, start_minute`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, sectionID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// GetSubjectPrerequisites returns the declared prerequisite edges of a
// subject, ordered by required subject id for reproducible evaluation.
func (r *CatalogRepository) GetSubjectPrerequisites(ctx context.Context, subjectID int64) ([]models.PrerequisiteEdge, error) {
	const query = `SELECT p.subject_id, p.required_subject_id, s.code AS required_subject_code,
        p.requires_passed, p.requires_regular
        FROM prerequisites p
        JOIN subjects s ON s.id = p.required_subject_id
        WHERE p.subject_id = $1
        ORDER BY p.required_subject_id`
	var edges []models.PrerequisiteEdge
	if err := r.db.SelectContext(ctx, &edges, query, subjectID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return edges, nil
}
