package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/siga-ar/siga-api/internal/models"
)

// PeriodRepository reads enrollment period windows.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// FindActivePeriod returns the active period of the given type whose window
// contains at. When several qualify, the one with the latest start wins.
// Returns sql.ErrNoRows when no window is open.
func (r *PeriodRepository) FindActivePeriod(ctx context.Context, periodType models.PeriodType, at time.Time) (*models.EnrollmentPeriod, error) {
	const query = `SELECT id, name, type, starts_at, ends_at, active
        FROM enrollment_periods
        WHERE type = $1 AND active = TRUE AND starts_at <= $2 AND ends_at >= $2
        ORDER BY starts_at DESC
        LIMIT 1`
	var period models.EnrollmentPeriod
	if err := r.db.GetContext(ctx, &period, query, periodType, at); err != nil {
		return nil, err
	}
	return &period, nil
}
