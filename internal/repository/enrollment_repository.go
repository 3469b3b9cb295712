package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/siga-ar/siga-api/internal/models"
)

// EnrollmentRepository handles persistence of course and exam enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const courseEnrollmentColumns = `id, student_id, section_id, status, condition_reason, enrolled_at, status_changed_at`

// FindByID returns a course enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.CourseEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_enrollments WHERE id = $1`, courseEnrollmentColumns)
	var enrollment models.CourseEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// List returns a student's course enrollments with catalog context.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollmentDetail, int, error) {
	base := `FROM course_enrollments e
JOIN sections c ON c.id = e.section_id
JOIN subjects s ON s.id = c.subject_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != 0 {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != 0 {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.section_id, e.status, e.condition_reason,
        e.enrolled_at, e.status_changed_at,
        s.code AS subject_code, s.name AS subject_name, c.year AS section_year
        %s ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.CourseEnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list course enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListActiveSlotsByStudent returns every weekly slot belonging to a section
// the student is actively enrolled in (status other than WITHDRAWN),
// flattened with the owning subject for conflict reporting.
func (r *EnrollmentRepository) ListActiveSlotsByStudent(ctx context.Context, studentID int64) ([]models.EnrolledSlot, error) {
	const query = `SELECT e.id AS enrollment_id, e.section_id, s.code AS subject_code, s.year_level AS subject_year,
        h.day_of_week, h.start_minute, h.end_minute
        FROM course_enrollments e
        JOIN sections c ON c.id = e.section_id
        JOIN subjects s ON s.id = c.subject_id
        JOIN time_slots h ON h.section_id = c.id
        WHERE e.student_id = $1 AND e.status <> $2
        ORDER BY h.day_of_week, h.start_minute`
	var slots []models.EnrolledSlot
	if err := r.db.SelectContext(ctx, &slots, query, studentID, models.CourseEnrollmentWithdrawn); err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	return slots, nil
}

// ExistsActiveBySubject reports whether the student holds a non-WITHDRAWN
// enrollment in any section of the subject.
func (r *EnrollmentRepository) ExistsActiveBySubject(ctx context.Context, studentID, subjectID int64) (bool, error) {
	const query = `SELECT 1 FROM course_enrollments e
        JOIN sections c ON c.id = e.section_id
        WHERE e.student_id = $1 AND c.subject_id = $2 AND e.status <> $3
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID, models.CourseEnrollmentWithdrawn); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject enrollment: %w", err)
	}
	return true, nil
}

// HasPassedExam reports whether the student has a PASSED exam enrollment for
// the subject.
func (r *EnrollmentRepository) HasPassedExam(ctx context.Context, studentID, subjectID int64) (bool, error) {
	const query = `SELECT 1 FROM exam_enrollments
        WHERE student_id = $1 AND subject_id = $2 AND status = $3
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID, models.ExamEnrollmentPassed); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check passed exam: %w", err)
	}
	return true, nil
}

// HasRegularCourse reports whether the student holds a REGULAR course
// enrollment in any section of the subject.
func (r *EnrollmentRepository) HasRegularCourse(ctx context.Context, studentID, subjectID int64) (bool, error) {
	const query = `SELECT 1 FROM course_enrollments e
        JOIN sections c ON c.id = e.section_id
        WHERE e.student_id = $1 AND c.subject_id = $2 AND e.status = $3
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID, models.CourseEnrollmentRegular); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check regular course: %w", err)
	}
	return true, nil
}

// GetOrCreate atomically ensures a single course enrollment row for the
// (student, section) pair. The insert races through the unique constraint:
// when another caller wins, or a row (including a WITHDRAWN one) already
// occupies the slot, that existing row is returned unchanged and created is
// false. No uniqueness violation ever reaches the caller.
func (r *EnrollmentRepository) GetOrCreate(ctx context.Context, studentID, sectionID int64) (*models.CourseEnrollment, bool, error) {
	now := time.Now().UTC()
	insertQuery := fmt.Sprintf(`INSERT INTO course_enrollments (student_id, section_id, status, condition_reason, enrolled_at, status_changed_at)
        VALUES ($1, $2, $3, '', $4, $4)
        ON CONFLICT (student_id, section_id) DO NOTHING
        RETURNING %s`, courseEnrollmentColumns)

	var enrollment models.CourseEnrollment
	err := r.db.GetContext(ctx, &enrollment, insertQuery, studentID, sectionID, models.CourseEnrollmentPending, now)
	if err == nil {
		return &enrollment, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("create course enrollment: %w", err)
	}

	selectQuery := fmt.Sprintf(`SELECT %s FROM course_enrollments WHERE student_id = $1 AND section_id = $2`, courseEnrollmentColumns)
	if err := r.db.GetContext(ctx, &enrollment, selectQuery, studentID, sectionID); err != nil {
		return nil, false, fmt.Errorf("fetch course enrollment: %w", err)
	}
	return &enrollment, false, nil
}

// CountActiveBySection counts non-WITHDRAWN enrollments of a section.
func (r *EnrollmentRepository) CountActiveBySection(ctx context.Context, sectionID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM course_enrollments WHERE section_id = $1 AND status <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID, models.CourseEnrollmentWithdrawn); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// UpdateStatus updates the status and reason of a course enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, status models.CourseEnrollmentStatus, reason string) error {
	const query = `UPDATE course_enrollments SET status = $2, condition_reason = $3, status_changed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}
