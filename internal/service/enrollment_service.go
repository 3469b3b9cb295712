package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/siga-ar/siga-api/internal/models"
	"github.com/siga-ar/siga-api/pkg/config"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
)

type enrollmentCatalogReader interface {
	GetSectionDetail(ctx context.Context, id int64) (*models.SectionDetail, error)
	GetTimeSlots(ctx context.Context, sectionID int64) ([]models.TimeSlot, error)
}

type periodReader interface {
	FindActivePeriod(ctx context.Context, periodType models.PeriodType, at time.Time) (*models.EnrollmentPeriod, error)
}

type courseEnrollmentRepository interface {
	List(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollmentDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.CourseEnrollment, error)
	ExistsActiveBySubject(ctx context.Context, studentID, subjectID int64) (bool, error)
	GetOrCreate(ctx context.Context, studentID, sectionID int64) (*models.CourseEnrollment, bool, error)
	CountActiveBySection(ctx context.Context, sectionID int64) (int, error)
	UpdateStatus(ctx context.Context, id int64, status models.CourseEnrollmentStatus, reason string) error
}

type prerequisiteChecker interface {
	Validate(ctx context.Context, studentID, subjectID int64) ([]models.PrerequisiteViolation, error)
}

type conflictChecker interface {
	FindConflict(ctx context.Context, studentID int64, target *models.SectionDetail, targetSlots []models.TimeSlot) (*models.ConflictReport, error)
}

// EnrollCourseRequest describes a course enrollment attempt.
type EnrollCourseRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	SectionID int64 `json:"section_id" validate:"required,gt=0"`
}

// EnrollmentService orchestrates the cursada enrollment rules: period window,
// prerequisites, duplicate subject, schedule conflict, idempotent creation
// and the capacity advisory, in that order. Checks 1-4 are advisory reads;
// only the creation step is atomic, backed by the (student, section) unique
// constraint.
type EnrollmentService struct {
	catalog     enrollmentCatalogReader
	periods     periodReader
	enrollments courseEnrollmentRepository
	prereqs     prerequisiteChecker
	conflicts   conflictChecker
	cfg         config.EnrollmentConfig
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	catalog enrollmentCatalogReader,
	periods periodReader,
	enrollments courseEnrollmentRepository,
	prereqs prerequisiteChecker,
	conflicts conflictChecker,
	cfg config.EnrollmentConfig,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		catalog:     catalog,
		periods:     periods,
		enrollments: enrollments,
		prereqs:     prereqs,
		conflicts:   conflicts,
		cfg:         cfg,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enroll runs the full rule sequence and creates (or converges on) the
// course enrollment for the (student, section) pair. Every rule failure is a
// typed business error; infrastructure failures surface as INTERNAL_ERROR.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollCourseRequest) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	section, err := s.catalog.GetSectionDetail(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	// 1. Period window.
	if _, err := s.periods.FindActivePeriod(ctx, models.PeriodCourse, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject(appErrors.Clone(appErrors.ErrNoActivePeriod, ""))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment period")
	}

	// 2. Prerequisites: report every unmet edge at once.
	violations, err := s.prereqs.Validate(ctx, req.StudentID, section.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate prerequisites")
	}
	if len(violations) > 0 {
		return nil, s.reject(appErrors.WithDetails(appErrors.ErrPrerequisitesUnmet,
			fmt.Sprintf("prerequisites not satisfied for %s", section.SubjectCode), violations))
	}

	// 3. Duplicate subject. Cheaper and semantically prior to conflict
	// detection; also covers the target section itself.
	duplicated, err := s.enrollments.ExistsActiveBySubject(ctx, req.StudentID, section.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject enrollment")
	}
	if duplicated {
		return nil, s.reject(appErrors.Clone(appErrors.ErrDuplicateEnrollment,
			fmt.Sprintf("an active enrollment already exists for %s", section.SubjectCode)))
	}

	// 4. Schedule conflict.
	targetSlots, err := s.catalog.GetTimeSlots(ctx, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section schedule")
	}
	report, err := s.conflicts.FindConflict(ctx, req.StudentID, section, targetSlots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detect schedule conflicts")
	}
	if report != nil {
		return nil, s.reject(appErrors.WithDetails(appErrors.ErrScheduleConflict, report.Message, report))
	}

	// 5. Idempotent creation: concurrent attempts for the same pair converge
	// on one row; the loser observes the winner's enrollment.
	enrollment, created, err := s.enrollments.GetOrCreate(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	result := &models.EnrollmentResult{Enrollment: enrollment}

	// 6. Capacity advisory. Never blocks and never fails the operation.
	if s.cfg.CapacityAdvisories && section.Capacity != nil && *section.Capacity > 0 {
		used, err := s.enrollments.CountActiveBySection(ctx, req.SectionID)
		if err != nil {
			s.logger.Warn("capacity advisory skipped", zap.Int64("section_id", req.SectionID), zap.Error(err))
		} else if used >= *section.Capacity {
			result.Advisory = fmt.Sprintf(
				"capacity reached or exceeded (%d/%d); consider opening another section",
				used, *section.Capacity,
			)
		}
	}

	s.metrics.IncEnrollmentDecision("accepted")
	s.logger.Info("course enrollment accepted",
		zap.Int64("student_id", req.StudentID),
		zap.Int64("section_id", req.SectionID),
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Bool("created", created),
		zap.Bool("capacity_advisory", result.Advisory != ""),
	)
	return result, nil
}

// List returns a student's enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Withdraw soft-deletes a course enrollment, freeing the (student, section)
// uniqueness slot. Students may only withdraw their own enrollments.
func (s *EnrollmentService) Withdraw(ctx context.Context, id, requestedBy int64, staff bool) (*models.CourseEnrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !staff && enrollment.StudentID != requestedBy {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot withdraw another student's enrollment")
	}
	if enrollment.Status == models.CourseEnrollmentWithdrawn {
		return enrollment, nil
	}
	if err := s.enrollments.UpdateStatus(ctx, id, models.CourseEnrollmentWithdrawn, ""); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}
	enrollment.Status = models.CourseEnrollmentWithdrawn
	s.logger.Info("course enrollment withdrawn", zap.Int64("enrollment_id", id), zap.Int64("requested_by", requestedBy))
	return enrollment, nil
}

// reject tags the business failure on metrics before returning it.
func (s *EnrollmentService) reject(err *appErrors.Error) error {
	s.metrics.IncEnrollmentDecision(err.Code)
	return err
}
