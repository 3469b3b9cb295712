package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siga-ar/siga-api/internal/models"
	"github.com/siga-ar/siga-api/pkg/config"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
)

type mockEnrollmentCatalog struct {
	sections map[int64]*models.SectionDetail
	slots    map[int64][]models.TimeSlot
}

func (m *mockEnrollmentCatalog) GetSectionDetail(ctx context.Context, id int64) (*models.SectionDetail, error) {
	if s, ok := m.sections[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentCatalog) GetTimeSlots(ctx context.Context, sectionID int64) ([]models.TimeSlot, error) {
	return m.slots[sectionID], nil
}

type mockPeriodReader struct {
	period *models.EnrollmentPeriod
}

func (m *mockPeriodReader) FindActivePeriod(ctx context.Context, periodType models.PeriodType, at time.Time) (*models.EnrollmentPeriod, error) {
	if m.period == nil {
		return nil, sql.ErrNoRows
	}
	return m.period, nil
}

type mockCourseEnrollments struct {
	existing      *models.CourseEnrollment
	duplicated    bool
	activeCount   int
	created       *models.CourseEnrollment
	statusUpdates map[int64]models.CourseEnrollmentStatus
}

func (m *mockCourseEnrollments) List(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockCourseEnrollments) FindByID(ctx context.Context, id int64) (*models.CourseEnrollment, error) {
	if m.existing != nil && m.existing.ID == id {
		e := *m.existing
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseEnrollments) ExistsActiveBySubject(ctx context.Context, studentID, subjectID int64) (bool, error) {
	return m.duplicated, nil
}

func (m *mockCourseEnrollments) GetOrCreate(ctx context.Context, studentID, sectionID int64) (*models.CourseEnrollment, bool, error) {
	if m.existing != nil {
		e := *m.existing
		return &e, false, nil
	}
	now := time.Now().UTC()
	m.created = &models.CourseEnrollment{
		ID:              42,
		StudentID:       studentID,
		SectionID:       sectionID,
		Status:          models.CourseEnrollmentPending,
		EnrolledAt:      now,
		StatusChangedAt: now,
	}
	return m.created, true, nil
}

func (m *mockCourseEnrollments) CountActiveBySection(ctx context.Context, sectionID int64) (int, error) {
	return m.activeCount, nil
}

func (m *mockCourseEnrollments) UpdateStatus(ctx context.Context, id int64, status models.CourseEnrollmentStatus, reason string) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[int64]models.CourseEnrollmentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

type mockPrereqChecker struct {
	violations []models.PrerequisiteViolation
}

func (m *mockPrereqChecker) Validate(ctx context.Context, studentID, subjectID int64) ([]models.PrerequisiteViolation, error) {
	return m.violations, nil
}

type mockConflictChecker struct {
	report *models.ConflictReport
}

func (m *mockConflictChecker) FindConflict(ctx context.Context, studentID int64, target *models.SectionDetail, targetSlots []models.TimeSlot) (*models.ConflictReport, error) {
	return m.report, nil
}

func intPtr(v int) *int { return &v }

func activePeriod() *models.EnrollmentPeriod {
	return &models.EnrollmentPeriod{ID: 1, Name: "Cursada 1C 2026", Type: models.PeriodCourse, Active: true}
}

func newTestEnrollmentService(catalog *mockEnrollmentCatalog, periods *mockPeriodReader, repo *mockCourseEnrollments, prereqs *mockPrereqChecker, conflicts *mockConflictChecker) *EnrollmentService {
	cfg := config.EnrollmentConfig{CapacityAdvisories: true}
	return NewEnrollmentService(catalog, periods, repo, prereqs, conflicts, cfg, nil, validator.New(), zap.NewNop())
}

func defaultCatalog() *mockEnrollmentCatalog {
	return &mockEnrollmentCatalog{
		sections: map[int64]*models.SectionDetail{
			10: {
				Section:     models.Section{ID: 10, SubjectID: 100, Shift: "morning", Year: 2026},
				SubjectCode: "MAT201",
				SubjectName: "Análisis Matemático II",
				SubjectYear: 2,
			},
		},
		slots: map[int64][]models.TimeSlot{
			10: {{ID: 1, SectionID: 10, Day: 1, StartMinute: 480, EndMinute: 600}},
		},
	}
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo := &mockCourseEnrollments{}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	result, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 10})
	require.NoError(t, err)
	require.NotNil(t, result.Enrollment)
	assert.Equal(t, models.CourseEnrollmentPending, result.Enrollment.Status)
	assert.Empty(t, result.Advisory)
	assert.NotNil(t, repo.created)
}

func TestEnrollmentServiceEnrollSectionNotFound(t *testing.T) {
	svc := newTestEnrollmentService(&mockEnrollmentCatalog{}, &mockPeriodReader{period: activePeriod()}, &mockCourseEnrollments{}, &mockPrereqChecker{}, &mockConflictChecker{})

	_, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 99})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEnrollmentServiceEnrollNoActivePeriod(t *testing.T) {
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{}, &mockCourseEnrollments{}, &mockPrereqChecker{}, &mockConflictChecker{})

	_, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 10})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoActivePeriod))
}

func TestEnrollmentServiceEnrollPrerequisitesUnmet(t *testing.T) {
	violations := []models.PrerequisiteViolation{
		{RequiredSubjectID: 50, RequiredSubjectCode: "MAT101", Kind: models.ViolationNeedsRegular},
		{RequiredSubjectID: 60, RequiredSubjectCode: "FIS101", Kind: models.ViolationNeedsPassed},
	}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, &mockCourseEnrollments{}, &mockPrereqChecker{violations: violations}, &mockConflictChecker{})

	_, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 10})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrPrerequisitesUnmet))
	appErr := appErrors.FromError(err)
	assert.Equal(t, violations, appErr.Details)
}

func TestEnrollmentServiceEnrollDuplicateSubject(t *testing.T) {
	repo := &mockCourseEnrollments{duplicated: true}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	_, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 10})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateEnrollment))
	assert.Nil(t, repo.created)
}

func TestEnrollmentServiceEnrollScheduleConflict(t *testing.T) {
	report := &models.ConflictReport{
		ExistingSubjectCode: "FIS201",
		ExistingSubjectYear: 2,
		TargetSubjectYear:   2,
		Directive:           models.DirectiveWithdrawExisting,
		Message:             "schedule conflict with FIS201: withdraw the existing enrollment before continuing",
	}
	repo := &mockCourseEnrollments{}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{report: report})

	_, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 10})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrScheduleConflict))
	appErr := appErrors.FromError(err)
	assert.Equal(t, report, appErr.Details)
	assert.Equal(t, report.Message, appErr.Message)
	assert.Nil(t, repo.created)
}

func TestEnrollmentServiceEnrollCapacityAdvisory(t *testing.T) {
	catalog := defaultCatalog()
	catalog.sections[10].Capacity = intPtr(30)
	repo := &mockCourseEnrollments{activeCount: 30}
	svc := newTestEnrollmentService(catalog, &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	result, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 10})
	require.NoError(t, err)
	assert.Contains(t, result.Advisory, "30/30")
	assert.NotNil(t, result.Enrollment)
}

func TestEnrollmentServiceEnrollReturnsExistingRowUnchanged(t *testing.T) {
	existing := &models.CourseEnrollment{
		ID:        7,
		StudentID: 1,
		SectionID: 10,
		Status:    models.CourseEnrollmentWithdrawn,
	}
	repo := &mockCourseEnrollments{existing: existing}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	result, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Enrollment.ID)
	assert.Equal(t, models.CourseEnrollmentWithdrawn, result.Enrollment.Status)
	assert.Nil(t, repo.created)
}

// Exercises the orchestrator with the real conflict detector: the student
// holds PG1 (year 1, Monday 18:00-20:00) and attempts BD1 on Monday
// 19:00-21:00, first as a year-1 subject, then as a year-2 one.
func TestEnrollmentServiceEnrollConflictScenario(t *testing.T) {
	catalog := &mockEnrollmentCatalog{
		sections: map[int64]*models.SectionDetail{
			20: {
				Section:     models.Section{ID: 20, SubjectID: 200, Shift: "evening", Year: 2026},
				SubjectCode: "BD1",
				SubjectName: "Bases de Datos I",
				SubjectYear: 1,
			},
		},
		slots: map[int64][]models.TimeSlot{
			20: {{ID: 5, SectionID: 20, Day: 1, StartMinute: 1140, EndMinute: 1260}},
		},
	}
	detector := NewConflictDetector(&mockScheduleReader{slots: []models.EnrolledSlot{
		{EnrollmentID: 1, SectionID: 15, SubjectCode: "PG1", SubjectYear: 1, Day: 1, StartMinute: 1080, EndMinute: 1200},
	}}, nil)
	svc := NewEnrollmentService(catalog, &mockPeriodReader{period: activePeriod()}, &mockCourseEnrollments{}, &mockPrereqChecker{}, detector, config.EnrollmentConfig{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 20})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrScheduleConflict))
	report, ok := appErrors.FromError(err).Details.(*models.ConflictReport)
	require.True(t, ok)
	assert.Equal(t, models.DirectiveWithdrawExisting, report.Directive)
	assert.Equal(t, "PG1", report.ExistingSubjectCode)

	// Same clash with BD1 as a year-2 subject: the year-1 PG1 wins.
	catalog.sections[20].SubjectYear = 2
	_, err = svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1, SectionID: 20})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrScheduleConflict))
	report, ok = appErrors.FromError(err).Details.(*models.ConflictReport)
	require.True(t, ok)
	assert.Equal(t, models.DirectivePrioritizeLowerYear, report.Directive)
}

func TestEnrollmentServiceEnrollInvalidRequest(t *testing.T) {
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, &mockCourseEnrollments{}, &mockPrereqChecker{}, &mockConflictChecker{})

	_, err := svc.Enroll(context.Background(), EnrollCourseRequest{StudentID: 1})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEnrollmentServiceWithdraw(t *testing.T) {
	existing := &models.CourseEnrollment{ID: 7, StudentID: 1, SectionID: 10, Status: models.CourseEnrollmentPending}
	repo := &mockCourseEnrollments{existing: existing}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	enrollment, err := svc.Withdraw(context.Background(), 7, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.CourseEnrollmentWithdrawn, enrollment.Status)
	assert.Equal(t, models.CourseEnrollmentWithdrawn, repo.statusUpdates[7])
}

func TestEnrollmentServiceWithdrawForeignEnrollment(t *testing.T) {
	existing := &models.CourseEnrollment{ID: 7, StudentID: 2, SectionID: 10, Status: models.CourseEnrollmentPending}
	repo := &mockCourseEnrollments{existing: existing}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	_, err := svc.Withdraw(context.Background(), 7, 1, false)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.statusUpdates)
}

func TestEnrollmentServiceWithdrawByStaff(t *testing.T) {
	existing := &models.CourseEnrollment{ID: 7, StudentID: 2, SectionID: 10, Status: models.CourseEnrollmentPending}
	repo := &mockCourseEnrollments{existing: existing}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	enrollment, err := svc.Withdraw(context.Background(), 7, 99, true)
	require.NoError(t, err)
	assert.Equal(t, models.CourseEnrollmentWithdrawn, enrollment.Status)
}

func TestEnrollmentServiceWithdrawIdempotent(t *testing.T) {
	existing := &models.CourseEnrollment{ID: 7, StudentID: 1, SectionID: 10, Status: models.CourseEnrollmentWithdrawn}
	repo := &mockCourseEnrollments{existing: existing}
	svc := newTestEnrollmentService(defaultCatalog(), &mockPeriodReader{period: activePeriod()}, repo, &mockPrereqChecker{}, &mockConflictChecker{})

	enrollment, err := svc.Withdraw(context.Background(), 7, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.CourseEnrollmentWithdrawn, enrollment.Status)
	assert.Empty(t, repo.statusUpdates)
}
