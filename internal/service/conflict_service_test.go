package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siga-ar/siga-api/internal/models"
)

type mockScheduleReader struct {
	slots []models.EnrolledSlot
	calls int
}

func (m *mockScheduleReader) ListActiveSlotsByStudent(ctx context.Context, studentID int64) ([]models.EnrolledSlot, error) {
	m.calls++
	return m.slots, nil
}

func targetSection(id int64, subjectYear int) *models.SectionDetail {
	return &models.SectionDetail{
		Section:     models.Section{ID: id, SubjectID: 100, Year: 2026},
		SubjectCode: "MAT201",
		SubjectYear: subjectYear,
	}
}

func TestConflictDetectorNoTargetSlots(t *testing.T) {
	reader := &mockScheduleReader{}
	detector := NewConflictDetector(reader, nil)

	report, err := detector.FindConflict(context.Background(), 1, targetSection(10, 2), nil)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Zero(t, reader.calls)
}

func TestConflictDetectorClearSchedule(t *testing.T) {
	reader := &mockScheduleReader{slots: []models.EnrolledSlot{
		{EnrollmentID: 1, SectionID: 5, SubjectCode: "MAT101", SubjectYear: 1, Day: 1, StartMinute: 480, EndMinute: 600},
		{EnrollmentID: 1, SectionID: 5, SubjectCode: "MAT101", SubjectYear: 1, Day: 3, StartMinute: 480, EndMinute: 600},
	}}
	detector := NewConflictDetector(reader, nil)

	target := []models.TimeSlot{
		{SectionID: 10, Day: 2, StartMinute: 480, EndMinute: 600},
		{SectionID: 10, Day: 3, StartMinute: 660, EndMinute: 780},
	}
	report, err := detector.FindConflict(context.Background(), 1, targetSection(10, 2), target)
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestConflictDetectorBackToBackIsNotAConflict(t *testing.T) {
	reader := &mockScheduleReader{slots: []models.EnrolledSlot{
		{SubjectCode: "MAT101", SubjectYear: 1, Day: 1, StartMinute: 480, EndMinute: 600},
	}}
	detector := NewConflictDetector(reader, nil)

	target := []models.TimeSlot{{SectionID: 10, Day: 1, StartMinute: 600, EndMinute: 720}}
	report, err := detector.FindConflict(context.Background(), 1, targetSection(10, 1), target)
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestConflictDetectorPrioritizesLowerYear(t *testing.T) {
	reader := &mockScheduleReader{slots: []models.EnrolledSlot{
		{SubjectCode: "MAT101", SubjectYear: 1, Day: 2, StartMinute: 480, EndMinute: 600},
	}}
	detector := NewConflictDetector(reader, nil)

	target := []models.TimeSlot{{SectionID: 10, Day: 2, StartMinute: 540, EndMinute: 660}}
	report, err := detector.FindConflict(context.Background(), 1, targetSection(10, 2), target)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.DirectivePrioritizeLowerYear, report.Directive)
	assert.Equal(t, "MAT101", report.ExistingSubjectCode)
	assert.Equal(t, 1, report.ExistingSubjectYear)
	assert.Equal(t, 2, report.TargetSubjectYear)
}

func TestConflictDetectorSameYearRequiresWithdrawal(t *testing.T) {
	reader := &mockScheduleReader{slots: []models.EnrolledSlot{
		{SubjectCode: "FIS201", SubjectYear: 2, Day: 4, StartMinute: 480, EndMinute: 600},
	}}
	detector := NewConflictDetector(reader, nil)

	target := []models.TimeSlot{{SectionID: 10, Day: 4, StartMinute: 480, EndMinute: 600}}
	report, err := detector.FindConflict(context.Background(), 1, targetSection(10, 2), target)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.DirectiveWithdrawExisting, report.Directive)
}

func TestConflictDetectorLowerYearTargetRequiresWithdrawal(t *testing.T) {
	reader := &mockScheduleReader{slots: []models.EnrolledSlot{
		{SubjectCode: "QUI301", SubjectYear: 3, Day: 5, StartMinute: 600, EndMinute: 720},
	}}
	detector := NewConflictDetector(reader, nil)

	target := []models.TimeSlot{{SectionID: 10, Day: 5, StartMinute: 660, EndMinute: 780}}
	report, err := detector.FindConflict(context.Background(), 1, targetSection(10, 1), target)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.DirectiveWithdrawExisting, report.Directive)
}

func TestIntervalsOverlap(t *testing.T) {
	assert.True(t, intervalsOverlap(480, 600, 540, 660))
	assert.True(t, intervalsOverlap(540, 660, 480, 600))
	assert.True(t, intervalsOverlap(480, 600, 500, 520))
	assert.False(t, intervalsOverlap(480, 600, 600, 720))
	assert.False(t, intervalsOverlap(600, 720, 480, 600))
	assert.False(t, intervalsOverlap(480, 540, 600, 660))
}
