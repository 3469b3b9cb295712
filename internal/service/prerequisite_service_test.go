package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siga-ar/siga-api/internal/models"
)

type mockPrereqCatalog struct {
	edges []models.PrerequisiteEdge
}

func (m *mockPrereqCatalog) GetSubjectPrerequisites(ctx context.Context, subjectID int64) ([]models.PrerequisiteEdge, error) {
	return m.edges, nil
}

type mockPrereqHistory struct {
	passed       map[int64]bool
	regular      map[int64]bool
	regularCalls int
}

func (m *mockPrereqHistory) HasPassedExam(ctx context.Context, studentID, subjectID int64) (bool, error) {
	return m.passed[subjectID], nil
}

func (m *mockPrereqHistory) HasRegularCourse(ctx context.Context, studentID, subjectID int64) (bool, error) {
	m.regularCalls++
	return m.regular[subjectID], nil
}

func TestPrerequisiteValidatorNoEdges(t *testing.T) {
	v := NewPrerequisiteValidator(&mockPrereqCatalog{}, &mockPrereqHistory{}, nil)

	violations, err := v.Validate(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestPrerequisiteValidatorNeedsPassed(t *testing.T) {
	catalog := &mockPrereqCatalog{edges: []models.PrerequisiteEdge{
		{SubjectID: 100, RequiredSubjectID: 50, RequiredSubjectCode: "MAT101", RequiresPassed: true},
	}}
	v := NewPrerequisiteValidator(catalog, &mockPrereqHistory{}, nil)

	violations, err := v.Validate(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, models.ViolationNeedsPassed, violations[0].Kind)
	assert.Equal(t, "MAT101", violations[0].RequiredSubjectCode)
}

func TestPrerequisiteValidatorPassedCoversRegular(t *testing.T) {
	catalog := &mockPrereqCatalog{edges: []models.PrerequisiteEdge{
		{SubjectID: 100, RequiredSubjectID: 50, RequiredSubjectCode: "MAT101", RequiresRegular: true},
	}}
	history := &mockPrereqHistory{passed: map[int64]bool{50: true}}
	v := NewPrerequisiteValidator(catalog, history, nil)

	violations, err := v.Validate(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Empty(t, violations)
	assert.Zero(t, history.regularCalls)
}

func TestPrerequisiteValidatorRegularSatisfies(t *testing.T) {
	catalog := &mockPrereqCatalog{edges: []models.PrerequisiteEdge{
		{SubjectID: 100, RequiredSubjectID: 50, RequiredSubjectCode: "MAT101", RequiresRegular: true},
	}}
	history := &mockPrereqHistory{regular: map[int64]bool{50: true}}
	v := NewPrerequisiteValidator(catalog, history, nil)

	violations, err := v.Validate(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestPrerequisiteValidatorRegularDoesNotCoverPassed(t *testing.T) {
	catalog := &mockPrereqCatalog{edges: []models.PrerequisiteEdge{
		{SubjectID: 100, RequiredSubjectID: 50, RequiredSubjectCode: "MAT101", RequiresPassed: true},
	}}
	history := &mockPrereqHistory{regular: map[int64]bool{50: true}}
	v := NewPrerequisiteValidator(catalog, history, nil)

	violations, err := v.Validate(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, models.ViolationNeedsPassed, violations[0].Kind)
}

func TestPrerequisiteValidatorCollectsAllViolations(t *testing.T) {
	catalog := &mockPrereqCatalog{edges: []models.PrerequisiteEdge{
		{SubjectID: 100, RequiredSubjectID: 50, RequiredSubjectCode: "MAT101", RequiresPassed: true},
		{SubjectID: 100, RequiredSubjectID: 60, RequiredSubjectCode: "FIS101", RequiresRegular: true},
		{SubjectID: 100, RequiredSubjectID: 70, RequiredSubjectCode: "QUI101", RequiresPassed: true, RequiresRegular: true},
	}}
	history := &mockPrereqHistory{passed: map[int64]bool{50: true}}
	v := NewPrerequisiteValidator(catalog, history, nil)

	violations, err := v.Validate(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, violations, 3)
	assert.Equal(t, int64(60), violations[0].RequiredSubjectID)
	assert.Equal(t, models.ViolationNeedsRegular, violations[0].Kind)
	assert.Equal(t, int64(70), violations[1].RequiredSubjectID)
	assert.Equal(t, models.ViolationNeedsPassed, violations[1].Kind)
	assert.Equal(t, int64(70), violations[2].RequiredSubjectID)
	assert.Equal(t, models.ViolationNeedsRegular, violations[2].Kind)
}
