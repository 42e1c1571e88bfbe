package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type mockSubjectRepo struct {
	byID    map[string]*models.Subject
	byCode  map[string]*models.Subject
	created *models.Subject
	updated *models.Subject
	deleted string
}

func (m *mockSubjectRepo) List(context.Context, models.SubjectFilter) ([]models.Subject, int, error) {
	return nil, 0, nil
}

func (m *mockSubjectRepo) FindByID(_ context.Context, id string) (*models.Subject, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) FindByCode(_ context.Context, code string) (*models.Subject, error) {
	if s, ok := m.byCode[code]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *models.Subject) error {
	m.created = subject
	return nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *models.Subject) error {
	m.updated = subject
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string) error {
	m.deleted = id
	return nil
}

func TestSubjectServiceCreateUppercasesCode(t *testing.T) {
	repo := &mockSubjectRepo{}
	svc := NewSubjectService(repo, nil, nil)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:            " phys2 ",
		Name:            "Physics II",
		Kind:            "lab",
		DurationHours:   2,
		RequiredPerWeek: 1,
		Year:            2,
		Semester:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, "PHYS2", subject.Code)
	assert.Equal(t, models.SubjectKindLab, subject.Kind)
	require.NotNil(t, repo.created)
}

func TestSubjectServiceCreateRejectsDuplicateCode(t *testing.T) {
	repo := &mockSubjectRepo{byCode: map[string]*models.Subject{
		"MATH1": {ID: "sub-1", Code: "MATH1"},
	}}
	svc := NewSubjectService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:          "math1",
		Name:          "Mathematics",
		Kind:          "theory",
		DurationHours: 1,
		Year:          1,
		Semester:      1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceCreateRejectsUnknownKind(t *testing.T) {
	svc := NewSubjectService(&mockSubjectRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:          "BIO1",
		Name:          "Biology",
		Kind:          "seminar",
		DurationHours: 1,
		Year:          1,
		Semester:      1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceUpdateAllowsOwnCode(t *testing.T) {
	existing := &models.Subject{ID: "sub-1", Code: "MATH1", Name: "Maths", Kind: models.SubjectKindTheory, DurationHours: 1, Year: 1, Semester: 1}
	repo := &mockSubjectRepo{
		byID:   map[string]*models.Subject{"sub-1": existing},
		byCode: map[string]*models.Subject{"MATH1": existing},
	}
	svc := NewSubjectService(repo, nil, nil)

	subject, err := svc.Update(context.Background(), "sub-1", UpdateSubjectRequest{
		Code:            "MATH1",
		Name:            "Mathematics",
		Kind:            "theory",
		DurationHours:   1,
		RequiredPerWeek: 4,
		Year:            1,
		Semester:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", subject.Name)
	assert.Equal(t, 4, subject.RequiredPerWeek)
}

func TestSubjectServiceDeleteMissing(t *testing.T) {
	svc := NewSubjectService(&mockSubjectRepo{}, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type mockStaffRepo struct {
	byID        map[string]*models.Staff
	created     *models.Staff
	deactivated string
}

func (m *mockStaffRepo) List(context.Context, models.StaffFilter) ([]models.Staff, int, error) {
	return nil, 0, nil
}

func (m *mockStaffRepo) FindByID(_ context.Context, id string) (*models.Staff, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStaffRepo) Create(_ context.Context, staff *models.Staff) error {
	m.created = staff
	return nil
}

func (m *mockStaffRepo) Update(context.Context, *models.Staff) error { return nil }

func (m *mockStaffRepo) Deactivate(_ context.Context, id string) error {
	m.deactivated = id
	return nil
}

func TestStaffServiceCreateNormalizesSubjects(t *testing.T) {
	repo := &mockStaffRepo{}
	svc := NewStaffService(repo, nil, nil)

	staff, err := svc.Create(context.Background(), CreateStaffRequest{
		FullName: "  A. Lovelace ",
		Subjects: []string{" MATH1", "MATH1", "", "Physics "},
	})
	require.NoError(t, err)
	assert.Equal(t, "A. Lovelace", staff.FullName)
	assert.Equal(t, []string{"MATH1", "Physics"}, []string(staff.Subjects))
	assert.True(t, staff.Active)
}

func TestStaffServiceDeactivateMissing(t *testing.T) {
	svc := NewStaffService(&mockStaffRepo{}, nil, nil)

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
