package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type mockConfigRepo struct {
	active   *models.TimetableConfig
	upserted *models.TimetableConfig
}

func (m *mockConfigRepo) FindActive(context.Context) (*models.TimetableConfig, error) {
	if m.active == nil {
		return nil, sql.ErrNoRows
	}
	return m.active, nil
}

func (m *mockConfigRepo) FindByID(_ context.Context, id string) (*models.TimetableConfig, error) {
	if m.active != nil && m.active.ID == id {
		return m.active, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockConfigRepo) Upsert(_ context.Context, cfg *models.TimetableConfig) error {
	m.upserted = cfg
	return nil
}

func validConfigRequest() dto.UpsertConfigRequest {
	return dto.UpsertConfigRequest{
		AcademicYear: "2026/2027",
		WorkingDays:  []string{"Monday", "Tuesday", "Wednesday"},
		TimeSlots: []dto.TimeSlotPayload{
			{StartTime: "09:00", EndTime: "10:00"},
			{StartTime: "10:00", EndTime: "11:00"},
		},
		BreakSlots: []dto.TimeSlotPayload{
			{StartTime: "12:00", EndTime: "12:30"},
		},
	}
}

func TestConfigServiceGetActiveMissing(t *testing.T) {
	svc := NewConfigService(&mockConfigRepo{}, nil, nil)

	_, err := svc.GetActive(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestConfigServiceUpsertComputesDurations(t *testing.T) {
	repo := &mockConfigRepo{}
	svc := NewConfigService(repo, nil, nil)

	cfg, err := svc.Upsert(context.Background(), validConfigRequest())
	require.NoError(t, err)
	require.NotNil(t, repo.upserted)
	require.Len(t, cfg.TimeSlots, 2)
	assert.Equal(t, 1.0, cfg.TimeSlots[0].DurationHours)
	require.Len(t, cfg.BreakSlots, 1)
	assert.Equal(t, 0.5, cfg.BreakSlots[0].DurationHours)
}

func TestConfigServiceUpsertRejectsMalformedTime(t *testing.T) {
	svc := NewConfigService(&mockConfigRepo{}, nil, nil)

	req := validConfigRequest()
	req.TimeSlots[0].StartTime = "9am"

	_, err := svc.Upsert(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedTime.Code, appErrors.FromError(err).Code)
}

func TestConfigServiceUpsertRejectsInvertedSlot(t *testing.T) {
	svc := NewConfigService(&mockConfigRepo{}, nil, nil)

	req := validConfigRequest()
	req.TimeSlots[0] = dto.TimeSlotPayload{StartTime: "11:00", EndTime: "10:00"}

	_, err := svc.Upsert(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigServiceUpsertRequiresWorkingDays(t *testing.T) {
	svc := NewConfigService(&mockConfigRepo{}, nil, nil)

	req := validConfigRequest()
	req.WorkingDays = nil

	_, err := svc.Upsert(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
