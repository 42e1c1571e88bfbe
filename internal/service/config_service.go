package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/timeutil"
)

type configRepository interface {
	FindActive(ctx context.Context) (*models.TimetableConfig, error)
	FindByID(ctx context.Context, id string) (*models.TimetableConfig, error)
	Upsert(ctx context.Context, cfg *models.TimetableConfig) error
}

// ConfigService manages the timetable configuration. Time strings are
// validated at write time so a generation run never meets a malformed
// clock value it did not produce itself.
type ConfigService struct {
	repo      configRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConfigService creates a new configuration service.
func NewConfigService(repo configRepository, validate *validator.Validate, logger *zap.Logger) *ConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigService{repo: repo, validator: validate, logger: logger}
}

// GetActive returns the configuration driving generation.
func (s *ConfigService) GetActive(ctx context.Context) (*models.TimetableConfig, error) {
	cfg, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable configuration defined")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}
	return cfg, nil
}

// Upsert validates and stores the configuration, making it active.
func (s *ConfigService) Upsert(ctx context.Context, req dto.UpsertConfigRequest) (*models.TimetableConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}

	timeSlots, err := buildSlots(req.TimeSlots, "time slot")
	if err != nil {
		return nil, err
	}
	breakSlots, err := buildSlots(req.BreakSlots, "break")
	if err != nil {
		return nil, err
	}

	cfg := &models.TimetableConfig{
		AcademicYear: req.AcademicYear,
		WorkingDays:  req.WorkingDays,
		TimeSlots:    timeSlots,
		BreakSlots:   breakSlots,
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store configuration")
	}

	s.logger.Info("timetable configuration replaced",
		zap.String("config_id", cfg.ID),
		zap.String("academic_year", cfg.AcademicYear),
		zap.Int("working_days", len(cfg.WorkingDays)),
		zap.Int("time_slots", len(cfg.TimeSlots)))
	return cfg, nil
}

func buildSlots(payloads []dto.TimeSlotPayload, label string) ([]models.TimeSlot, error) {
	out := make([]models.TimeSlot, 0, len(payloads))
	for _, p := range payloads {
		start, err := timeutil.ToMinutes(p.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("%s start %q is not HH:MM", label, p.StartTime))
		}
		end, err := timeutil.ToMinutes(p.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("%s end %q is not HH:MM", label, p.EndTime))
		}
		if start >= end {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %s-%s must start before it ends", label, p.StartTime, p.EndTime))
		}
		out = append(out, models.TimeSlot{
			Day:           p.Day,
			StartTime:     p.StartTime,
			EndTime:       p.EndTime,
			DurationHours: float64(end-start) / 60,
		})
	}
	return out, nil
}
