package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type scheduleReader interface {
	ListEntries(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, error)
}

type activeConfigProvider interface {
	FindActive(ctx context.Context) (*models.TimetableConfig, error)
}

// TimetableService serves stored timetables: flat listings, the day-by-slot
// grid used by the frontend, and the on-demand conflict audit.
type TimetableService struct {
	schedules scheduleReader
	configs   activeConfigProvider
	cache     *CacheService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewTimetableService creates a new timetable read service.
func NewTimetableService(schedules scheduleReader, configs activeConfigProvider, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TimetableService{schedules: schedules, configs: configs, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// List returns stored placements for the active configuration, filtered by
// cohort and day.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.ScheduleEntry, error) {
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%slist:%s:%d:%d:%s", timetableCacheKeyPrefix, cfg.ID, query.Year, query.Semester, query.Day)
	var cached []models.ScheduleEntry
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	entries, err := s.schedules.ListEntries(ctx, models.ScheduleFilter{
		ConfigID: cfg.ID,
		Year:     query.Year,
		Semester: query.Semester,
		Day:      query.Day,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable")
	}

	if err := s.cache.Set(ctx, key, entries, s.cacheTTL); err != nil {
		s.logger.Debug("timetable cache set failed", zap.Error(err))
	}
	return entries, nil
}

// Grid shapes the stored timetable as rows of slot templates against
// columns of working days, the layout the display and export surfaces
// share.
func (s *TimetableService) Grid(ctx context.Context, query dto.TimetableQuery) (*dto.TimetableGrid, error) {
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.schedules.ListEntries(ctx, models.ScheduleFilter{
		ConfigID: cfg.ID,
		Year:     query.Year,
		Semester: query.Semester,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	return BuildGrid(cfg, entries), nil
}

// Conflicts audits the stored timetable and reports every overlap. The
// audit never mutates placements and can be re-run at any time, including
// against schedules adjusted by hand in the database.
func (s *TimetableService) Conflicts(ctx context.Context) ([]models.ConflictCheck, error) {
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.schedules.ListEntries(ctx, models.ScheduleFilter{ConfigID: cfg.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	schedule := make([]models.ClassSchedule, 0, len(entries))
	staffNames := make(map[string]string)
	for _, entry := range entries {
		schedule = append(schedule, entry.ClassSchedule)
		staffNames[entry.StaffID] = entry.StaffName
	}

	conflicts := AuditConflicts(schedule, staffNames)
	if conflicts == nil {
		conflicts = []models.ConflictCheck{}
	}
	return conflicts, nil
}

func (s *TimetableService) activeConfig(ctx context.Context) (*models.TimetableConfig, error) {
	cfg, err := s.configs.FindActive(ctx)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable configuration defined")
	}
	return cfg, nil
}

// BuildGrid indexes entries by slot start and day. Cells hold the first
// entry landing on a slot; the auditor is the authority on doubled cells.
func BuildGrid(cfg *models.TimetableConfig, entries []models.ScheduleEntry) *dto.TimetableGrid {
	grid := &dto.TimetableGrid{
		AcademicYear: cfg.AcademicYear,
		Days:         cfg.WorkingDays,
		Cells:        make(map[string]map[string]*dto.GridCell),
	}

	labels := make([]string, 0, len(cfg.TimeSlots))
	for _, slot := range cfg.TimeSlots {
		label := slot.StartTime + "-" + slot.EndTime
		labels = append(labels, label)
		grid.Cells[label] = make(map[string]*dto.GridCell)
	}
	grid.SlotLabels = labels

	ordered := make([]models.ScheduleEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartTime < ordered[j].StartTime
	})

	for _, entry := range ordered {
		label := entry.StartTime + "-" + entry.EndTime
		row, ok := grid.Cells[label]
		if !ok {
			// placement no longer matches a slot template, give it its
			// own row at the end
			row = make(map[string]*dto.GridCell)
			grid.Cells[label] = row
			grid.SlotLabels = append(grid.SlotLabels, label)
		}
		if _, taken := row[entry.DayOfWeek]; taken {
			continue
		}
		row[entry.DayOfWeek] = &dto.GridCell{
			SubjectCode: entry.SubjectCode,
			SubjectName: entry.SubjectName,
			StaffName:   entry.StaffName,
			Room:        entry.Room,
		}
	}

	return grid
}
