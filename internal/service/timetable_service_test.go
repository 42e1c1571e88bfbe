package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
)

type stubScheduleReader struct {
	entries    []models.ScheduleEntry
	err        error
	lastFilter models.ScheduleFilter
}

func (s *stubScheduleReader) ListEntries(_ context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, error) {
	s.lastFilter = filter
	return s.entries, s.err
}

type stubActiveConfig struct {
	cfg *models.TimetableConfig
	err error
}

func (s *stubActiveConfig) FindActive(context.Context) (*models.TimetableConfig, error) {
	return s.cfg, s.err
}

func entry(subjectCode, subjectName, staffID, staffName, day, start, end string, year, semester int) models.ScheduleEntry {
	return models.ScheduleEntry{
		ClassSchedule: models.ClassSchedule{
			StaffID:   staffID,
			DayOfWeek: day,
			StartTime: start,
			EndTime:   end,
			Year:      year,
			Semester:  semester,
			Section:   models.DefaultSection,
		},
		SubjectCode: subjectCode,
		SubjectName: subjectName,
		StaffName:   staffName,
	}
}

func gridConfig() *models.TimetableConfig {
	return &models.TimetableConfig{
		ID:           "cfg-1",
		AcademicYear: "2026/2027",
		WorkingDays:  []string{"Monday", "Tuesday"},
		TimeSlots: []models.TimeSlot{
			{StartTime: "09:00", EndTime: "10:00", DurationHours: 1},
			{StartTime: "10:00", EndTime: "11:00", DurationHours: 1},
		},
	}
}

func TestBuildGridPlacesEntries(t *testing.T) {
	cfg := gridConfig()
	entries := []models.ScheduleEntry{
		entry("MATH1", "Mathematics", "s1", "A. Turing", "Monday", "09:00", "10:00", 1, 1),
		entry("PHYS1", "Physics", "s2", "E. Noether", "Tuesday", "10:00", "11:00", 1, 1),
	}

	grid := BuildGrid(cfg, entries)

	assert.Equal(t, "2026/2027", grid.AcademicYear)
	assert.Equal(t, []string{"Monday", "Tuesday"}, grid.Days)
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, grid.SlotLabels)

	cell := grid.Cells["09:00-10:00"]["Monday"]
	require.NotNil(t, cell)
	assert.Equal(t, "MATH1", cell.SubjectCode)
	assert.Equal(t, "A. Turing", cell.StaffName)

	assert.Nil(t, grid.Cells["09:00-10:00"]["Tuesday"])
	require.NotNil(t, grid.Cells["10:00-11:00"]["Tuesday"])
}

func TestBuildGridFirstEntryWins(t *testing.T) {
	cfg := gridConfig()
	entries := []models.ScheduleEntry{
		entry("MATH1", "Mathematics", "s1", "A. Turing", "Monday", "09:00", "10:00", 1, 1),
		entry("PHYS1", "Physics", "s2", "E. Noether", "Monday", "09:00", "10:00", 2, 1),
	}

	grid := BuildGrid(cfg, entries)

	cell := grid.Cells["09:00-10:00"]["Monday"]
	require.NotNil(t, cell)
	assert.Equal(t, "MATH1", cell.SubjectCode)
}

func TestBuildGridUnknownSlotGetsOwnRow(t *testing.T) {
	cfg := gridConfig()
	entries := []models.ScheduleEntry{
		entry("CHEM1", "Chemistry", "s1", "A. Turing", "Monday", "13:00", "14:00", 1, 1),
	}

	grid := BuildGrid(cfg, entries)

	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00", "13:00-14:00"}, grid.SlotLabels)
	require.NotNil(t, grid.Cells["13:00-14:00"]["Monday"])
}

func TestTimetableServiceListScopesToActiveConfig(t *testing.T) {
	reader := &stubScheduleReader{entries: []models.ScheduleEntry{}}
	svc := NewTimetableService(reader, &stubActiveConfig{cfg: gridConfig()}, nil, 0, nil)

	_, err := svc.List(context.Background(), dto.TimetableQuery{Year: 2, Semester: 1, Day: "Monday"})
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", reader.lastFilter.ConfigID)
	assert.Equal(t, 2, reader.lastFilter.Year)
	assert.Equal(t, "Monday", reader.lastFilter.Day)
}

func TestTimetableServiceConflictsReportsOverlap(t *testing.T) {
	reader := &stubScheduleReader{entries: []models.ScheduleEntry{
		entry("MATH1", "Mathematics", "s1", "A. Turing", "Monday", "09:00", "10:00", 1, 1),
		entry("PHYS1", "Physics", "s1", "A. Turing", "Monday", "09:30", "10:30", 2, 1),
	}}
	svc := NewTimetableService(reader, &stubActiveConfig{cfg: gridConfig()}, nil, 0, nil)

	conflicts, err := svc.Conflicts(context.Background())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictKindStaff, conflicts[0].Kind)
	assert.Contains(t, conflicts[0].Message, "A. Turing")
}

func TestTimetableServiceConflictsEmptyIsNotNil(t *testing.T) {
	reader := &stubScheduleReader{entries: []models.ScheduleEntry{}}
	svc := NewTimetableService(reader, &stubActiveConfig{cfg: gridConfig()}, nil, 0, nil)

	conflicts, err := svc.Conflicts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}
