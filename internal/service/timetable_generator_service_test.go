package service

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type stubConfigProvider struct {
	cfg *models.TimetableConfig
}

func (s *stubConfigProvider) FindActive(_ context.Context) (*models.TimetableConfig, error) {
	return s.cfg, nil
}

func (s *stubConfigProvider) FindByID(_ context.Context, _ string) (*models.TimetableConfig, error) {
	return s.cfg, nil
}

type stubStaffProvider struct {
	roster []models.Staff
}

func (s *stubStaffProvider) ListActive(_ context.Context) ([]models.Staff, error) {
	return s.roster, nil
}

type stubSubjectProvider struct {
	subjects []models.Subject
}

func (s *stubSubjectProvider) ListAll(_ context.Context) ([]models.Subject, error) {
	return s.subjects, nil
}

type stubScheduleStore struct {
	replaced     []models.ClassSchedule
	replaceCalls int
}

func (s *stubScheduleStore) ReplaceForConfig(_ context.Context, _ string, schedules []models.ClassSchedule) error {
	s.replaceCalls++
	s.replaced = schedules
	return nil
}

func newGeneratorForTest(cfg *models.TimetableConfig, roster []models.Staff, subjects []models.Subject) (*TimetableGeneratorService, *stubScheduleStore) {
	store := &stubScheduleStore{}
	svc := NewTimetableGeneratorService(
		&stubConfigProvider{cfg: cfg},
		&stubStaffProvider{roster: roster},
		&stubSubjectProvider{subjects: subjects},
		store,
		nil,
		nil,
		zap.NewNop(),
	)
	return svc, store
}

func weekConfig(days []string, slots ...models.TimeSlot) *models.TimetableConfig {
	return &models.TimetableConfig{
		ID:           "cfg-1",
		AcademicYear: "2026/2027",
		WorkingDays:  days,
		TimeSlots:    slots,
	}
}

func slot(start, end string) models.TimeSlot {
	return models.TimeSlot{StartTime: start, EndTime: end}
}

func TestPrioritizeSubjects(t *testing.T) {
	subjects := []models.Subject{
		{Code: "A", Kind: models.SubjectKindTheory, RequiredPerWeek: 2, Year: 1},
		{Code: "B", Kind: models.SubjectKindLab, RequiredPerWeek: 1, Year: 3},
		{Code: "C", Kind: models.SubjectKindTheory, RequiredPerWeek: 4, Year: 3},
	}

	ordered := prioritizeSubjects(subjects)

	require.Len(t, ordered, 3)
	assert.Equal(t, "B", ordered[0].Code)
	assert.Equal(t, "C", ordered[1].Code)
	assert.Equal(t, "A", ordered[2].Code)
	// input untouched
	assert.Equal(t, "A", subjects[0].Code)
}

func TestPrioritizeSubjectsPracticalNotLab(t *testing.T) {
	subjects := []models.Subject{
		{Code: "P", Kind: models.SubjectKindPractical, RequiredPerWeek: 5, Year: 2},
		{Code: "L", Kind: models.SubjectKindLab, RequiredPerWeek: 1, Year: 2},
	}

	ordered := prioritizeSubjects(subjects)
	assert.Equal(t, "L", ordered[0].Code)
}

func TestQualifiedStaffMatchesCodeOrName(t *testing.T) {
	subject := models.Subject{Code: "CS101", Name: "Data Structures"}
	roster := []models.Staff{
		{ID: "s1", FullName: "Dr. Rao", Subjects: pq.StringArray{"CS101"}},
		{ID: "s2", FullName: "Prof. Iyer", Subjects: pq.StringArray{"Data Structures"}},
		{ID: "s3", FullName: "Dr. Das", Subjects: pq.StringArray{"MA201"}},
	}

	qualified := qualifiedStaff(subject, roster)

	require.Len(t, qualified, 2)
	assert.Equal(t, "s1", qualified[0].ID)
	assert.Equal(t, "s2", qualified[1].ID)
}

func TestPickLeastLoadedStableTieBreak(t *testing.T) {
	state := newRunState()
	candidates := []models.Staff{{ID: "p"}, {ID: "q"}}

	assert.Equal(t, "p", pickLeastLoaded(candidates, state).ID)

	state.add(placement{staffID: "p", day: "Monday", startMin: 540, endMin: 600, hours: 1})
	assert.Equal(t, "q", pickLeastLoaded(candidates, state).ID)
}

func TestGenerateSingleStaffCarriesWholeSubject(t *testing.T) {
	cfg := weekConfig([]string{"Monday", "Tuesday", "Wednesday"},
		slot("09:00", "10:00"), slot("10:00", "11:00"))
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, Active: true},
		{ID: "q", FullName: "Q", Subjects: pq.StringArray{"X"}, Active: true},
	}
	subjects := []models.Subject{
		{ID: "sub-x", Code: "X", Name: "Subject X", Kind: models.SubjectKindTheory, RequiredPerWeek: 3, Year: 2, Semester: 3},
	}

	svc, _ := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Schedule, 3)
	for _, entry := range resp.Schedule {
		assert.Equal(t, "p", entry.StaffID)
	}
	assert.Equal(t, 3, resp.Stats.PlacedSessions)
	assert.Equal(t, 0, resp.Stats.UnplacedSessions)
}

func TestGenerateSaturationDegradesSilently(t *testing.T) {
	cfg := weekConfig([]string{"Monday"}, slot("09:00", "10:00"))
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, Active: true},
		{ID: "q", FullName: "Q", Subjects: pq.StringArray{"Y"}, Active: true},
	}
	// both cohorts share the single slot; the second subject finds nothing
	subjects := []models.Subject{
		{ID: "sub-x", Code: "X", Kind: models.SubjectKindTheory, RequiredPerWeek: 1, Year: 2, Semester: 3},
		{ID: "sub-y", Code: "Y", Kind: models.SubjectKindTheory, RequiredPerWeek: 1, Year: 2, Semester: 3},
	}

	svc, _ := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.NoError(t, err)
	assert.Len(t, resp.Schedule, 1)
	assert.Equal(t, 2, resp.Stats.RequestedSessions)
	assert.Equal(t, 1, resp.Stats.PlacedSessions)
	assert.Equal(t, 1, resp.Stats.UnplacedSessions)
}

func TestGenerateSkipsUnqualifiedSubject(t *testing.T) {
	cfg := weekConfig([]string{"Monday"}, slot("09:00", "10:00"), slot("10:00", "11:00"))
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, Active: true},
	}
	subjects := []models.Subject{
		{ID: "sub-z", Code: "Z", Kind: models.SubjectKindTheory, RequiredPerWeek: 2, Year: 1, Semester: 1},
	}

	svc, _ := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.NoError(t, err)
	assert.Empty(t, resp.Schedule)
	assert.Equal(t, 2, resp.Stats.UnplacedSessions)
	assert.Equal(t, []string{"Z"}, resp.Stats.SkippedSubjects)
}

func TestGenerateAvoidsBreaks(t *testing.T) {
	cfg := weekConfig([]string{"Monday"}, slot("09:00", "10:00"), slot("10:00", "11:00"))
	cfg.BreakSlots = []models.TimeSlot{{StartTime: "09:00", EndTime: "10:00"}}
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, Active: true},
	}
	subjects := []models.Subject{
		{ID: "sub-x", Code: "X", Kind: models.SubjectKindTheory, RequiredPerWeek: 1, Year: 1, Semester: 1},
	}

	svc, _ := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Schedule, 1)
	assert.Equal(t, "10:00", resp.Schedule[0].StartTime)
}

func TestGenerateDayBoundBreakOnlyBlocksThatDay(t *testing.T) {
	cfg := weekConfig([]string{"Monday", "Tuesday"}, slot("09:00", "10:00"))
	cfg.BreakSlots = []models.TimeSlot{{Day: "Monday", StartTime: "09:00", EndTime: "10:00"}}
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, Active: true},
	}
	subjects := []models.Subject{
		{ID: "sub-x", Code: "X", Kind: models.SubjectKindTheory, RequiredPerWeek: 1, Year: 1, Semester: 1},
	}

	svc, _ := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Schedule, 1)
	assert.Equal(t, "Tuesday", resp.Schedule[0].DayOfWeek)
}

func TestGenerateEnforcesDailyHourCap(t *testing.T) {
	cap := 1
	cfg := weekConfig([]string{"Monday", "Tuesday"}, slot("09:00", "10:00"), slot("10:00", "11:00"))
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, MaxHoursPerDay: &cap, Active: true},
	}
	subjects := []models.Subject{
		{ID: "sub-x", Code: "X", Kind: models.SubjectKindTheory, RequiredPerWeek: 2, Year: 1, Semester: 1},
	}

	svc, _ := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Schedule, 2)
	assert.NotEqual(t, resp.Schedule[0].DayOfWeek, resp.Schedule[1].DayOfWeek)
}

func TestGenerateProducesConflictFreeSchedule(t *testing.T) {
	cfg := weekConfig([]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		slot("09:00", "10:00"), slot("10:00", "11:00"), slot("11:00", "12:00"))
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"CS101", "CS102"}, Active: true},
		{ID: "q", FullName: "Q", Subjects: pq.StringArray{"MA201", "CS102"}, Active: true},
	}
	subjects := []models.Subject{
		{ID: "s1", Code: "CS101", Kind: models.SubjectKindLab, RequiredPerWeek: 3, Year: 2, Semester: 3},
		{ID: "s2", Code: "CS102", Kind: models.SubjectKindTheory, RequiredPerWeek: 4, Year: 2, Semester: 3},
		{ID: "s3", Code: "MA201", Kind: models.SubjectKindTheory, RequiredPerWeek: 3, Year: 1, Semester: 1},
	}

	svc, store := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.NoError(t, err)
	assert.Equal(t, 10, resp.Stats.PlacedSessions)
	assert.Empty(t, resp.Conflicts)

	// re-audit of the stored schedule agrees, and auditing twice yields
	// the same result
	first := AuditConflicts(store.replaced, nil)
	second := AuditConflicts(store.replaced, nil)
	assert.Empty(t, first)
	assert.Equal(t, first, second)
}

func TestGenerateMalformedTimeAborts(t *testing.T) {
	cfg := weekConfig([]string{"Monday"}, slot("9am", "10:00"))
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, Active: true},
	}
	subjects := []models.Subject{
		{ID: "sub-x", Code: "X", Kind: models.SubjectKindTheory, RequiredPerWeek: 1, Year: 1, Semester: 1},
	}

	svc, store := newGeneratorForTest(cfg, roster, subjects)
	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrMalformedTime.Code, appErr.Code)
	assert.Zero(t, store.replaceCalls)
}

func TestGenerateEmptyConfigRejected(t *testing.T) {
	cfg := &models.TimetableConfig{ID: "cfg-1", WorkingDays: nil, TimeSlots: nil}
	svc, _ := newGeneratorForTest(cfg, nil, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateDryRunDoesNotPersist(t *testing.T) {
	cfg := weekConfig([]string{"Monday"}, slot("09:00", "10:00"))
	roster := []models.Staff{
		{ID: "p", FullName: "P", Subjects: pq.StringArray{"X"}, Active: true},
	}
	subjects := []models.Subject{
		{ID: "sub-x", Code: "X", Kind: models.SubjectKindTheory, RequiredPerWeek: 1, Year: 1, Semester: 1},
	}

	svc, store := newGeneratorForTest(cfg, roster, subjects)
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{DryRun: true})

	require.NoError(t, err)
	assert.Len(t, resp.Schedule, 1)
	assert.Zero(t, store.replaceCalls)
}

func TestAuditConflictsClassification(t *testing.T) {
	staffNames := map[string]string{"p": "Dr. Rao", "q": "Prof. Iyer"}

	t.Run("same staff overlapping", func(t *testing.T) {
		schedule := []models.ClassSchedule{
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 1, Semester: 1},
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:30", EndTime: "10:30", Year: 2, Semester: 3},
		}
		conflicts := AuditConflicts(schedule, staffNames)
		require.Len(t, conflicts, 1)
		assert.Equal(t, models.ConflictKindStaff, conflicts[0].Kind)
		assert.Contains(t, conflicts[0].Message, "Dr. Rao")
	})

	t.Run("same cohort overlapping", func(t *testing.T) {
		schedule := []models.ClassSchedule{
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 2, Semester: 3},
			{StaffID: "q", DayOfWeek: "Monday", StartTime: "09:30", EndTime: "10:30", Year: 2, Semester: 3},
		}
		conflicts := AuditConflicts(schedule, staffNames)
		require.Len(t, conflicts, 1)
		assert.Equal(t, models.ConflictKindStudent, conflicts[0].Kind)
	})

	t.Run("both kinds from one pair", func(t *testing.T) {
		schedule := []models.ClassSchedule{
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 2, Semester: 3},
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 2, Semester: 3},
		}
		conflicts := AuditConflicts(schedule, staffNames)
		assert.Len(t, conflicts, 2)
	})

	t.Run("different staff different cohort is not a conflict", func(t *testing.T) {
		schedule := []models.ClassSchedule{
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 1, Semester: 1},
			{StaffID: "q", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 2, Semester: 3},
		}
		assert.Empty(t, AuditConflicts(schedule, staffNames))
	})

	t.Run("different days never conflict", func(t *testing.T) {
		schedule := []models.ClassSchedule{
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 1, Semester: 1},
			{StaffID: "p", DayOfWeek: "Tuesday", StartTime: "09:00", EndTime: "10:00", Year: 1, Semester: 1},
		}
		assert.Empty(t, AuditConflicts(schedule, staffNames))
	})

	t.Run("touching boundaries do not overlap", func(t *testing.T) {
		schedule := []models.ClassSchedule{
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 1, Semester: 1},
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "10:00", EndTime: "11:00", Year: 1, Semester: 1},
		}
		assert.Empty(t, AuditConflicts(schedule, staffNames))
	})

	t.Run("repeated audits agree", func(t *testing.T) {
		schedule := []models.ClassSchedule{
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 1, Semester: 1},
			{StaffID: "p", DayOfWeek: "Monday", StartTime: "09:30", EndTime: "10:30", Year: 2, Semester: 3},
			{StaffID: "q", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 2, Semester: 3},
		}
		first := AuditConflicts(schedule, staffNames)
		second := AuditConflicts(schedule, staffNames)
		assert.Equal(t, first, second)
	})
}
