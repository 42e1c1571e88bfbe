package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/timeutil"
)

// GeneratorConfigProvider resolves the configuration a run operates on.
type GeneratorConfigProvider interface {
	FindActive(ctx context.Context) (*models.TimetableConfig, error)
	FindByID(ctx context.Context, id string) (*models.TimetableConfig, error)
}

// GeneratorStaffProvider supplies the active roster.
type GeneratorStaffProvider interface {
	ListActive(ctx context.Context) ([]models.Staff, error)
}

// GeneratorSubjectProvider supplies the subject catalogue.
type GeneratorSubjectProvider interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

// GeneratorScheduleStore persists the produced timetable.
type GeneratorScheduleStore interface {
	ReplaceForConfig(ctx context.Context, configID string, schedules []models.ClassSchedule) error
}

// GeneratorMetricsRecorder captures generation outcomes.
type GeneratorMetricsRecorder interface {
	ObserveGeneration(placed, unplaced int, duration time.Duration)
}

// TimetableGeneratorService builds a weekly timetable from the active
// configuration, roster, and subject catalogue in a single greedy pass.
// Harder subjects claim slots first; sessions that cannot be placed are
// dropped and accounted for rather than failing the run.
type TimetableGeneratorService struct {
	configs   GeneratorConfigProvider
	staff     GeneratorStaffProvider
	subjects  GeneratorSubjectProvider
	schedules GeneratorScheduleStore
	metrics   GeneratorMetricsRecorder
	cache     CacheInvalidator
	logger    *zap.Logger
}

// NewTimetableGeneratorService wires a generator service.
func NewTimetableGeneratorService(
	configs GeneratorConfigProvider,
	staff GeneratorStaffProvider,
	subjects GeneratorSubjectProvider,
	schedules GeneratorScheduleStore,
	metrics GeneratorMetricsRecorder,
	cache CacheInvalidator,
	logger *zap.Logger,
) *TimetableGeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableGeneratorService{
		configs:   configs,
		staff:     staff,
		subjects:  subjects,
		schedules: schedules,
		metrics:   metrics,
		cache:     cache,
		logger:    logger,
	}
}

// compiledSlot is a slot template with its times already parsed so the
// search loops never touch strings. Parsing happens once up front; a bad
// time string aborts the run before any placement is attempted.
type compiledSlot struct {
	startTime string
	endTime   string
	startMin  int
	endMin    int
	hours     float64
}

type compiledBreak struct {
	day      string
	startMin int
	endMin   int
}

// placement mirrors one accumulated ClassSchedule with pre-parsed minute
// offsets. The accumulator is created fresh per run and owned by it alone.
type placement struct {
	staffID  string
	year     int
	semester int
	day      string
	startMin int
	endMin   int
	hours    float64
}

type runState struct {
	placements []placement
	staffLoad  map[string]int
	// staffDayHours accumulates assigned hours per staff per day for the
	// daily cap check, keyed "staffID|day".
	staffDayHours map[string]float64
}

func newRunState() *runState {
	return &runState{
		staffLoad:     make(map[string]int),
		staffDayHours: make(map[string]float64),
	}
}

func (s *runState) add(p placement) {
	s.placements = append(s.placements, p)
	s.staffLoad[p.staffID]++
	s.staffDayHours[p.staffID+"|"+p.day] += p.hours
}

// Generate runs one synchronous generation pass and replaces the stored
// timetable for the configuration unless the request is a dry run.
func (s *TimetableGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	started := time.Now()

	cfg, err := s.resolveConfig(ctx, req.ConfigID)
	if err != nil {
		return nil, err
	}
	if len(cfg.WorkingDays) == 0 || len(cfg.TimeSlots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "configuration needs at least one working day and one time slot")
	}

	slots, err := compileSlots(cfg.TimeSlots)
	if err != nil {
		return nil, err
	}
	breaks, err := compileBreaks(cfg.BreakSlots)
	if err != nil {
		return nil, err
	}

	roster, err := s.staff.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load staff roster")
	}
	catalogue, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load subject catalogue")
	}

	ordered := prioritizeSubjects(catalogue)
	state := newRunState()
	var produced []models.ClassSchedule
	stats := models.GenerationStats{}

	for _, subject := range ordered {
		stats.RequestedSessions += subject.RequiredPerWeek

		candidates := qualifiedStaff(subject, roster)
		if len(candidates) == 0 {
			stats.UnplacedSessions += subject.RequiredPerWeek
			stats.SkippedSubjects = append(stats.SkippedSubjects, subject.Code)
			s.logger.Warn("no qualified staff for subject, skipping",
				zap.String("subject_code", subject.Code))
			continue
		}

		// One staff member carries every session of the subject for the
		// week; the pick happens once, before the per-session loop.
		assignee := pickLeastLoaded(candidates, state)

		for i := 0; i < subject.RequiredPerWeek; i++ {
			slot, found := findSlot(assignee, subject, cfg.WorkingDays, slots, breaks, state)
			if !found {
				stats.UnplacedSessions++
				continue
			}
			produced = append(produced, models.ClassSchedule{
				ConfigID:  cfg.ID,
				SubjectID: subject.ID,
				StaffID:   assignee.ID,
				DayOfWeek: slot.day,
				StartTime: slot.startTime,
				EndTime:   slot.endTime,
				Year:      subject.Year,
				Semester:  subject.Semester,
				Section:   models.DefaultSection,
			})
			state.add(placement{
				staffID:  assignee.ID,
				year:     subject.Year,
				semester: subject.Semester,
				day:      slot.day,
				startMin: slot.startMin,
				endMin:   slot.endMin,
				hours:    slot.hours,
			})
			stats.PlacedSessions++
		}
	}

	staffNames := make(map[string]string, len(roster))
	for _, st := range roster {
		staffNames[st.ID] = st.FullName
	}
	conflicts := AuditConflicts(produced, staffNames)

	if !req.DryRun {
		if err := s.schedules.ReplaceForConfig(ctx, cfg.ID, produced); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store generated timetable")
		}
		if s.cache != nil {
			if err := s.cache.InvalidateTimetables(ctx); err != nil {
				s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
			}
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveGeneration(stats.PlacedSessions, stats.UnplacedSessions, time.Since(started))
	}
	s.logger.Info("timetable generated",
		zap.String("config_id", cfg.ID),
		zap.Int("requested", stats.RequestedSessions),
		zap.Int("placed", stats.PlacedSessions),
		zap.Int("unplaced", stats.UnplacedSessions),
		zap.Int("conflicts", len(conflicts)),
		zap.Bool("dry_run", req.DryRun),
		zap.Duration("duration", time.Since(started)))

	subjectsByID := make(map[string]models.Subject, len(catalogue))
	for _, sub := range catalogue {
		subjectsByID[sub.ID] = sub
	}
	entries := make([]models.ScheduleEntry, 0, len(produced))
	for _, cs := range produced {
		sub := subjectsByID[cs.SubjectID]
		entries = append(entries, models.ScheduleEntry{
			ClassSchedule: cs,
			SubjectCode:   sub.Code,
			SubjectName:   sub.Name,
			StaffName:     staffNames[cs.StaffID],
		})
	}

	return &dto.GenerateTimetableResponse{
		ConfigID:  cfg.ID,
		Schedule:  entries,
		Stats:     stats,
		Conflicts: conflicts,
	}, nil
}

func (s *TimetableGeneratorService) resolveConfig(ctx context.Context, id string) (*models.TimetableConfig, error) {
	var cfg *models.TimetableConfig
	var err error
	if id != "" {
		cfg, err = s.configs.FindByID(ctx, id)
	} else {
		cfg, err = s.configs.FindActive(ctx)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load configuration")
	}
	return cfg, nil
}

func compileSlots(templates []models.TimeSlot) ([]compiledSlot, error) {
	out := make([]compiledSlot, 0, len(templates))
	for _, tpl := range templates {
		start, err := timeutil.ToMinutes(tpl.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("time slot start %q is not HH:MM", tpl.StartTime))
		}
		end, err := timeutil.ToMinutes(tpl.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("time slot end %q is not HH:MM", tpl.EndTime))
		}
		out = append(out, compiledSlot{
			startTime: tpl.StartTime,
			endTime:   tpl.EndTime,
			startMin:  start,
			endMin:    end,
			hours:     float64(end-start) / 60.0,
		})
	}
	return out, nil
}

func compileBreaks(entries []models.TimeSlot) ([]compiledBreak, error) {
	out := make([]compiledBreak, 0, len(entries))
	for _, br := range entries {
		start, err := timeutil.ToMinutes(br.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("break start %q is not HH:MM", br.StartTime))
		}
		end, err := timeutil.ToMinutes(br.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("break end %q is not HH:MM", br.EndTime))
		}
		out = append(out, compiledBreak{day: br.Day, startMin: start, endMin: end})
	}
	return out, nil
}

// prioritizeSubjects orders the catalogue hardest-to-place first: higher
// years before lower, labs before other kinds within a year, then higher
// weekly demand. The sort is stable so catalogue order breaks ties.
func prioritizeSubjects(catalogue []models.Subject) []models.Subject {
	ordered := make([]models.Subject, len(catalogue))
	copy(ordered, catalogue)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.IsLab() != b.IsLab() {
			return a.IsLab()
		}
		return a.RequiredPerWeek > b.RequiredPerWeek
	})
	return ordered
}

// qualifiedStaff filters the roster to members declared for the subject,
// preserving roster order.
func qualifiedStaff(subject models.Subject, roster []models.Staff) []models.Staff {
	var out []models.Staff
	for _, st := range roster {
		if st.Teaches(subject) {
			out = append(out, st)
		}
	}
	return out
}

// pickLeastLoaded returns the candidate with the fewest placements so far.
// Ties resolve to the earliest-listed candidate.
func pickLeastLoaded(candidates []models.Staff, state *runState) models.Staff {
	best := candidates[0]
	bestLoad := state.staffLoad[best.ID]
	for _, c := range candidates[1:] {
		if load := state.staffLoad[c.ID]; load < bestLoad {
			best, bestLoad = c, load
		}
	}
	return best
}

type foundSlot struct {
	day       string
	startTime string
	endTime   string
	startMin  int
	endMin    int
	hours     float64
}

// findSlot scans working days in configured order and, within each day,
// the slot templates in configured order, returning the first candidate
// that passes every predicate. Exhausting the search is a normal
// saturation outcome, not an error.
func findSlot(staff models.Staff, subject models.Subject, days []string, slots []compiledSlot, breaks []compiledBreak, state *runState) (foundSlot, bool) {
	for _, day := range days {
		for _, slot := range slots {
			if hasStaffConflict(staff.ID, day, slot, state) {
				continue
			}
			if hasCohortConflict(subject.Year, subject.Semester, day, slot, state) {
				continue
			}
			if overlapsBreak(day, slot, breaks) {
				continue
			}
			if exceedsDailyCap(staff, day, slot, state) {
				continue
			}
			return foundSlot{
				day:       day,
				startTime: slot.startTime,
				endTime:   slot.endTime,
				startMin:  slot.startMin,
				endMin:    slot.endMin,
				hours:     slot.hours,
			}, true
		}
	}
	return foundSlot{}, false
}

func hasStaffConflict(staffID, day string, slot compiledSlot, state *runState) bool {
	for _, p := range state.placements {
		if p.staffID == staffID && p.day == day && timeutil.Overlaps(slot.startMin, slot.endMin, p.startMin, p.endMin) {
			return true
		}
	}
	return false
}

// hasCohortConflict checks the student side: all sections of a year and
// semester share one conflict domain.
func hasCohortConflict(year, semester int, day string, slot compiledSlot, state *runState) bool {
	for _, p := range state.placements {
		if p.year == year && p.semester == semester && p.day == day && timeutil.Overlaps(slot.startMin, slot.endMin, p.startMin, p.endMin) {
			return true
		}
	}
	return false
}

// overlapsBreak rejects slots crossing a break window. A break with an
// empty day applies to every working day.
func overlapsBreak(day string, slot compiledSlot, breaks []compiledBreak) bool {
	for _, br := range breaks {
		if br.day != "" && br.day != day {
			continue
		}
		if timeutil.Overlaps(slot.startMin, slot.endMin, br.startMin, br.endMin) {
			return true
		}
	}
	return false
}

// exceedsDailyCap enforces the optional per-staff daily hour limit.
func exceedsDailyCap(staff models.Staff, day string, slot compiledSlot, state *runState) bool {
	if staff.MaxHoursPerDay == nil {
		return false
	}
	assigned := state.staffDayHours[staff.ID+"|"+day]
	return assigned+slot.hours > float64(*staff.MaxHoursPerDay)
}

// AuditConflicts examines every unordered pair of placements and reports
// same-day overlaps: a staff conflict when both placements share a staff
// member, a student conflict when both target the same year and semester.
// A pair can yield both, either, or neither. The audit is diagnostic only
// and may be run against any schedule, including hand-edited ones.
func AuditConflicts(schedule []models.ClassSchedule, staffNames map[string]string) []models.ConflictCheck {
	type parsed struct {
		models.ClassSchedule
		startMin int
		endMin   int
	}
	items := make([]parsed, 0, len(schedule))
	for _, cs := range schedule {
		start, err := timeutil.ToMinutes(cs.StartTime)
		if err != nil {
			continue
		}
		end, err := timeutil.ToMinutes(cs.EndTime)
		if err != nil {
			continue
		}
		items = append(items, parsed{ClassSchedule: cs, startMin: start, endMin: end})
	}

	var conflicts []models.ConflictCheck
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.DayOfWeek != b.DayOfWeek {
				continue
			}
			if !timeutil.Overlaps(a.startMin, a.endMin, b.startMin, b.endMin) {
				continue
			}
			if a.StaffID == b.StaffID {
				name := staffNames[a.StaffID]
				if name == "" {
					name = a.StaffID
				}
				conflicts = append(conflicts, models.ConflictCheck{
					Kind:    models.ConflictKindStaff,
					Message: fmt.Sprintf("%s is double-booked on %s at %s-%s and %s-%s", name, a.DayOfWeek, a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				})
			}
			if a.Year == b.Year && a.Semester == b.Semester {
				conflicts = append(conflicts, models.ConflictCheck{
					Kind:    models.ConflictKindStudent,
					Message: fmt.Sprintf("year %d semester %d has overlapping classes on %s at %s-%s and %s-%s", a.Year, a.Semester, a.DayOfWeek, a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				})
			}
		}
	}
	return conflicts
}
