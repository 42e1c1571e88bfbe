package dto

import "github.com/acadops/timetable-api/internal/models"

// GenerateTimetableRequest triggers a generation run. ConfigID is optional;
// when empty the active configuration is used.
type GenerateTimetableRequest struct {
	ConfigID string `json:"config_id"`
	DryRun   bool   `json:"dry_run"`
}

// GenerateTimetableResponse returns the produced schedule together with the
// placement accounting and a post-generation conflict audit.
type GenerateTimetableResponse struct {
	ConfigID  string                 `json:"config_id"`
	Schedule  []models.ScheduleEntry `json:"schedule"`
	Stats     models.GenerationStats `json:"stats"`
	Conflicts []models.ConflictCheck `json:"conflicts"`
}

// TimetableQuery filters the stored schedule by cohort.
type TimetableQuery struct {
	Year     int    `form:"year"`
	Semester int    `form:"semester"`
	Day      string `form:"day"`
}

// GridCell is one rendered timetable cell.
type GridCell struct {
	SubjectCode string  `json:"subject_code"`
	SubjectName string  `json:"subject_name"`
	StaffName   string  `json:"staff_name"`
	Room        *string `json:"room,omitempty"`
}

// TimetableGrid shapes the schedule for display: one row per slot template,
// one column per working day.
type TimetableGrid struct {
	AcademicYear string                          `json:"academic_year"`
	Days         []string                        `json:"days"`
	SlotLabels   []string                        `json:"slot_labels"`
	Cells        map[string]map[string]*GridCell `json:"cells"`
}

// UpsertConfigRequest replaces the active timetable configuration.
type UpsertConfigRequest struct {
	AcademicYear string            `json:"academic_year" validate:"required"`
	WorkingDays  []string          `json:"working_days" validate:"required,min=1,dive,required"`
	TimeSlots    []TimeSlotPayload `json:"time_slots" validate:"required,min=1,dive"`
	BreakSlots   []TimeSlotPayload `json:"break_slots" validate:"omitempty,dive"`
}

// TimeSlotPayload carries one slot template or break window.
type TimeSlotPayload struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ExportRequest queues a timetable export.
type ExportRequest struct {
	Format   string `json:"format" validate:"required,oneof=csv pdf"`
	Year     int    `json:"year" validate:"min=0"`
	Semester int    `json:"semester" validate:"min=0"`
}

// ExportJobResponse acknowledges a queued export.
type ExportJobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// ExportStatusResponse reports job progress and, once finished, the signed
// download URL.
type ExportStatusResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Progress  int     `json:"progress"`
	ResultURL *string `json:"result_url,omitempty"`
	Error     *string `json:"error,omitempty"`
}
