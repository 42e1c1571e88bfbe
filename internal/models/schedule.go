package models

import "time"

// DefaultSection is the section label applied to every generated placement.
// Multi-section timetabling is out of scope; all cohorts of a year/semester
// share one conflict domain regardless of section.
const DefaultSection = "A"

// ClassSchedule is one concrete placement: a subject session assigned to a
// staff member at a specific day and time. Placements reference staff and
// subjects by identifier; the roster remains the owner of those records and
// read paths resolve display names through it.
type ClassSchedule struct {
	ID        string    `db:"id" json:"id"`
	ConfigID  string    `db:"config_id" json:"config_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	StaffID   string    `db:"staff_id" json:"staff_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Year      int       `db:"year" json:"year"`
	Semester  int       `db:"semester" json:"semester"`
	Section   string    `db:"section" json:"section"`
	Room      *string   `db:"room" json:"room,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScheduleEntry is a placement joined with its staff and subject labels for
// display and export.
type ScheduleEntry struct {
	ClassSchedule
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	StaffName   string `db:"staff_name" json:"staff_name"`
}

// ScheduleFilter narrows stored placements for listing and export.
type ScheduleFilter struct {
	ConfigID string
	Year     int
	Semester int
	Day      string
	StaffID  string
}

// ConflictKind classifies a reported overlap.
type ConflictKind string

const (
	ConflictKindStaff   ConflictKind = "staff"
	ConflictKindStudent ConflictKind = "student"
)

// ConflictCheck is a reported overlap between two placements. Conflicts are
// recomputed on every audit and never persisted.
type ConflictCheck struct {
	Kind    ConflictKind `json:"kind"`
	Message string       `json:"message"`
}

// GenerationStats accounts for how much of the requested weekly demand the
// generator could place. Full placement is never guaranteed; callers present
// "placed of requested" to the user.
type GenerationStats struct {
	RequestedSessions int      `json:"requested_sessions"`
	PlacedSessions    int      `json:"placed_sessions"`
	UnplacedSessions  int      `json:"unplaced_sessions"`
	SkippedSubjects   []string `json:"skipped_subjects,omitempty"`
}
