package models

import "time"

// TimeSlot is a bounded interval, optionally bound to a day. Slot templates
// in a TimetableConfig leave Day empty; the generator materialises them onto
// each working day. Break slots carry the day they apply to, or an empty day
// to apply on every working day.
type TimeSlot struct {
	Day           string  `json:"day,omitempty"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	DurationHours float64 `json:"duration_hours"`
}

// On returns a copy of the slot bound to the given day.
func (t TimeSlot) On(day string) TimeSlot {
	t.Day = day
	return t
}

// TimetableConfig holds institution-wide scheduling parameters.
type TimetableConfig struct {
	ID           string     `json:"id"`
	AcademicYear string     `json:"academic_year"`
	WorkingDays  []string   `json:"working_days"`
	TimeSlots    []TimeSlot `json:"time_slots"`
	BreakSlots   []TimeSlot `json:"break_slots,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
