package models

import (
	"time"

	"github.com/lib/pq"
)

// Staff represents a faculty member on the roster.
type Staff struct {
	ID             string         `db:"id" json:"id"`
	FullName       string         `db:"full_name" json:"full_name"`
	Email          *string        `db:"email" json:"email,omitempty"`
	Subjects       pq.StringArray `db:"subjects" json:"subjects"`
	MaxHoursPerDay *int           `db:"max_hours_per_day" json:"max_hours_per_day,omitempty"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Teaches reports whether the staff member is declared for the given
// subject. Declared labels may carry either a subject code or a subject
// name, so both keys qualify.
func (s Staff) Teaches(subject Subject) bool {
	for _, label := range s.Subjects {
		if label == subject.Code || label == subject.Name {
			return true
		}
	}
	return false
}

// StaffFilter captures filtering options for listing staff.
type StaffFilter struct {
	Search    string
	Active    *bool
	Subject   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
