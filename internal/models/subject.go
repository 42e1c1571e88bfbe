package models

import "time"

// SubjectKind categorises how a subject's sessions are delivered.
type SubjectKind string

const (
	SubjectKindTheory    SubjectKind = "theory"
	SubjectKindLab       SubjectKind = "lab"
	SubjectKindPractical SubjectKind = "practical"
)

// Subject represents a course requiring weekly sessions.
type Subject struct {
	ID              string      `db:"id" json:"id"`
	Code            string      `db:"code" json:"code"`
	Name            string      `db:"name" json:"name"`
	Kind            SubjectKind `db:"kind" json:"kind"`
	DurationHours   int         `db:"duration_hours" json:"duration_hours"`
	RequiredPerWeek int         `db:"required_per_week" json:"required_per_week"`
	Year            int         `db:"year" json:"year"`
	Semester        int         `db:"semester" json:"semester"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// IsLab reports whether the subject claims lab priority during placement.
func (s Subject) IsLab() bool {
	return s.Kind == SubjectKindLab
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Year      int
	Semester  int
	Kind      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
