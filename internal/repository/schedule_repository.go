package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// ScheduleRepository persists generated placements.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new repository instance.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ReplaceForConfig swaps the stored timetable for a configuration in one
// transaction. Each generation run fully supersedes the previous one.
func (r *ScheduleRepository) ReplaceForConfig(ctx context.Context, configID string, schedules []models.ClassSchedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM class_schedules WHERE config_id = $1`, configID); err != nil {
		return fmt.Errorf("clear previous schedule: %w", err)
	}

	const insert = `INSERT INTO class_schedules (id, config_id, subject_id, staff_id, day_of_week, start_time, end_time, year, semester, section, room, created_at)
		VALUES (:id, :config_id, :subject_id, :staff_id, :day_of_week, :start_time, :end_time, :year, :semester, :section, :room, :created_at)`
	now := time.Now().UTC()
	for i := range schedules {
		if schedules[i].ID == "" {
			schedules[i].ID = uuid.NewString()
		}
		schedules[i].ConfigID = configID
		if schedules[i].CreatedAt.IsZero() {
			schedules[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, schedules[i]); err != nil {
			return fmt.Errorf("insert placement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule replace: %w", err)
	}
	return nil
}

// ListEntries returns stored placements joined with staff and subject
// labels, ordered for display.
func (r *ScheduleRepository) ListEntries(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, error) {
	base := `SELECT cs.id, cs.config_id, cs.subject_id, cs.staff_id, cs.day_of_week, cs.start_time, cs.end_time,
		cs.year, cs.semester, cs.section, cs.room, cs.created_at,
		sub.code AS subject_code, sub.name AS subject_name, st.full_name AS staff_name
		FROM class_schedules cs
		JOIN subjects sub ON sub.id = cs.subject_id
		JOIN staff st ON st.id = cs.staff_id
		WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ConfigID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.config_id = $%d", len(args)+1))
		args = append(args, filter.ConfigID)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("cs.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("cs.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("cs.day_of_week = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.StaffID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.staff_id = $%d", len(args)+1))
		args = append(args, filter.StaffID)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY cs.day_of_week ASC, cs.start_time ASC, sub.code ASC"

	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// ListForConfig returns the raw placements of a configuration, the shape
// the conflict audit works on.
func (r *ScheduleRepository) ListForConfig(ctx context.Context, configID string) ([]models.ClassSchedule, error) {
	const query = `SELECT id, config_id, subject_id, staff_id, day_of_week, start_time, end_time, year, semester, section, room, created_at FROM class_schedules WHERE config_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, configID); err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return schedules, nil
}

// CountForConfig returns how many placements a configuration holds.
func (r *ScheduleRepository) CountForConfig(ctx context.Context, configID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM class_schedules WHERE config_id = $1`, configID); err != nil {
		return 0, fmt.Errorf("count placements: %w", err)
	}
	return total, nil
}
