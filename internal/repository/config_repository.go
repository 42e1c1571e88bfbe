package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/acadops/timetable-api/internal/models"
)

// ConfigRepository persists timetable configurations. Slot lists are stored
// as JSONB so the template shape can evolve without migrations.
type ConfigRepository struct {
	db *sqlx.DB
}

// NewConfigRepository creates a new repository instance.
func NewConfigRepository(db *sqlx.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

type configRow struct {
	ID           string         `db:"id"`
	AcademicYear string         `db:"academic_year"`
	WorkingDays  pq.StringArray `db:"working_days"`
	TimeSlots    types.JSONText `db:"time_slots"`
	BreakSlots   types.JSONText `db:"break_slots"`
	Active       bool           `db:"active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (row configRow) toModel() (*models.TimetableConfig, error) {
	cfg := &models.TimetableConfig{
		ID:           row.ID,
		AcademicYear: row.AcademicYear,
		WorkingDays:  row.WorkingDays,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.TimeSlots) > 0 {
		if err := json.Unmarshal(row.TimeSlots, &cfg.TimeSlots); err != nil {
			return nil, fmt.Errorf("decode time slots: %w", err)
		}
	}
	if len(row.BreakSlots) > 0 {
		if err := json.Unmarshal(row.BreakSlots, &cfg.BreakSlots); err != nil {
			return nil, fmt.Errorf("decode break slots: %w", err)
		}
	}
	return cfg, nil
}

// FindActive returns the configuration currently driving generation.
func (r *ConfigRepository) FindActive(ctx context.Context) (*models.TimetableConfig, error) {
	const query = `SELECT id, academic_year, working_days, time_slots, break_slots, active, created_at, updated_at FROM timetable_configs WHERE active = TRUE ORDER BY updated_at DESC LIMIT 1`
	var row configRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, err
	}
	return row.toModel()
}

// FindByID returns a configuration by id.
func (r *ConfigRepository) FindByID(ctx context.Context, id string) (*models.TimetableConfig, error) {
	const query = `SELECT id, academic_year, working_days, time_slots, break_slots, active, created_at, updated_at FROM timetable_configs WHERE id = $1`
	var row configRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Upsert stores the configuration and marks it the active one. Any
// previously active configuration is retired inside the same transaction.
func (r *ConfigRepository) Upsert(ctx context.Context, cfg *models.TimetableConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	timeSlots, err := json.Marshal(cfg.TimeSlots)
	if err != nil {
		return fmt.Errorf("encode time slots: %w", err)
	}
	breakSlots, err := json.Marshal(cfg.BreakSlots)
	if err != nil {
		return fmt.Errorf("encode break slots: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin config upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE timetable_configs SET active = FALSE, updated_at = $1 WHERE active = TRUE AND id <> $2`, now, cfg.ID); err != nil {
		return fmt.Errorf("retire previous config: %w", err)
	}

	const query = `INSERT INTO timetable_configs (id, academic_year, working_days, time_slots, break_slots, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
		ON CONFLICT (id) DO UPDATE SET academic_year = EXCLUDED.academic_year, working_days = EXCLUDED.working_days, time_slots = EXCLUDED.time_slots, break_slots = EXCLUDED.break_slots, active = TRUE, updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, query, cfg.ID, cfg.AcademicYear, pq.StringArray(cfg.WorkingDays), types.JSONText(timeSlots), types.JSONText(breakSlots), cfg.CreatedAt, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("upsert config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit config upsert: %w", err)
	}
	return nil
}
