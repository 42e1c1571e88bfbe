package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/acadops/timetable-api/internal/models"
)

// StaffRepository handles persistence for the staff roster.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new repository instance.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// List returns staff matching filters with pagination metadata.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error) {
	base := "FROM staff WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(subjects)", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(COALESCE(email, '')) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"full_name":  true,
		"email":      true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, full_name, email, subjects, max_hours_per_day, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}

	return staff, total, nil
}

// ListActive returns the full active roster in insertion order. The
// generator depends on this ordering for its stable tie-breaks.
func (r *StaffRepository) ListActive(ctx context.Context) ([]models.Staff, error) {
	const query = `SELECT id, full_name, email, subjects, max_hours_per_day, active, created_at, updated_at FROM staff WHERE active = TRUE ORDER BY created_at ASC`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	return staff, nil
}

// FindByID returns a staff member by id.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	const query = `SELECT id, full_name, email, subjects, max_hours_per_day, active, created_at, updated_at FROM staff WHERE id = $1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// Create persists a new staff member.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	staff.UpdatedAt = now
	if staff.Subjects == nil {
		staff.Subjects = pq.StringArray{}
	}

	const query = `INSERT INTO staff (id, full_name, email, subjects, max_hours_per_day, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, staff.ID, staff.FullName, staff.Email, staff.Subjects, staff.MaxHoursPerDay, staff.Active, staff.CreatedAt, staff.UpdatedAt); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// Update modifies a staff member.
func (r *StaffRepository) Update(ctx context.Context, staff *models.Staff) error {
	staff.UpdatedAt = time.Now().UTC()
	if staff.Subjects == nil {
		staff.Subjects = pq.StringArray{}
	}
	const query = `UPDATE staff SET full_name = $2, email = $3, subjects = $4, max_hours_per_day = $5, active = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, staff.ID, staff.FullName, staff.Email, staff.Subjects, staff.MaxHoursPerDay, staff.Active, staff.UpdatedAt); err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a staff member so historical placements keep
// resolving.
func (r *StaffRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE staff SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate staff: %w", err)
	}
	return nil
}
