package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pondok-psb-api/internal/models"
)

const periodColumns = `id, name, description, start_date, end_date, is_active, quota, institution_id,
        registration_fee_items, reregistration_fee_items, registration_fee, reregistration_fee, created_at, updated_at`

// PeriodRepository handles persistence of admission periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// List returns periods ordered by start date descending.
func (r *PeriodRepository) List(ctx context.Context, filter models.PeriodFilter) ([]models.AdmissionPeriod, error) {
	query := fmt.Sprintf("SELECT %s FROM admission_periods", periodColumns)
	var conditions []string
	var args []interface{}

	if filter.InstitutionID != "" {
		conditions = append(conditions, fmt.Sprintf("institution_id = $%d", len(args)+1))
		args = append(args, filter.InstitutionID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date DESC"

	var periods []models.AdmissionPeriod
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// FindByID returns a period by its ID.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.AdmissionPeriod, error) {
	query := fmt.Sprintf("SELECT %s FROM admission_periods WHERE id = $1", periodColumns)
	var period models.AdmissionPeriod
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindActive returns the most recent active period, optionally scoped to an
// institution. Several periods may be active at once; the latest start date
// wins.
func (r *PeriodRepository) FindActive(ctx context.Context, institutionID string) (*models.AdmissionPeriod, error) {
	query := fmt.Sprintf("SELECT %s FROM admission_periods WHERE is_active = TRUE", periodColumns)
	var args []interface{}
	if institutionID != "" {
		query += " AND institution_id = $1"
		args = append(args, institutionID)
	}
	query += " ORDER BY start_date DESC LIMIT 1"

	var period models.AdmissionPeriod
	if err := r.db.GetContext(ctx, &period, query, args...); err != nil {
		return nil, err
	}
	return &period, nil
}

// Create persists a new admission period.
func (r *PeriodRepository) Create(ctx context.Context, period *models.AdmissionPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	period.CreatedAt = now
	period.UpdatedAt = now
	const query = `INSERT INTO admission_periods (id, name, description, start_date, end_date, is_active, quota, institution_id,
        registration_fee_items, reregistration_fee_items, registration_fee, reregistration_fee, created_at, updated_at)
        VALUES (:id, :name, :description, :start_date, :end_date, :is_active, :quota, :institution_id,
        :registration_fee_items, :reregistration_fee_items, :registration_fee, :reregistration_fee, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

// Update overwrites all mutable period fields, including the derived fee
// totals the service recomputed.
func (r *PeriodRepository) Update(ctx context.Context, period *models.AdmissionPeriod) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE admission_periods SET name = :name, description = :description, start_date = :start_date,
        end_date = :end_date, is_active = :is_active, quota = :quota, institution_id = :institution_id,
        registration_fee_items = :registration_fee_items, reregistration_fee_items = :reregistration_fee_items,
        registration_fee = :registration_fee, reregistration_fee = :reregistration_fee, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return nil
}

// Delete removes a period. No cascade guard exists for in-flight applicants;
// their fee snapshot keeps them consistent.
func (r *PeriodRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admission_periods WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	return nil
}
