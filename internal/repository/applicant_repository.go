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

const applicantColumns = `id, registration_number, full_name, gender, birth_place, birth_date, address, phone, email,
        guardian_name, guardian_phone, previous_school, period_id, track, payment_proof_url,
        registration_fee, registration_fee_items, reregistration_fee_items,
        status, payment_status, reregistration_status, payment_verified_at, payment_verified_by,
        reregistration_verified_at, assigned_institution_id, assigned_class_id, assigned_at, assigned_by,
        student_id, created_at, updated_at`

// ApplicantRepository handles persistence of admission registrations.
type ApplicantRepository struct {
	db *sqlx.DB
}

// NewApplicantRepository constructs the repository.
func NewApplicantRepository(db *sqlx.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

// Create persists a new applicant record.
func (r *ApplicantRepository) Create(ctx context.Context, applicant *models.Applicant) error {
	if applicant.ID == "" {
		applicant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	applicant.CreatedAt = now
	applicant.UpdatedAt = now
	const query = `INSERT INTO applicants (id, registration_number, full_name, gender, birth_place, birth_date, address, phone, email,
        guardian_name, guardian_phone, previous_school, period_id, track, payment_proof_url,
        registration_fee, registration_fee_items, reregistration_fee_items,
        status, payment_status, reregistration_status, created_at, updated_at)
        VALUES (:id, :registration_number, :full_name, :gender, :birth_place, :birth_date, :address, :phone, :email,
        :guardian_name, :guardian_phone, :previous_school, :period_id, :track, :payment_proof_url,
        :registration_fee, :registration_fee_items, :reregistration_fee_items,
        :status, :payment_status, :reregistration_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, applicant); err != nil {
		return fmt.Errorf("create applicant: %w", err)
	}
	return nil
}

// FindByID returns an applicant by its ID.
func (r *ApplicantRepository) FindByID(ctx context.Context, id string) (*models.Applicant, error) {
	query := fmt.Sprintf("SELECT %s FROM applicants WHERE id = $1", applicantColumns)
	var applicant models.Applicant
	if err := r.db.GetContext(ctx, &applicant, query, id); err != nil {
		return nil, err
	}
	return &applicant, nil
}

// List returns applicants filtered by the provided criteria with total count.
func (r *ApplicantRepository) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error) {
	base := "FROM applicants WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("period_id = $%d", len(args)+1))
		args = append(args, filter.PeriodID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR registration_number ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":          "created_at",
		"registration_number": "registration_number",
		"full_name":           "full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		applicantColumns, base+clause, orderBy, order, size, offset)

	var applicants []models.Applicant
	if err := r.db.SelectContext(ctx, &applicants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applicants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applicants: %w", err)
	}
	return applicants, total, nil
}

// UpdatePaymentVerification updates the payment axis and lifecycle status.
func (r *ApplicantRepository) UpdatePaymentVerification(ctx context.Context, id string, payment models.PaymentStatus, status models.ApplicantStatus, verifiedAt *time.Time, verifiedBy *string) error {
	const query = `UPDATE applicants SET payment_status = $2, status = $3, payment_verified_at = $4, payment_verified_by = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, payment, status, verifiedAt, verifiedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("update payment verification: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the lifecycle status.
func (r *ApplicantRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicantStatus) error {
	const query = `UPDATE applicants SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update applicant status: %w", err)
	}
	return nil
}

// UpdateAssignment binds the applicant to an institution and class.
func (r *ApplicantRepository) UpdateAssignment(ctx context.Context, id, institutionID, classID string, assignedAt time.Time, assignedBy *string) error {
	const query = `UPDATE applicants SET assigned_institution_id = $2, assigned_class_id = $3, assigned_at = $4, assigned_by = $5,
        status = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, institutionID, classID, assignedAt, assignedBy, models.ApplicantStatusAssigned, time.Now().UTC()); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// UpdateReregistration resets the re-registration axis (the rejected
// branch; the verified branch runs inside the conversion transaction).
func (r *ApplicantRepository) UpdateReregistration(ctx context.Context, id string, rereg models.ReregistrationStatus, status models.ApplicantStatus) error {
	const query = `UPDATE applicants SET reregistration_status = $2, status = $3, reregistration_verified_at = NULL, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rereg, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update reregistration: %w", err)
	}
	return nil
}

// UpdatePaymentProof stamps the uploaded proof reference and payment axis.
func (r *ApplicantRepository) UpdatePaymentProof(ctx context.Context, id, proofURL string, payment models.PaymentStatus) error {
	const query = `UPDATE applicants SET payment_proof_url = $2, payment_status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, proofURL, payment, time.Now().UTC()); err != nil {
		return fmt.Errorf("update payment proof: %w", err)
	}
	return nil
}
