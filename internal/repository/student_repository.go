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

const studentColumns = `id, nis, applicant_id, full_name, gender, birth_place, birth_date, address, phone,
        guardian_name, guardian_phone, previous_school, institution_id, class_id, status, entry_date, created_at, updated_at`

// StudentRepository handles persistence of enrolled students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students based on filters with total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.InstitutionID != "" {
		conditions = append(conditions, fmt.Sprintf("institution_id = $%d", len(args)+1))
		args = append(args, filter.InstitutionID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR nis ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at"
	if filter.SortBy == "nis" || filter.SortBy == "full_name" {
		orderBy = filter.SortBy
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
		studentColumns, base+clause, orderBy, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// CreateWithApplicantLink materializes a student and back-links it to the
// source applicant in a single transaction. The NIS is allocated from the
// year-scoped sequence inside the same transaction, so a failure anywhere
// leaves no orphaned student and no burned back-link.
func (r *StudentRepository) CreateWithApplicantLink(ctx context.Context, student *models.Student, applicantID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conversion transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	year := student.EntryDate.Year()
	seq, err := nextSequence(ctx, tx, SequenceNIS, year)
	if err != nil {
		return err
	}
	student.NIS = fmt.Sprintf("%d%04d", year, seq)

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.ApplicantID = &applicantID
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const insertQuery = `INSERT INTO students (id, nis, applicant_id, full_name, gender, birth_place, birth_date, address, phone,
        guardian_name, guardian_phone, previous_school, institution_id, class_id, status, entry_date, created_at, updated_at)
        VALUES (:id, :nis, :applicant_id, :full_name, :gender, :birth_place, :birth_date, :address, :phone,
        :guardian_name, :guardian_phone, :previous_school, :institution_id, :class_id, :status, :entry_date, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	const linkQuery = `UPDATE applicants SET student_id = $2, status = $3, reregistration_status = $4,
        reregistration_verified_at = COALESCE(reregistration_verified_at, $5), updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, linkQuery, applicantID, student.ID,
		models.ApplicantStatusConfirmed, models.ReregistrationStatusVerified, now); err != nil {
		return fmt.Errorf("link student to applicant: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit conversion: %w", err)
	}
	return nil
}
