package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pondok-psb-api/internal/models"
)

var applicantRowColumns = []string{
	"id", "registration_number", "full_name", "gender", "birth_place", "birth_date", "address", "phone", "email",
	"guardian_name", "guardian_phone", "previous_school", "period_id", "track", "payment_proof_url",
	"registration_fee", "registration_fee_items", "reregistration_fee_items",
	"status", "payment_status", "reregistration_status", "payment_verified_at", "payment_verified_by",
	"reregistration_verified_at", "assigned_institution_id", "assigned_class_id", "assigned_at", "assigned_by",
	"student_id", "created_at", "updated_at",
}

func sampleApplicantRow() []driver.Value {
	now := time.Now()
	return []driver.Value{
		"app-1", "PSB-2026-0001", "Ahmad Fauzi", "M", "Bandung", now.AddDate(-14, 0, 0), "Jl. Merdeka 1", "08123456789", nil,
		"Budi Fauzi", "08198765432", nil, "period-1", nil, nil,
		int64(200000), []byte(`{"formulir":150000,"seragam":50000}`), []byte(`{"daftar_ulang":500000}`),
		string(models.ApplicantStatusPending), string(models.PaymentStatusUnpaid), "", nil, nil,
		nil, nil, nil, nil, nil,
		nil, now, now,
	}
}

func TestApplicantRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectExec("INSERT INTO applicants").
		WillReturnResult(sqlmock.NewResult(1, 1))

	applicant := &models.Applicant{
		RegistrationNumber: "PSB-2026-0001",
		FullName:           "Ahmad Fauzi",
		Gender:             "M",
		BirthPlace:         "Bandung",
		BirthDate:          time.Now().AddDate(-14, 0, 0),
		Address:            "Jl. Merdeka 1",
		Phone:              "08123456789",
		GuardianName:       "Budi Fauzi",
		GuardianPhone:      "08198765432",
		Status:             models.ApplicantStatusPending,
		PaymentStatus:      models.PaymentStatusUnpaid,
	}
	require.NoError(t, repo.Create(context.Background(), applicant))
	assert.NotEmpty(t, applicant.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM applicants WHERE id = \\$1").
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(applicantRowColumns).AddRow(sampleApplicantRow()...))

	applicant, err := repo.FindByID(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "PSB-2026-0001", applicant.RegistrationNumber)
	assert.Equal(t, int64(150000), applicant.RegistrationFeeItems["formulir"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM applicants WHERE 1=1 AND period_id = \\$1 AND status = \\$2 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("period-1", models.ApplicantStatusPending).
		WillReturnRows(sqlmock.NewRows(applicantRowColumns).AddRow(sampleApplicantRow()...))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM applicants WHERE 1=1 AND period_id = \\$1 AND status = \\$2").
		WithArgs("period-1", models.ApplicantStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	applicants, total, err := repo.List(context.Background(), models.ApplicantFilter{
		PeriodID: "period-1",
		Status:   models.ApplicantStatusPending,
	})
	require.NoError(t, err)
	assert.Len(t, applicants, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryUpdatePaymentVerification(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	now := time.Now().UTC()
	verifier := "staff-1"
	mock.ExpectExec("UPDATE applicants SET payment_status = \\$2, status = \\$3, payment_verified_at = \\$4, payment_verified_by = \\$5").
		WithArgs("app-1", models.PaymentStatusVerified, models.ApplicantStatusPaymentVerified, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePaymentVerification(context.Background(), "app-1", models.PaymentStatusVerified, models.ApplicantStatusPaymentVerified, &now, &verifier)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryUpdateAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	assignedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE applicants SET assigned_institution_id = \\$2, assigned_class_id = \\$3").
		WithArgs("app-1", "inst-1", "class-7a", assignedAt, nil, models.ApplicantStatusAssigned, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAssignment(context.Background(), "app-1", "inst-1", "class-7a", assignedAt, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryUpdateReregistration(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectExec("UPDATE applicants SET reregistration_status = \\$2, status = \\$3, reregistration_verified_at = NULL").
		WithArgs("app-1", models.ReregistrationStatusUnpaid, models.ApplicantStatusAssigned, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateReregistration(context.Background(), "app-1", models.ReregistrationStatusUnpaid, models.ApplicantStatusAssigned)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryUpdatePaymentProof(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicantRepository(db)

	mock.ExpectExec("UPDATE applicants SET payment_proof_url = \\$2, payment_status = \\$3").
		WithArgs("app-1", "uploads/app-1/proof.png", models.PaymentStatusPaid, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePaymentProof(context.Background(), "app-1", "uploads/app-1/proof.png", models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
