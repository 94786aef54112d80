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

var periodRowColumns = []string{
	"id", "name", "description", "start_date", "end_date", "is_active", "quota", "institution_id",
	"registration_fee_items", "reregistration_fee_items", "registration_fee", "reregistration_fee",
	"created_at", "updated_at",
}

func samplePeriodRow() []driver.Value {
	now := time.Now()
	return []driver.Value{
		"period-1", "Gelombang 1", nil, now, now.AddDate(0, 3, 0), true, nil, "inst-1",
		[]byte(`{"formulir":150000,"seragam":50000}`), []byte(`{"daftar_ulang":500000}`),
		int64(200000), int64(500000), now, now,
	}
}

func TestPeriodRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM admission_periods ORDER BY start_date DESC").
		WillReturnRows(sqlmock.NewRows(periodRowColumns).AddRow(samplePeriodRow()...))

	periods, err := repo.List(context.Background(), models.PeriodFilter{})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, int64(200000), periods[0].RegistrationFee)
	assert.Equal(t, int64(150000), periods[0].RegistrationFeeItems["formulir"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryListFiltered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	active := true
	mock.ExpectQuery("SELECT (.+) FROM admission_periods WHERE institution_id = \\$1 AND is_active = \\$2").
		WithArgs("inst-1", true).
		WillReturnRows(sqlmock.NewRows(periodRowColumns))

	periods, err := repo.List(context.Background(), models.PeriodFilter{InstitutionID: "inst-1", Active: &active})
	require.NoError(t, err)
	assert.Empty(t, periods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM admission_periods WHERE is_active = TRUE AND institution_id = \\$1 ORDER BY start_date DESC LIMIT 1").
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows(periodRowColumns).AddRow(samplePeriodRow()...))

	period, err := repo.FindActive(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "period-1", period.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectExec("INSERT INTO admission_periods").
		WillReturnResult(sqlmock.NewResult(1, 1))

	period := &models.AdmissionPeriod{
		Name:                 "Gelombang 1",
		StartDate:            time.Now(),
		EndDate:              time.Now().AddDate(0, 3, 0),
		IsActive:             true,
		InstitutionID:        "inst-1",
		RegistrationFeeItems: models.FeeSchedule{"formulir": 150000},
		RegistrationFee:      150000,
	}
	require.NoError(t, repo.Create(context.Background(), period))
	assert.NotEmpty(t, period.ID)
	assert.False(t, period.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectExec("UPDATE admission_periods SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	period := &models.AdmissionPeriod{ID: "period-1", Name: "Gelombang 1 revisi", StartDate: time.Now(), EndDate: time.Now().AddDate(0, 3, 0)}
	require.NoError(t, repo.Update(context.Background(), period))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectExec("DELETE FROM admission_periods WHERE id = \\$1").
		WithArgs("period-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "period-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
