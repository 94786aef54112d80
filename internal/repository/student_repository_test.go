package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pondok-psb-api/internal/models"
)

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "nis", "applicant_id", "full_name", "gender", "birth_place", "birth_date", "address", "phone",
		"guardian_name", "guardian_phone", "previous_school", "institution_id", "class_id", "status", "entry_date",
		"created_at", "updated_at",
	}).AddRow("stu-1", "20260001", "app-1", "Ahmad Fauzi", "M", "Bandung", now.AddDate(-14, 0, 0), "Jl. Merdeka 1",
		"08123456789", "Budi Fauzi", "08198765432", nil, "inst-1", "class-7a", string(models.StudentStatusActive), now, now, now)

	mock.ExpectQuery("SELECT (.+) FROM students WHERE id = \\$1").
		WithArgs("stu-1").
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "20260001", student.NIS)
	require.NotNil(t, student.ApplicantID)
	assert.Equal(t, "app-1", *student.ApplicantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithApplicantLink(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	entry := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sequences").
		WithArgs(SequenceNIS, 2026).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(12))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE applicants SET student_id = \\$2").
		WithArgs("app-1", sqlmock.AnyArg(), models.ApplicantStatusConfirmed, models.ReregistrationStatusVerified, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := &models.Student{
		FullName:      "Ahmad Fauzi",
		Gender:        "M",
		BirthPlace:    "Bandung",
		BirthDate:     entry.AddDate(-14, 0, 0),
		Address:       "Jl. Merdeka 1",
		Phone:         "08123456789",
		GuardianName:  "Budi Fauzi",
		GuardianPhone: "08198765432",
		InstitutionID: "inst-1",
		ClassID:       "class-7a",
		Status:        models.StudentStatusActive,
		EntryDate:     entry,
	}
	require.NoError(t, repo.CreateWithApplicantLink(context.Background(), student, "app-1"))
	assert.Equal(t, "20260012", student.NIS)
	assert.NotEmpty(t, student.ID)
	require.NotNil(t, student.ApplicantID)
	assert.Equal(t, "app-1", *student.ApplicantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithApplicantLinkRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	entry := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sequences").
		WithArgs(SequenceNIS, 2026).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnError(fmt.Errorf("nis collision"))
	mock.ExpectRollback()

	student := &models.Student{FullName: "Ahmad Fauzi", Status: models.StudentStatusActive, EntryDate: entry}
	err := repo.CreateWithApplicantLink(context.Background(), student, "app-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "nis", "applicant_id", "full_name", "gender", "birth_place", "birth_date", "address", "phone",
		"guardian_name", "guardian_phone", "previous_school", "institution_id", "class_id", "status", "entry_date",
		"created_at", "updated_at",
	}).AddRow("stu-1", "20260001", nil, "Ahmad Fauzi", "M", "Bandung", now, "Jl. Merdeka 1",
		"08123456789", "Budi Fauzi", "08198765432", nil, "inst-1", "class-7a", string(models.StudentStatusActive), now, now, now)

	mock.ExpectQuery("SELECT (.+) FROM students WHERE 1=1 AND class_id = \\$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("class-7a").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM students WHERE 1=1 AND class_id = \\$1").
		WithArgs("class-7a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{ClassID: "class-7a"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
