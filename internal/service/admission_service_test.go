package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pondok-psb-api/internal/models"
	appErrors "github.com/noah-isme/pondok-psb-api/pkg/errors"
)

type mockApplicantRepo struct {
	applicants map[string]*models.Applicant
	nextID     int
	listCalls  int
}

func newMockApplicantRepo() *mockApplicantRepo {
	return &mockApplicantRepo{applicants: make(map[string]*models.Applicant)}
}

func (m *mockApplicantRepo) Create(ctx context.Context, applicant *models.Applicant) error {
	m.nextID++
	if applicant.ID == "" {
		applicant.ID = fmt.Sprintf("app-%d", m.nextID)
	}
	stored := *applicant
	m.applicants[applicant.ID] = &stored
	return nil
}

func (m *mockApplicantRepo) FindByID(ctx context.Context, id string) (*models.Applicant, error) {
	if a, ok := m.applicants[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicantRepo) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error) {
	m.listCalls++
	var result []models.Applicant
	for _, a := range m.applicants {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.PeriodID != "" && (a.PeriodID == nil || *a.PeriodID != filter.PeriodID) {
			continue
		}
		result = append(result, *a)
	}
	return result, len(result), nil
}

func (m *mockApplicantRepo) UpdatePaymentVerification(ctx context.Context, id string, payment models.PaymentStatus, status models.ApplicantStatus, verifiedAt *time.Time, verifiedBy *string) error {
	a, ok := m.applicants[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.PaymentStatus = payment
	a.Status = status
	a.PaymentVerifiedAt = verifiedAt
	a.PaymentVerifiedBy = verifiedBy
	return nil
}

func (m *mockApplicantRepo) UpdateStatus(ctx context.Context, id string, status models.ApplicantStatus) error {
	a, ok := m.applicants[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	return nil
}

func (m *mockApplicantRepo) UpdateAssignment(ctx context.Context, id, institutionID, classID string, assignedAt time.Time, assignedBy *string) error {
	a, ok := m.applicants[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.AssignedInstitutionID = &institutionID
	a.AssignedClassID = &classID
	a.AssignedAt = &assignedAt
	a.AssignedBy = assignedBy
	a.Status = models.ApplicantStatusAssigned
	return nil
}

func (m *mockApplicantRepo) UpdateReregistration(ctx context.Context, id string, rereg models.ReregistrationStatus, status models.ApplicantStatus) error {
	a, ok := m.applicants[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.ReregistrationStatus = rereg
	a.Status = status
	if rereg != models.ReregistrationStatusVerified {
		a.ReregistrationVerifiedAt = nil
	}
	return nil
}

func (m *mockApplicantRepo) UpdatePaymentProof(ctx context.Context, id, proofURL string, payment models.PaymentStatus) error {
	a, ok := m.applicants[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.PaymentProofURL = &proofURL
	a.PaymentStatus = payment
	return nil
}

type mockPeriodReader struct {
	periods map[string]*models.AdmissionPeriod
}

func (m *mockPeriodReader) FindByID(ctx context.Context, id string) (*models.AdmissionPeriod, error) {
	if p, ok := m.periods[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type mockSequenceAllocator struct {
	counters map[string]int64
}

func (m *mockSequenceAllocator) Next(ctx context.Context, name string, year int) (int64, error) {
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	key := fmt.Sprintf("%s:%d", name, year)
	m.counters[key]++
	return m.counters[key], nil
}

type mockConverter struct {
	repo *mockApplicantRepo
	err  error
}

func (m *mockConverter) Convert(ctx context.Context, applicantID string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.repo.applicants[applicantID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	studentID := "stu-" + applicantID
	now := time.Now().UTC()
	a.StudentID = &studentID
	a.Status = models.ApplicantStatusConfirmed
	a.ReregistrationStatus = models.ReregistrationStatusVerified
	a.ReregistrationVerifiedAt = &now
	return &models.Student{ID: studentID, FullName: a.FullName}, nil
}

func newAdmissionService(repo *mockApplicantRepo, periods *mockPeriodReader, converter *mockConverter) *AdmissionService {
	if periods == nil {
		periods = &mockPeriodReader{}
	}
	if converter == nil {
		converter = &mockConverter{repo: repo}
	}
	return NewAdmissionService(repo, periods, &mockSequenceAllocator{}, converter, nil, nil, validator.New(), zap.NewNop())
}

func seedApplicant(repo *mockApplicantRepo, id string, mutate func(*models.Applicant)) *models.Applicant {
	a := &models.Applicant{
		ID:                 id,
		RegistrationNumber: "PSB-2026-0001",
		FullName:           "Ahmad Fauzi",
		Gender:             "M",
		BirthPlace:         "Bandung",
		BirthDate:          time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
		Address:            "Jl. Merdeka 1",
		Phone:              "08123456789",
		GuardianName:       "Budi Fauzi",
		GuardianPhone:      "08198765432",
		Status:             models.ApplicantStatusPending,
		PaymentStatus:      models.PaymentStatusUnpaid,
	}
	if mutate != nil {
		mutate(a)
	}
	repo.applicants[id] = a
	return a
}

func validRegisterRequest() RegisterApplicantRequest {
	return RegisterApplicantRequest{
		FullName:      "Siti Rahma",
		Gender:        "F",
		BirthPlace:    "Garut",
		BirthDate:     time.Date(2012, 7, 1, 0, 0, 0, 0, time.UTC),
		Address:       "Jl. Cihampelas 22",
		Phone:         "0812000111",
		GuardianName:  "Hasan Rahma",
		GuardianPhone: "0812000222",
	}
}

func TestAdmissionServiceRegister(t *testing.T) {
	repo := newMockApplicantRepo()
	periodID := "period-1"
	periods := &mockPeriodReader{periods: map[string]*models.AdmissionPeriod{
		periodID: {
			ID:                   periodID,
			RegistrationFee:      200000,
			RegistrationFeeItems: models.FeeSchedule{"formulir": 150000, "seragam": 50000},
		},
	}}
	svc := newAdmissionService(repo, periods, nil)

	req := validRegisterRequest()
	req.PeriodID = &periodID
	applicant, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("PSB-%d-0001", year), applicant.RegistrationNumber)
	assert.Equal(t, models.ApplicantStatusPending, applicant.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, applicant.PaymentStatus)
	assert.Equal(t, int64(200000), applicant.RegistrationFee)
	assert.Equal(t, int64(150000), applicant.RegistrationFeeItems["formulir"])

	second, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("PSB-%d-0002", year), second.RegistrationNumber)
}

func TestAdmissionServiceRegisterWithProofMarksPaid(t *testing.T) {
	repo := newMockApplicantRepo()
	svc := newAdmissionService(repo, nil, nil)

	proof := "uploads/proof.jpg"
	req := validRegisterRequest()
	req.PaymentProofURL = &proof
	applicant, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, applicant.PaymentStatus)
}

func TestAdmissionServiceRegisterValidation(t *testing.T) {
	svc := newAdmissionService(newMockApplicantRepo(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterApplicantRequest{FullName: "Only Name"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "Gender")
}

func TestAdmissionServiceRegisterUnknownPeriod(t *testing.T) {
	svc := newAdmissionService(newMockApplicantRepo(), &mockPeriodReader{}, nil)

	missing := "missing-period"
	req := validRegisterRequest()
	req.PeriodID = &missing
	_, err := svc.Register(context.Background(), req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAdmissionServiceVerifyPayment(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		a.PaymentStatus = models.PaymentStatusPaid
	})
	svc := newAdmissionService(repo, nil, nil)

	verifier := "staff-1"
	applicant, err := svc.VerifyPayment(context.Background(), "app-1", VerifyPaymentRequest{Verified: true, VerifiedBy: &verifier})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusVerified, applicant.PaymentStatus)
	assert.Equal(t, models.ApplicantStatusPaymentVerified, applicant.Status)
	require.NotNil(t, applicant.PaymentVerifiedAt)
	require.NotNil(t, applicant.PaymentVerifiedBy)
	assert.Equal(t, verifier, *applicant.PaymentVerifiedBy)

	applicant, err = svc.VerifyPayment(context.Background(), "app-1", VerifyPaymentRequest{Verified: false})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, applicant.PaymentStatus)
	assert.Equal(t, models.ApplicantStatusPending, applicant.Status)
	assert.Nil(t, applicant.PaymentVerifiedAt)
	assert.Nil(t, applicant.PaymentVerifiedBy)
}

func TestAdmissionServiceVerifyPaymentNotFound(t *testing.T) {
	svc := newAdmissionService(newMockApplicantRepo(), nil, nil)

	_, err := svc.VerifyPayment(context.Background(), "nope", VerifyPaymentRequest{Verified: true})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAdmissionServiceSetStatus(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", nil)
	svc := newAdmissionService(repo, nil, nil)

	applicant, err := svc.SetStatus(context.Background(), "app-1", SetStatusRequest{Status: models.ApplicantStatusInterview})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicantStatusInterview, applicant.Status)

	applicant, err = svc.SetStatus(context.Background(), "app-1", SetStatusRequest{Status: models.ApplicantStatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicantStatusAccepted, applicant.Status)
}

func TestAdmissionServiceSetStatusSameStatusNoOp(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", nil)
	svc := newAdmissionService(repo, nil, nil)

	applicant, err := svc.SetStatus(context.Background(), "app-1", SetStatusRequest{Status: models.ApplicantStatusPending})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicantStatusPending, applicant.Status)
}

func TestAdmissionServiceSetStatusInvalidTransition(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		a.Status = models.ApplicantStatusAccepted
	})
	svc := newAdmissionService(repo, nil, nil)

	_, err := svc.SetStatus(context.Background(), "app-1", SetStatusRequest{Status: models.ApplicantStatusPending})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, models.ApplicantStatusAccepted, repo.applicants["app-1"].Status)
}

func TestAdmissionServiceAssign(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		a.Status = models.ApplicantStatusAccepted
	})
	svc := newAdmissionService(repo, nil, nil)

	staff := "staff-2"
	applicant, err := svc.Assign(context.Background(), "app-1", AssignRequest{InstitutionID: "inst-1", ClassID: "class-7a", AssignedBy: &staff})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicantStatusAssigned, applicant.Status)
	require.NotNil(t, applicant.AssignedInstitutionID)
	assert.Equal(t, "inst-1", *applicant.AssignedInstitutionID)
	assert.Equal(t, "class-7a", *applicant.AssignedClassID)
	assert.NotNil(t, applicant.AssignedAt)
}

func TestAdmissionServiceAssignBlockedAfterConversion(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		studentID := "stu-1"
		a.StudentID = &studentID
		a.Status = models.ApplicantStatusConfirmed
	})
	svc := newAdmissionService(repo, nil, nil)

	_, err := svc.Assign(context.Background(), "app-1", AssignRequest{InstitutionID: "inst-1", ClassID: "class-7a"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyConverted.Code, appErr.Code)
}

func TestAdmissionServiceDecline(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		a.Status = models.ApplicantStatusAccepted
	})
	svc := newAdmissionService(repo, nil, nil)

	applicant, err := svc.Decline(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicantStatusDeclined, applicant.Status)

	// declining again stays a no-op
	applicant, err = svc.Decline(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicantStatusDeclined, applicant.Status)
}

func TestAdmissionServiceVerifyReregistrationRequiresAssignment(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		a.Status = models.ApplicantStatusAccepted
	})
	svc := newAdmissionService(repo, nil, nil)

	_, err := svc.VerifyReregistration(context.Background(), "app-1", VerifyReregistrationRequest{Verified: true})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotAssigned.Code, appErr.Code)
}

func TestAdmissionServiceVerifyReregistrationConverts(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		inst, class := "inst-1", "class-7a"
		a.Status = models.ApplicantStatusAssigned
		a.AssignedInstitutionID = &inst
		a.AssignedClassID = &class
		a.ReregistrationStatus = models.ReregistrationStatusPaid
	})
	svc := newAdmissionService(repo, nil, nil)

	applicant, err := svc.VerifyReregistration(context.Background(), "app-1", VerifyReregistrationRequest{Verified: true})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicantStatusConfirmed, applicant.Status)
	assert.Equal(t, models.ReregistrationStatusVerified, applicant.ReregistrationStatus)
	require.NotNil(t, applicant.StudentID)
	assert.Equal(t, "stu-app-1", *applicant.StudentID)
}

func TestAdmissionServiceVerifyReregistrationConversionFailureLeavesApplicant(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		inst, class := "inst-1", "class-7a"
		a.Status = models.ApplicantStatusAssigned
		a.AssignedInstitutionID = &inst
		a.AssignedClassID = &class
	})
	converter := &mockConverter{repo: repo, err: appErrors.Clone(appErrors.ErrInternal, "conversion failed")}
	svc := newAdmissionService(repo, nil, converter)

	_, err := svc.VerifyReregistration(context.Background(), "app-1", VerifyReregistrationRequest{Verified: true})
	require.Error(t, err)
	stored := repo.applicants["app-1"]
	assert.Equal(t, models.ApplicantStatusAssigned, stored.Status)
	assert.Nil(t, stored.StudentID)
}

func TestAdmissionServiceVerifyReregistrationReject(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		inst, class := "inst-1", "class-7a"
		a.Status = models.ApplicantStatusAssigned
		a.AssignedInstitutionID = &inst
		a.AssignedClassID = &class
		a.ReregistrationStatus = models.ReregistrationStatusPaid
	})
	svc := newAdmissionService(repo, nil, nil)

	applicant, err := svc.VerifyReregistration(context.Background(), "app-1", VerifyReregistrationRequest{Verified: false})
	require.NoError(t, err)
	assert.Equal(t, models.ReregistrationStatusUnpaid, applicant.ReregistrationStatus)
	assert.Equal(t, models.ApplicantStatusAssigned, applicant.Status)
	assert.Nil(t, applicant.ReregistrationVerifiedAt)
}

func TestAdmissionServiceAttachPaymentProof(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", nil)
	svc := newAdmissionService(repo, nil, nil)

	applicant, err := svc.AttachPaymentProof(context.Background(), "app-1", "uploads/app-1/proof.png")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, applicant.PaymentStatus)
	require.NotNil(t, applicant.PaymentProofURL)
	assert.Equal(t, "uploads/app-1/proof.png", *applicant.PaymentProofURL)
}

func TestAdmissionServiceAttachPaymentProofKeepsVerified(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", func(a *models.Applicant) {
		a.PaymentStatus = models.PaymentStatusVerified
	})
	svc := newAdmissionService(repo, nil, nil)

	applicant, err := svc.AttachPaymentProof(context.Background(), "app-1", "uploads/app-1/proof.png")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusVerified, applicant.PaymentStatus)
}

func TestAdmissionServiceListServedFromCache(t *testing.T) {
	repo := newMockApplicantRepo()
	seedApplicant(repo, "app-1", nil)
	svc := NewAdmissionService(repo, &mockPeriodReader{}, &mockSequenceAllocator{}, &mockConverter{repo: repo}, newTestCache(newMockCacheRepo()), nil, validator.New(), zap.NewNop())

	first, page, err := svc.List(context.Background(), models.ApplicantFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, repo.listCalls)

	// repeat lookup is answered by the cache
	second, page, err := svc.List(context.Background(), models.ApplicantFilter{})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, repo.listCalls)

	// a workflow mutation invalidates the cached page
	_, err = svc.Decline(context.Background(), "app-1")
	require.NoError(t, err)

	third, _, err := svc.List(context.Background(), models.ApplicantFilter{})
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, models.ApplicantStatusDeclined, third[0].Status)
	assert.Equal(t, 2, repo.listCalls)
}
