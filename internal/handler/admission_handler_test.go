package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pondok-psb-api/internal/models"
	"github.com/noah-isme/pondok-psb-api/internal/service"
	"github.com/noah-isme/pondok-psb-api/pkg/response"
)

type applicantStoreMock struct {
	applicants map[string]*models.Applicant
}

func (m *applicantStoreMock) Create(ctx context.Context, applicant *models.Applicant) error {
	if applicant.ID == "" {
		applicant.ID = "app-1"
	}
	stored := *applicant
	m.applicants[applicant.ID] = &stored
	return nil
}

func (m *applicantStoreMock) FindByID(ctx context.Context, id string) (*models.Applicant, error) {
	if a, ok := m.applicants[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *applicantStoreMock) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error) {
	var result []models.Applicant
	for _, a := range m.applicants {
		result = append(result, *a)
	}
	return result, len(result), nil
}

func (m *applicantStoreMock) UpdatePaymentVerification(ctx context.Context, id string, payment models.PaymentStatus, status models.ApplicantStatus, verifiedAt *time.Time, verifiedBy *string) error {
	a := m.applicants[id]
	a.PaymentStatus = payment
	a.Status = status
	a.PaymentVerifiedAt = verifiedAt
	a.PaymentVerifiedBy = verifiedBy
	return nil
}

func (m *applicantStoreMock) UpdateStatus(ctx context.Context, id string, status models.ApplicantStatus) error {
	m.applicants[id].Status = status
	return nil
}

func (m *applicantStoreMock) UpdateAssignment(ctx context.Context, id, institutionID, classID string, assignedAt time.Time, assignedBy *string) error {
	a := m.applicants[id]
	a.AssignedInstitutionID = &institutionID
	a.AssignedClassID = &classID
	a.AssignedAt = &assignedAt
	a.Status = models.ApplicantStatusAssigned
	return nil
}

func (m *applicantStoreMock) UpdateReregistration(ctx context.Context, id string, rereg models.ReregistrationStatus, status models.ApplicantStatus) error {
	a := m.applicants[id]
	a.ReregistrationStatus = rereg
	a.Status = status
	return nil
}

func (m *applicantStoreMock) UpdatePaymentProof(ctx context.Context, id, proofURL string, payment models.PaymentStatus) error {
	a := m.applicants[id]
	a.PaymentProofURL = &proofURL
	a.PaymentStatus = payment
	return nil
}

type periodStoreMock struct{}

func (m *periodStoreMock) FindByID(ctx context.Context, id string) (*models.AdmissionPeriod, error) {
	return nil, sql.ErrNoRows
}

type sequenceMock struct{ value int64 }

func (m *sequenceMock) Next(ctx context.Context, name string, year int) (int64, error) {
	m.value++
	return m.value, nil
}

type converterMock struct{}

func (m *converterMock) Convert(ctx context.Context, applicantID string) (*models.Student, error) {
	return &models.Student{ID: "stu-1"}, nil
}

func newTestAdmissionHandler(store *applicantStoreMock) *AdmissionHandler {
	svc := service.NewAdmissionService(store, &periodStoreMock{}, &sequenceMock{}, &converterMock{}, nil, nil, validator.New(), zap.NewNop())
	return NewAdmissionHandler(svc, nil, nil, nil, 0)
}

func TestAdmissionHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &applicantStoreMock{applicants: make(map[string]*models.Applicant)}
	handler := newTestAdmissionHandler(store)

	payload := map[string]interface{}{
		"full_name":      "Siti Rahma",
		"gender":         "F",
		"birth_place":    "Garut",
		"birth_date":     "2012-07-01T00:00:00Z",
		"address":        "Jl. Cihampelas 22",
		"phone":          "0812000111",
		"guardian_name":  "Hasan Rahma",
		"guardian_phone": "0812000222",
	}
	body, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applicants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data["registration_number"], "PSB-")
	assert.Equal(t, string(models.ApplicantStatusPending), data["status"])
}

func TestAdmissionHandlerRegisterInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdmissionHandler(&applicantStoreMock{applicants: make(map[string]*models.Applicant)})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applicants", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmissionHandlerSetStatusInvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &applicantStoreMock{applicants: map[string]*models.Applicant{
		"app-1": {ID: "app-1", Status: models.ApplicantStatusAccepted},
	}}
	handler := newTestAdmissionHandler(store)

	body, _ := json.Marshal(map[string]string{"status": "PENDING"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/applicants/app-1/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.SetStatus(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdmissionHandlerVerifyReregistrationNotAssigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &applicantStoreMock{applicants: map[string]*models.Applicant{
		"app-1": {ID: "app-1", Status: models.ApplicantStatusAccepted},
	}}
	handler := newTestAdmissionHandler(store)

	body, _ := json.Marshal(map[string]bool{"verified": true})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applicants/app-1/verify-reregistration", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.VerifyReregistration(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestAdmissionHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdmissionHandler(&applicantStoreMock{applicants: make(map[string]*models.Applicant)})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applicants/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
