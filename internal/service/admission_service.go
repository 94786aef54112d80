package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pondok-psb-api/internal/models"
	"github.com/noah-isme/pondok-psb-api/internal/repository"
	appErrors "github.com/noah-isme/pondok-psb-api/pkg/errors"
)

type applicantRepository interface {
	Create(ctx context.Context, applicant *models.Applicant) error
	FindByID(ctx context.Context, id string) (*models.Applicant, error)
	List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error)
	UpdatePaymentVerification(ctx context.Context, id string, payment models.PaymentStatus, status models.ApplicantStatus, verifiedAt *time.Time, verifiedBy *string) error
	UpdateStatus(ctx context.Context, id string, status models.ApplicantStatus) error
	UpdateAssignment(ctx context.Context, id, institutionID, classID string, assignedAt time.Time, assignedBy *string) error
	UpdateReregistration(ctx context.Context, id string, rereg models.ReregistrationStatus, status models.ApplicantStatus) error
	UpdatePaymentProof(ctx context.Context, id, proofURL string, payment models.PaymentStatus) error
}

type periodReader interface {
	FindByID(ctx context.Context, id string) (*models.AdmissionPeriod, error)
}

type sequenceAllocator interface {
	Next(ctx context.Context, name string, year int) (int64, error)
}

type enrollmentConverter interface {
	Convert(ctx context.Context, applicantID string) (*models.Student, error)
}

// RegisterApplicantRequest describes the intake payload.
type RegisterApplicantRequest struct {
	FullName        string    `json:"full_name" validate:"required"`
	Gender          string    `json:"gender" validate:"required,oneof=M F"`
	BirthPlace      string    `json:"birth_place" validate:"required"`
	BirthDate       time.Time `json:"birth_date" validate:"required"`
	Address         string    `json:"address" validate:"required"`
	Phone           string    `json:"phone" validate:"required"`
	Email           *string   `json:"email" validate:"omitempty,email"`
	GuardianName    string    `json:"guardian_name" validate:"required"`
	GuardianPhone   string    `json:"guardian_phone" validate:"required"`
	PreviousSchool  *string   `json:"previous_school"`
	PeriodID        *string   `json:"period_id"`
	Track           *string   `json:"track"`
	PaymentProofURL *string   `json:"payment_proof_url"`
}

// VerifyPaymentRequest toggles registration payment verification.
type VerifyPaymentRequest struct {
	Verified   bool    `json:"verified"`
	VerifiedBy *string `json:"verified_by"`
}

// SetStatusRequest drives manual staff transitions.
type SetStatusRequest struct {
	Status models.ApplicantStatus `json:"status" validate:"required,oneof=PENDING PAYMENT_VERIFIED INTERVIEW ACCEPTED REJECTED"`
}

// AssignRequest binds an applicant to an institution and class.
type AssignRequest struct {
	InstitutionID string  `json:"institution_id" validate:"required"`
	ClassID       string  `json:"class_id" validate:"required"`
	AssignedBy    *string `json:"assigned_by"`
}

// VerifyReregistrationRequest toggles the re-registration verification.
type VerifyReregistrationRequest struct {
	Verified bool `json:"verified"`
}

// AdmissionService orchestrates the applicant lifecycle: intake, payment
// verification, manual status moves, assignment, and re-registration.
type AdmissionService struct {
	applicants applicantRepository
	periods    periodReader
	sequences  sequenceAllocator
	converter  enrollmentConverter
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(applicants applicantRepository, periods periodReader, sequences sequenceAllocator, converter enrollmentConverter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		applicants: applicants,
		periods:    periods,
		sequences:  sequences,
		converter:  converter,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// applicantPage is the cached shape of one applicant listing page.
type applicantPage struct {
	Items []models.Applicant `json:"items"`
	Total int                `json:"total"`
}

// applicantListKey derives the cache key for an applicant listing. Every
// filter axis participates so distinct pages never collide, and the shared
// CacheKeyApplicants prefix keeps them reachable by invalidation.
func applicantListKey(filter models.ApplicantFilter) string {
	return fmt.Sprintf("%s:list:%s:%s:%s:%s:%d:%d:%s:%s",
		CacheKeyApplicants, filter.PeriodID, filter.Status, filter.PaymentStatus,
		filter.Search, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}

// List returns applicants with pagination metadata.
func (s *AdmissionService) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	key := applicantListKey(filter)
	var cached applicantPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
	}

	applicants, total, err := s.applicants.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applicants")
	}
	_ = s.cache.Set(ctx, key, applicantPage{Items: applicants, Total: total}, 0)
	return applicants, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single applicant.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.Applicant, error) {
	return s.findApplicant(ctx, id)
}

// Register creates an applicant, allocates the registration number for the
// current year, and snapshots the active period's fee schedule so later
// period edits do not change what this applicant owes.
func (s *AdmissionService) Register(ctx context.Context, req RegisterApplicantRequest) (*models.Applicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	now := time.Now().UTC()
	seq, err := s.sequences.Next(ctx, repository.SequenceRegistration, now.Year())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate registration number")
	}

	applicant := &models.Applicant{
		RegistrationNumber: fmt.Sprintf("PSB-%d-%04d", now.Year(), seq),
		FullName:           req.FullName,
		Gender:             req.Gender,
		BirthPlace:         req.BirthPlace,
		BirthDate:          req.BirthDate,
		Address:            req.Address,
		Phone:              req.Phone,
		Email:              req.Email,
		GuardianName:       req.GuardianName,
		GuardianPhone:      req.GuardianPhone,
		PreviousSchool:     req.PreviousSchool,
		PeriodID:           req.PeriodID,
		Track:              req.Track,
		PaymentProofURL:    req.PaymentProofURL,
		Status:             models.ApplicantStatusPending,
		PaymentStatus:      models.PaymentStatusUnpaid,
	}
	if req.PaymentProofURL != nil && *req.PaymentProofURL != "" {
		applicant.PaymentStatus = models.PaymentStatusPaid
	}

	if req.PeriodID != nil && *req.PeriodID != "" {
		period, err := s.periods.FindByID(ctx, *req.PeriodID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
		}
		applicant.RegistrationFee = period.RegistrationFee
		applicant.RegistrationFeeItems = period.RegistrationFeeItems
		applicant.ReregistrationFeeItems = period.ReregistrationFeeItems
	}

	if err := s.applicants.Create(ctx, applicant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create applicant")
	}
	s.cache.Invalidate(ctx, CacheKeyApplicants)
	s.metrics.RecordTransition("register", nil)
	return applicant, nil
}

// VerifyPayment verifies or rejects the registration payment. The verified
// branch stamps the verifier; the rejected branch resets both axes.
func (s *AdmissionService) VerifyPayment(ctx context.Context, id string, req VerifyPaymentRequest) (*models.Applicant, error) {
	if _, err := s.findApplicant(ctx, id); err != nil {
		return nil, err
	}

	var err error
	if req.Verified {
		now := time.Now().UTC()
		err = s.applicants.UpdatePaymentVerification(ctx, id, models.PaymentStatusVerified, models.ApplicantStatusPaymentVerified, &now, req.VerifiedBy)
	} else {
		err = s.applicants.UpdatePaymentVerification(ctx, id, models.PaymentStatusUnpaid, models.ApplicantStatusPending, nil, nil)
	}
	s.metrics.RecordTransition("verify_payment", err)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment verification")
	}
	s.cache.Invalidate(ctx, CacheKeyApplicants)
	return s.findApplicant(ctx, id)
}

// SetStatus performs a manual staff transition, validated against the
// lifecycle transition table. Re-submitting the current status succeeds
// without touching the record.
func (s *AdmissionService) SetStatus(ctx context.Context, id string, req SetStatusRequest) (*models.Applicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	applicant, err := s.findApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	if applicant.Status == req.Status {
		return applicant, nil
	}
	if !models.CanTransition(applicant.Status, req.Status) {
		s.metrics.RecordTransition("set_status", appErrors.ErrInvalidTransition)
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move applicant from %s to %s", applicant.Status, req.Status))
	}
	if err := s.applicants.UpdateStatus(ctx, id, req.Status); err != nil {
		s.metrics.RecordTransition("set_status", err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	s.metrics.RecordTransition("set_status", nil)
	s.cache.Invalidate(ctx, CacheKeyApplicants)
	applicant.Status = req.Status
	return applicant, nil
}

// Assign binds the applicant to a target institution and class, stamps the
// assignment, and moves the status to ASSIGNED. Assignment stays reachable
// regardless of prior status so staff can fast-track an applicant; only a
// completed conversion blocks it.
func (s *AdmissionService) Assign(ctx context.Context, id string, req AssignRequest) (*models.Applicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	applicant, err := s.findApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	if applicant.Converted() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyConverted, "")
	}
	if err := s.applicants.UpdateAssignment(ctx, id, req.InstitutionID, req.ClassID, time.Now().UTC(), req.AssignedBy); err != nil {
		s.metrics.RecordTransition("assign", err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign applicant")
	}
	s.metrics.RecordTransition("assign", nil)
	s.cache.Invalidate(ctx, CacheKeyApplicants)
	return s.findApplicant(ctx, id)
}

// Decline marks the applicant as having declined the offer.
func (s *AdmissionService) Decline(ctx context.Context, id string) (*models.Applicant, error) {
	applicant, err := s.findApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	if applicant.Status == models.ApplicantStatusDeclined {
		return applicant, nil
	}
	if err := s.applicants.UpdateStatus(ctx, id, models.ApplicantStatusDeclined); err != nil {
		s.metrics.RecordTransition("decline", err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decline applicant")
	}
	s.metrics.RecordTransition("decline", nil)
	s.cache.Invalidate(ctx, CacheKeyApplicants)
	applicant.Status = models.ApplicantStatusDeclined
	return applicant, nil
}

// VerifyReregistration confirms or rejects the post-assignment payment.
// The verified branch runs enrollment conversion; the status mutations and
// the student materialization commit atomically, so a conversion failure
// leaves the applicant untouched. The rejected branch resets the axis.
func (s *AdmissionService) VerifyReregistration(ctx context.Context, id string, req VerifyReregistrationRequest) (*models.Applicant, error) {
	applicant, err := s.findApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applicant.Assigned() {
		s.metrics.RecordTransition("verify_reregistration", appErrors.ErrNotAssigned)
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "")
	}

	if req.Verified {
		if applicant.Converted() {
			return nil, appErrors.Clone(appErrors.ErrAlreadyConverted, "")
		}
		if _, err := s.converter.Convert(ctx, id); err != nil {
			s.metrics.RecordTransition("verify_reregistration", err)
			return nil, err
		}
		s.metrics.RecordTransition("verify_reregistration", nil)
		s.cache.Invalidate(ctx, CacheKeyApplicants)
		s.cache.Invalidate(ctx, CacheKeyStudents)
		return s.findApplicant(ctx, id)
	}

	if err := s.applicants.UpdateReregistration(ctx, id, models.ReregistrationStatusUnpaid, models.ApplicantStatusAssigned); err != nil {
		s.metrics.RecordTransition("verify_reregistration", err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset reregistration")
	}
	s.metrics.RecordTransition("verify_reregistration", nil)
	s.cache.Invalidate(ctx, CacheKeyApplicants)
	return s.findApplicant(ctx, id)
}

// AttachPaymentProof stores the uploaded proof reference. A proof marks the
// payment as PAID unless staff already verified it.
func (s *AdmissionService) AttachPaymentProof(ctx context.Context, id, proofURL string) (*models.Applicant, error) {
	if proofURL == "" {
		return nil, appErrors.Validation(map[string]string{"payment_proof": "required"})
	}
	applicant, err := s.findApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	payment := models.PaymentStatusPaid
	if applicant.PaymentStatus == models.PaymentStatusVerified {
		payment = models.PaymentStatusVerified
	}
	if err := s.applicants.UpdatePaymentProof(ctx, id, proofURL, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payment proof")
	}
	s.cache.Invalidate(ctx, CacheKeyApplicants)
	return s.findApplicant(ctx, id)
}

func (s *AdmissionService) findApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	applicant, err := s.applicants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}
	return applicant, nil
}
