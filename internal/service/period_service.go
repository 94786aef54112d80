package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pondok-psb-api/internal/models"
	appErrors "github.com/noah-isme/pondok-psb-api/pkg/errors"
)

type periodRepository interface {
	List(ctx context.Context, filter models.PeriodFilter) ([]models.AdmissionPeriod, error)
	FindByID(ctx context.Context, id string) (*models.AdmissionPeriod, error)
	FindActive(ctx context.Context, institutionID string) (*models.AdmissionPeriod, error)
	Create(ctx context.Context, period *models.AdmissionPeriod) error
	Update(ctx context.Context, period *models.AdmissionPeriod) error
	Delete(ctx context.Context, id string) error
}

// CreatePeriodRequest describes the period creation payload.
type CreatePeriodRequest struct {
	Name                   string             `json:"name" validate:"required"`
	Description            *string            `json:"description"`
	StartDate              time.Time          `json:"start_date" validate:"required"`
	EndDate                time.Time          `json:"end_date" validate:"required"`
	IsActive               bool               `json:"is_active"`
	Quota                  *int               `json:"quota" validate:"omitempty,min=1"`
	InstitutionID          string             `json:"institution_id" validate:"required"`
	RegistrationFeeItems   models.FeeSchedule `json:"registration_fee_items"`
	ReregistrationFeeItems models.FeeSchedule `json:"reregistration_fee_items"`
}

// UpdatePeriodRequest applies only the supplied fields.
type UpdatePeriodRequest struct {
	Name                   *string            `json:"name" validate:"omitempty,min=1"`
	Description            *string            `json:"description"`
	StartDate              *time.Time         `json:"start_date"`
	EndDate                *time.Time         `json:"end_date"`
	IsActive               *bool              `json:"is_active"`
	Quota                  *int               `json:"quota" validate:"omitempty,min=1"`
	RegistrationFeeItems   models.FeeSchedule `json:"registration_fee_items"`
	ReregistrationFeeItems models.FeeSchedule `json:"reregistration_fee_items"`
}

// PeriodService manages admission waves and their derived fee totals.
type PeriodService struct {
	repo      periodRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeriodService constructs PeriodService.
func NewPeriodService(repo periodRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// periodListKey derives the cache key for a period listing. All keys share
// the CacheKeyPeriods prefix so mutations can invalidate them in one sweep.
func periodListKey(filter models.PeriodFilter) string {
	active := "any"
	if filter.Active != nil {
		active = strconv.FormatBool(*filter.Active)
	}
	return fmt.Sprintf("%s:list:%s:%s", CacheKeyPeriods, filter.InstitutionID, active)
}

// List returns periods ordered by start date descending.
func (s *PeriodService) List(ctx context.Context, filter models.PeriodFilter) ([]models.AdmissionPeriod, error) {
	key := periodListKey(filter)
	var cached []models.AdmissionPeriod
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	periods, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	_ = s.cache.Set(ctx, key, periods, 0)
	return periods, nil
}

// Get returns a single period.
func (s *PeriodService) Get(ctx context.Context, id string) (*models.AdmissionPeriod, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}

// GetActive returns the most recent active period, optionally scoped to an
// institution. Several overlapping active periods are tolerated; the latest
// start date wins.
func (s *PeriodService) GetActive(ctx context.Context, institutionID string) (*models.AdmissionPeriod, error) {
	key := fmt.Sprintf("%s:active:%s", CacheKeyPeriods, institutionID)
	var cached models.AdmissionPeriod
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	period, err := s.repo.FindActive(ctx, institutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active period")
	}
	_ = s.cache.Set(ctx, key, period, 0)
	return period, nil
}

// Create validates the payload, derives the fee totals, and persists a
// new admission period.
func (s *PeriodService) Create(ctx context.Context, req CreatePeriodRequest) (*models.AdmissionPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Validation(map[string]string{"end_date": "must be after start_date"})
	}

	period := &models.AdmissionPeriod{
		Name:                   req.Name,
		Description:            req.Description,
		StartDate:              req.StartDate,
		EndDate:                req.EndDate,
		IsActive:               req.IsActive,
		Quota:                  req.Quota,
		InstitutionID:          req.InstitutionID,
		RegistrationFeeItems:   req.RegistrationFeeItems,
		ReregistrationFeeItems: req.ReregistrationFeeItems,
		RegistrationFee:        req.RegistrationFeeItems.Total(),
		ReregistrationFee:      req.ReregistrationFeeItems.Total(),
	}
	if err := s.repo.Create(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create period")
	}
	s.cache.Invalidate(ctx, CacheKeyPeriods)
	return period, nil
}

// Update applies the supplied fields. Whenever a fee schedule is supplied
// the corresponding total is recomputed and overwritten, keeping the
// derived-total invariant intact.
func (s *PeriodService) Update(ctx context.Context, id string, req UpdatePeriodRequest) (*models.AdmissionPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}

	if req.Name != nil {
		period.Name = *req.Name
	}
	if req.Description != nil {
		period.Description = req.Description
	}
	if req.StartDate != nil {
		period.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		period.EndDate = *req.EndDate
	}
	if req.IsActive != nil {
		period.IsActive = *req.IsActive
	}
	if req.Quota != nil {
		period.Quota = req.Quota
	}
	if req.RegistrationFeeItems != nil {
		period.RegistrationFeeItems = req.RegistrationFeeItems
		period.RegistrationFee = req.RegistrationFeeItems.Total()
	}
	if req.ReregistrationFeeItems != nil {
		period.ReregistrationFeeItems = req.ReregistrationFeeItems
		period.ReregistrationFee = req.ReregistrationFeeItems.Total()
	}
	if !period.EndDate.After(period.StartDate) {
		return nil, appErrors.Validation(map[string]string{"end_date": "must be after start_date"})
	}

	if err := s.repo.Update(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update period")
	}
	s.cache.Invalidate(ctx, CacheKeyPeriods)
	return period, nil
}

// Delete removes a period unconditionally. Applicants keep their fee
// snapshot, so existing registrations are unaffected.
func (s *PeriodService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete period")
	}
	s.cache.Invalidate(ctx, CacheKeyPeriods)
	return nil
}

// validationError converts validator failures into the field-keyed shape
// exposed by the API.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return appErrors.Validation(fields)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
