package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pondok-psb-api/internal/models"
	appErrors "github.com/noah-isme/pondok-psb-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	CreateWithApplicantLink(ctx context.Context, student *models.Student, applicantID string) error
}

type applicantReader interface {
	FindByID(ctx context.Context, id string) (*models.Applicant, error)
}

// EnrollmentService converts verified applicants into permanent students.
type EnrollmentService struct {
	students   studentRepository
	applicants applicantReader
	cache      *CacheService
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(students studentRepository, applicants applicantReader, cache *CacheService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{students: students, applicants: applicants, cache: cache, logger: logger}
}

// List returns students with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single student.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Convert materializes a student from an applicant. Guards: the applicant
// must exist, must not already be converted, and must be assigned. The NIS
// allocation, the student insert, the back-link, and the CONFIRMED status
// write all commit in one transaction.
func (s *EnrollmentService) Convert(ctx context.Context, applicantID string) (*models.Student, error) {
	applicant, err := s.applicants.FindByID(ctx, applicantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}
	if applicant.Converted() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyConverted, "")
	}
	if !applicant.Assigned() {
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "")
	}

	student := &models.Student{
		FullName:       applicant.FullName,
		Gender:         applicant.Gender,
		BirthPlace:     applicant.BirthPlace,
		BirthDate:      applicant.BirthDate,
		Address:        applicant.Address,
		Phone:          applicant.Phone,
		GuardianName:   applicant.GuardianName,
		GuardianPhone:  applicant.GuardianPhone,
		PreviousSchool: applicant.PreviousSchool,
		InstitutionID:  *applicant.AssignedInstitutionID,
		ClassID:        *applicant.AssignedClassID,
		Status:         models.StudentStatusActive,
		EntryDate:      time.Now().UTC(),
	}
	if err := s.students.CreateWithApplicantLink(ctx, student, applicantID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to convert applicant")
	}

	s.logger.Info("applicant converted",
		zap.String("applicant_id", applicantID),
		zap.String("student_id", student.ID),
		zap.String("nis", student.NIS),
	)
	s.cache.Invalidate(ctx, CacheKeyStudents)
	return student, nil
}
