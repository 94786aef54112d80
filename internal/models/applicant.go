package models

import "time"

// ApplicantStatus tracks the admission lifecycle of an applicant.
type ApplicantStatus string

// Admission lifecycle statuses.
const (
	ApplicantStatusPending         ApplicantStatus = "PENDING"
	ApplicantStatusPaymentVerified ApplicantStatus = "PAYMENT_VERIFIED"
	ApplicantStatusInterview       ApplicantStatus = "INTERVIEW"
	ApplicantStatusAccepted        ApplicantStatus = "ACCEPTED"
	ApplicantStatusAssigned        ApplicantStatus = "ASSIGNED"
	ApplicantStatusConfirmed       ApplicantStatus = "CONFIRMED"
	ApplicantStatusRejected        ApplicantStatus = "REJECTED"
	ApplicantStatusDeclined        ApplicantStatus = "DECLINED"
)

// PaymentStatus tracks the registration fee payment.
type PaymentStatus string

// Registration payment statuses.
const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
)

// ReregistrationStatus tracks the post-assignment confirmation payment.
// The empty string means re-registration has not started.
type ReregistrationStatus string

// Re-registration statuses.
const (
	ReregistrationStatusUnpaid   ReregistrationStatus = "UNPAID"
	ReregistrationStatusPaid     ReregistrationStatus = "PAID"
	ReregistrationStatusVerified ReregistrationStatus = "VERIFIED"
)

// manualTransitions is the transition table honored by staff-driven status
// changes. Re-submitting the current status is treated as a no-op success,
// so the table only lists genuine moves. ASSIGNED and CONFIRMED are owned
// by the assignment and conversion flows, never set manually.
var manualTransitions = map[ApplicantStatus][]ApplicantStatus{
	ApplicantStatusPending:         {ApplicantStatusPaymentVerified, ApplicantStatusInterview, ApplicantStatusAccepted, ApplicantStatusRejected},
	ApplicantStatusPaymentVerified: {ApplicantStatusPending, ApplicantStatusInterview, ApplicantStatusAccepted, ApplicantStatusRejected},
	ApplicantStatusInterview:       {ApplicantStatusAccepted, ApplicantStatusRejected, ApplicantStatusPaymentVerified},
	ApplicantStatusAccepted:        {ApplicantStatusRejected, ApplicantStatusInterview},
	ApplicantStatusAssigned:        {ApplicantStatusRejected},
	ApplicantStatusRejected:        {ApplicantStatusPending},
	ApplicantStatusDeclined:        {},
	ApplicantStatusConfirmed:       {},
}

// CanTransition reports whether a manual status change is allowed.
func CanTransition(from, to ApplicantStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range manualTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TerminalStatus reports statuses no manual transition can leave.
func TerminalStatus(status ApplicantStatus) bool {
	return len(manualTransitions[status]) == 0
}

// Applicant is an admission registration record. StudentID is set exactly
// once by enrollment conversion and is the authoritative converted flag.
type Applicant struct {
	ID                       string               `db:"id" json:"id"`
	RegistrationNumber       string               `db:"registration_number" json:"registration_number"`
	FullName                 string               `db:"full_name" json:"full_name"`
	Gender                   string               `db:"gender" json:"gender"`
	BirthPlace               string               `db:"birth_place" json:"birth_place"`
	BirthDate                time.Time            `db:"birth_date" json:"birth_date"`
	Address                  string               `db:"address" json:"address"`
	Phone                    string               `db:"phone" json:"phone"`
	Email                    *string              `db:"email" json:"email,omitempty"`
	GuardianName             string               `db:"guardian_name" json:"guardian_name"`
	GuardianPhone            string               `db:"guardian_phone" json:"guardian_phone"`
	PreviousSchool           *string              `db:"previous_school" json:"previous_school,omitempty"`
	PeriodID                 *string              `db:"period_id" json:"period_id,omitempty"`
	Track                    *string              `db:"track" json:"track,omitempty"`
	PaymentProofURL          *string              `db:"payment_proof_url" json:"payment_proof_url,omitempty"`
	RegistrationFee          int64                `db:"registration_fee" json:"registration_fee"`
	RegistrationFeeItems     FeeSchedule          `db:"registration_fee_items" json:"registration_fee_items"`
	ReregistrationFeeItems   FeeSchedule          `db:"reregistration_fee_items" json:"reregistration_fee_items"`
	Status                   ApplicantStatus      `db:"status" json:"status"`
	PaymentStatus            PaymentStatus        `db:"payment_status" json:"payment_status"`
	ReregistrationStatus     ReregistrationStatus `db:"reregistration_status" json:"reregistration_status,omitempty"`
	PaymentVerifiedAt        *time.Time           `db:"payment_verified_at" json:"payment_verified_at,omitempty"`
	PaymentVerifiedBy        *string              `db:"payment_verified_by" json:"payment_verified_by,omitempty"`
	ReregistrationVerifiedAt *time.Time           `db:"reregistration_verified_at" json:"reregistration_verified_at,omitempty"`
	AssignedInstitutionID    *string              `db:"assigned_institution_id" json:"assigned_institution_id,omitempty"`
	AssignedClassID          *string              `db:"assigned_class_id" json:"assigned_class_id,omitempty"`
	AssignedAt               *time.Time           `db:"assigned_at" json:"assigned_at,omitempty"`
	AssignedBy               *string              `db:"assigned_by" json:"assigned_by,omitempty"`
	StudentID                *string              `db:"student_id" json:"student_id,omitempty"`
	CreatedAt                time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time            `db:"updated_at" json:"updated_at"`
}

// Assigned reports whether both assignment references are present.
func (a *Applicant) Assigned() bool {
	return a.AssignedInstitutionID != nil && *a.AssignedInstitutionID != "" &&
		a.AssignedClassID != nil && *a.AssignedClassID != ""
}

// Converted reports whether a student record has been materialized.
func (a *Applicant) Converted() bool {
	return a.StudentID != nil && *a.StudentID != ""
}

// ApplicantFilter captures filtering criteria for listing applicants.
type ApplicantFilter struct {
	PeriodID      string
	Status        ApplicantStatus
	PaymentStatus PaymentStatus
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
