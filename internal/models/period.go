package models

import "time"

// AdmissionPeriod represents an admission wave with its fee schedules.
// RegistrationFee and ReregistrationFee are derived totals persisted at
// write time; the write path recomputes them whenever a schedule changes.
type AdmissionPeriod struct {
	ID                       string      `db:"id" json:"id"`
	Name                     string      `db:"name" json:"name"`
	Description              *string     `db:"description" json:"description,omitempty"`
	StartDate                time.Time   `db:"start_date" json:"start_date"`
	EndDate                  time.Time   `db:"end_date" json:"end_date"`
	IsActive                 bool        `db:"is_active" json:"is_active"`
	Quota                    *int        `db:"quota" json:"quota,omitempty"`
	InstitutionID            string      `db:"institution_id" json:"institution_id"`
	RegistrationFeeItems     FeeSchedule `db:"registration_fee_items" json:"registration_fee_items"`
	ReregistrationFeeItems   FeeSchedule `db:"reregistration_fee_items" json:"reregistration_fee_items"`
	RegistrationFee          int64       `db:"registration_fee" json:"registration_fee"`
	ReregistrationFee        int64       `db:"reregistration_fee" json:"reregistration_fee"`
	CreatedAt                time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time   `db:"updated_at" json:"updated_at"`
}

// PeriodFilter narrows period listings.
type PeriodFilter struct {
	InstitutionID string
	Active        *bool
}
