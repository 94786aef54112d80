package models

import "time"

// StudentStatus represents a student's enrollment state.
type StudentStatus string

// Possible student statuses.
const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
	StudentStatusGraduate StudentStatus = "GRADUATED"
)

// Student is the permanent enrollment record materialized from a confirmed
// applicant. ApplicantID links back to the admission registration.
type Student struct {
	ID             string        `db:"id" json:"id"`
	NIS            string        `db:"nis" json:"nis"`
	ApplicantID    *string       `db:"applicant_id" json:"applicant_id,omitempty"`
	FullName       string        `db:"full_name" json:"full_name"`
	Gender         string        `db:"gender" json:"gender"`
	BirthPlace     string        `db:"birth_place" json:"birth_place"`
	BirthDate      time.Time     `db:"birth_date" json:"birth_date"`
	Address        string        `db:"address" json:"address"`
	Phone          string        `db:"phone" json:"phone"`
	GuardianName   string        `db:"guardian_name" json:"guardian_name"`
	GuardianPhone  string        `db:"guardian_phone" json:"guardian_phone"`
	PreviousSchool *string       `db:"previous_school" json:"previous_school,omitempty"`
	InstitutionID  string        `db:"institution_id" json:"institution_id"`
	ClassID        string        `db:"class_id" json:"class_id"`
	Status         StudentStatus `db:"status" json:"status"`
	EntryDate      time.Time     `db:"entry_date" json:"entry_date"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search        string
	InstitutionID string
	ClassID       string
	Status        StudentStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
