package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionSameStatus(t *testing.T) {
	assert.True(t, CanTransition(ApplicantStatusPending, ApplicantStatusPending))
	assert.True(t, CanTransition(ApplicantStatusConfirmed, ApplicantStatusConfirmed))
}

func TestCanTransitionForwardMoves(t *testing.T) {
	assert.True(t, CanTransition(ApplicantStatusPending, ApplicantStatusPaymentVerified))
	assert.True(t, CanTransition(ApplicantStatusPaymentVerified, ApplicantStatusInterview))
	assert.True(t, CanTransition(ApplicantStatusInterview, ApplicantStatusAccepted))
	assert.True(t, CanTransition(ApplicantStatusPending, ApplicantStatusRejected))
}

func TestCanTransitionBackwardMoves(t *testing.T) {
	assert.True(t, CanTransition(ApplicantStatusPaymentVerified, ApplicantStatusPending))
	assert.True(t, CanTransition(ApplicantStatusAccepted, ApplicantStatusInterview))
	assert.True(t, CanTransition(ApplicantStatusRejected, ApplicantStatusPending))
}

func TestCanTransitionBlockedMoves(t *testing.T) {
	// ASSIGNED and CONFIRMED are never reached manually
	assert.False(t, CanTransition(ApplicantStatusAccepted, ApplicantStatusAssigned))
	assert.False(t, CanTransition(ApplicantStatusAssigned, ApplicantStatusConfirmed))
	// terminal states stay terminal
	assert.False(t, CanTransition(ApplicantStatusConfirmed, ApplicantStatusPending))
	assert.False(t, CanTransition(ApplicantStatusDeclined, ApplicantStatusPending))
	// no skipping straight back from accepted to pending
	assert.False(t, CanTransition(ApplicantStatusAccepted, ApplicantStatusPending))
}

func TestTerminalStatus(t *testing.T) {
	assert.True(t, TerminalStatus(ApplicantStatusConfirmed))
	assert.True(t, TerminalStatus(ApplicantStatusDeclined))
	assert.False(t, TerminalStatus(ApplicantStatusRejected))
	assert.False(t, TerminalStatus(ApplicantStatusPending))
}

func TestApplicantAssigned(t *testing.T) {
	var a Applicant
	assert.False(t, a.Assigned())

	inst := "inst-1"
	a.AssignedInstitutionID = &inst
	assert.False(t, a.Assigned())

	class := "class-7a"
	a.AssignedClassID = &class
	assert.True(t, a.Assigned())
}

func TestApplicantConverted(t *testing.T) {
	var a Applicant
	assert.False(t, a.Converted())

	empty := ""
	a.StudentID = &empty
	assert.False(t, a.Converted())

	id := "stu-1"
	a.StudentID = &id
	assert.True(t, a.Converted())
}
