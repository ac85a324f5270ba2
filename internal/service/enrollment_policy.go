package service

import (
	"time"

	"github.com/noah-isme/club-course-api/internal/models"
)

// EnrollmentPhase is the selection window a course is currently in.
type EnrollmentPhase string

const (
	EnrollmentPhaseClosed       EnrollmentPhase = "CLOSED"
	EnrollmentPhasePreSelection EnrollmentPhase = "PRE_SELECTION"
	EnrollmentPhaseAddDrop      EnrollmentPhase = "ADD_DROP"
)

// EnrollmentPolicy decides when a course accepts registration changes and how many seats it has.
//
// Windows are half open: a phase is active from its start (inclusive) to its
// end (exclusive). An unset start disables the window. Pre-selection wins
// when both windows overlap.
type EnrollmentPolicy struct{}

// Phase returns the active selection window of course at now.
func (EnrollmentPolicy) Phase(course *models.Course, now time.Time) EnrollmentPhase {
	switch {
	case windowOpen(course.StageOneStart, course.StageOneEnd, now):
		return EnrollmentPhasePreSelection
	case windowOpen(course.StageTwoStart, course.StageTwoEnd, now):
		return EnrollmentPhaseAddDrop
	default:
		return EnrollmentPhaseClosed
	}
}

// HasSeat reports whether another person can be seated.
func (EnrollmentPolicy) HasSeat(course *models.Course) bool {
	return !course.IsFull()
}

// StatusFor returns the participant status recorded by a select during phase.
func (EnrollmentPolicy) StatusFor(phase EnrollmentPhase) models.ParticipantStatus {
	if phase == EnrollmentPhaseAddDrop {
		return models.ParticipantStatusSuccess
	}
	return models.ParticipantStatusSelect
}

func windowOpen(start, end, now time.Time) bool {
	return !start.IsZero() && !now.Before(start) && now.Before(end)
}
