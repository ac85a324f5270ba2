package models

import "time"

// ActivityCategory separates course sessions from ordinary club activities.
type ActivityCategory string

const (
	ActivityCategoryNormal ActivityCategory = "NORMAL"
	ActivityCategoryCourse ActivityCategory = "COURSE"
)

// ActivityStatus represents the lifecycle of an activity.
type ActivityStatus string

const (
	ActivityStatusReviewing   ActivityStatus = "REVIEWING"
	ActivityStatusApplying    ActivityStatus = "APPLYING"
	ActivityStatusWaiting     ActivityStatus = "WAITING"
	ActivityStatusProgressing ActivityStatus = "PROGRESSING"
	ActivityStatusEnd         ActivityStatus = "END"
	ActivityStatusCanceled    ActivityStatus = "CANCELED"
	ActivityStatusReject      ActivityStatus = "REJECT"
	ActivityStatusAbort       ActivityStatus = "ABORT"
)

var activityTransitions = map[ActivityStatus][]ActivityStatus{
	ActivityStatusReviewing:   {ActivityStatusApplying, ActivityStatusWaiting, ActivityStatusReject, ActivityStatusAbort},
	ActivityStatusApplying:    {ActivityStatusWaiting, ActivityStatusCanceled},
	ActivityStatusWaiting:     {ActivityStatusProgressing, ActivityStatusCanceled},
	ActivityStatusProgressing: {ActivityStatusEnd, ActivityStatusCanceled},
}

// Terminal reports whether no further transition is possible.
func (s ActivityStatus) Terminal() bool {
	switch s {
	case ActivityStatusEnd, ActivityStatusCanceled, ActivityStatusReject, ActivityStatusAbort:
		return true
	}
	return false
}

// RequiresReview reports whether the status belongs to the registration review phase.
func (s ActivityStatus) RequiresReview() bool {
	return s == ActivityStatusReviewing || s == ActivityStatusApplying
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ActivityStatus) CanTransitionTo(next ActivityStatus) bool {
	for _, candidate := range activityTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Activity is a single scheduled session owned by an organization.
type Activity struct {
	ID             string           `db:"id" json:"id"`
	OrganizationID string           `db:"organization_id" json:"organization_id"`
	Category       ActivityCategory `db:"category" json:"category"`
	Status         ActivityStatus   `db:"status" json:"status"`
	Title          string           `db:"title" json:"title"`
	Location       string           `db:"location" json:"location"`
	Start          time.Time        `db:"start_at" json:"start"`
	End            time.Time        `db:"end_at" json:"end"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ActivityParticipantStatus tracks a seat in a single activity.
type ActivityParticipantStatus string

const (
	ActivityParticipantEnrolled ActivityParticipantStatus = "ENROLLED"
	ActivityParticipantReleased ActivityParticipantStatus = "RELEASED"
)
