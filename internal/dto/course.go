package dto

import (
	"time"

	"github.com/noah-isme/club-course-api/internal/models"
)

// RegistrationAction enumerates the selection toggles a student can request.
type RegistrationAction string

const (
	RegistrationSelect RegistrationAction = "select"
	RegistrationCancel RegistrationAction = "cancel"
)

// RegistrationRequest is the payload for selecting or dropping a course.
type RegistrationRequest struct {
	CourseID string             `json:"course_id" validate:"required"`
	Action   RegistrationAction `json:"action" validate:"required,oneof=select cancel"`
}

// Warn codes reported by registration changes.
const (
	WarnCodeSuccess = 0
	WarnCodeFailure = 1
)

// RegistrationResult reports the outcome of a registration change without raising.
type RegistrationResult struct {
	WarnCode            int                      `json:"warn_code"`
	WarnMessage         string                   `json:"warn_message"`
	Reason              string                   `json:"reason,omitempty"`
	CourseID            string                   `json:"course_id,omitempty"`
	Status              models.ParticipantStatus `json:"status,omitempty"`
	CurrentParticipants int                      `json:"current_participants"`
}

// Succeeded reports whether the change was applied.
func (r RegistrationResult) Succeeded() bool {
	return r.WarnCode == WarnCodeSuccess
}

// SemesterSnapshot carries the current academic period into catalog reads.
type SemesterSnapshot struct {
	Year     int    `json:"year"`
	Semester string `json:"semester"`
}

// ActivityBrief is the compact activity view embedded in course detail.
type ActivityBrief struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Location string                `json:"location"`
	Start    time.Time             `json:"start"`
	End      time.Time             `json:"end"`
	Status   models.ActivityStatus `json:"status"`
}

// CourseDisplay is the display-ready course entry.
type CourseDisplay struct {
	ID                  string                   `json:"id"`
	Name                string                   `json:"name"`
	Type                models.CourseType        `json:"type"`
	Teacher             string                   `json:"teacher"`
	Classroom           string                   `json:"classroom"`
	Capacity            int                      `json:"capacity"`
	CurrentParticipants int                      `json:"current_participants"`
	Remaining           int                      `json:"remaining"`
	Phase               string                   `json:"phase"`
	Selected            bool                     `json:"selected"`
	ParticipantStatus   models.ParticipantStatus `json:"participant_status,omitempty"`
	Introduction        string                   `json:"introduction,omitempty"`
	StageOneStart       *time.Time               `json:"stage_one_start,omitempty"`
	StageOneEnd         *time.Time               `json:"stage_one_end,omitempty"`
	StageTwoStart       *time.Time               `json:"stage_two_start,omitempty"`
	StageTwoEnd         *time.Time               `json:"stage_two_end,omitempty"`
	UpcomingActivities  []ActivityBrief          `json:"upcoming_activities,omitempty"`
}

// Catalog is the course selection page content for one person.
type Catalog struct {
	Year       int                                   `json:"current_year"`
	Semester   string                                `json:"semester"`
	Unselected map[models.CourseType][]CourseDisplay `json:"courses"`
	Selected   []CourseDisplay                       `json:"my_courses"`
}

// CourseActivityRequest carries the editable fields of a single course activity.
type CourseActivityRequest struct {
	Title    string    `json:"title" validate:"required,max=200"`
	Location string    `json:"location" validate:"required,max=200"`
	Start    time.Time `json:"start" validate:"required"`
	End      time.Time `json:"end" validate:"required,gtfield=Start"`
}

// CreateActivityResult reports the created or deduplicated activity.
type CreateActivityResult struct {
	ActivityID string `json:"activity_id"`
	Created    bool   `json:"created"`
	Seated     int    `json:"seated"`
}

// OrganizationActivities splits a course organization's activities for its overview page.
type OrganizationActivities struct {
	Future   []models.Activity `json:"future"`
	Finished []models.Activity `json:"finished"`
}
