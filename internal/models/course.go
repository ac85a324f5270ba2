package models

import "time"

// CourseType classifies courses for catalog grouping.
type CourseType string

const (
	CourseTypeMoral        CourseType = "MORAL"
	CourseTypeIntellectual CourseType = "INTELLECTUAL"
	CourseTypePhysical     CourseType = "PHYSICAL"
	CourseTypeAesthetic    CourseType = "AESTHETIC"
	CourseTypeLabor        CourseType = "LABOR"
)

// CourseTypes lists all course types in display order.
var CourseTypes = []CourseType{
	CourseTypeMoral,
	CourseTypeIntellectual,
	CourseTypePhysical,
	CourseTypeAesthetic,
	CourseTypeLabor,
}

// Course is a catalog entry students enroll in.
type Course struct {
	ID                  string     `db:"id" json:"id"`
	OrganizationID      string     `db:"organization_id" json:"organization_id"`
	Name                string     `db:"name" json:"name"`
	Type                CourseType `db:"type" json:"type"`
	Teacher             string     `db:"teacher" json:"teacher"`
	Classroom           string     `db:"classroom" json:"classroom"`
	Introduction        string     `db:"introduction" json:"introduction"`
	Capacity            int        `db:"capacity" json:"capacity"`
	CurrentParticipants int        `db:"current_participants" json:"current_participants"`
	Year                int        `db:"year" json:"year"`
	Semester            string     `db:"semester" json:"semester"`
	StageOneStart       time.Time  `db:"stage_one_start" json:"stage_one_start"`
	StageOneEnd         time.Time  `db:"stage_one_end" json:"stage_one_end"`
	StageTwoStart       time.Time  `db:"stage_two_start" json:"stage_two_start"`
	StageTwoEnd         time.Time  `db:"stage_two_end" json:"stage_two_end"`
	Retired             bool       `db:"retired" json:"retired"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Remaining returns the number of open seats.
func (c *Course) Remaining() int {
	if c.CurrentParticipants >= c.Capacity {
		return 0
	}
	return c.Capacity - c.CurrentParticipants
}

// IsFull reports whether occupancy reached capacity. A course without
// positive capacity is always full.
func (c *Course) IsFull() bool {
	return c.Capacity <= 0 || c.CurrentParticipants >= c.Capacity
}

// ParticipantStatus is a person's registration state in a course.
type ParticipantStatus string

const (
	// ParticipantStatusSelect marks a pre-selection made during stage one.
	ParticipantStatusSelect ParticipantStatus = "SELECT"
	// ParticipantStatusSuccess marks a seat secured during add/drop.
	ParticipantStatusSuccess  ParticipantStatus = "SUCCESS"
	ParticipantStatusUnselect ParticipantStatus = "UNSELECT"
)

// Selected reports whether the status holds a seat.
func (s ParticipantStatus) Selected() bool {
	return s == ParticipantStatusSelect || s == ParticipantStatusSuccess
}

// CourseParticipant links a person to a course.
type CourseParticipant struct {
	ID        string            `db:"id" json:"id"`
	CourseID  string            `db:"course_id" json:"course_id"`
	PersonID  string            `db:"person_id" json:"person_id"`
	Status    ParticipantStatus `db:"status" json:"status"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// CourseParticipantDetail enriches a participant with the person's name for rosters.
type CourseParticipantDetail struct {
	CourseParticipant
	PersonName string `db:"person_name" json:"person_name"`
}
