package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/club-course-api/internal/models"
)

// CourseRepository reads courses and their participants.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by id, retired or not.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListActive returns the non-retired courses of a semester.
func (r *CourseRepository) ListActive(ctx context.Context, year int, semester string) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE retired = FALSE AND year = $1 AND semester = $2 ORDER BY type, name`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, year, semester); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}

// ListSelectedByPerson returns the participations in which the person holds a seat.
func (r *CourseRepository) ListSelectedByPerson(ctx context.Context, personID string) ([]models.CourseParticipant, error) {
	const query = `SELECT id, course_id, person_id, status, updated_at FROM course_participants WHERE person_id = $1 AND status IN ($2, $3)`
	var participants []models.CourseParticipant
	if err := r.db.SelectContext(ctx, &participants, query, personID, models.ParticipantStatusSelect, models.ParticipantStatusSuccess); err != nil {
		return nil, fmt.Errorf("list person participations: %w", err)
	}
	return participants, nil
}

// ListRoster returns the selected participants of a course ordered by name.
func (r *CourseRepository) ListRoster(ctx context.Context, courseID string) ([]models.CourseParticipantDetail, error) {
	const query = `SELECT cp.id, cp.course_id, cp.person_id, cp.status, cp.updated_at, p.name AS person_name
        FROM course_participants cp
        JOIN persons p ON p.id = cp.person_id
        WHERE cp.course_id = $1 AND cp.status IN ($2, $3)
        ORDER BY p.name`
	var roster []models.CourseParticipantDetail
	if err := r.db.SelectContext(ctx, &roster, query, courseID, models.ParticipantStatusSelect, models.ParticipantStatusSuccess); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return roster, nil
}
