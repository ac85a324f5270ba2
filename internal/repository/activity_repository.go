package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/club-course-api/internal/models"
)

// ActivityRepository reads activities outside of locked units of work.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByID returns an activity by id.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListByOrganization returns an organization's activities of one category, newest start first.
func (r *ActivityRepository) ListByOrganization(ctx context.Context, organizationID string, category models.ActivityCategory) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE organization_id = $1 AND category = $2 ORDER BY start_at DESC`
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, organizationID, category); err != nil {
		return nil, fmt.Errorf("list organization activities: %w", err)
	}
	return activities, nil
}

// ListDue returns course activities whose status should move forward at now:
// WAITING ones that started and PROGRESSING ones that ended.
func (r *ActivityRepository) ListDue(ctx context.Context, now time.Time) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
        WHERE category = $1 AND ((status = $2 AND start_at <= $4) OR (status = $3 AND end_at <= $4))
        ORDER BY start_at ASC`
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query,
		models.ActivityCategoryCourse, models.ActivityStatusWaiting, models.ActivityStatusProgressing, now); err != nil {
		return nil, fmt.Errorf("list due activities: %w", err)
	}
	return activities, nil
}
