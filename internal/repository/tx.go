package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/club-course-api/internal/models"
)

// Tx is a unit of work. Lock* methods take an exclusive lock on a single
// entity that is held until the unit of work commits or rolls back.
// Missing rows are reported as sql.ErrNoRows.
type Tx interface {
	LockOrganization(ctx context.Context, id string) error
	FindDuplicateActivity(ctx context.Context, organizationID, title string, start, end time.Time) (*models.Activity, error)
	InsertActivity(ctx context.Context, activity *models.Activity) error
	SeatCourseParticipants(ctx context.Context, activity *models.Activity) (int, error)

	LockActivity(ctx context.Context, id string) (*models.Activity, error)
	UpdateActivity(ctx context.Context, activity *models.Activity) error
	ReleaseActivitySeats(ctx context.Context, activityID string) (int, error)

	LockCourse(ctx context.Context, id string) (*models.Course, error)
	FindParticipant(ctx context.Context, courseID, personID string) (*models.CourseParticipant, error)
	SaveParticipant(ctx context.Context, participant *models.CourseParticipant) error
	UpdateOccupancy(ctx context.Context, courseID string, current int) error
}

// TxRunner executes fn inside a unit of work. The work is committed when fn
// returns nil and rolled back otherwise; fn's error is returned unchanged.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// TxManager runs units of work on PostgreSQL using row level locks.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager constructs the transaction manager.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx implements TxRunner.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	sqlTx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(ctx, &pgTx{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

const activityColumns = `id, organization_id, category, status, title, location, start_at, end_at, created_at, updated_at`

const courseColumns = `id, organization_id, name, type, teacher, classroom, introduction, capacity, current_participants,
    year, semester, stage_one_start, stage_one_end, stage_two_start, stage_two_end, retired, created_at, updated_at`

func (t *pgTx) LockOrganization(ctx context.Context, id string) error {
	var locked string
	if err := t.tx.GetContext(ctx, &locked, `SELECT id FROM organizations WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock organization: %w", err)
	}
	return nil
}

func (t *pgTx) FindDuplicateActivity(ctx context.Context, organizationID, title string, start, end time.Time) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
        WHERE organization_id = $1 AND category = $2 AND title = $3 AND start_at = $4 AND end_at = $5
        LIMIT 1`
	var activity models.Activity
	if err := t.tx.GetContext(ctx, &activity, query, organizationID, models.ActivityCategoryCourse, title, start, end); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find duplicate activity: %w", err)
	}
	return &activity, nil
}

func (t *pgTx) InsertActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = activity.CreatedAt
	const query = `INSERT INTO activities (id, organization_id, category, status, title, location, start_at, end_at, created_at, updated_at)
        VALUES (:id, :organization_id, :category, :status, :title, :location, :start_at, :end_at, :created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (t *pgTx) SeatCourseParticipants(ctx context.Context, activity *models.Activity) (int, error) {
	const query = `INSERT INTO activity_participants (activity_id, person_id, status, updated_at)
        SELECT DISTINCT $1::text, cp.person_id, $2::text, $3::timestamptz
        FROM course_participants cp
        JOIN courses c ON c.id = cp.course_id
        WHERE c.organization_id = $4 AND c.retired = FALSE AND cp.status IN ($5, $6)
        ON CONFLICT (activity_id, person_id) DO NOTHING`
	res, err := t.tx.ExecContext(ctx, query,
		activity.ID, models.ActivityParticipantEnrolled, time.Now().UTC(), activity.OrganizationID,
		models.ParticipantStatusSelect, models.ParticipantStatusSuccess)
	if err != nil {
		return 0, fmt.Errorf("seat activity participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("seat activity participants: %w", err)
	}
	return int(n), nil
}

func (t *pgTx) LockActivity(ctx context.Context, id string) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1 FOR UPDATE`
	var activity models.Activity
	if err := t.tx.GetContext(ctx, &activity, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock activity: %w", err)
	}
	return &activity, nil
}

func (t *pgTx) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	const query = `UPDATE activities SET title = $2, location = $3, start_at = $4, end_at = $5, status = $6, updated_at = $7 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, activity.ID, activity.Title, activity.Location, activity.Start, activity.End, activity.Status, activity.UpdatedAt); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

func (t *pgTx) ReleaseActivitySeats(ctx context.Context, activityID string) (int, error) {
	const query = `UPDATE activity_participants SET status = $2, updated_at = $3 WHERE activity_id = $1 AND status = $4`
	res, err := t.tx.ExecContext(ctx, query, activityID, models.ActivityParticipantReleased, time.Now().UTC(), models.ActivityParticipantEnrolled)
	if err != nil {
		return 0, fmt.Errorf("release activity seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release activity seats: %w", err)
	}
	return int(n), nil
}

func (t *pgTx) LockCourse(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 FOR UPDATE`
	var course models.Course
	if err := t.tx.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}
	return &course, nil
}

func (t *pgTx) FindParticipant(ctx context.Context, courseID, personID string) (*models.CourseParticipant, error) {
	const query = `SELECT id, course_id, person_id, status, updated_at FROM course_participants WHERE course_id = $1 AND person_id = $2`
	var participant models.CourseParticipant
	if err := t.tx.GetContext(ctx, &participant, query, courseID, personID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course participant: %w", err)
	}
	return &participant, nil
}

func (t *pgTx) SaveParticipant(ctx context.Context, participant *models.CourseParticipant) error {
	if participant.ID == "" {
		participant.ID = uuid.NewString()
	}
	if participant.UpdatedAt.IsZero() {
		participant.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_participants (id, course_id, person_id, status, updated_at)
        VALUES (:id, :course_id, :person_id, :status, :updated_at)
        ON CONFLICT (course_id, person_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := t.tx.NamedExecContext(ctx, query, participant); err != nil {
		return fmt.Errorf("save course participant: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateOccupancy(ctx context.Context, courseID string, current int) error {
	const query = `UPDATE courses SET current_participants = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, courseID, current, time.Now().UTC()); err != nil {
		return fmt.Errorf("update course occupancy: %w", err)
	}
	return nil
}
