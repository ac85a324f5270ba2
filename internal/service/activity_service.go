package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/repository"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

type activityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	ListByOrganization(ctx context.Context, organizationID string, category models.ActivityCategory) ([]models.Activity, error)
}

type principalResolver interface {
	ResolveActingPrincipal(ctx context.Context, principal models.Principal, organizationID string) (models.Principal, error)
	RequireCourseOrgType(principal models.Principal) error
	IsPlaceholder(org *models.Organization) bool
}

type seatCompensator interface {
	SeatActivity(ctx context.Context, tx repository.Tx, activity *models.Activity) (int, error)
	ReleaseActivitySeats(ctx context.Context, tx repository.Tx, activityID string) (int, error)
}

// ActivityService drives the lifecycle of single-session course activities.
type ActivityService struct {
	activities activityReader
	identity   principalResolver
	seats      seatCompensator
	tx         repository.TxRunner
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewActivityService constructs ActivityService.
func NewActivityService(activities activityReader, identity principalResolver, seats seatCompensator, tx repository.TxRunner, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activities: activities,
		identity:   identity,
		seats:      seats,
		tx:         tx,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create schedules a new course activity in WAITING. Creating the same
// (organization, title, start, end) twice returns the existing activity.
func (s *ActivityService) Create(ctx context.Context, principal models.Principal, req dto.CourseActivityRequest) (*dto.CreateActivityResult, error) {
	if err := s.identity.RequireCourseOrgType(principal); err != nil {
		return nil, err
	}
	if s.identity.IsPlaceholder(principal.Organization) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "placeholder organization cannot create activities")
	}
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	if req.Start.Before(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity cannot start in the past")
	}

	orgID := principal.Organization.ID
	result := &dto.CreateActivityResult{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockOrganization(ctx, orgID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "organization not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock organization")
		}

		existing, err := tx.FindDuplicateActivity(ctx, orgID, req.Title, req.Start, req.End)
		if err == nil {
			result.ActivityID = existing.ID
			return nil
		}
		if err != sql.ErrNoRows {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicate activity")
		}

		activity := &models.Activity{
			OrganizationID: orgID,
			Category:       models.ActivityCategoryCourse,
			Status:         models.ActivityStatusWaiting,
			Title:          req.Title,
			Location:       req.Location,
			Start:          req.Start,
			End:            req.End,
			CreatedAt:      s.now(),
		}
		if err := tx.InsertActivity(ctx, activity); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
		}
		seated, err := s.seats.SeatActivity(ctx, tx, activity)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seat participants")
		}
		result.ActivityID = activity.ID
		result.Created = true
		result.Seated = seated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		s.metrics.RecordActivityTransition(string(models.ActivityStatusWaiting))
		s.logger.Info("course activity created",
			zap.String("activity_id", result.ActivityID),
			zap.String("organization_id", orgID),
			zap.Int("seated", result.Seated))
	}
	return result, nil
}

// Edit rewrites title, location and time window of a WAITING course activity.
// A new start must not lie in the past, and the result must not duplicate
// another activity of the organization.
func (s *ActivityService) Edit(ctx context.Context, principal models.Principal, activityID string, req dto.CourseActivityRequest) (*models.Activity, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	activity, err := s.load(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(activity); err != nil {
		return nil, err
	}
	acting, err := s.authorizeOwner(ctx, principal, activity)
	if err != nil {
		return nil, err
	}

	var updated models.Activity
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockOrganization(ctx, acting.OrganizationID()); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "organization not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock organization")
		}
		locked, err := s.lock(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if locked.OrganizationID != acting.OrganizationID() {
			return appErrors.Clone(appErrors.ErrForbidden, "activity belongs to another organization")
		}
		if err := checkEditable(locked); err != nil {
			return err
		}
		if !req.Start.Equal(locked.Start) && req.Start.Before(s.now()) {
			return appErrors.Clone(appErrors.ErrValidation, "activity cannot start in the past")
		}

		existing, err := tx.FindDuplicateActivity(ctx, locked.OrganizationID, req.Title, req.Start, req.End)
		if err == nil && existing.ID != locked.ID {
			return appErrors.Clone(appErrors.ErrConflict, "an identical activity already exists")
		}
		if err != nil && err != sql.ErrNoRows {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicate activity")
		}

		locked.Title = req.Title
		locked.Location = req.Location
		locked.Start = req.Start
		locked.End = req.End
		locked.UpdatedAt = s.now()
		if err := tx.UpdateActivity(ctx, locked); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
		}
		updated = *locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("course activity edited", zap.String("activity_id", activityID), zap.Bool("elevated", acting.Elevated))
	return &updated, nil
}

// Cancel moves a WAITING or PROGRESSING course activity to CANCELED and
// releases its seats in the same unit of work.
func (s *ActivityService) Cancel(ctx context.Context, principal models.Principal, activityID string) (*models.Activity, error) {
	activity, err := s.load(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Category != models.ActivityCategoryCourse {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only course activities can be canceled here")
	}
	acting, err := s.authorizeOwner(ctx, principal, activity)
	if err != nil {
		return nil, err
	}

	var (
		canceled models.Activity
		released int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := s.lock(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if locked.OrganizationID != acting.OrganizationID() {
			return appErrors.Clone(appErrors.ErrForbidden, "activity belongs to another organization")
		}
		if err := checkCancelable(locked); err != nil {
			return err
		}

		locked.Status = models.ActivityStatusCanceled
		locked.UpdatedAt = s.now()
		if err := tx.UpdateActivity(ctx, locked); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel activity")
		}
		released, err = s.seats.ReleaseActivitySeats(ctx, tx, locked.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release activity seats")
		}
		canceled = *locked
		return nil
	})
	if err != nil {
		s.reportIntegrity(activityID, err)
		return nil, err
	}

	s.metrics.RecordActivityTransition(string(models.ActivityStatusCanceled))
	s.logger.Info("course activity canceled",
		zap.String("activity_id", activityID),
		zap.Bool("elevated", acting.Elevated),
		zap.Int("released", released))
	return &canceled, nil
}

// ListForOrganization splits the course organization's activities into upcoming and finished.
func (s *ActivityService) ListForOrganization(ctx context.Context, principal models.Principal) (*dto.OrganizationActivities, error) {
	if err := s.identity.RequireCourseOrgType(principal); err != nil {
		return nil, err
	}
	activities, err := s.activities.ListByOrganization(ctx, principal.Organization.ID, models.ActivityCategoryCourse)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}

	out := &dto.OrganizationActivities{Future: []models.Activity{}, Finished: []models.Activity{}}
	for _, a := range activities {
		switch a.Status {
		case models.ActivityStatusReviewing, models.ActivityStatusApplying, models.ActivityStatusWaiting, models.ActivityStatusProgressing:
			out.Future = append(out.Future, a)
		case models.ActivityStatusEnd, models.ActivityStatusCanceled:
			out.Finished = append(out.Finished, a)
		}
	}
	sort.SliceStable(out.Future, func(i, j int) bool { return out.Future[i].Start.After(out.Future[j].Start) })
	sort.SliceStable(out.Finished, func(i, j int) bool { return out.Finished[i].End.After(out.Finished[j].End) })
	return out, nil
}

// Advance applies time-based progression: WAITING becomes PROGRESSING once
// the activity started and PROGRESSING becomes END once it finished.
// Activities with nothing to advance are returned unchanged.
func (s *ActivityService) Advance(ctx context.Context, activityID string) (*models.Activity, error) {
	var (
		advanced    models.Activity
		transitions []models.ActivityStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := s.lock(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if locked.Category != models.ActivityCategoryCourse {
			return appErrors.Clone(appErrors.ErrInvalidState, "only course activities advance automatically")
		}
		if locked.Status.RequiresReview() {
			return integrityViolation(locked)
		}

		now := s.now()
		if locked.Status == models.ActivityStatusWaiting && !now.Before(locked.Start) {
			transitions = append(transitions, models.ActivityStatusProgressing)
			locked.Status = models.ActivityStatusProgressing
		}
		if locked.Status == models.ActivityStatusProgressing && !now.Before(locked.End) {
			transitions = append(transitions, models.ActivityStatusEnd)
			locked.Status = models.ActivityStatusEnd
		}
		advanced = *locked
		if len(transitions) == 0 {
			return nil
		}

		locked.UpdatedAt = now
		advanced.UpdatedAt = now
		if err := tx.UpdateActivity(ctx, locked); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance activity")
		}
		return nil
	})
	if err != nil {
		s.reportIntegrity(activityID, err)
		return nil, err
	}

	for _, status := range transitions {
		s.metrics.RecordActivityTransition(string(status))
	}
	if len(transitions) > 0 {
		s.logger.Info("course activity advanced", zap.String("activity_id", activityID), zap.String("status", string(advanced.Status)))
	}
	return &advanced, nil
}

func (s *ActivityService) normalize(req dto.CourseActivityRequest) (dto.CourseActivityRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	req.Start = req.Start.UTC()
	req.End = req.End.UTC()
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course activity payload")
	}
	return req, nil
}

func (s *ActivityService) load(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return activity, nil
}

func (s *ActivityService) lock(ctx context.Context, tx repository.Tx, id string) (*models.Activity, error) {
	activity, err := tx.LockActivity(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock activity")
	}
	return activity, nil
}

func (s *ActivityService) authorizeOwner(ctx context.Context, principal models.Principal, activity *models.Activity) (models.Principal, error) {
	acting, err := s.identity.ResolveActingPrincipal(ctx, principal, activity.OrganizationID)
	if err != nil {
		return models.Principal{}, err
	}
	if acting.OrganizationID() != activity.OrganizationID {
		return models.Principal{}, appErrors.Clone(appErrors.ErrForbidden, "activity belongs to another organization")
	}
	return acting, nil
}

func (s *ActivityService) reportIntegrity(activityID string, err error) {
	if !errors.Is(err, appErrors.ErrIntegrity) {
		return
	}
	s.metrics.RecordIntegrityViolation()
	s.logger.Error("course activity integrity violation", zap.String("activity_id", activityID), zap.Error(err))
}

func checkEditable(activity *models.Activity) error {
	if activity.Category != models.ActivityCategoryCourse {
		return appErrors.Clone(appErrors.ErrInvalidState, "only course activities can be edited")
	}
	if activity.Status != models.ActivityStatusWaiting {
		return appErrors.Clone(appErrors.ErrInvalidState, "activity can only be edited while waiting")
	}
	return nil
}

func checkCancelable(activity *models.Activity) error {
	if activity.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "activity already "+strings.ToLower(string(activity.Status)))
	}
	if activity.Status.RequiresReview() {
		return integrityViolation(activity)
	}
	if !activity.Status.CanTransitionTo(models.ActivityStatusCanceled) {
		return appErrors.Clone(appErrors.ErrInvalidState, "activity cannot be canceled")
	}
	return nil
}

func integrityViolation(activity *models.Activity) error {
	return appErrors.Clone(appErrors.ErrIntegrity, "course activity "+activity.ID+" is in review status "+string(activity.Status))
}
