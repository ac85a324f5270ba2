package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/repository"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

const registrationRetryMessage = "registration could not be processed, please retry"

// RegistrationService selects and drops courses under capacity and window constraints.
// Every change runs inside a unit of work holding the course lock.
type RegistrationService struct {
	tx      repository.TxRunner
	policy  EnrollmentPolicy
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(tx repository.TxRunner, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		tx:      tx,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ChangeRegistration applies action for person on course. Failures are reported in the result.
func (s *RegistrationService) ChangeRegistration(ctx context.Context, courseID string, person *models.Person, action dto.RegistrationAction) dto.RegistrationResult {
	var result dto.RegistrationResult
	err := s.change(ctx, courseID, person, action, &result)

	succeeded := err == nil
	s.metrics.RecordRegistration(string(action), succeeded)
	if !succeeded {
		return s.failure(courseID, person, action, err)
	}

	_ = s.cache.Invalidate(ctx, catalogCachePattern)
	s.logger.Info("course registration changed",
		zap.String("course_id", courseID),
		zap.String("person_id", person.ID),
		zap.String("action", string(action)),
		zap.String("status", string(result.Status)),
		zap.Int("current_participants", result.CurrentParticipants))
	return result
}

func (s *RegistrationService) change(ctx context.Context, courseID string, person *models.Person, action dto.RegistrationAction, result *dto.RegistrationResult) error {
	if action != dto.RegistrationSelect && action != dto.RegistrationCancel {
		return appErrors.Clone(appErrors.ErrValidation, "unknown registration action")
	}
	if person == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "only persons may select courses")
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		course, err := tx.LockCourse(ctx, courseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock course")
		}
		if course.Retired {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}

		participant, err := tx.FindParticipant(ctx, course.ID, person.ID)
		if err != nil && err != sql.ErrNoRows {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participation")
		}
		if participant == nil {
			participant = &models.CourseParticipant{CourseID: course.ID, PersonID: person.ID, Status: models.ParticipantStatusUnselect}
		}

		now := s.now()
		phase := s.policy.Phase(course, now)
		occupancy := course.CurrentParticipants

		if action == dto.RegistrationSelect {
			if participant.Status.Selected() {
				return appErrors.Clone(appErrors.ErrConflict, "course already selected")
			}
			if phase == EnrollmentPhaseClosed {
				return appErrors.Clone(appErrors.ErrEnrollmentClosed, "not in a selection period")
			}
			if !s.policy.HasSeat(course) {
				return appErrors.Clone(appErrors.ErrCapacityFull, "course is full")
			}
			participant.Status = s.policy.StatusFor(phase)
			occupancy++
		} else {
			if !participant.Status.Selected() {
				return appErrors.Clone(appErrors.ErrConflict, "course not selected")
			}
			if phase == EnrollmentPhaseClosed {
				return appErrors.Clone(appErrors.ErrEnrollmentClosed, "not in a selection period")
			}
			participant.Status = models.ParticipantStatusUnselect
			if occupancy > 0 {
				occupancy--
			}
		}

		participant.UpdatedAt = now
		if err := tx.SaveParticipant(ctx, participant); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save participation")
		}
		if err := tx.UpdateOccupancy(ctx, course.ID, occupancy); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update occupancy")
		}

		message := "course selected"
		if action == dto.RegistrationCancel {
			message = "course dropped"
		}
		*result = dto.RegistrationResult{
			WarnCode:            dto.WarnCodeSuccess,
			WarnMessage:         message,
			CourseID:            course.ID,
			Status:              participant.Status,
			CurrentParticipants: occupancy,
		}
		return nil
	})
}

func (s *RegistrationService) failure(courseID string, person *models.Person, action dto.RegistrationAction, err error) dto.RegistrationResult {
	appErr := appErrors.FromError(err)
	message := appErr.Message
	if appErr.Code == appErrors.ErrInternal.Code {
		fields := []zap.Field{zap.String("course_id", courseID), zap.String("action", string(action)), zap.Error(err)}
		if person != nil {
			fields = append(fields, zap.String("person_id", person.ID))
		}
		s.logger.Error("course registration failed", fields...)
		message = registrationRetryMessage
	}
	return dto.RegistrationResult{
		WarnCode:    dto.WarnCodeFailure,
		WarnMessage: message,
		Reason:      appErr.Code,
		CourseID:    courseID,
	}
}

// SeatActivity seats every person currently selected in one of the
// organization's courses into a newly created activity.
func (s *RegistrationService) SeatActivity(ctx context.Context, tx repository.Tx, activity *models.Activity) (int, error) {
	seated, err := tx.SeatCourseParticipants(ctx, activity)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("activity seats assigned", zap.String("activity_id", activity.ID), zap.Int("seated", seated))
	return seated, nil
}

// ReleaseActivitySeats is the compensation hook run when an activity is canceled.
// It must be called inside the canceling unit of work.
func (s *RegistrationService) ReleaseActivitySeats(ctx context.Context, tx repository.Tx, activityID string) (int, error) {
	released, err := tx.ReleaseActivitySeats(ctx, activityID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("activity seats released", zap.String("activity_id", activityID), zap.Int("released", released))
	return released, nil
}
