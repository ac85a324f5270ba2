package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
	"github.com/noah-isme/club-course-api/pkg/jobs"
)

const advanceJobType = "course_activity.advance"

type dueActivityLister interface {
	ListDue(ctx context.Context, now time.Time) ([]models.Activity, error)
}

type activityAdvancer interface {
	Advance(ctx context.Context, activityID string) (*models.Activity, error)
}

// AdvancerConfig tunes the background sweep.
type AdvancerConfig struct {
	Interval time.Duration
	Workers  int
}

// AdvancerService periodically finds course activities that are due to
// move forward and advances each of them on a worker queue.
type AdvancerService struct {
	lister   dueActivityLister
	advancer activityAdvancer
	queue    *jobs.Queue
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdvancerService wires the sweep to the activity lifecycle.
func NewAdvancerService(lister dueActivityLister, advancer activityAdvancer, cfg AdvancerConfig, logger *zap.Logger) *AdvancerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	s := &AdvancerService{
		lister:   lister,
		advancer: advancer,
		interval: cfg.Interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("activity-advancer", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start runs the workers and the sweep ticker until ctx is done or Stop is called.
func (s *AdvancerService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("activity sweep failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop waits for in-flight advances.
func (s *AdvancerService) Stop() {
	s.queue.Stop()
}

// Sweep enqueues every due activity and returns how many were accepted.
func (s *AdvancerService) Sweep(ctx context.Context) (int, error) {
	due, err := s.lister.ListDue(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due activities")
	}
	accepted := 0
	for _, activity := range due {
		ok, err := s.queue.Enqueue(jobs.Job{Key: activity.ID, Type: advanceJobType})
		if err != nil {
			return accepted, err
		}
		if ok {
			accepted++
		}
	}
	if accepted > 0 {
		s.logger.Debug("activity sweep queued", zap.Int("queued", accepted))
	}
	return accepted, nil
}

func (s *AdvancerService) handle(ctx context.Context, job jobs.Job) error {
	_, err := s.advancer.Advance(ctx, job.Key)
	if err == nil {
		return nil
	}
	// Only infrastructure failures are retried.
	switch {
	case errors.Is(err, appErrors.ErrNotFound), errors.Is(err, appErrors.ErrInvalidState), errors.Is(err, appErrors.ErrIntegrity):
		s.logger.Warn("activity not advanced", zap.String("activity_id", job.Key), zap.Error(err))
		return nil
	}
	return err
}
