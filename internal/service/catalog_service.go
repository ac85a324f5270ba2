package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListActive(ctx context.Context, year int, semester string) ([]models.Course, error)
	ListSelectedByPerson(ctx context.Context, personID string) ([]models.CourseParticipant, error)
}

// CatalogService builds read-only course views. It never takes locks.
type CatalogService struct {
	courses    courseReader
	activities activityReader
	cache      *CacheService
	cacheTTL   time.Duration
	policy     EnrollmentPolicy
	logger     *zap.Logger
	now        func() time.Time
}

// NewCatalogService constructs CatalogService. A nil cache reads straight from the store.
func NewCatalogService(courses courseReader, activities activityReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		courses:    courses,
		activities: activities,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// BuildCatalog partitions the semester's active courses into the person's
// selections and the remaining courses grouped by type.
func (s *CatalogService) BuildCatalog(ctx context.Context, principal models.Principal, snapshot dto.SemesterSnapshot) (*dto.Catalog, error) {
	courses, err := s.activeCourses(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	selections, err := s.selections(ctx, principal)
	if err != nil {
		return nil, err
	}

	catalog := &dto.Catalog{
		Year:       snapshot.Year,
		Semester:   snapshot.Semester,
		Unselected: make(map[models.CourseType][]dto.CourseDisplay, len(models.CourseTypes)),
		Selected:   []dto.CourseDisplay{},
	}
	for _, courseType := range models.CourseTypes {
		catalog.Unselected[courseType] = []dto.CourseDisplay{}
	}

	now := s.now()
	for i := range courses {
		course := &courses[i]
		status, selected := selections[course.ID]
		display := s.display(course, now, status)
		if selected {
			catalog.Selected = append(catalog.Selected, display)
			continue
		}
		catalog.Unselected[course.Type] = append(catalog.Unselected[course.Type], display)
	}
	return catalog, nil
}

// BuildCourseDetail returns the detail view of an active course.
func (s *CatalogService) BuildCourseDetail(ctx context.Context, courseID string, principal models.Principal) (*dto.CourseDisplay, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Retired {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	selections, err := s.selections(ctx, principal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	detail := s.display(course, now, selections[course.ID])
	detail.Introduction = course.Introduction
	detail.StageOneStart = optionalTime(course.StageOneStart)
	detail.StageOneEnd = optionalTime(course.StageOneEnd)
	detail.StageTwoStart = optionalTime(course.StageTwoStart)
	detail.StageTwoEnd = optionalTime(course.StageTwoEnd)

	activities, err := s.activities.ListByOrganization(ctx, course.OrganizationID, models.ActivityCategoryCourse)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course activities")
	}
	detail.UpcomingActivities = []dto.ActivityBrief{}
	for _, a := range activities {
		if a.Status != models.ActivityStatusWaiting && a.Status != models.ActivityStatusProgressing {
			continue
		}
		if !a.End.After(now) {
			continue
		}
		detail.UpcomingActivities = append(detail.UpcomingActivities, dto.ActivityBrief{
			ID:       a.ID,
			Title:    a.Title,
			Location: a.Location,
			Start:    a.Start,
			End:      a.End,
			Status:   a.Status,
		})
	}
	sort.SliceStable(detail.UpcomingActivities, func(i, j int) bool {
		return detail.UpcomingActivities[i].Start.Before(detail.UpcomingActivities[j].Start)
	})
	return &detail, nil
}

func (s *CatalogService) activeCourses(ctx context.Context, snapshot dto.SemesterSnapshot) ([]models.Course, error) {
	key := activeCoursesKey(snapshot.Year, snapshot.Semester)
	var cached []models.Course
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	courses, err := s.courses.ListActive(ctx, snapshot.Year, snapshot.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	_ = s.cache.Set(ctx, key, courses, s.cacheTTL)
	return courses, nil
}

func (s *CatalogService) selections(ctx context.Context, principal models.Principal) (map[string]models.ParticipantStatus, error) {
	out := make(map[string]models.ParticipantStatus)
	if !principal.IsPerson() {
		return out, nil
	}
	participations, err := s.courses.ListSelectedByPerson(ctx, principal.Person.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selections")
	}
	for _, p := range participations {
		if p.Status.Selected() {
			out[p.CourseID] = p.Status
		}
	}
	return out, nil
}

func (s *CatalogService) display(course *models.Course, now time.Time, status models.ParticipantStatus) dto.CourseDisplay {
	return dto.CourseDisplay{
		ID:                  course.ID,
		Name:                course.Name,
		Type:                course.Type,
		Teacher:             course.Teacher,
		Classroom:           course.Classroom,
		Capacity:            course.Capacity,
		CurrentParticipants: course.CurrentParticipants,
		Remaining:           course.Remaining(),
		Phase:               string(s.policy.Phase(course, now)),
		Selected:            status.Selected(),
		ParticipantStatus:   status,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
