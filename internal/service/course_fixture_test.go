package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/repository/memory"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

const courseOrgType = "course"

var fixtureNow = time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)

type courseFixture struct {
	store        *memory.Store
	metrics      *MetricsService
	cache        *CacheService
	cacheRepo    *fakeCacheRepo
	identity     *IdentityService
	registration *RegistrationService
	activities   *ActivityService
	catalog      *CatalogService
	exports      *ExportService

	courseOrg   models.Principal
	placeholder models.Principal
	musicOrg    models.Principal
	ana         models.Principal
	bo          models.Principal
	teacher     models.Principal
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	store := memory.NewStore()

	chess := models.Organization{ID: "org-chess", UserID: "u-chess", Name: "Chess Club", TypeName: courseOrgType}
	yuanpei := models.Organization{ID: "org-yuanpei", UserID: "u-yuanpei", Name: "Yuanpei", TypeName: courseOrgType}
	music := models.Organization{ID: "org-music", UserID: "u-music", Name: "Music Club", TypeName: "club"}
	ana := models.Person{ID: "p-ana", UserID: "u-ana", Name: "Ana", Identity: models.PersonIdentityStudent}
	bo := models.Person{ID: "p-bo", UserID: "u-bo", Name: "Bo", Identity: models.PersonIdentityStudent}
	teacher := models.Person{ID: "p-teach", UserID: "u-teach", Name: "Teacher", Identity: models.PersonIdentityTeacher}
	for _, o := range []models.Organization{chess, yuanpei, music} {
		store.PutOrganization(o)
	}
	for _, p := range []models.Person{ana, bo, teacher} {
		store.PutPerson(p)
	}
	store.AddMember(chess.ID, bo.ID)

	open := func(c models.Course) models.Course {
		c.OrganizationID = chess.ID
		c.Year = 2024
		c.Semester = "Fall"
		c.StageOneStart = fixtureNow.Add(-7 * 24 * time.Hour)
		c.StageOneEnd = fixtureNow.Add(7 * 24 * time.Hour)
		return c
	}
	store.PutCourse(open(models.Course{ID: "c-open", Name: "Openings", Type: models.CourseTypeIntellectual, Capacity: 2, Introduction: "Learn openings"}))
	store.PutCourse(open(models.Course{ID: "c-full", Name: "Blitz", Type: models.CourseTypeIntellectual, Capacity: 2, CurrentParticipants: 2}))
	store.PutCourse(open(models.Course{ID: "c-last", Name: "Simul", Type: models.CourseTypePhysical, Capacity: 1}))
	store.PutCourse(open(models.Course{ID: "c-zero", Name: "Ghost", Type: models.CourseTypeLabor, Capacity: 0}))
	store.PutCourse(open(models.Course{ID: "c-retired", Name: "Old", Type: models.CourseTypeMoral, Capacity: 5, Retired: true}))
	closed := open(models.Course{ID: "c-closed", Name: "History", Type: models.CourseTypeAesthetic, Capacity: 5})
	closed.StageOneStart = fixtureNow.Add(-60 * 24 * time.Hour)
	closed.StageOneEnd = fixtureNow.Add(-30 * 24 * time.Hour)
	store.PutCourse(closed)
	addDrop := open(models.Course{ID: "c-adddrop", Name: "Endgames", Type: models.CourseTypeIntellectual, Capacity: 3})
	addDrop.StageOneStart = fixtureNow.Add(-60 * 24 * time.Hour)
	addDrop.StageOneEnd = fixtureNow.Add(-30 * 24 * time.Hour)
	addDrop.StageTwoStart = fixtureNow.Add(-24 * time.Hour)
	addDrop.StageTwoEnd = fixtureNow.Add(24 * time.Hour)
	store.PutCourse(addDrop)

	metrics := NewMetricsService()
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, nil, true)
	identity := NewIdentityService(store.Identities(), IdentityConfig{CourseOrganizationType: courseOrgType, PlaceholderOrganization: "Yuanpei"}, nil)
	registration := NewRegistrationService(store, cache, metrics, nil)
	registration.now = func() time.Time { return fixtureNow }
	activities := NewActivityService(store.Activities(), identity, registration, store, nil, metrics, nil)
	activities.now = func() time.Time { return fixtureNow }
	catalog := NewCatalogService(store.Courses(), store.Activities(), cache, time.Minute, nil)
	catalog.now = func() time.Time { return fixtureNow }
	exports := NewExportService(store.Courses(), identity, nil, nil, nil)
	exports.now = func() time.Time { return fixtureNow }

	return &courseFixture{
		store:        store,
		metrics:      metrics,
		cache:        cache,
		cacheRepo:    cacheRepo,
		identity:     identity,
		registration: registration,
		activities:   activities,
		catalog:      catalog,
		exports:      exports,
		courseOrg:    models.OrganizationPrincipal(&chess),
		placeholder:  models.OrganizationPrincipal(&yuanpei),
		musicOrg:     models.OrganizationPrincipal(&music),
		ana:          models.PersonPrincipal(&ana),
		bo:           models.PersonPrincipal(&bo),
		teacher:      models.PersonPrincipal(&teacher),
	}
}

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string][]byte)}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeCacheRepo) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}
