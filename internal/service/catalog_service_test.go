package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

func courseIDs(list []dto.CourseDisplay) []string {
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestBuildCatalogPartitionsByPerson(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	snapshot := dto.SemesterSnapshot{Year: 2024, Semester: "Fall"}

	require.True(t, f.registration.ChangeRegistration(ctx, "c-open", f.ana.Person, dto.RegistrationSelect).Succeeded())

	catalog, err := f.catalog.BuildCatalog(ctx, f.ana, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 2024, catalog.Year)
	assert.Equal(t, "Fall", catalog.Semester)

	require.Len(t, catalog.Selected, 1)
	assert.Equal(t, "c-open", catalog.Selected[0].ID)
	assert.True(t, catalog.Selected[0].Selected)
	assert.Equal(t, models.ParticipantStatusSelect, catalog.Selected[0].ParticipantStatus)
	assert.Equal(t, 1, catalog.Selected[0].Remaining)

	for _, courseType := range models.CourseTypes {
		_, ok := catalog.Unselected[courseType]
		assert.True(t, ok, "missing group %s", courseType)
	}
	assert.ElementsMatch(t, []string{"c-full", "c-adddrop"}, courseIDs(catalog.Unselected[models.CourseTypeIntellectual]))
	assert.Empty(t, catalog.Unselected[models.CourseTypeMoral], "retired courses are hidden")
	require.Len(t, catalog.Unselected[models.CourseTypeAesthetic], 1)
	assert.Equal(t, string(EnrollmentPhaseClosed), catalog.Unselected[models.CourseTypeAesthetic][0].Phase)
}

func TestBuildCatalogForOrganizationHasNoSelections(t *testing.T) {
	f := newCourseFixture(t)
	catalog, err := f.catalog.BuildCatalog(context.Background(), f.courseOrg, dto.SemesterSnapshot{Year: 2024, Semester: "Fall"})
	require.NoError(t, err)
	assert.Empty(t, catalog.Selected)
	assert.Len(t, catalog.Unselected[models.CourseTypeIntellectual], 3)
}

func TestBuildCatalogOtherSemesterIsEmpty(t *testing.T) {
	f := newCourseFixture(t)
	catalog, err := f.catalog.BuildCatalog(context.Background(), f.ana, dto.SemesterSnapshot{Year: 2023, Semester: "Spring"})
	require.NoError(t, err)
	assert.Empty(t, catalog.Selected)
	for _, courseType := range models.CourseTypes {
		assert.Empty(t, catalog.Unselected[courseType])
	}
}

func TestBuildCatalogServesFromCache(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	snapshot := dto.SemesterSnapshot{Year: 2024, Semester: "Fall"}

	_, err := f.catalog.BuildCatalog(ctx, f.ana, snapshot)
	require.NoError(t, err)

	// a course written behind the cache's back stays invisible until invalidation
	f.store.PutCourse(models.Course{ID: "c-new", OrganizationID: "org-chess", Name: "New", Type: models.CourseTypeLabor, Capacity: 1, Year: 2024, Semester: "Fall"})
	cached, err := f.catalog.BuildCatalog(ctx, f.ana, snapshot)
	require.NoError(t, err)
	assert.NotContains(t, courseIDs(cached.Unselected[models.CourseTypeLabor]), "c-new")

	require.NoError(t, f.cache.Invalidate(ctx, catalogCachePattern))
	fresh, err := f.catalog.BuildCatalog(ctx, f.ana, snapshot)
	require.NoError(t, err)
	assert.Contains(t, courseIDs(fresh.Unselected[models.CourseTypeLabor]), "c-new")
}

func TestBuildCourseDetail(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	f.store.PutActivity(models.Activity{ID: "a-next", OrganizationID: "org-chess", Category: models.ActivityCategoryCourse, Status: models.ActivityStatusWaiting, Title: "Next", Start: fixtureNow.Add(48 * time.Hour), End: fixtureNow.Add(50 * time.Hour)})
	f.store.PutActivity(models.Activity{ID: "a-soon", OrganizationID: "org-chess", Category: models.ActivityCategoryCourse, Status: models.ActivityStatusWaiting, Title: "Soon", Start: fixtureNow.Add(time.Hour), End: fixtureNow.Add(2 * time.Hour)})
	f.store.PutActivity(models.Activity{ID: "a-gone", OrganizationID: "org-chess", Category: models.ActivityCategoryCourse, Status: models.ActivityStatusCanceled, Title: "Gone", Start: fixtureNow.Add(time.Hour), End: fixtureNow.Add(2 * time.Hour)})

	detail, err := f.catalog.BuildCourseDetail(ctx, "c-open", f.ana)
	require.NoError(t, err)
	assert.Equal(t, "Learn openings", detail.Introduction)
	assert.Equal(t, string(EnrollmentPhasePreSelection), detail.Phase)
	require.NotNil(t, detail.StageOneStart)
	assert.Nil(t, detail.StageTwoStart)
	require.Len(t, detail.UpcomingActivities, 2)
	assert.Equal(t, "a-soon", detail.UpcomingActivities[0].ID)
	assert.Equal(t, "a-next", detail.UpcomingActivities[1].ID)
	assert.False(t, detail.Selected)

	_, err = f.catalog.BuildCourseDetail(ctx, "c-retired", f.ana)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.catalog.BuildCourseDetail(ctx, "c-missing", f.courseOrg)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
