package memory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/repository"
)

func seededStore() *Store {
	s := NewStore()
	s.PutOrganization(models.Organization{ID: "org-1", UserID: "u-org", Name: "Chess", TypeName: "course"})
	s.PutPerson(models.Person{ID: "p-1", UserID: "u-1", Name: "Ana", Identity: models.PersonIdentityStudent})
	s.PutPerson(models.Person{ID: "p-2", UserID: "u-2", Name: "Bo", Identity: models.PersonIdentityStudent})
	s.AddMember("org-1", "p-2")
	s.PutCourse(models.Course{ID: "c-1", OrganizationID: "org-1", Name: "Openings", Type: models.CourseTypeIntellectual, Capacity: 2, Year: 2024, Semester: "Fall"})
	s.PutCourse(models.Course{ID: "c-2", OrganizationID: "org-1", Name: "Endgames", Type: models.CourseTypeIntellectual, Capacity: 2, Year: 2024, Semester: "Fall", Retired: true})
	return s
}

func TestStoreIdentityReads(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	person, err := s.Identities().FindPersonByUserID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", person.ID)

	_, err = s.Identities().FindOrganizationByUserID(ctx, "u-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	member, err := s.Identities().IsMember(ctx, "org-1", "p-2")
	require.NoError(t, err)
	assert.True(t, member)
	member, err = s.Identities().IsMember(ctx, "org-1", "p-1")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestStoreListActiveSkipsRetired(t *testing.T) {
	s := seededStore()
	courses, err := s.Courses().ListActive(context.Background(), 2024, "Fall")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "c-1", courses[0].ID)
}

func TestWithinTxCommitsStagedWrites(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		course, err := tx.LockCourse(ctx, "c-1")
		if err != nil {
			return err
		}
		if err := tx.SaveParticipant(ctx, &models.CourseParticipant{CourseID: course.ID, PersonID: "p-1", Status: models.ParticipantStatusSelect}); err != nil {
			return err
		}
		return tx.UpdateOccupancy(ctx, course.ID, course.CurrentParticipants+1)
	})
	require.NoError(t, err)

	course, err := s.Courses().FindByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 1, course.CurrentParticipants)

	selected, err := s.Courses().ListSelectedByPerson(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, models.ParticipantStatusSelect, selected[0].Status)

	roster, err := s.Courses().ListRoster(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Ana", roster[0].PersonName)
}

func TestWithinTxDiscardsOnError(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.UpdateOccupancy(ctx, "c-1", 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	course, err := s.Courses().FindByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 0, course.CurrentParticipants)

	// the lock must have been released
	err = s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.LockCourse(ctx, "c-1")
		return err
	})
	assert.NoError(t, err)
}

func TestLockHonoursContext(t *testing.T) {
	s := seededStore()
	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			_, err := tx.LockCourse(ctx, "c-1")
			close(held)
			<-done
			return err
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.LockCourse(ctx, "c-1")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(done)
}

func TestSeatAndReleaseActivity(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	s.PutParticipant(models.CourseParticipant{CourseID: "c-1", PersonID: "p-1", Status: models.ParticipantStatusSuccess})
	s.PutParticipant(models.CourseParticipant{CourseID: "c-2", PersonID: "p-2", Status: models.ParticipantStatusSelect})

	activity := &models.Activity{OrganizationID: "org-1", Category: models.ActivityCategoryCourse, Status: models.ActivityStatusWaiting, Title: "Intro"}
	var seated int
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockOrganization(ctx, "org-1"); err != nil {
			return err
		}
		if err := tx.InsertActivity(ctx, activity); err != nil {
			return err
		}
		var err error
		seated, err = tx.SeatCourseParticipants(ctx, activity)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seated)
	assert.Equal(t, map[string]models.ActivityParticipantStatus{"p-1": models.ActivityParticipantEnrolled}, s.ActivitySeats(activity.ID))

	var released int
	err = s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		released, err = tx.ReleaseActivitySeats(ctx, activity.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, models.ActivityParticipantReleased, s.ActivitySeats(activity.ID)["p-1"])
}

func TestFindDuplicateActivitySeesStagedInsert(t *testing.T) {
	s := seededStore()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.FindDuplicateActivity(ctx, "org-1", "Intro", start, end)
		require.ErrorIs(t, err, sql.ErrNoRows)
		require.NoError(t, tx.InsertActivity(ctx, &models.Activity{ID: "a-1", OrganizationID: "org-1", Category: models.ActivityCategoryCourse, Title: "Intro", Start: start, End: end}))
		found, err := tx.FindDuplicateActivity(ctx, "org-1", "Intro", start, end)
		require.NoError(t, err)
		assert.Equal(t, "a-1", found.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestActivitiesListDue(t *testing.T) {
	s := seededStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.PutActivity(models.Activity{ID: "started", OrganizationID: "org-1", Category: models.ActivityCategoryCourse, Status: models.ActivityStatusWaiting, Start: now.Add(-time.Hour), End: now.Add(time.Hour)})
	s.PutActivity(models.Activity{ID: "ended", OrganizationID: "org-1", Category: models.ActivityCategoryCourse, Status: models.ActivityStatusProgressing, Start: now.Add(-3 * time.Hour), End: now})
	s.PutActivity(models.Activity{ID: "future", OrganizationID: "org-1", Category: models.ActivityCategoryCourse, Status: models.ActivityStatusWaiting, Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)})
	s.PutActivity(models.Activity{ID: "normal", OrganizationID: "org-1", Category: models.ActivityCategoryNormal, Status: models.ActivityStatusWaiting, Start: now.Add(-time.Hour), End: now.Add(time.Hour)})

	due, err := s.Activities().ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "ended", due[0].ID)
	assert.Equal(t, "started", due[1].ID)
}
