package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/club-course-api/internal/models"
)

// lockTable hands out one exclusive lock per entity key.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]chan struct{})}
}

func (l *lockTable) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *lockTable) acquire(ctx context.Context, key string) error {
	select {
	case l.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lockTable) release(key string) {
	<-l.slot(key)
}

type seatOp struct {
	activityID string
	personID   string
	status     models.ActivityParticipantStatus
}

// memTx stages writes and holds entity locks until the unit of work ends.
type memTx struct {
	s     *Store
	held  map[string]struct{}
	order []string

	activities   map[string]models.Activity
	courses      map[string]models.Course
	participants map[participantKey]models.CourseParticipant
	seatOps      []seatOp
}

func (t *memTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *memTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
	t.held = map[string]struct{}{}
}

func (t *memTx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, a := range t.activities {
		t.s.activities[id] = a
	}
	for id, c := range t.courses {
		t.s.courses[id] = c
	}
	for key, p := range t.participants {
		t.s.participants[key] = p
	}
	for _, op := range t.seatOps {
		if t.s.seats[op.activityID] == nil {
			t.s.seats[op.activityID] = make(map[string]models.ActivityParticipantStatus)
		}
		t.s.seats[op.activityID][op.personID] = op.status
	}
}

func (t *memTx) activity(id string) (models.Activity, bool) {
	if a, ok := t.activities[id]; ok {
		return a, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	a, ok := t.s.activities[id]
	return a, ok
}

func (t *memTx) course(id string) (models.Course, bool) {
	if c, ok := t.courses[id]; ok {
		return c, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	c, ok := t.s.courses[id]
	return c, ok
}

func (t *memTx) LockOrganization(ctx context.Context, id string) error {
	t.s.mu.RLock()
	_, ok := t.s.organizations[id]
	t.s.mu.RUnlock()
	if !ok {
		return sql.ErrNoRows
	}
	return t.lock(ctx, "organization:"+id)
}

func (t *memTx) FindDuplicateActivity(ctx context.Context, organizationID, title string, start, end time.Time) (*models.Activity, error) {
	match := func(a models.Activity) bool {
		return a.OrganizationID == organizationID && a.Category == models.ActivityCategoryCourse &&
			a.Title == title && a.Start.Equal(start) && a.End.Equal(end)
	}
	for _, a := range t.activities {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, a := range t.s.activities {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (t *memTx) InsertActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = t.s.now()
	}
	activity.UpdatedAt = activity.CreatedAt
	t.activities[activity.ID] = *activity
	return nil
}

func (t *memTx) SeatCourseParticipants(ctx context.Context, activity *models.Activity) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	seated := make(map[string]struct{})
	for _, p := range t.s.participants {
		course, ok := t.s.courses[p.CourseID]
		if !ok || course.Retired || course.OrganizationID != activity.OrganizationID || !p.Status.Selected() {
			continue
		}
		if _, exists := t.s.seats[activity.ID][p.PersonID]; exists {
			continue
		}
		if _, dup := seated[p.PersonID]; dup {
			continue
		}
		seated[p.PersonID] = struct{}{}
		t.seatOps = append(t.seatOps, seatOp{activityID: activity.ID, personID: p.PersonID, status: models.ActivityParticipantEnrolled})
	}
	return len(seated), nil
}

func (t *memTx) LockActivity(ctx context.Context, id string) (*models.Activity, error) {
	if err := t.lock(ctx, "activity:"+id); err != nil {
		return nil, err
	}
	a, ok := t.activity(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (t *memTx) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	if _, ok := t.activity(activity.ID); !ok {
		return sql.ErrNoRows
	}
	t.activities[activity.ID] = *activity
	return nil
}

func (t *memTx) ReleaseActivitySeats(ctx context.Context, activityID string) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	released := 0
	for personID, status := range t.s.seats[activityID] {
		if status != models.ActivityParticipantEnrolled {
			continue
		}
		t.seatOps = append(t.seatOps, seatOp{activityID: activityID, personID: personID, status: models.ActivityParticipantReleased})
		released++
	}
	return released, nil
}

func (t *memTx) LockCourse(ctx context.Context, id string) (*models.Course, error) {
	if err := t.lock(ctx, "course:"+id); err != nil {
		return nil, err
	}
	c, ok := t.course(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (t *memTx) FindParticipant(ctx context.Context, courseID, personID string) (*models.CourseParticipant, error) {
	key := participantKey{courseID, personID}
	if p, ok := t.participants[key]; ok {
		return &p, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.participants[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (t *memTx) SaveParticipant(ctx context.Context, participant *models.CourseParticipant) error {
	if participant.ID == "" {
		participant.ID = uuid.NewString()
	}
	if participant.UpdatedAt.IsZero() {
		participant.UpdatedAt = t.s.now()
	}
	t.participants[participantKey{participant.CourseID, participant.PersonID}] = *participant
	return nil
}

func (t *memTx) UpdateOccupancy(ctx context.Context, courseID string, current int) error {
	c, ok := t.course(courseID)
	if !ok {
		return sql.ErrNoRows
	}
	c.CurrentParticipants = current
	c.UpdatedAt = t.s.now()
	t.courses[courseID] = c
	return nil
}
