// Package memory provides an in-process implementation of the course store
// used for local development and concurrency tests. Units of work take
// per-entity locks and stage their writes until commit.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/repository"
)

var _ repository.TxRunner = (*Store)(nil)

// Store keeps all course module state in memory.
type Store struct {
	mu            sync.RWMutex
	persons       map[string]models.Person
	organizations map[string]models.Organization
	members       map[string]map[string]struct{}
	activities    map[string]models.Activity
	seats         map[string]map[string]models.ActivityParticipantStatus
	courses       map[string]models.Course
	participants  map[participantKey]models.CourseParticipant

	locks *lockTable
	now   func() time.Time
}

type participantKey struct {
	courseID string
	personID string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		persons:       make(map[string]models.Person),
		organizations: make(map[string]models.Organization),
		members:       make(map[string]map[string]struct{}),
		activities:    make(map[string]models.Activity),
		seats:         make(map[string]map[string]models.ActivityParticipantStatus),
		courses:       make(map[string]models.Course),
		participants:  make(map[participantKey]models.CourseParticipant),
		locks:         newLockTable(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Identities returns the identity reader view.
func (s *Store) Identities() *Identities { return &Identities{s: s} }

// Activities returns the activity reader view.
func (s *Store) Activities() *Activities { return &Activities{s: s} }

// Courses returns the course reader view.
func (s *Store) Courses() *Courses { return &Courses{s: s} }

// PutPerson inserts or replaces a person.
func (s *Store) PutPerson(p models.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[p.ID] = p
}

// PutOrganization inserts or replaces an organization.
func (s *Store) PutOrganization(o models.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[o.ID] = o
}

// AddMember records that a person belongs to an organization.
func (s *Store) AddMember(organizationID, personID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[organizationID] == nil {
		s.members[organizationID] = make(map[string]struct{})
	}
	s.members[organizationID][personID] = struct{}{}
}

// PutActivity inserts or replaces an activity.
func (s *Store) PutActivity(a models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[a.ID] = a
}

// PutCourse inserts or replaces a course.
func (s *Store) PutCourse(c models.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
}

// PutParticipant inserts or replaces a course participation.
func (s *Store) PutParticipant(p models.CourseParticipant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.participants[participantKey{p.CourseID, p.PersonID}] = p
}

// ActivitySeats returns the seat status of every person seated in an activity.
func (s *Store) ActivitySeats(activityID string) map[string]models.ActivityParticipantStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.ActivityParticipantStatus, len(s.seats[activityID]))
	for personID, status := range s.seats[activityID] {
		out[personID] = status
	}
	return out
}

// WithinTx implements repository.TxRunner.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &memTx{
		s:            s,
		held:         make(map[string]struct{}),
		activities:   make(map[string]models.Activity),
		courses:      make(map[string]models.Course),
		participants: make(map[participantKey]models.CourseParticipant),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Identities implements the identity reads.
type Identities struct{ s *Store }

// FindPersonByUserID returns the person bound to a user account.
func (r *Identities) FindPersonByUserID(ctx context.Context, userID string) (*models.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.persons {
		if p.UserID == userID {
			person := p
			return &person, nil
		}
	}
	return nil, sql.ErrNoRows
}

// FindOrganizationByUserID returns the organization bound to a user account.
func (r *Identities) FindOrganizationByUserID(ctx context.Context, userID string) (*models.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.organizations {
		if o.UserID == userID {
			org := o
			return &org, nil
		}
	}
	return nil, sql.ErrNoRows
}

// FindOrganizationByID returns an organization by id.
func (r *Identities) FindOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.organizations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &o, nil
}

// IsMember reports whether the person belongs to the organization.
func (r *Identities) IsMember(ctx context.Context, organizationID, personID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.members[organizationID][personID]
	return ok, nil
}

// Activities implements the activity reads.
type Activities struct{ s *Store }

// FindByID returns an activity by id.
func (r *Activities) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.activities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

// ListByOrganization returns an organization's activities of one category, newest start first.
func (r *Activities) ListByOrganization(ctx context.Context, organizationID string, category models.ActivityCategory) ([]models.Activity, error) {
	r.s.mu.RLock()
	out := make([]models.Activity, 0)
	for _, a := range r.s.activities {
		if a.OrganizationID == organizationID && a.Category == category {
			out = append(out, a)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out, nil
}

// ListDue returns course activities whose status should move forward at now.
func (r *Activities) ListDue(ctx context.Context, now time.Time) ([]models.Activity, error) {
	r.s.mu.RLock()
	out := make([]models.Activity, 0)
	for _, a := range r.s.activities {
		if a.Category != models.ActivityCategoryCourse {
			continue
		}
		started := a.Status == models.ActivityStatusWaiting && !now.Before(a.Start)
		ended := a.Status == models.ActivityStatusProgressing && !now.Before(a.End)
		if started || ended {
			out = append(out, a)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Courses implements the course reads.
type Courses struct{ s *Store }

// FindByID returns a course by id, retired or not.
func (r *Courses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

// ListActive returns the non-retired courses of a semester.
func (r *Courses) ListActive(ctx context.Context, year int, semester string) ([]models.Course, error) {
	r.s.mu.RLock()
	out := make([]models.Course, 0)
	for _, c := range r.s.courses {
		if !c.Retired && c.Year == year && c.Semester == semester {
			out = append(out, c)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ListSelectedByPerson returns the participations in which the person holds a seat.
func (r *Courses) ListSelectedByPerson(ctx context.Context, personID string) ([]models.CourseParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.CourseParticipant, 0)
	for _, p := range r.s.participants {
		if p.PersonID == personID && p.Status.Selected() {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListRoster returns the selected participants of a course ordered by name.
func (r *Courses) ListRoster(ctx context.Context, courseID string) ([]models.CourseParticipantDetail, error) {
	r.s.mu.RLock()
	out := make([]models.CourseParticipantDetail, 0)
	for _, p := range r.s.participants {
		if p.CourseID == courseID && p.Status.Selected() {
			out = append(out, models.CourseParticipantDetail{CourseParticipant: p, PersonName: r.s.persons[p.PersonID].Name})
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PersonName < out[j].PersonName })
	return out, nil
}
