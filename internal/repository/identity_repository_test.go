package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-course-api/internal/models"
)

func TestIdentityRepositoryFindPersonByUserID(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM persons WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "identity", "created_at"}).
			AddRow("person-1", "user-1", "Zhang San", models.PersonIdentityStudent, time.Now()))

	person, err := repo.FindPersonByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PersonIdentityStudent, person.Identity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryFindOrganizationMissing(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM organizations WHERE user_id = $1")).
		WithArgs("user-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindOrganizationByUserID(context.Background(), "user-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryIsMember(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM organization_members WHERE organization_id = $1 AND person_id = $2")).
		WithArgs("org-1", "person-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM organization_members WHERE organization_id = $1 AND person_id = $2")).
		WithArgs("org-1", "person-2").
		WillReturnError(sql.ErrNoRows)

	member, err := repo.IsMember(context.Background(), "org-1", "person-1")
	require.NoError(t, err)
	assert.True(t, member)

	member, err = repo.IsMember(context.Background(), "org-1", "person-2")
	require.NoError(t, err)
	assert.False(t, member)
	require.NoError(t, mock.ExpectationsWereMet())
}
