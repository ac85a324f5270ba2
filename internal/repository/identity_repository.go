package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/club-course-api/internal/models"
)

// IdentityRepository resolves persons, organizations and memberships.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository constructs the repository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// FindPersonByUserID returns the person bound to a user account.
func (r *IdentityRepository) FindPersonByUserID(ctx context.Context, userID string) (*models.Person, error) {
	const query = `SELECT id, user_id, name, identity, created_at FROM persons WHERE user_id = $1`
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, userID); err != nil {
		return nil, err
	}
	return &person, nil
}

// FindOrganizationByUserID returns the organization bound to a user account.
func (r *IdentityRepository) FindOrganizationByUserID(ctx context.Context, userID string) (*models.Organization, error) {
	const query = `SELECT id, user_id, name, type_name, created_at FROM organizations WHERE user_id = $1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, userID); err != nil {
		return nil, err
	}
	return &org, nil
}

// FindOrganizationByID returns an organization by id.
func (r *IdentityRepository) FindOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	const query = `SELECT id, user_id, name, type_name, created_at FROM organizations WHERE id = $1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, err
	}
	return &org, nil
}

// IsMember reports whether the person belongs to the organization.
func (r *IdentityRepository) IsMember(ctx context.Context, organizationID, personID string) (bool, error) {
	const query = `SELECT 1 FROM organization_members WHERE organization_id = $1 AND person_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, organizationID, personID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check organization membership: %w", err)
	}
	return true, nil
}
