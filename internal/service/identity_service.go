package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

type identityReader interface {
	FindPersonByUserID(ctx context.Context, userID string) (*models.Person, error)
	FindOrganizationByUserID(ctx context.Context, userID string) (*models.Organization, error)
	FindOrganizationByID(ctx context.Context, id string) (*models.Organization, error)
	IsMember(ctx context.Context, organizationID, personID string) (bool, error)
}

// IdentityConfig names the organization types the course module cares about.
type IdentityConfig struct {
	CourseOrganizationType  string
	PlaceholderOrganization string
}

// IdentityService resolves who a request acts on behalf of.
type IdentityService struct {
	repo   identityReader
	cfg    IdentityConfig
	logger *zap.Logger
}

// NewIdentityService constructs IdentityService.
func NewIdentityService(repo identityReader, cfg IdentityConfig, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{repo: repo, cfg: cfg, logger: logger}
}

// Current maps an authenticated user to its principal. Organization accounts take precedence.
func (s *IdentityService) Current(ctx context.Context, userID string) (models.Principal, error) {
	if userID == "" {
		return models.Principal{}, appErrors.Clone(appErrors.ErrUnauthorized, "missing user")
	}
	org, err := s.repo.FindOrganizationByUserID(ctx, userID)
	switch {
	case err == nil:
		return models.OrganizationPrincipal(org), nil
	case err != sql.ErrNoRows:
		return models.Principal{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}
	person, err := s.repo.FindPersonByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Principal{}, appErrors.Clone(appErrors.ErrNotFound, "no person or organization bound to user")
		}
		return models.Principal{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	return models.PersonPrincipal(person), nil
}

// ResolveActingPrincipal elevates a person to the organization owning the target
// when the person is a member of it. Organizations pass through unchanged.
func (s *IdentityService) ResolveActingPrincipal(ctx context.Context, principal models.Principal, organizationID string) (models.Principal, error) {
	if principal.IsOrganization() {
		return principal, nil
	}
	if !principal.IsPerson() {
		return models.Principal{}, appErrors.Clone(appErrors.ErrForbidden, "unknown principal")
	}

	member, err := s.repo.IsMember(ctx, organizationID, principal.Person.ID)
	if err != nil {
		return models.Principal{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return models.Principal{}, appErrors.Clone(appErrors.ErrForbidden, "person is not affiliated with the organization")
	}
	org, err := s.repo.FindOrganizationByID(ctx, organizationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Principal{}, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return models.Principal{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}

	s.logger.Debug("principal elevated",
		zap.String("person_id", principal.Person.ID),
		zap.String("organization_id", org.ID))
	return models.Principal{
		Kind:           models.PrincipalOrganization,
		Organization:   org,
		Elevated:       true,
		Representative: principal.Person,
	}, nil
}

// RequireCourseOrgType fails unless the principal is a course-offering organization.
func (s *IdentityService) RequireCourseOrgType(principal models.Principal) error {
	if !principal.IsOrganization() || principal.Organization.TypeName != s.cfg.CourseOrganizationType {
		return appErrors.Clone(appErrors.ErrForbidden, "only course organizations may perform this action")
	}
	return nil
}

// RequireStudent fails unless the principal is a non-teaching person.
func (s *IdentityService) RequireStudent(principal models.Principal) error {
	if !principal.IsPerson() || principal.Person.Identity == models.PersonIdentityTeacher {
		return appErrors.Clone(appErrors.ErrForbidden, "non-student accounts cannot select courses")
	}
	return nil
}

// IsPlaceholder reports whether the organization is the aggregate display organization.
func (s *IdentityService) IsPlaceholder(org *models.Organization) bool {
	return org != nil && s.cfg.PlaceholderOrganization != "" && org.Name == s.cfg.PlaceholderOrganization
}
