package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/handler"
	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

type stubTokens map[string]models.UserRole

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := s[token]
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{UserID: "user-" + token, Role: role}, nil
}

type unboundPrincipals struct{}

func (unboundPrincipals) Current(ctx context.Context, userID string) (models.Principal, error) {
	return models.Principal{}, appErrors.Clone(appErrors.ErrNotFound, "no identity bound to user")
}

type stubActivities struct {
	advanced []string
}

func (s *stubActivities) Create(ctx context.Context, principal models.Principal, req dto.CourseActivityRequest) (*dto.CreateActivityResult, error) {
	return nil, appErrors.ErrInternal
}

func (s *stubActivities) Edit(ctx context.Context, principal models.Principal, activityID string, req dto.CourseActivityRequest) (*models.Activity, error) {
	return nil, appErrors.ErrInternal
}

func (s *stubActivities) Cancel(ctx context.Context, principal models.Principal, activityID string) (*models.Activity, error) {
	return nil, appErrors.ErrInternal
}

func (s *stubActivities) ListForOrganization(ctx context.Context, principal models.Principal) (*dto.OrganizationActivities, error) {
	return &dto.OrganizationActivities{}, nil
}

func (s *stubActivities) Advance(ctx context.Context, activityID string) (*models.Activity, error) {
	s.advanced = append(s.advanced, activityID)
	return &models.Activity{ID: activityID, Status: models.ActivityStatusProgressing}, nil
}

func newRouteEngine(activities *stubActivities) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerAPIRoutes(r.Group("/api/v1"), apiRoutes{
		tokens:     stubTokens{"admin": models.RoleAdmin, "member": models.RoleMember},
		principals: unboundPrincipals{},
		activities: handler.NewCourseActivityHandler(activities),
		courses:    handler.NewCourseHandler(nil, nil, nil, nil, nil, nil),
	})
	return r
}

func serveRoute(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdvanceRouteNeedsNoBoundIdentity(t *testing.T) {
	activities := &stubActivities{}
	r := newRouteEngine(activities)

	w := serveRoute(r, http.MethodPost, "/api/v1/course-activities/act-1/advance", "admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"act-1"}, activities.advanced)

	w = serveRoute(r, http.MethodPost, "/api/v1/course-activities/act-1/advance", "member")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serveRoute(r, http.MethodPost, "/api/v1/course-activities/act-1/advance", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, activities.advanced, 1)
}

func TestScopedRoutesResolvePrincipal(t *testing.T) {
	r := newRouteEngine(&stubActivities{})

	w := serveRoute(r, http.MethodGet, "/api/v1/course-activities", "admin")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serveRoute(r, http.MethodGet, "/api/v1/courses/selection", "member")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
