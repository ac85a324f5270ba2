package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", Issuer: "campus"})
	now := time.Now()

	token := signToken(t, "secret", &models.JWTClaims{
		Role: models.RoleMember,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "campus",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleMember, claims.Role)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", Issuer: "campus"})
	now := time.Now()

	cases := map[string]string{
		"wrong secret": signToken(t, "other", &models.JWTClaims{UserID: "u", RegisteredClaims: jwt.RegisteredClaims{Issuer: "campus"}}),
		"wrong issuer": signToken(t, "secret", &models.JWTClaims{UserID: "u", RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere"}}),
		"expired": signToken(t, "secret", &models.JWTClaims{UserID: "u", RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "campus", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		}}),
		"no subject": signToken(t, "secret", &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "campus"}}),
		"garbage":    "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
		})
	}
}
