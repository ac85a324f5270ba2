package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
	"github.com/noah-isme/club-course-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the resolved principal.
const ContextPrincipalKey = "principal"

// PrincipalResolver maps an authenticated user to the identity it acts as.
type PrincipalResolver interface {
	Current(ctx context.Context, userID string) (models.Principal, error)
}

// Principal resolves the caller's person or organization after JWT ran.
func Principal(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		principal, err := resolver.Current(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by Principal.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}
