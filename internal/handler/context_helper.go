package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-course-api/internal/middleware"
	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
)

func principalFromContext(c *gin.Context) (models.Principal, error) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return models.Principal{}, appErrors.ErrUnauthorized
	}
	return principal, nil
}
