package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-course-api/internal/handler"
	internalmiddleware "github.com/noah-isme/club-course-api/internal/middleware"
	"github.com/noah-isme/club-course-api/internal/models"
)

type apiRoutes struct {
	tokens     internalmiddleware.TokenValidator
	principals internalmiddleware.PrincipalResolver
	activities *handler.CourseActivityHandler
	courses    *handler.CourseHandler
}

// registerAPIRoutes mounts the authenticated API. Administrative routes
// only need a valid token; everything else acts as a person or organization.
func registerAPIRoutes(api *gin.RouterGroup, routes apiRoutes) {
	api.Use(internalmiddleware.JWT(routes.tokens))

	admin := api.Group("", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.POST("/course-activities/:id/advance", routes.activities.Advance)

	scoped := api.Group("", internalmiddleware.Principal(routes.principals))

	activities := scoped.Group("/course-activities")
	activities.POST("", routes.activities.Create)
	activities.GET("", routes.activities.List)
	activities.PUT("/:id", routes.activities.Edit)
	activities.POST("/:id/cancel", routes.activities.Cancel)

	courses := scoped.Group("/courses")
	courses.GET("/selection", routes.courses.Catalog)
	courses.POST("/selection", routes.courses.ChangeRegistration)
	courses.GET("/:id", routes.courses.Detail)
	courses.GET("/:id/roster", routes.courses.Roster)
}
