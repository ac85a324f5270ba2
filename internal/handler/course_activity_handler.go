package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
	"github.com/noah-isme/club-course-api/pkg/response"
)

type courseActivityService interface {
	Create(ctx context.Context, principal models.Principal, req dto.CourseActivityRequest) (*dto.CreateActivityResult, error)
	Edit(ctx context.Context, principal models.Principal, activityID string, req dto.CourseActivityRequest) (*models.Activity, error)
	Cancel(ctx context.Context, principal models.Principal, activityID string) (*models.Activity, error)
	ListForOrganization(ctx context.Context, principal models.Principal) (*dto.OrganizationActivities, error)
	Advance(ctx context.Context, activityID string) (*models.Activity, error)
}

// CourseActivityHandler exposes course activity lifecycle endpoints.
type CourseActivityHandler struct {
	service courseActivityService
}

// NewCourseActivityHandler builds a new handler.
func NewCourseActivityHandler(service courseActivityService) *CourseActivityHandler {
	return &CourseActivityHandler{service: service}
}

// Create godoc
// @Summary Schedule a course activity
// @Description Repeating an identical request returns the existing activity with created=false.
// @Tags CourseActivities
// @Accept json
// @Produce json
// @Param payload body dto.CourseActivityRequest true "Activity payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /course-activities [post]
func (h *CourseActivityHandler) Create(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CourseActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course activity payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Created {
		response.JSON(c, http.StatusOK, result)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List the organization's course activities
// @Tags CourseActivities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course-activities [get]
func (h *CourseActivityHandler) List(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.ListForOrganization(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{
		"future":   len(items.Future),
		"finished": len(items.Finished),
	})
}

// Edit godoc
// @Summary Edit a waiting course activity
// @Tags CourseActivities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.CourseActivityRequest true "Activity payload"
// @Success 200 {object} response.Envelope
// @Router /course-activities/{id} [put]
func (h *CourseActivityHandler) Edit(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CourseActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course activity payload"))
		return
	}
	activity, err := h.service.Edit(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity)
}

// Cancel godoc
// @Summary Cancel a course activity and release its seats
// @Tags CourseActivities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /course-activities/{id}/cancel [post]
func (h *CourseActivityHandler) Cancel(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	activity, err := h.service.Cancel(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity)
}

// Advance godoc
// @Summary Apply time-based status progression
// @Tags CourseActivities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /course-activities/{id}/advance [post]
func (h *CourseActivityHandler) Advance(c *gin.Context) {
	activity, err := h.service.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity)
}
