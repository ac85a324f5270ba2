package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/service"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
	"github.com/noah-isme/club-course-api/pkg/export"
	"github.com/noah-isme/club-course-api/pkg/response"
)

type catalogService interface {
	BuildCatalog(ctx context.Context, principal models.Principal, snapshot dto.SemesterSnapshot) (*dto.Catalog, error)
	BuildCourseDetail(ctx context.Context, courseID string, principal models.Principal) (*dto.CourseDisplay, error)
}

type registrationService interface {
	ChangeRegistration(ctx context.Context, courseID string, person *models.Person, action dto.RegistrationAction) dto.RegistrationResult
}

type rosterService interface {
	Roster(ctx context.Context, principal models.Principal, courseID string, format export.Format) (*service.RosterFile, error)
}

type studentGuard interface {
	RequireStudent(principal models.Principal) error
}

// CourseHandler exposes course selection endpoints.
type CourseHandler struct {
	catalog      catalogService
	registration registrationService
	roster       rosterService
	students     studentGuard
	snapshot     func() dto.SemesterSnapshot
	validator    *validator.Validate
}

// NewCourseHandler builds a new handler. snapshot reports the semester the catalog is built for.
func NewCourseHandler(catalog catalogService, registration registrationService, roster rosterService, students studentGuard, snapshot func() dto.SemesterSnapshot, validate *validator.Validate) *CourseHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &CourseHandler{
		catalog:      catalog,
		registration: registration,
		roster:       roster,
		students:     students,
		snapshot:     snapshot,
		validator:    validate,
	}
}

// Catalog godoc
// @Summary Show the course selection page
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/selection [get]
func (h *CourseHandler) Catalog(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	catalog, err := h.catalog.BuildCatalog(c.Request.Context(), principal, h.snapshot())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, catalog)
}

// ChangeRegistration godoc
// @Summary Select or drop a course
// @Description Business failures are reported with warn_code=1 and HTTP 200.
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.RegistrationRequest true "Registration payload"
// @Success 200 {object} response.Envelope
// @Router /courses/selection [post]
func (h *CourseHandler) ChangeRegistration(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.RequireStudent(principal); err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	result := h.registration.ChangeRegistration(c.Request.Context(), req.CourseID, principal.Person, req.Action)
	response.JSON(c, http.StatusOK, result)
}

// Detail godoc
// @Summary Show a course with its upcoming activities
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Detail(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.catalog.BuildCourseDetail(c.Request.Context(), c.Param("id"), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Roster godoc
// @Summary Download the participant roster of a course
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /courses/{id}/roster [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unsupported roster format"))
		return
	}
	file, err := h.roster.Roster(c.Request.Context(), principal, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
