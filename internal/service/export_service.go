package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/club-course-api/internal/models"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
	"github.com/noah-isme/club-course-api/pkg/export"
)

type rosterReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListRoster(ctx context.Context, courseID string) ([]models.CourseParticipantDetail, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type ownerResolver interface {
	ResolveActingPrincipal(ctx context.Context, principal models.Principal, organizationID string) (models.Principal, error)
}

// RosterFile is a rendered roster ready to be streamed.
type RosterFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders course rosters for the owning organization.
type ExportService struct {
	courses  rosterReader
	identity ownerResolver
	csv      tableRenderer
	pdf      tableRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(courses rosterReader, identity ownerResolver, logger *zap.Logger, csv, pdf tableRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVRenderer()
	}
	if pdf == nil {
		pdf = export.NewPDFRenderer()
	}
	return &ExportService{
		courses:  courses,
		identity: identity,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Roster renders the selected participants of a course.
func (s *ExportService) Roster(ctx context.Context, principal models.Principal, courseID string, format export.Format) (*RosterFile, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	acting, err := s.identity.ResolveActingPrincipal(ctx, principal, course.OrganizationID)
	if err != nil {
		return nil, err
	}
	if acting.OrganizationID() != course.OrganizationID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another organization")
	}

	participants, err := s.courses.ListRoster(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	table := export.Table{
		Title:   fmt.Sprintf("%s %d %s", course.Name, course.Year, course.Semester),
		Headers: []string{"No", "Name", "Status", "Updated At"},
		Rows:    make([][]string, 0, len(participants)),
	}
	for i, p := range participants {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", i+1),
			p.PersonName,
			string(p.Status),
			p.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	renderer := s.csv
	if format == export.FormatPDF {
		renderer = s.pdf
	}
	content, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.logger.Info("course roster exported",
		zap.String("course_id", course.ID),
		zap.String("format", string(format)),
		zap.Int("participants", len(participants)))
	return &RosterFile{
		Filename:    fmt.Sprintf("roster_%s_%s.%s", sanitizeFilename(course.Name), s.now().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
