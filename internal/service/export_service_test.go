package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-course-api/internal/dto"
	appErrors "github.com/noah-isme/club-course-api/pkg/errors"
	"github.com/noah-isme/club-course-api/pkg/export"
)

func TestRosterExport(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	require.True(t, f.registration.ChangeRegistration(ctx, "c-open", f.ana.Person, dto.RegistrationSelect).Succeeded())
	require.True(t, f.registration.ChangeRegistration(ctx, "c-open", f.bo.Person, dto.RegistrationSelect).Succeeded())

	file, err := f.exports.Roster(ctx, f.courseOrg, "c-open", export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "roster_Openings_20240220_090000.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "No,Name,Status,Updated At", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Ana,SELECT,"))
	assert.True(t, strings.HasPrefix(lines[2], "2,Bo,SELECT,"))

	pdf, err := f.exports.Roster(ctx, f.bo, "c-open", export.FormatPDF)
	require.NoError(t, err, "members may export their organization's roster")
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Content, []byte("%PDF-")))
}

func TestRosterExportRejectsOutsiders(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	_, err := f.exports.Roster(ctx, f.ana, "c-open", export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.exports.Roster(ctx, f.musicOrg, "c-open", export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.exports.Roster(ctx, f.courseOrg, "c-missing", export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
