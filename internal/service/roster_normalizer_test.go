package service

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
)

func TestRosterFromCSV(t *testing.T) {
	n := NewRosterNormalizer(nil)
	input := "subject, TEACHER\n Math , Alice \n\nScience,Bob\nMath,Carol\n"

	roster, err := n.FromUpload("roster.csv", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Science"}, roster.Subjects)
	assert.Equal(t, map[string]string{"Math": "Carol", "Science": "Bob"}, roster.SubjectTeacher)
}

func TestRosterFromXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]interface{}{
		{"Subject", "Teacher"},
		{"Math", "Alice"},
		{"Art", "Alice"},
		{"History", "Dan"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cellName, &row))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	roster, err := NewRosterNormalizer(nil).FromUpload("roster.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Art", "History"}, roster.Subjects)
	assert.Equal(t, []string{"Alice", "Dan"}, roster.Teachers())
}

func TestRosterMissingColumn(t *testing.T) {
	_, err := NewRosterNormalizer(nil).FromUpload("roster.csv", strings.NewReader("Subject,Room\nMath,101\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRosterRowWithoutTeacher(t *testing.T) {
	_, err := NewRosterNormalizer(nil).FromUpload("roster.csv", strings.NewReader("Subject,Teacher\nMath,Alice\nArt,\n"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "row 3")
	assert.Contains(t, appErr.Message, "Art")
}

func TestRosterUnsupportedFormat(t *testing.T) {
	_, err := NewRosterNormalizer(nil).FromUpload("roster.txt", strings.NewReader("Subject,Teacher"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)
}

func TestRosterEmptyFile(t *testing.T) {
	_, err := NewRosterNormalizer(nil).FromUpload("roster.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRosterHeaderOnly(t *testing.T) {
	roster, err := NewRosterNormalizer(nil).FromUpload("roster.csv", strings.NewReader("Subject,Teacher\n"))
	require.NoError(t, err)
	assert.Empty(t, roster.Subjects)
	assert.Empty(t, roster.SubjectTeacher)
}

func TestNormalizeJSONRoster(t *testing.T) {
	roster, err := NewRosterNormalizer(nil).Normalize(
		[]string{" Math", "Math ", "", "Art"},
		map[string]string{" Math ": " Alice ", "Math": "Alice", "Art": "Bob", "  ": "Nobody"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Art"}, roster.Subjects)
	assert.Equal(t, map[string]string{"Math": "Alice", "Art": "Bob"}, roster.SubjectTeacher)
}

func TestNormalizeRejectsConflictingTrimmedKeys(t *testing.T) {
	n := NewRosterNormalizer(nil)
	for i := 0; i < 20; i++ {
		roster, err := n.Normalize(
			[]string{"Math"},
			map[string]string{"Math": "Alice", " Math": "Bob", "Math ": "Cara"},
		)
		require.Error(t, err)
		assert.Nil(t, roster)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, `subject "Math" is mapped to both "Bob" and "Alice"`, appErr.Message)
	}
}
