package service

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/edunova-api/internal/models"
	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
	"github.com/noah-isme/edunova-api/pkg/importer"
)

// Spreadsheet column headers, matched case-insensitively.
const (
	SubjectColumn = "Subject"
	TeacherColumn = "Teacher"
)

// RosterNormalizer turns uploaded spreadsheets and JSON rosters into the
// subject list and subject to teacher mapping the generator consumes.
type RosterNormalizer struct {
	logger *zap.Logger
}

// NewRosterNormalizer constructs a normalizer.
func NewRosterNormalizer(logger *zap.Logger) *RosterNormalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterNormalizer{logger: logger}
}

// FromUpload reads a CSV or XLSX roster with Subject and Teacher columns.
func (n *RosterNormalizer) FromUpload(filename string, r io.Reader) (*models.Roster, error) {
	table, err := importer.Read(filename, r)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrUnsupportedFormat):
			return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "roster must be a .csv or .xlsx file")
		case errors.Is(err, importer.ErrEmpty):
			return nil, appErrors.Clone(appErrors.ErrValidation, "roster file is empty")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "roster file could not be read")
		}
	}

	subjectCol := table.Column(SubjectColumn)
	teacherCol := table.Column(TeacherColumn)
	if subjectCol < 0 || teacherCol < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster must have Subject and Teacher columns")
	}

	builder := newRosterBuilder()
	for i, row := range table.Rows {
		subject := strings.TrimSpace(cell(row, subjectCol))
		teacher := strings.TrimSpace(cell(row, teacherCol))
		if subject == "" && teacher == "" {
			continue
		}
		// header is row 1 of the sheet
		line := i + 2
		if subject == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("row %d: teacher %q has no subject", line, teacher))
		}
		if teacher == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("row %d: subject %q has no teacher", line, subject))
		}
		builder.add(subject, teacher)
	}

	roster := builder.roster()
	n.logger.Debug("roster parsed",
		zap.String("file", filename),
		zap.Int("rows", len(table.Rows)),
		zap.Int("subjects", len(roster.Subjects)),
	)
	return roster, nil
}

// Normalize trims a JSON roster the same way uploads are trimmed. Mapping
// entries for subjects outside the list are kept so their teachers still
// appear in the load. A blank teacher drops the entry, which leaves the
// subject unmapped for the generator to reject. Keys that trim to the same
// subject must name the same teacher.
func (n *RosterNormalizer) Normalize(subjects []string, subjectTeacher map[string]string) (*models.Roster, error) {
	keys := make([]string, 0, len(subjectTeacher))
	for key := range subjectTeacher {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	mapping := make(map[string]string, len(subjectTeacher))
	for _, key := range keys {
		subject, teacher := strings.TrimSpace(key), strings.TrimSpace(subjectTeacher[key])
		if subject == "" || teacher == "" {
			continue
		}
		if existing, ok := mapping[subject]; ok && existing != teacher {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("subject %q is mapped to both %q and %q", subject, existing, teacher))
		}
		mapping[subject] = teacher
	}

	seen := make(map[string]struct{}, len(subjects))
	list := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		subject = strings.TrimSpace(subject)
		if subject == "" {
			continue
		}
		if _, ok := seen[subject]; ok {
			continue
		}
		seen[subject] = struct{}{}
		list = append(list, subject)
	}
	return &models.Roster{Subjects: list, SubjectTeacher: mapping}, nil
}

type rosterBuilder struct {
	subjects []string
	mapping  map[string]string
}

func newRosterBuilder() *rosterBuilder {
	return &rosterBuilder{mapping: make(map[string]string)}
}

// add keeps the first position of a subject and the last teacher given for it.
func (b *rosterBuilder) add(subject, teacher string) {
	if _, ok := b.mapping[subject]; !ok {
		b.subjects = append(b.subjects, subject)
	}
	b.mapping[subject] = teacher
}

func (b *rosterBuilder) roster() *models.Roster {
	subjects := b.subjects
	if subjects == nil {
		subjects = []string{}
	}
	return &models.Roster{Subjects: subjects, SubjectTeacher: b.mapping}
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
