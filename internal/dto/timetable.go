package dto

import (
	"github.com/noah-isme/edunova-api/internal/timetable"
)

// GenerateTimetableRequest asks for a weekly timetable over a roster.
type GenerateTimetableRequest struct {
	NumClasses     int               `json:"numClasses"`
	PeriodsPerDay  int               `json:"periodsPerDay"`
	Days           []string          `json:"days" validate:"dive,required,max=64"`
	Subjects       []string          `json:"subjects" validate:"dive,required,max=128"`
	SubjectTeacher map[string]string `json:"subjectTeacher" validate:"dive,keys,required,endkeys,required"`
	Seed           *int64            `json:"seed,omitempty"`
}

// GenerateTimetableResponse mirrors the legacy /generate contract with extra run metadata.
// Loads counts every scheduled day run. When a day label repeats, Timetable
// shows only its last run, so Loads can exceed the assignments visible there.
type GenerateTimetableResponse struct {
	GenerationID string                `json:"generationId"`
	Timetable    timetable.WeeklyTable `json:"timetable"`
	Classes      []string              `json:"classes"`
	Days         []string              `json:"days"`
	Periods      int                   `json:"periods"`
	Loads        timetable.Load        `json:"loads"`
	Seed         int64                 `json:"seed"`
	Stats        timetable.Stats       `json:"stats"`
	Cached       bool                  `json:"cached"`
}

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportTimetableRequest renders a reproducible timetable run as a file.
type ExportTimetableRequest struct {
	GenerateTimetableRequest
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	Title  string `json:"title" validate:"max=120"`
}

// TimetableFile is a rendered export.
type TimetableFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// LegacyTimetableResponse is the unwrapped body of POST /generate. Loads
// follows the same repeated-day rule as GenerateTimetableResponse.
type LegacyTimetableResponse struct {
	Timetable timetable.WeeklyTable `json:"timetable"`
	Classes   []string              `json:"classes"`
	Days      []string              `json:"days"`
	Periods   int                   `json:"periods"`
	Loads     timetable.Load        `json:"loads"`
	Seed      int64                 `json:"seed"`
}

// Legacy strips run metadata for the original /generate contract.
func (r *GenerateTimetableResponse) Legacy() LegacyTimetableResponse {
	return LegacyTimetableResponse{
		Timetable: r.Timetable,
		Classes:   r.Classes,
		Days:      r.Days,
		Periods:   r.Periods,
		Loads:     r.Loads,
		Seed:      r.Seed,
	}
}

// ClearCacheResponse reports how many cached runs were dropped.
type ClearCacheResponse struct {
	Removed int `json:"removed"`
}
