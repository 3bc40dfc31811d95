package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edunova-api/internal/dto"
	"github.com/noah-isme/edunova-api/internal/timetable"
	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
	"github.com/noah-isme/edunova-api/pkg/export"
	"github.com/noah-isme/edunova-api/pkg/middleware/requestid"
)

const timetableCachePrefix = "timetable:"

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// TimetableConfig bounds requests and tunes generation.
type TimetableConfig struct {
	MaxClasses   int
	MaxPeriods   int
	MaxDays      int
	ParallelDays int
	CacheTTL     time.Duration
}

// TimetableService validates generation requests, runs the weekly scheduler
// and renders exports. Seeded requests are cached.
type TimetableService struct {
	normalizer *RosterNormalizer
	cache      timetableCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     TimetableConfig
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	seed       func() int64
	newID      func() string
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(normalizer *RosterNormalizer, cache timetableCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config TimetableConfig) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if normalizer == nil {
		normalizer = NewRosterNormalizer(logger)
	}
	return &TimetableService{
		normalizer: normalizer,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		seed:       rand.Int63,
		newID:      uuid.NewString,
	}
}

// Generate schedules a week for the request. Without a seed a fresh one is
// drawn and reported back so the run can be reproduced.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordGeneration(OutcomeRejected, 0, timetable.Stats{})
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if err := s.checkLimits(req); err != nil {
		s.metrics.RecordGeneration(OutcomeRejected, 0, timetable.Stats{})
		return nil, err
	}

	roster, err := s.normalizer.Normalize(req.Subjects, req.SubjectTeacher)
	if err != nil {
		s.metrics.RecordGeneration(OutcomeRejected, 0, timetable.Stats{})
		return nil, err
	}
	days := append([]string{}, req.Days...)

	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	var cacheKey string
	if req.Seed != nil && s.cache != nil && distinct(days) {
		key, err := generationKey(req.NumClasses, req.PeriodsPerDay, days, roster.Subjects, roster.SubjectTeacher, seed)
		if err != nil {
			s.logger.Warn("timetable cache key failed", zap.Error(err))
		} else {
			cacheKey = key
			var cached dto.GenerateTimetableResponse
			if s.cache.Get(ctx, cacheKey, &cached) {
				cached.Cached = true
				s.metrics.RecordGeneration(OutcomeCached, 0, cached.Stats)
				return &cached, nil
			}
		}
	}

	start := time.Now()
	week, err := timetable.ScheduleWeek(req.NumClasses, days, req.PeriodsPerDay, roster.Subjects, roster.SubjectTeacher,
		timetable.NewRand(seed), timetable.WithParallelDays(s.config.ParallelDays))
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordGeneration(OutcomeRejected, elapsed, timetable.Stats{})
		return nil, err
	}

	stats := week.Stats()
	resp := &dto.GenerateTimetableResponse{
		GenerationID: s.newID(),
		Timetable:    week.Table,
		Classes:      week.Classes,
		Days:         days,
		Periods:      req.PeriodsPerDay,
		Loads:        week.Loads,
		Seed:         seed,
		Stats:        stats,
	}
	s.metrics.RecordGeneration(OutcomeGenerated, elapsed, stats)
	s.logger.Info("timetable generated",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("generation_id", resp.GenerationID),
		zap.Int64("seed", seed),
		zap.Int("classes", req.NumClasses),
		zap.Int("days", len(days)),
		zap.Int("periods", req.PeriodsPerDay),
		zap.Int("free_slots", stats.FreeSlots),
		zap.Duration("elapsed", elapsed),
	)

	if cacheKey != "" {
		s.cache.Set(ctx, cacheKey, resp, s.config.CacheTTL)
	}
	return resp, nil
}

// Export generates the requested timetable and renders it as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, req dto.ExportTimetableRequest) (*dto.TimetableFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	generated, err := s.Generate(ctx, req.GenerateTimetableRequest)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("timetable-%d", generated.Seed)
	switch req.Format {
	case dto.ExportFormatCSV:
		body, err := s.csv.Render(flatDataset(generated))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &dto.TimetableFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case dto.ExportFormatPDF:
		title := req.Title
		if title == "" {
			title = "Weekly timetable"
		}
		body, err := s.pdf.Render(daySections(generated), title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.TimetableFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", req.Format))
	}
}

// ClearCache drops every cached timetable.
func (s *TimetableService) ClearCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Invalidate(ctx, timetableCachePrefix+"*")
}

// checkLimits applies the configured upper bounds. Negative values are left
// for the scheduler to reject.
func (s *TimetableService) checkLimits(req dto.GenerateTimetableRequest) error {
	if s.config.MaxClasses > 0 && req.NumClasses > s.config.MaxClasses {
		return appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("num_classes must be <= %d", s.config.MaxClasses))
	}
	if s.config.MaxPeriods > 0 && req.PeriodsPerDay > s.config.MaxPeriods {
		return appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("periods_per_day must be <= %d", s.config.MaxPeriods))
	}
	if s.config.MaxDays > 0 && len(req.Days) > s.config.MaxDays {
		return appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("at most %d days may be scheduled", s.config.MaxDays))
	}
	return nil
}

// generationKey hashes the normalised request. Map keys marshal sorted, so
// equal rosters hash equally.
func generationKey(numClasses, periods int, days, subjects []string, mapping map[string]string, seed int64) (string, error) {
	payload, err := json.Marshal(struct {
		NumClasses int               `json:"c"`
		Periods    int               `json:"p"`
		Days       []string          `json:"d"`
		Subjects   []string          `json:"s"`
		Mapping    map[string]string `json:"m"`
		Seed       int64             `json:"seed"`
	}{numClasses, periods, days, subjects, mapping, seed})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return timetableCachePrefix + hex.EncodeToString(sum[:]), nil
}

// distinct reports whether no day label repeats. The JSON form of a week
// keeps one run per label, so weeks with repeated labels are not cached.
func distinct(days []string) bool {
	seen := make(map[string]struct{}, len(days))
	for _, day := range days {
		if _, ok := seen[day]; ok {
			return false
		}
		seen[day] = struct{}{}
	}
	return true
}

func cellText(a timetable.Assignment) string {
	if a.IsFree() {
		return timetable.FreeMarker
	}
	return fmt.Sprintf("%s (%s)", a.Subject, a.Teacher)
}

// flatDataset lays the week out as one row per day and period.
func flatDataset(resp *dto.GenerateTimetableResponse) export.Dataset {
	headers := append([]string{"day", "period"}, resp.Classes...)
	var rows []map[string]string
	for _, entry := range resp.Timetable.Entries {
		for p, slot := range entry.Table {
			row := map[string]string{"day": entry.Day, "period": strconv.Itoa(p + 1)}
			for _, class := range resp.Classes {
				row[class] = cellText(slot[class])
			}
			rows = append(rows, row)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// daySections builds one table per scheduled day.
func daySections(resp *dto.GenerateTimetableResponse) []export.Section {
	headers := append([]string{"Period"}, resp.Classes...)
	if len(resp.Timetable.Entries) == 0 {
		return []export.Section{{Heading: "No days scheduled", Data: export.Dataset{Headers: headers}}}
	}
	sections := make([]export.Section, 0, len(resp.Timetable.Entries))
	for _, entry := range resp.Timetable.Entries {
		rows := make([]map[string]string, 0, len(entry.Table))
		for p, slot := range entry.Table {
			row := map[string]string{"Period": strconv.Itoa(p + 1)}
			for _, class := range resp.Classes {
				row[class] = cellText(slot[class])
			}
			rows = append(rows, row)
		}
		sections = append(sections, export.Section{Heading: entry.Day, Data: export.Dataset{Headers: headers, Rows: rows}})
	}
	return sections
}
