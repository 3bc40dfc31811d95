package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edunova-api/internal/dto"
	"github.com/noah-isme/edunova-api/internal/middleware"
	"github.com/noah-isme/edunova-api/internal/models"
	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
	"github.com/noah-isme/edunova-api/pkg/response"
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 8 << 20

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Export(ctx context.Context, req dto.ExportTimetableRequest) (*dto.TimetableFile, error)
	ClearCache(ctx context.Context) (int, error)
}

type rosterReader interface {
	FromUpload(filename string, r io.Reader) (*models.Roster, error)
}

// TimetableHandler exposes timetable generation over HTTP.
type TimetableHandler struct {
	service   timetableService
	roster    rosterReader
	maxUpload int64
}

// NewTimetableHandler constructs a TimetableHandler.
func NewTimetableHandler(svc timetableService, roster rosterReader, maxUpload int64) *TimetableHandler {
	return &TimetableHandler{service: svc, roster: roster, maxUpload: maxUpload}
}

// LegacyGenerate godoc
// @Summary Generate timetable from an uploaded roster
// @Description Multipart form with num_classes, periods_per_day, comma separated days, optional seed and a Subject/Teacher spreadsheet
// @Tags Timetable
// @Accept multipart/form-data
// @Produce json
// @Param num_classes formData int true "Number of classes"
// @Param periods_per_day formData int true "Periods per day"
// @Param days formData string true "Comma separated day labels"
// @Param seed formData int false "Random seed"
// @Param file formData file true "Roster spreadsheet (.xlsx or .csv)"
// @Success 200 {object} dto.LegacyTimetableResponse
// @Failure 400 {object} map[string]string
// @Router /generate [post]
func (h *TimetableHandler) LegacyGenerate(c *gin.Context) {
	res, err := h.generateFromForm(c)
	if err != nil {
		response.Detail(c, err)
		return
	}
	response.Raw(c, http.StatusOK, res.Legacy())
}

// Upload godoc
// @Summary Generate timetable from an uploaded roster
// @Description Same form as /generate, answered with the standard envelope
// @Tags Timetable
// @Accept multipart/form-data
// @Produce json
// @Param num_classes formData int true "Number of classes"
// @Param periods_per_day formData int true "Periods per day"
// @Param days formData string true "Comma separated day labels"
// @Param seed formData int false "Random seed"
// @Param file formData file true "Roster spreadsheet (.xlsx or .csv)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables/upload [post]
func (h *TimetableHandler) Upload(c *gin.Context) {
	res, err := h.generateFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, res)
}

// Generate godoc
// @Summary Generate timetable
// @Description Generate a weekly timetable from a JSON roster
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid timetable payload"))
		return
	}

	res, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, res)
}

// Export godoc
// @Summary Export timetable
// @Description Generate a timetable and download it as CSV or PDF
// @Tags Timetable
// @Accept json
// @Produce octet-stream
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param payload body dto.ExportTimetableRequest true "Export request"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /timetables/export [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid export payload"))
		return
	}
	if format := c.Query("format"); format != "" {
		req.Format = strings.ToLower(format)
	}
	if req.Format == "" {
		req.Format = dto.ExportFormatCSV
	}
	if title := c.Query("title"); title != "" {
		req.Title = title
	}

	file, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// ClearCache godoc
// @Summary Clear cached timetables
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /timetables/cache [delete]
func (h *TimetableHandler) ClearCache(c *gin.Context) {
	removed, err := h.service.ClearCache(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ClearCacheResponse{Removed: removed})
}

func (h *TimetableHandler) respond(c *gin.Context, res *dto.GenerateTimetableResponse) {
	middleware.SetMeta(c, "cached", res.Cached)
	middleware.SetMeta(c, "seed", res.Seed)
	response.JSON(c, http.StatusOK, res, middleware.ExtractMeta(c))
}

func (h *TimetableHandler) generateFromForm(c *gin.Context) (*dto.GenerateTimetableResponse, error) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, bindError(err, "invalid multipart form")
	}
	numClasses, err := formInt(c, "num_classes")
	if err != nil {
		return nil, err
	}
	periods, err := formInt(c, "periods_per_day")
	if err != nil {
		return nil, err
	}
	days, ok := c.GetPostForm("days")
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "days is required")
	}

	req := dto.GenerateTimetableRequest{
		NumClasses:    numClasses,
		PeriodsPerDay: periods,
		Days:          SplitDays(days),
	}
	if raw := strings.TrimSpace(c.PostForm("seed")); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "seed must be an integer")
		}
		req.Seed = &seed
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file could not be opened")
	}
	defer file.Close()

	roster, err := h.roster.FromUpload(header.Filename, file)
	if err != nil {
		return nil, err
	}
	req.Subjects = roster.Subjects
	req.SubjectTeacher = roster.SubjectTeacher

	return h.service.Generate(c.Request.Context(), req)
}

// SplitDays turns a comma separated form value into trimmed day labels,
// dropping empty entries.
func SplitDays(raw string) []string {
	days := []string{}
	for _, part := range strings.Split(raw, ",") {
		if day := strings.TrimSpace(part); day != "" {
			days = append(days, day)
		}
	}
	return days
}

func formInt(c *gin.Context, field string) (int, error) {
	raw, ok := c.GetPostForm(field)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrValidation, field+" is required")
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, field+" must be an integer")
	}
	return value, nil
}

func bindError(err error, message string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return appErrors.ErrPayloadTooLarge
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
