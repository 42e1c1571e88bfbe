package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
}

type timetableReader interface {
	List(ctx context.Context, query dto.TimetableQuery) ([]models.ScheduleEntry, error)
	Grid(ctx context.Context, query dto.TimetableQuery) (*dto.TimetableGrid, error)
	Conflicts(ctx context.Context) ([]models.ConflictCheck, error)
}

// TimetableHandler exposes generation and timetable read endpoints.
type TimetableHandler struct {
	generator timetableGenerator
	reader    timetableReader
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(generator timetableGenerator, reader timetableReader) *TimetableHandler {
	return &TimetableHandler{generator: generator, reader: reader}
}

// Generate godoc
// @Summary Generate the weekly timetable
// @Description Runs a full generation pass against the active configuration, replacing the stored timetable. Set dry_run to preview without persisting.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
			return
		}
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List stored timetable placements
// @Tags Timetable
// @Produce json
// @Param year query int false "Cohort year"
// @Param semester query int false "Cohort semester"
// @Param day query string false "Day of week"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	entries, err := h.reader.List(c.Request.Context(), timetableQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Grid godoc
// @Summary Render the timetable as a day-by-slot grid
// @Tags Timetable
// @Produce json
// @Param year query int false "Cohort year"
// @Param semester query int false "Cohort semester"
// @Success 200 {object} response.Envelope
// @Router /timetable/grid [get]
func (h *TimetableHandler) Grid(c *gin.Context) {
	grid, err := h.reader.Grid(c.Request.Context(), timetableQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Conflicts godoc
// @Summary Audit the stored timetable for overlaps
// @Description Reports staff double-bookings and student cohort overlaps. Diagnostic only; never blocks use of the schedule.
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.reader.Conflicts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflicts": conflicts, "count": len(conflicts)}, nil)
}

func timetableQueryFromContext(c *gin.Context) dto.TimetableQuery {
	year, _ := strconv.Atoi(c.Query("year"))
	semester, _ := strconv.Atoi(c.Query("semester"))
	return dto.TimetableQuery{
		Year:     year,
		Semester: semester,
		Day:      c.Query("day"),
	}
}
