package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/response"
)

type configManager interface {
	GetActive(ctx context.Context) (*models.TimetableConfig, error)
	Upsert(ctx context.Context, req dto.UpsertConfigRequest) (*models.TimetableConfig, error)
}

// ConfigHandler exposes timetable configuration endpoints.
type ConfigHandler struct {
	service configManager
}

// NewConfigHandler constructs the handler.
func NewConfigHandler(svc configManager) *ConfigHandler {
	return &ConfigHandler{service: svc}
}

// Get godoc
// @Summary Get the active timetable configuration
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /config [get]
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.service.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Put godoc
// @Summary Replace the timetable configuration
// @Description Validates day and slot definitions, stores the configuration, and makes it the active one for generation.
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.UpsertConfigRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Router /config [put]
func (h *ConfigHandler) Put(c *gin.Context) {
	var req dto.UpsertConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}
	cfg, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
