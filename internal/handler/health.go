package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/service"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// HealthHandler implements health reading API endpoints
type HealthHandler struct {
	service  *service.HealthDataService
	location *time.Location
	clock    clock.Clock
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Day views are counted in location.
func NewHealthHandler(service *service.HealthDataService, location *time.Location, clk clock.Clock, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		service:  service,
		location: location,
		clock:    clk,
		logger:   logger,
	}
}

// PostApiV1HealthReadings logs a health reading
func (h *HealthHandler) PostApiV1HealthReadings(c *gin.Context) {
	var req api.HealthReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	reading := &model.HealthReading{
		MeasuredAt: lo.FromPtrOr(req.MeasuredAt, time.Time{}),
		Systolic:   req.Systolic,
		Diastolic:  req.Diastolic,
		BloodSugar: req.BloodSugar,
		HeartRate:  req.HeartRate,
		Notes:      req.Notes,
	}

	if err := h.service.LogReading(c.Request.Context(), req.UserId, reading); err != nil {
		respondError(c, h.logger, err, "Failed to log health reading", zap.String("user_id", req.UserId))
		return
	}

	c.JSON(http.StatusCreated, toReadingResponse(*reading))
}

// GetApiV1HealthReadings lists the readings of the last 7, 30 or 90 days
func (h *HealthHandler) GetApiV1HealthReadings(c *gin.Context, params api.GetApiV1HealthReadingsParams) {
	window := engine.WindowForDays(h.clock.Now(), dashboardDays(params.Days), h.location)

	readings, err := h.service.GetReadings(c.Request.Context(), params.UserId, window.Start, window.End)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get health readings", zap.String("user_id", params.UserId))
		return
	}

	c.JSON(http.StatusOK, lo.Map(readings, func(r model.HealthReading, _ int) api.HealthReadingResponse {
		return toReadingResponse(r)
	}))
}
