package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/internal/service"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"go.uber.org/zap"
)

// AlertHandler implements alert API endpoints
type AlertHandler struct {
	service *service.AlertService
	logger  *zap.Logger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(service *service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger,
	}
}

// GetApiV1Alerts lists the alerts of a patient, unresolved only by default
func (h *AlertHandler) GetApiV1Alerts(c *gin.Context, params api.GetApiV1AlertsParams) {
	unresolvedOnly := lo.FromPtrOr(params.Unresolved, true)

	alerts, err := h.service.ListAlerts(c.Request.Context(), params.UserId, unresolvedOnly)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list alerts", zap.String("user_id", params.UserId))
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// PostApiV1AlertsEvaluate runs the alert rules for one patient now
func (h *AlertHandler) PostApiV1AlertsEvaluate(c *gin.Context) {
	var req api.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	result, err := h.service.EvaluatePatient(c.Request.Context(), req.UserId)
	if err != nil {
		respondError(c, h.logger, err, "Failed to evaluate alerts", zap.String("user_id", req.UserId))
		return
	}

	c.JSON(http.StatusOK, result)
}

// PatchApiV1AlertsIdResolve marks an alert resolved
func (h *AlertHandler) PatchApiV1AlertsIdResolve(c *gin.Context, id string) {
	var req api.ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	alert, err := h.service.ResolveAlert(c.Request.Context(), id, req.ResolvedBy)
	if err != nil {
		respondError(c, h.logger, err, "Failed to resolve alert", zap.String("alert_id", id))
		return
	}

	c.JSON(http.StatusOK, alert)
}
