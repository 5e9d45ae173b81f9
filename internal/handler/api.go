package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"go.uber.org/zap"
)

// Pinger checks database connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler implements api.ServerInterface by delegating to the individual handlers
type APIHandler struct {
	*AlertHandler
	*MedicationHandler
	*HealthHandler
	*ReportHandler
	db      Pinger
	version string
	logger  *zap.Logger
}

var _ api.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(
	alerts *AlertHandler,
	medications *MedicationHandler,
	health *HealthHandler,
	reports *ReportHandler,
	db Pinger,
	version string,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		AlertHandler:      alerts,
		MedicationHandler: medications,
		HealthHandler:     health,
		ReportHandler:     reports,
		db:                db,
		version:           version,
		logger:            logger,
	}
}

// GetHealth reports liveness and database connectivity
func (h *APIHandler) GetHealth(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.Error("health check failed: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
		"service":  "medwatch",
		"version":  h.version,
	})
}
