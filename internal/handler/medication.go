package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/internal/service"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// MedicationHandler implements medicine and intake API endpoints
type MedicationHandler struct {
	service *service.MedicationService
	logger  *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler
func NewMedicationHandler(service *service.MedicationService, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{
		service: service,
		logger:  logger,
	}
}

// PostApiV1Medications adds a new medicine
func (h *MedicationHandler) PostApiV1Medications(c *gin.Context) {
	var req api.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	med := &model.Medicine{
		Name:              req.Name,
		Dosage:            req.Dosage,
		Frequency:         req.Frequency,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Notes:             req.Notes,
	}

	if err := h.service.AddMedicine(c.Request.Context(), req.UserId, med); err != nil {
		respondError(c, h.logger, err, "Failed to add medicine", zap.String("user_id", req.UserId))
		return
	}

	c.JSON(http.StatusCreated, toMedicineResponse(*med))
}

// GetApiV1Medications lists the medicines of a user
func (h *MedicationHandler) GetApiV1Medications(c *gin.Context, params api.GetApiV1MedicationsParams) {
	medicines, err := h.service.ListMedicines(c.Request.Context(), params.UserId)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list medicines", zap.String("user_id", params.UserId))
		return
	}

	c.JSON(http.StatusOK, lo.Map(medicines, func(m model.Medicine, _ int) api.MedicineResponse {
		return toMedicineResponse(m)
	}))
}

// GetApiV1MedicationsLowStock lists the medicines that need reordering
func (h *MedicationHandler) GetApiV1MedicationsLowStock(c *gin.Context, params api.GetApiV1MedicationsLowStockParams) {
	medicines, err := h.service.LowStock(c.Request.Context(), params.UserId)
	if err != nil {
		respondError(c, h.logger, err, "Failed to read stock", zap.String("user_id", params.UserId))
		return
	}

	c.JSON(http.StatusOK, lo.Map(medicines, func(m model.Medicine, _ int) api.MedicineResponse {
		return toMedicineResponse(m)
	}))
}

// PutApiV1MedicationsId updates a medicine
func (h *MedicationHandler) PutApiV1MedicationsId(c *gin.Context, id string) {
	var req api.UpdateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	med := &model.Medicine{
		Name:              req.Name,
		Dosage:            req.Dosage,
		Frequency:         req.Frequency,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Notes:             req.Notes,
		Active:            lo.FromPtrOr(req.Active, true),
	}

	if err := h.service.UpdateMedicine(c.Request.Context(), id, med); err != nil {
		respondError(c, h.logger, err, "Failed to update medicine", zap.String("medicine_id", id))
		return
	}

	c.JSON(http.StatusOK, toMedicineResponse(*med))
}

// DeleteApiV1MedicationsId deactivates a medicine
func (h *MedicationHandler) DeleteApiV1MedicationsId(c *gin.Context, id string) {
	if err := h.service.DeactivateMedicine(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete medicine", zap.String("medicine_id", id))
		return
	}

	c.Status(http.StatusNoContent)
}

// PostApiV1Intakes schedules a dose
func (h *MedicationHandler) PostApiV1Intakes(c *gin.Context) {
	var req api.ScheduleIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	event, err := h.service.ScheduleDose(c.Request.Context(), req.UserId, req.MedicineId, req.ScheduledAt)
	if err != nil {
		respondError(c, h.logger, err, "Failed to schedule dose",
			zap.String("user_id", req.UserId),
			zap.String("medicine_id", req.MedicineId),
		)
		return
	}

	c.JSON(http.StatusCreated, toIntakeResponse(event))
}

// PostApiV1IntakesIdTake logs a dose as taken
func (h *MedicationHandler) PostApiV1IntakesIdTake(c *gin.Context, id string) {
	var req api.TakeIntakeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.logger, err)
			return
		}
	}

	event, err := h.service.LogIntake(c.Request.Context(), id, lo.FromPtrOr(req.TakenAt, time.Time{}))
	if err != nil {
		respondError(c, h.logger, err, "Failed to log intake", zap.String("intake_id", id))
		return
	}

	c.JSON(http.StatusOK, toIntakeResponse(event))
}
