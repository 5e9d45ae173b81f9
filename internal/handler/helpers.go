package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/repository"
	"github.com/vcscsvcscs/medwatch/internal/service"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// Helper functions for type conversions between API types and internal models

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// dateToTime converts types.Date to time.Time
func dateToTime(d openapi_types.Date) time.Time {
	return d.Time
}

// timeToDate converts time.Time to types.Date
func timeToDate(t time.Time) openapi_types.Date {
	return openapi_types.Date{Time: t}
}

// statusFor maps a service error to its HTTP status and error code
func statusFor(err error) (int, string) {
	switch {
	case service.IsValidationError(err):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, repository.ErrAlreadyResolved):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, engine.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondError logs err and writes the matching ErrorResponse
func respondError(c *gin.Context, logger *zap.Logger, err error, message string, fields ...zap.Field) {
	status, code := statusFor(err)
	fields = append(fields, zap.Error(err), zap.Int("status", status))
	if status >= http.StatusInternalServerError {
		logger.Error(message, fields...)
	} else {
		logger.Warn(message, fields...)
	}
	_ = c.Error(err)
	c.JSON(status, api.ErrorResponse{
		Code:    code,
		Message: message,
		Details: stringPtr(err.Error()),
	})
}

// badRequest writes a VALIDATION_ERROR response for a malformed request body
func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request body",
		Details: stringPtr(err.Error()),
	})
}

func toMedicineResponse(med model.Medicine) api.MedicineResponse {
	return api.MedicineResponse{
		Id:                med.ID,
		UserId:            med.UserID,
		Name:              med.Name,
		Dosage:            med.Dosage,
		Frequency:         med.Frequency,
		Stock:             med.Stock,
		LowStockThreshold: med.LowStockThreshold,
		Notes:             med.Notes,
		Active:            med.Active,
		CreatedAt:         med.CreatedAt,
	}
}

func toIntakeResponse(event *model.IntakeEvent) api.IntakeResponse {
	return api.IntakeResponse{
		Id:          event.ID,
		UserId:      event.UserID,
		MedicineId:  event.MedicineID,
		ScheduledAt: event.ScheduledAt,
		TakenAt:     event.TakenAt,
		Status:      string(event.Status),
	}
}

func toReadingResponse(r model.HealthReading) api.HealthReadingResponse {
	return api.HealthReadingResponse{
		Id:         r.ID,
		UserId:     r.UserID,
		MeasuredAt: r.MeasuredAt,
		Systolic:   r.Systolic,
		Diastolic:  r.Diastolic,
		BloodSugar: r.BloodSugar,
		HeartRate:  r.HeartRate,
		Notes:      r.Notes,
	}
}

// dashboardDays accepts the 7, 30 and 90 day views; anything else is 7
func dashboardDays(days *int) int {
	if days == nil {
		return 7
	}
	switch *days {
	case 7, 30, 90:
		return *days
	default:
		return 7
	}
}
