// Package api holds the HTTP request and response types of the medwatch API
// and the gin binding of its routes.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// CreateMedicineRequest defines model for CreateMedicineRequest.
type CreateMedicineRequest struct {
	UserId            string  `json:"user_id" binding:"required"`
	Name              string  `json:"name" binding:"required"`
	Dosage            string  `json:"dosage" binding:"required"`
	Frequency         string  `json:"frequency" binding:"required"`
	Stock             int     `json:"stock" binding:"gte=0"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty" binding:"omitempty,gte=0"`
	Notes             *string `json:"notes,omitempty"`
}

// UpdateMedicineRequest defines model for UpdateMedicineRequest.
type UpdateMedicineRequest struct {
	Name              string  `json:"name" binding:"required"`
	Dosage            string  `json:"dosage" binding:"required"`
	Frequency         string  `json:"frequency" binding:"required"`
	Stock             int     `json:"stock" binding:"gte=0"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty" binding:"omitempty,gte=0"`
	Notes             *string `json:"notes,omitempty"`
	Active            *bool   `json:"active,omitempty"`
}

// MedicineResponse defines model for MedicineResponse.
type MedicineResponse struct {
	Id                string    `json:"id"`
	UserId            string    `json:"user_id"`
	Name              string    `json:"name"`
	Dosage            string    `json:"dosage"`
	Frequency         string    `json:"frequency"`
	Stock             int       `json:"stock"`
	LowStockThreshold *int      `json:"low_stock_threshold,omitempty"`
	Notes             *string   `json:"notes,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// ScheduleIntakeRequest defines model for ScheduleIntakeRequest.
type ScheduleIntakeRequest struct {
	UserId      string    `json:"user_id" binding:"required"`
	MedicineId  string    `json:"medicine_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// TakeIntakeRequest defines model for TakeIntakeRequest.
type TakeIntakeRequest struct {
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

// IntakeResponse defines model for IntakeResponse.
type IntakeResponse struct {
	Id          string     `json:"id"`
	UserId      string     `json:"user_id"`
	MedicineId  string     `json:"medicine_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	Status      string     `json:"status"`
}

// HealthReadingRequest defines model for HealthReadingRequest.
type HealthReadingRequest struct {
	UserId     string     `json:"user_id" binding:"required"`
	MeasuredAt *time.Time `json:"measured_at,omitempty"`
	Systolic   *float64   `json:"systolic,omitempty"`
	Diastolic  *float64   `json:"diastolic,omitempty"`
	BloodSugar *float64   `json:"blood_sugar,omitempty"`
	HeartRate  *float64   `json:"heart_rate,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// HealthReadingResponse defines model for HealthReadingResponse.
type HealthReadingResponse struct {
	Id         string    `json:"id"`
	UserId     string    `json:"user_id"`
	MeasuredAt time.Time `json:"measured_at"`
	Systolic   *float64  `json:"systolic,omitempty"`
	Diastolic  *float64  `json:"diastolic,omitempty"`
	BloodSugar *float64  `json:"blood_sugar,omitempty"`
	HeartRate  *float64  `json:"heart_rate,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

// EvaluateRequest defines model for EvaluateRequest.
type EvaluateRequest struct {
	UserId string `json:"user_id" binding:"required"`
}

// ResolveAlertRequest defines model for ResolveAlertRequest.
type ResolveAlertRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"required"`
}

// GenerateReportRequest defines model for GenerateReportRequest.
type GenerateReportRequest struct {
	UserId    string             `json:"user_id" binding:"required"`
	StartDate openapi_types.Date `json:"start_date" binding:"required"`
	EndDate   openapi_types.Date `json:"end_date" binding:"required"`
}

// ReportResponse defines model for ReportResponse.
type ReportResponse struct {
	Id             string             `json:"id"`
	UserId         string             `json:"user_id"`
	DateRangeStart openapi_types.Date `json:"date_range_start"`
	DateRangeEnd   openapi_types.Date `json:"date_range_end"`
	GeneratedAt    time.Time          `json:"generated_at"`
	DownloadUrl    string             `json:"download_url"`
}

// GetApiV1ReportsAdherenceParams defines parameters for GetApiV1ReportsAdherence.
type GetApiV1ReportsAdherenceParams struct {
	UserId string     `form:"user_id" json:"user_id"`
	Days   *int       `form:"days,omitempty" json:"days,omitempty"`
	Start  *time.Time `form:"start,omitempty" json:"start,omitempty"`
	End    *time.Time `form:"end,omitempty" json:"end,omitempty"`
}

// GetApiV1AlertsParams defines parameters for GetApiV1Alerts.
type GetApiV1AlertsParams struct {
	UserId     string `form:"user_id" json:"user_id"`
	Unresolved *bool  `form:"unresolved,omitempty" json:"unresolved,omitempty"`
}

// GetApiV1MedicationsParams defines parameters for GetApiV1Medications.
type GetApiV1MedicationsParams struct {
	UserId string `form:"user_id" json:"user_id"`
}

// GetApiV1MedicationsLowStockParams defines parameters for GetApiV1MedicationsLowStock.
type GetApiV1MedicationsLowStockParams struct {
	UserId string `form:"user_id" json:"user_id"`
}

// GetApiV1HealthReadingsParams defines parameters for GetApiV1HealthReadings.
type GetApiV1HealthReadingsParams struct {
	UserId string `form:"user_id" json:"user_id"`
	Days   *int   `form:"days,omitempty" json:"days,omitempty"`
}
