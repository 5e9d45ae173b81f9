package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Liveness and database connectivity
	// (GET /health)
	GetHealth(c *gin.Context)
	// List alerts of a patient
	// (GET /api/v1/alerts)
	GetApiV1Alerts(c *gin.Context, params GetApiV1AlertsParams)
	// Evaluate alert rules for a patient now
	// (POST /api/v1/alerts/evaluate)
	PostApiV1AlertsEvaluate(c *gin.Context)
	// Resolve an alert
	// (PATCH /api/v1/alerts/{id}/resolve)
	PatchApiV1AlertsIdResolve(c *gin.Context, id string)
	// Log a health reading
	// (POST /api/v1/health/readings)
	PostApiV1HealthReadings(c *gin.Context)
	// List recent health readings
	// (GET /api/v1/health/readings)
	GetApiV1HealthReadings(c *gin.Context, params GetApiV1HealthReadingsParams)
	// Schedule a dose
	// (POST /api/v1/intakes)
	PostApiV1Intakes(c *gin.Context)
	// Log a scheduled dose as taken
	// (POST /api/v1/intakes/{id}/take)
	PostApiV1IntakesIdTake(c *gin.Context, id string)
	// List medicines of a patient
	// (GET /api/v1/medications)
	GetApiV1Medications(c *gin.Context, params GetApiV1MedicationsParams)
	// Add a medicine
	// (POST /api/v1/medications)
	PostApiV1Medications(c *gin.Context)
	// Medicines at or below their reorder threshold
	// (GET /api/v1/medications/low-stock)
	GetApiV1MedicationsLowStock(c *gin.Context, params GetApiV1MedicationsLowStockParams)
	// Update a medicine
	// (PUT /api/v1/medications/{id})
	PutApiV1MedicationsId(c *gin.Context, id string)
	// Deactivate a medicine
	// (DELETE /api/v1/medications/{id})
	DeleteApiV1MedicationsId(c *gin.Context, id string)
	// Adherence report for a window
	// (GET /api/v1/reports/adherence)
	GetApiV1ReportsAdherence(c *gin.Context, params GetApiV1ReportsAdherenceParams)
	// Generate a PDF report
	// (POST /api/v1/reports/generate)
	PostApiV1ReportsGenerate(c *gin.Context)
	// Download a PDF report
	// (GET /api/v1/reports/{id})
	GetApiV1ReportsId(c *gin.Context, id string)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

func (siw *ServerInterfaceWrapper) runMiddlewares(c *gin.Context) bool {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return false
		}
	}
	return true
}

func (siw *ServerInterfaceWrapper) bindPathID(c *gin.Context) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter id: %w", err), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (siw *ServerInterfaceWrapper) bindUserID(c *gin.Context, dest *string) bool {
	err := runtime.BindQueryParameter("form", true, true, "user_id", c.Request.URL.Query(), dest)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter user_id: %w", err), http.StatusBadRequest)
		return false
	}
	return true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetHealth(c)
}

// GetApiV1Alerts operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1Alerts(c *gin.Context) {
	var params GetApiV1AlertsParams
	if !siw.bindUserID(c, &params.UserId) {
		return
	}

	err := runtime.BindQueryParameter("form", true, false, "unresolved", c.Request.URL.Query(), &params.Unresolved)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter unresolved: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetApiV1Alerts(c, params)
}

// PostApiV1AlertsEvaluate operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1AlertsEvaluate(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostApiV1AlertsEvaluate(c)
}

// PatchApiV1AlertsIdResolve operation middleware
func (siw *ServerInterfaceWrapper) PatchApiV1AlertsIdResolve(c *gin.Context) {
	id, ok := siw.bindPathID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PatchApiV1AlertsIdResolve(c, id)
}

// PostApiV1HealthReadings operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1HealthReadings(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostApiV1HealthReadings(c)
}

// GetApiV1HealthReadings operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthReadings(c *gin.Context) {
	var params GetApiV1HealthReadingsParams
	if !siw.bindUserID(c, &params.UserId) {
		return
	}

	err := runtime.BindQueryParameter("form", true, false, "days", c.Request.URL.Query(), &params.Days)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter days: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetApiV1HealthReadings(c, params)
}

// PostApiV1Intakes operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1Intakes(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostApiV1Intakes(c)
}

// PostApiV1IntakesIdTake operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1IntakesIdTake(c *gin.Context) {
	id, ok := siw.bindPathID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostApiV1IntakesIdTake(c, id)
}

// GetApiV1Medications operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1Medications(c *gin.Context) {
	var params GetApiV1MedicationsParams
	if !siw.bindUserID(c, &params.UserId) || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetApiV1Medications(c, params)
}

// PostApiV1Medications operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1Medications(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostApiV1Medications(c)
}

// GetApiV1MedicationsLowStock operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1MedicationsLowStock(c *gin.Context) {
	var params GetApiV1MedicationsLowStockParams
	if !siw.bindUserID(c, &params.UserId) || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetApiV1MedicationsLowStock(c, params)
}

// PutApiV1MedicationsId operation middleware
func (siw *ServerInterfaceWrapper) PutApiV1MedicationsId(c *gin.Context) {
	id, ok := siw.bindPathID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PutApiV1MedicationsId(c, id)
}

// DeleteApiV1MedicationsId operation middleware
func (siw *ServerInterfaceWrapper) DeleteApiV1MedicationsId(c *gin.Context) {
	id, ok := siw.bindPathID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DeleteApiV1MedicationsId(c, id)
}

// GetApiV1ReportsAdherence operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1ReportsAdherence(c *gin.Context) {
	var params GetApiV1ReportsAdherenceParams
	if !siw.bindUserID(c, &params.UserId) {
		return
	}

	query := c.Request.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "days", query, &params.Days); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter days: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "start", query, &params.Start); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter start: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "end", query, &params.End); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter end: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetApiV1ReportsAdherence(c, params)
}

// PostApiV1ReportsGenerate operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1ReportsGenerate(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostApiV1ReportsGenerate(c)
}

// GetApiV1ReportsId operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1ReportsId(c *gin.Context) {
	id, ok := siw.bindPathID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetApiV1ReportsId(c, id)
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			details := err.Error()
			c.JSON(statusCode, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request parameters",
				Details: &details,
			})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.GetHealth)
	router.GET(options.BaseURL+"/api/v1/alerts", wrapper.GetApiV1Alerts)
	router.POST(options.BaseURL+"/api/v1/alerts/evaluate", wrapper.PostApiV1AlertsEvaluate)
	router.PATCH(options.BaseURL+"/api/v1/alerts/:id/resolve", wrapper.PatchApiV1AlertsIdResolve)
	router.POST(options.BaseURL+"/api/v1/health/readings", wrapper.PostApiV1HealthReadings)
	router.GET(options.BaseURL+"/api/v1/health/readings", wrapper.GetApiV1HealthReadings)
	router.POST(options.BaseURL+"/api/v1/intakes", wrapper.PostApiV1Intakes)
	router.POST(options.BaseURL+"/api/v1/intakes/:id/take", wrapper.PostApiV1IntakesIdTake)
	router.GET(options.BaseURL+"/api/v1/medications", wrapper.GetApiV1Medications)
	router.POST(options.BaseURL+"/api/v1/medications", wrapper.PostApiV1Medications)
	router.GET(options.BaseURL+"/api/v1/medications/low-stock", wrapper.GetApiV1MedicationsLowStock)
	router.PUT(options.BaseURL+"/api/v1/medications/:id", wrapper.PutApiV1MedicationsId)
	router.DELETE(options.BaseURL+"/api/v1/medications/:id", wrapper.DeleteApiV1MedicationsId)
	router.GET(options.BaseURL+"/api/v1/reports/adherence", wrapper.GetApiV1ReportsAdherence)
	router.POST(options.BaseURL+"/api/v1/reports/generate", wrapper.PostApiV1ReportsGenerate)
	router.GET(options.BaseURL+"/api/v1/reports/:id", wrapper.GetApiV1ReportsId)
}
