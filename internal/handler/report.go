package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/service"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"go.uber.org/zap"
)

// ReportHandler implements adherence report and PDF report API endpoints
type ReportHandler struct {
	reporting *service.ReportingService
	files     *service.ReportService
	location  *time.Location
	clock     clock.Clock
	logger    *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(
	reporting *service.ReportingService,
	files *service.ReportService,
	location *time.Location,
	clk clock.Clock,
	logger *zap.Logger,
) *ReportHandler {
	if location == nil {
		location = time.UTC
	}
	return &ReportHandler{
		reporting: reporting,
		files:     files,
		location:  location,
		clock:     clk,
		logger:    logger,
	}
}

// GetApiV1ReportsAdherence returns the adherence report of a patient. An explicit
// start and end take precedence over the days view.
func (h *ReportHandler) GetApiV1ReportsAdherence(c *gin.Context, params api.GetApiV1ReportsAdherenceParams) {
	window := engine.WindowForDays(h.clock.Now(), dashboardDays(params.Days), h.location)
	if params.Start != nil || params.End != nil {
		if params.Start == nil || params.End == nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "start and end must be given together",
			})
			return
		}
		window = engine.Window{Start: *params.Start, End: *params.End}
	}

	report, err := h.reporting.BuildReport(c.Request.Context(), params.UserId, window)
	if err != nil {
		respondError(c, h.logger, err, "Failed to build adherence report", zap.String("user_id", params.UserId))
		return
	}

	c.JSON(http.StatusOK, report)
}

// PostApiV1ReportsGenerate renders a PDF report for whole days start_date..end_date
func (h *ReportHandler) PostApiV1ReportsGenerate(c *gin.Context) {
	var req api.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	start := dateToTime(req.StartDate)
	end := dateToTime(req.EndDate)
	window := engine.Window{
		Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, h.location),
		End:   time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, h.location),
	}

	report, err := h.files.GenerateReport(c.Request.Context(), req.UserId, window)
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate report", zap.String("user_id", req.UserId))
		return
	}

	c.JSON(http.StatusCreated, api.ReportResponse{
		Id:             report.ID,
		UserId:         report.UserID,
		DateRangeStart: timeToDate(report.DateRangeStart),
		DateRangeEnd:   timeToDate(report.DateRangeEnd),
		GeneratedAt:    report.GeneratedAt,
		DownloadUrl:    "/api/v1/reports/" + report.ID,
	})
}

// GetApiV1ReportsId downloads a report
func (h *ReportHandler) GetApiV1ReportsId(c *gin.Context, id string) {
	pdfBytes, err := h.files.GetReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get report", zap.String("report_id", id))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=adherence_report_%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)

	h.logger.Info("report downloaded",
		zap.String("report_id", id),
		zap.Int("size_bytes", len(pdfBytes)),
	)
}
