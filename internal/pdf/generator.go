package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// maxReadingRows caps the vitals table so long windows stay printable
const maxReadingRows = 30

// PDFGenerator renders adherence reports for doctors and caregivers
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// AdherenceTotals is the headline adherence block
type AdherenceTotals struct {
	Rate      float64
	Scheduled int
	Taken     int
	Missed    int
	Pending   int
}

// VitalRow is one line of the vitals table
type VitalRow struct {
	MeasuredAt time.Time
	Systolic   *float64
	Diastolic  *float64
	BloodSugar *float64
	HeartRate  *float64
}

// ReportData contains all data needed for report generation
type ReportData struct {
	PatientID       string
	Window          engine.Window
	Location        *time.Location
	GeneratedAt     time.Time
	Adherence       *AdherenceTotals
	Daily           []engine.DailyAdherence
	Streak          *engine.StreakStats
	Vitals          []VitalRow
	Alerts          []model.Alert
	Medicines       []model.Medicine
	MissingSections []string
	SkippedRecords  int
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("user_id", data.PatientID),
		zap.Time("start", data.Window.Start),
		zap.Time("end", data.Window.End),
	)

	loc := data.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf, data, loc)
	g.addAdherenceSummary(pdf, data.Adherence, data.Streak)
	g.addDailyTable(pdf, data.Daily)
	g.addVitals(pdf, data.Vitals, loc)
	g.addAlerts(pdf, data.Alerts, loc)
	g.addMedicines(pdf, data.Medicines)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the report title and header information
func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, data *ReportData, loc *time.Location) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "Medication Adherence Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Patient: %s", data.PatientID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s to %s",
		data.Window.Start.In(loc).Format("2006-01-02"),
		data.Window.End.In(loc).Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", data.GeneratedAt.In(loc).Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")

	if len(data.MissingSections) > 0 {
		pdf.SetTextColor(180, 0, 0)
		pdf.CellFormat(0, 8, fmt.Sprintf("Incomplete report, unavailable sections: %s",
			strings.Join(data.MissingSections, ", ")), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	if data.SkippedRecords > 0 {
		pdf.CellFormat(0, 8, fmt.Sprintf("Records excluded as incomplete: %d", data.SkippedRecords), "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

func (g *PDFGenerator) addAdherenceSummary(pdf *gofpdf.Fpdf, totals *AdherenceTotals, streak *engine.StreakStats) {
	g.addSectionHeader(pdf, "Adherence Summary")

	if totals == nil {
		pdf.CellFormat(0, 8, "Adherence data unavailable.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.CellFormat(0, 6, fmt.Sprintf("Adherence rate: %.1f%%", totals.Rate), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Doses due: %d, taken: %d, missed: %d", totals.Scheduled, totals.Taken, totals.Missed), "", 1, "L", false, 0, "")
	if totals.Pending > 0 {
		pdf.CellFormat(0, 6, fmt.Sprintf("Doses not yet due: %d", totals.Pending), "", 1, "L", false, 0, "")
	}
	if streak != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Current streak: %d days", streak.Current), "", 1, "L", false, 0, "")
		longest := fmt.Sprintf("Longest streak: %d days", streak.Longest)
		if streak.Longest > 0 {
			longest += fmt.Sprintf(" (%s to %s)", streak.LongestStart, streak.LongestEnd)
		}
		pdf.CellFormat(0, 6, longest, "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addDailyTable(pdf *gofpdf.Fpdf, daily []engine.DailyAdherence) {
	g.addSectionHeader(pdf, "Daily Adherence")

	if len(daily) == 0 {
		pdf.CellFormat(0, 8, "No doses were due during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Date", "B", 0, "L", false, 0, "")
	pdf.CellFormat(30, 6, "Due", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, "Taken", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, "Rate", "B", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)

	for _, day := range daily {
		pdf.CellFormat(40, 5, day.Date, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, fmt.Sprintf("%d", day.Scheduled), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 5, fmt.Sprintf("%d", day.Taken), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 5, fmt.Sprintf("%.0f%%", day.AdherenceRate), "", 1, "R", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addVitals(pdf *gofpdf.Fpdf, rows []VitalRow, loc *time.Location) {
	g.addSectionHeader(pdf, "Vital Signs")

	if len(rows) == 0 {
		pdf.CellFormat(0, 8, "No health readings recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	if len(rows) > maxReadingRows {
		rows = rows[len(rows)-maxReadingRows:]
		pdf.CellFormat(0, 6, fmt.Sprintf("Showing the latest %d readings.", maxReadingRows), "", 1, "L", false, 0, "")
	}

	for _, row := range rows {
		var parts []string
		if row.Systolic != nil || row.Diastolic != nil {
			parts = append(parts, fmt.Sprintf("BP %s/%s mmHg", formatValue(row.Systolic), formatValue(row.Diastolic)))
		}
		if row.BloodSugar != nil {
			parts = append(parts, fmt.Sprintf("Glucose %s mg/dL", formatValue(row.BloodSugar)))
		}
		if row.HeartRate != nil {
			parts = append(parts, fmt.Sprintf("HR %s bpm", formatValue(row.HeartRate)))
		}
		pdf.CellFormat(0, 5, fmt.Sprintf("%s: %s",
			row.MeasuredAt.In(loc).Format("2006-01-02 15:04"), strings.Join(parts, ", ")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addAlerts(pdf *gofpdf.Fpdf, alerts []model.Alert, loc *time.Location) {
	g.addSectionHeader(pdf, "Alerts")

	if len(alerts) == 0 {
		pdf.CellFormat(0, 8, "No alerts raised during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, alert := range alerts {
		status := "open"
		if alert.Resolved {
			status = "resolved"
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("[%s] %s (%s)", strings.ToUpper(string(alert.Severity)), alert.Title, status), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("%s - %s", alert.CreatedAt.In(loc).Format("2006-01-02 15:04"), alert.Message), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addMedicines(pdf *gofpdf.Fpdf, medicines []model.Medicine) {
	g.addSectionHeader(pdf, "Current Medicines")

	if len(medicines) == 0 {
		pdf.CellFormat(0, 8, "No active medicines.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, med := range medicines {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, med.Name, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Dosage: %s, %s", med.Dosage, med.Frequency), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Stock: %d", med.Stock), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}
