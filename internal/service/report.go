package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/pdf"
	"github.com/vcscsvcscs/medwatch/internal/storage"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// sealedSuffix marks blobs stored encrypted
const sealedSuffix = ".enc"

// ReportBuilder builds adherence reports
type ReportBuilder interface {
	BuildReport(ctx context.Context, userID string, window engine.Window) (*AdherenceReport, error)
}

// Sealer encrypts report files at rest
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// ReportService exports adherence reports as PDF files to blob storage
type ReportService struct {
	builder  ReportBuilder
	stock    StockReader
	reports  ReportStore
	blobs    storage.BlobStorage
	pdfGen   *pdf.PDFGenerator
	sealer   Sealer
	location *time.Location
	logger   *zap.Logger
}

// NewReportService creates a new ReportService. A nil sealer stores files unencrypted.
func NewReportService(
	builder ReportBuilder,
	stock StockReader,
	reports ReportStore,
	blobs storage.BlobStorage,
	pdfGen *pdf.PDFGenerator,
	sealer Sealer,
	location *time.Location,
	logger *zap.Logger,
) *ReportService {
	if location == nil {
		location = time.UTC
	}
	return &ReportService{
		builder:  builder,
		stock:    stock,
		reports:  reports,
		blobs:    blobs,
		pdfGen:   pdfGen,
		sealer:   sealer,
		location: location,
		logger:   logger,
	}
}

// GenerateReport renders the adherence report of window, stores the file and records it
func (s *ReportService) GenerateReport(ctx context.Context, userID string, window engine.Window) (*model.Report, error) {
	s.logger.Info("generating adherence report file",
		zap.String("user_id", userID),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
	)

	built, err := s.builder.BuildReport(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	medicines, err := s.stock.FindActiveByUserID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to read medicines for report file", zap.Error(err), zap.String("user_id", userID))
		medicines = nil
	}

	reportID := uuid.New().String()
	data := s.toReportData(built, medicines)

	pdfBytes, err := s.pdfGen.Generate(data)
	if err != nil {
		s.logger.Error("failed to generate PDF", zap.Error(err), zap.String("report_id", reportID))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.pdf", reportID, built.GeneratedAt.In(s.location).Format("20060102"))
	if s.sealer != nil {
		pdfBytes, err = s.sealer.Seal(pdfBytes)
		if err != nil {
			s.logger.Error("failed to encrypt report", zap.Error(err), zap.String("report_id", reportID))
			return nil, fmt.Errorf("failed to encrypt report: %w", err)
		}
		filename += sealedSuffix
	}

	blobPath, err := s.blobs.UploadPDF(ctx, filename, pdfBytes)
	if err != nil {
		s.logger.Error("failed to upload PDF to blob storage", zap.Error(err), zap.String("report_id", reportID))
		return nil, fmt.Errorf("failed to upload PDF: %w", err)
	}

	report := &model.Report{
		ID:             reportID,
		UserID:         userID,
		DateRangeStart: built.Window.Start,
		DateRangeEnd:   built.Window.End,
		FilePath:       blobPath,
		GeneratedAt:    built.GeneratedAt,
	}
	if err := s.reports.SaveReport(ctx, report); err != nil {
		s.logger.Error("failed to save report record", zap.Error(err), zap.String("report_id", reportID))
		return nil, persistenceError("save report record", err)
	}

	s.logger.Info("adherence report file generated",
		zap.String("report_id", reportID),
		zap.String("user_id", userID),
		zap.String("blob_path", blobPath),
		zap.Bool("incomplete", built.Incomplete),
	)

	return report, nil
}

// GetReport retrieves a report PDF for download
func (s *ReportService) GetReport(ctx context.Context, reportID string) ([]byte, error) {
	if reportID == "" {
		return nil, fmt.Errorf("%w: report ID is required", ErrValidation)
	}

	report, err := s.reports.GetReportByID(ctx, reportID)
	if err != nil {
		s.logger.Error("failed to get report record", zap.Error(err), zap.String("report_id", reportID))
		return nil, persistenceError("get report record", err)
	}

	data, err := s.blobs.DownloadPDF(ctx, report.FilePath)
	if err != nil {
		s.logger.Error("failed to download PDF from blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
			zap.String("blob_path", report.FilePath),
		)
		return nil, fmt.Errorf("failed to download PDF: %w", err)
	}

	if strings.HasSuffix(report.FilePath, sealedSuffix) {
		if s.sealer == nil {
			return nil, fmt.Errorf("report %s is encrypted and no encryption key is configured", reportID)
		}
		data, err = s.sealer.Open(data)
		if err != nil {
			s.logger.Error("failed to decrypt report", zap.Error(err), zap.String("report_id", reportID))
			return nil, fmt.Errorf("failed to decrypt report: %w", err)
		}
	}

	return data, nil
}

// GetReportsByUserID retrieves all reports for a user
func (s *ReportService) GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}

	reports, err := s.reports.GetReportsByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get reports for user", zap.Error(err), zap.String("user_id", userID))
		return nil, persistenceError("get reports", err)
	}

	return reports, nil
}

func (s *ReportService) toReportData(built *AdherenceReport, medicines []model.Medicine) *pdf.ReportData {
	data := &pdf.ReportData{
		PatientID:       built.UserID,
		Window:          built.Window,
		Location:        s.location,
		GeneratedAt:     built.GeneratedAt,
		Daily:           built.Daily,
		Streak:          built.Streak,
		Alerts:          built.Alerts,
		Medicines:       medicines,
		MissingSections: built.MissingSections,
		SkippedRecords:  built.SkippedRecords,
	}
	if built.Overall != nil {
		data.Adherence = &pdf.AdherenceTotals{
			Rate:      built.Overall.AdherenceRate,
			Scheduled: built.Overall.TotalIntakes,
			Taken:     built.Overall.TakenIntakes,
			Missed:    built.Overall.MissedIntakes,
			Pending:   built.Overall.PendingIntakes,
		}
	}
	data.Vitals = lo.Map(built.Trends, func(p TrendPoint, _ int) pdf.VitalRow {
		row := pdf.VitalRow{MeasuredAt: p.MeasuredAt}
		if p.BloodPressure != nil {
			row.Systolic = p.BloodPressure.Systolic
			row.Diastolic = p.BloodPressure.Diastolic
		}
		if p.BloodSugar != nil {
			row.BloodSugar = lo.ToPtr(p.BloodSugar.Value)
		}
		if p.HeartRate != nil {
			row.HeartRate = lo.ToPtr(p.HeartRate.Value)
		}
		return row
	})
	return data
}
