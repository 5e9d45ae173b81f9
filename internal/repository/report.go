package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// ReportRepository stores metadata of generated PDF reports
type ReportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *pgxpool.Pool, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// SaveReport saves a report record
func (r *ReportRepository) SaveReport(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (
			id, user_id, start_date, end_date,
			file_path, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 'completed', $6, $6)
	`

	_, err := r.db.Exec(ctx, query,
		report.ID,
		report.UserID,
		report.DateRangeStart,
		report.DateRangeEnd,
		report.FilePath,
		report.GeneratedAt,
	)

	if err != nil {
		r.logger.Error("failed to save report",
			zap.Error(err),
			zap.String("report_id", report.ID),
			zap.String("user_id", report.UserID),
		)
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetReportByID retrieves a report by ID
func (r *ReportRepository) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	query := `
		SELECT id, user_id, start_date, end_date, file_path, created_at
		FROM reports
		WHERE id = $1
	`

	var report model.Report
	err := r.db.QueryRow(ctx, query, reportID).Scan(
		&report.ID,
		&report.UserID,
		&report.DateRangeStart,
		&report.DateRangeEnd,
		&report.FilePath,
		&report.GeneratedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: report %s", ErrNotFound, reportID)
		}
		r.logger.Error("failed to get report", zap.Error(err), zap.String("report_id", reportID))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

// GetReportsByUserID retrieves all reports for a user, newest first
func (r *ReportRepository) GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error) {
	query := `
		SELECT id, user_id, start_date, end_date, file_path, created_at
		FROM reports
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to get reports", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		var report model.Report
		err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.DateRangeStart,
			&report.DateRangeEnd,
			&report.FilePath,
			&report.GeneratedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan report", zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating reports", zap.Error(err))
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}
