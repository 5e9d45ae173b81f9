package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PatientRepository answers which patients the batch job has to evaluate
type PatientRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPatientRepository creates a new PatientRepository
func NewPatientRepository(db *pgxpool.Pool, logger *zap.Logger) *PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: logger,
	}
}

// ListActivePatients returns users with an active medicine or a reading since the given time
func (r *PatientRepository) ListActivePatients(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT user_id FROM medicines WHERE active
		UNION
		SELECT user_id FROM health_readings WHERE measured_at >= $1
		ORDER BY user_id
	`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		r.logger.Error("failed to list active patients", zap.Error(err))
		return nil, fmt.Errorf("failed to list active patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("failed to scan patient id", zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating patients", zap.Error(err))
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}

	return ids, nil
}
