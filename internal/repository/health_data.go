package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// FieldCipher encrypts free-text fields at rest
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HealthDataRepository manages vital-sign readings
type HealthDataRepository struct {
	db     *pgxpool.Pool
	cipher FieldCipher
	logger *zap.Logger
}

// NewHealthDataRepository creates a new HealthDataRepository. cipher may be nil,
// in which case notes are stored as given.
func NewHealthDataRepository(db *pgxpool.Pool, cipher FieldCipher, logger *zap.Logger) *HealthDataRepository {
	return &HealthDataRepository{
		db:     db,
		cipher: cipher,
		logger: logger,
	}
}

// Save stores a health reading
func (r *HealthDataRepository) Save(ctx context.Context, reading *model.HealthReading) error {
	notes, err := r.sealNotes(reading.Notes)
	if err != nil {
		r.logger.Error("failed to encrypt reading notes", zap.Error(err), zap.String("user_id", reading.UserID))
		return fmt.Errorf("failed to encrypt reading notes: %w", err)
	}

	query := `
		INSERT INTO health_readings (
			id, user_id, measured_at, systolic, diastolic,
			blood_sugar, heart_rate, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	err = r.db.QueryRow(ctx, query,
		reading.ID,
		reading.UserID,
		reading.MeasuredAt,
		reading.Systolic,
		reading.Diastolic,
		reading.BloodSugar,
		reading.HeartRate,
		notes,
	).Scan(&reading.CreatedAt)

	if err != nil {
		r.logger.Error("failed to save health reading",
			zap.Error(err),
			zap.String("reading_id", reading.ID),
			zap.String("user_id", reading.UserID),
		)
		return fmt.Errorf("failed to save health reading: %w", err)
	}

	return nil
}

// FindByWindow retrieves a user's readings measured inside [start, end], oldest first
func (r *HealthDataRepository) FindByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.HealthReading, error) {
	query := `
		SELECT
			id, user_id, measured_at, systolic, diastolic,
			blood_sugar, heart_rate, notes, created_at
		FROM health_readings
		WHERE user_id = $1 AND measured_at BETWEEN $2 AND $3
		ORDER BY measured_at ASC
	`

	rows, err := r.db.Query(ctx, query, userID, start, end)
	if err != nil {
		r.logger.Error("failed to find health readings", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to find health readings: %w", err)
	}
	defer rows.Close()

	readings := []model.HealthReading{}
	for rows.Next() {
		var reading model.HealthReading
		err := rows.Scan(
			&reading.ID,
			&reading.UserID,
			&reading.MeasuredAt,
			&reading.Systolic,
			&reading.Diastolic,
			&reading.BloodSugar,
			&reading.HeartRate,
			&reading.Notes,
			&reading.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan health reading", zap.Error(err))
			continue
		}

		if reading.Notes, err = r.openNotes(reading.Notes); err != nil {
			r.logger.Warn("failed to decrypt reading notes",
				zap.Error(err),
				zap.String("reading_id", reading.ID),
			)
			reading.Notes = nil
		}
		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating health readings", zap.Error(err))
		return nil, fmt.Errorf("error iterating health readings: %w", err)
	}

	return readings, nil
}

func (r *HealthDataRepository) sealNotes(notes *string) (*string, error) {
	if r.cipher == nil || notes == nil {
		return notes, nil
	}
	sealed, err := r.cipher.Encrypt(*notes)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

func (r *HealthDataRepository) openNotes(notes *string) (*string, error) {
	if r.cipher == nil || notes == nil {
		return notes, nil
	}
	plain, err := r.cipher.Decrypt(*notes)
	if err != nil {
		return nil, err
	}
	return &plain, nil
}
