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

// MedicationRepository manages medicines and their stock
type MedicationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewMedicationRepository creates a new MedicationRepository
func NewMedicationRepository(db *pgxpool.Pool, logger *zap.Logger) *MedicationRepository {
	return &MedicationRepository{
		db:     db,
		logger: logger,
	}
}

const medicineColumns = `
	id, user_id, name, dosage, frequency,
	stock, low_stock_threshold, notes, active,
	created_at, updated_at`

// Create creates a new medicine record
func (r *MedicationRepository) Create(ctx context.Context, med *model.Medicine) error {
	query := `
		INSERT INTO medicines (
			id, user_id, name, dosage, frequency,
			stock, low_stock_threshold, notes, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		med.ID,
		med.UserID,
		med.Name,
		med.Dosage,
		med.Frequency,
		med.Stock,
		med.LowStockThreshold,
		med.Notes,
		med.Active,
	).Scan(&med.CreatedAt, &med.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create medicine",
			zap.Error(err),
			zap.String("medicine_id", med.ID),
			zap.String("user_id", med.UserID),
		)
		return fmt.Errorf("failed to create medicine: %w", err)
	}

	return nil
}

// FindByUserID retrieves all medicines of a user, active first
func (r *MedicationRepository) FindByUserID(ctx context.Context, userID string) ([]model.Medicine, error) {
	query := `SELECT ` + medicineColumns + `
		FROM medicines
		WHERE user_id = $1
		ORDER BY active DESC, name ASC
	`
	return r.queryMedicines(ctx, query, userID)
}

// FindActiveByUserID retrieves the medicines a user is currently taking
func (r *MedicationRepository) FindActiveByUserID(ctx context.Context, userID string) ([]model.Medicine, error) {
	query := `SELECT ` + medicineColumns + `
		FROM medicines
		WHERE user_id = $1 AND active
		ORDER BY name ASC
	`
	return r.queryMedicines(ctx, query, userID)
}

func (r *MedicationRepository) queryMedicines(ctx context.Context, query string, args ...any) ([]model.Medicine, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to find medicines", zap.Error(err))
		return nil, fmt.Errorf("failed to find medicines: %w", err)
	}
	defer rows.Close()

	medicines := []model.Medicine{}
	for rows.Next() {
		med, err := scanMedicine(rows)
		if err != nil {
			r.logger.Error("failed to scan medicine", zap.Error(err))
			continue
		}
		medicines = append(medicines, *med)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating medicines", zap.Error(err))
		return nil, fmt.Errorf("error iterating medicines: %w", err)
	}

	return medicines, nil
}

// FindByID retrieves a medicine by ID
func (r *MedicationRepository) FindByID(ctx context.Context, medicineID string) (*model.Medicine, error) {
	query := `SELECT ` + medicineColumns + `
		FROM medicines
		WHERE id = $1
	`

	med, err := scanMedicine(r.db.QueryRow(ctx, query, medicineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: medicine %s", ErrNotFound, medicineID)
		}
		r.logger.Error("failed to find medicine", zap.Error(err), zap.String("medicine_id", medicineID))
		return nil, fmt.Errorf("failed to find medicine: %w", err)
	}

	return med, nil
}

// Update updates an existing medicine record
func (r *MedicationRepository) Update(ctx context.Context, med *model.Medicine) error {
	query := `
		UPDATE medicines
		SET name = $2, dosage = $3, frequency = $4,
		    stock = $5, low_stock_threshold = $6, notes = $7,
		    active = $8, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		med.ID,
		med.Name,
		med.Dosage,
		med.Frequency,
		med.Stock,
		med.LowStockThreshold,
		med.Notes,
		med.Active,
	)

	if err != nil {
		r.logger.Error("failed to update medicine",
			zap.Error(err),
			zap.String("medicine_id", med.ID),
		)
		return fmt.Errorf("failed to update medicine: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: medicine %s", ErrNotFound, med.ID)
	}

	return nil
}

// Deactivate soft-deletes a medicine. Intake history keeps referencing it.
func (r *MedicationRepository) Deactivate(ctx context.Context, medicineID string) error {
	query := `UPDATE medicines SET active = false, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, medicineID)
	if err != nil {
		r.logger.Error("failed to deactivate medicine", zap.Error(err), zap.String("medicine_id", medicineID))
		return fmt.Errorf("failed to deactivate medicine: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: medicine %s", ErrNotFound, medicineID)
	}

	return nil
}

func scanMedicine(row pgx.Row) (*model.Medicine, error) {
	var med model.Medicine
	err := row.Scan(
		&med.ID,
		&med.UserID,
		&med.Name,
		&med.Dosage,
		&med.Frequency,
		&med.Stock,
		&med.LowStockThreshold,
		&med.Notes,
		&med.Active,
		&med.CreatedAt,
		&med.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &med, nil
}
