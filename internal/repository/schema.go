package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("not found")

// Schema lists the DDL statements of the service, in dependency order
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS medicines (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		dosage VARCHAR(255) NOT NULL,
		frequency VARCHAR(255) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		low_stock_threshold INTEGER CHECK (low_stock_threshold >= 0),
		notes TEXT,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS medicines_user_active_idx ON medicines (user_id) WHERE active`,
	`CREATE TABLE IF NOT EXISTS intake_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		medicine_id UUID NOT NULL REFERENCES medicines(id) ON DELETE CASCADE,
		scheduled_at TIMESTAMPTZ,
		taken_at TIMESTAMPTZ,
		status VARCHAR(16) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'taken', 'missed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (status <> 'taken' OR taken_at IS NOT NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS intake_events_user_scheduled_idx ON intake_events (user_id, scheduled_at)`,
	`CREATE TABLE IF NOT EXISTS health_readings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		measured_at TIMESTAMPTZ NOT NULL,
		systolic DOUBLE PRECISION,
		diastolic DOUBLE PRECISION,
		blood_sugar DOUBLE PRECISION,
		heart_rate DOUBLE PRECISION,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS health_readings_user_measured_idx ON health_readings (user_id, measured_at)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		rule VARCHAR(32) NOT NULL,
		entity_key VARCHAR(255) NOT NULL DEFAULT '',
		severity VARCHAR(16) NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		resolved BOOLEAN NOT NULL DEFAULT false,
		resolved_at TIMESTAMPTZ,
		resolved_by VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS alerts_unresolved_key_idx ON alerts (user_id, rule, entity_key) WHERE NOT resolved`,
	`CREATE TABLE IF NOT EXISTS reports (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		file_path VARCHAR(500) NOT NULL,
		status VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id VARCHAR(255) NOT NULL,
		actor VARCHAR(255) NOT NULL,
		operation_type VARCHAR(50) NOT NULL,
		resource_type VARCHAR(100) NOT NULL,
		resource_id VARCHAR(255),
		details JSONB,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_resource_idx ON audit_logs (resource_type, resource_id)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	for i, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			logger.Error("failed to apply schema statement", zap.Error(err), zap.Int("statement", i))
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	logger.Info("schema applied", zap.Int("statements", len(Schema)))
	return nil
}
