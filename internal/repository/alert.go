package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// AlertRepository is the durable alert store
type AlertRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *pgxpool.Pool, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

const alertColumns = `
	id, user_id, rule, entity_key, severity, title, message,
	resolved, resolved_at, resolved_by, created_at, updated_at`

// Upsert inserts the alert, or updates the unresolved alert with the same
// (user, rule, entity) key. It is a single statement, so concurrent writers
// for one key cannot create duplicates. Returns true when a row was inserted.
func (r *AlertRepository) Upsert(ctx context.Context, alert *model.Alert) (bool, error) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	query := `
		INSERT INTO alerts (
			id, user_id, rule, entity_key, severity, title, message,
			resolved, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)
		ON CONFLICT (user_id, rule, entity_key) WHERE NOT resolved
		DO UPDATE SET
			severity = EXCLUDED.severity,
			title = EXCLUDED.title,
			message = EXCLUDED.message,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.QueryRow(ctx, query,
		alert.ID,
		alert.UserID,
		alert.Rule,
		alert.EntityKey,
		alert.Severity,
		alert.Title,
		alert.Message,
		alert.CreatedAt,
		alert.UpdatedAt,
	).Scan(&alert.ID, &alert.CreatedAt, &inserted)

	if err != nil {
		r.logger.Error("failed to upsert alert",
			zap.Error(err),
			zap.String("user_id", alert.UserID),
			zap.String("rule", string(alert.Rule)),
			zap.String("entity_key", alert.EntityKey),
		)
		return false, fmt.Errorf("failed to upsert alert: %w", err)
	}

	return inserted, nil
}

// ListUnresolved returns the user's open alerts
func (r *AlertRepository) ListUnresolved(ctx context.Context, userID string) ([]model.Alert, error) {
	return r.ListByUser(ctx, userID, true)
}

// ListByUser returns the user's alerts, most recent first
func (r *AlertRepository) ListByUser(ctx context.Context, userID string, unresolvedOnly bool) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1 AND (NOT $2 OR NOT resolved)
		ORDER BY created_at DESC
	`
	return r.queryAlerts(ctx, query, userID, unresolvedOnly)
}

// ListByWindow returns alerts that were open at some point during [start, end]
func (r *AlertRepository) ListByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1
		  AND created_at <= $3
		  AND (resolved_at IS NULL OR resolved_at >= $2)
		ORDER BY created_at DESC
	`
	return r.queryAlerts(ctx, query, userID, start, end)
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]model.Alert, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to find alerts", zap.Error(err))
		return nil, fmt.Errorf("failed to find alerts: %w", err)
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			r.logger.Error("failed to scan alert", zap.Error(err))
			continue
		}
		alerts = append(alerts, *alert)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating alerts", zap.Error(err))
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// FindByID retrieves an alert by ID
func (r *AlertRepository) FindByID(ctx context.Context, alertID string) (*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	alert, err := scanAlert(r.db.QueryRow(ctx, query, alertID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: alert %s", ErrNotFound, alertID)
		}
		r.logger.Error("failed to find alert", zap.Error(err), zap.String("alert_id", alertID))
		return nil, fmt.Errorf("failed to find alert: %w", err)
	}

	return alert, nil
}

// Resolve marks an alert resolved. Resolving an already resolved alert is a no-op.
func (r *AlertRepository) Resolve(ctx context.Context, alertID, resolvedBy string) (*model.Alert, error) {
	query := `
		UPDATE alerts
		SET resolved = true,
		    resolved_at = COALESCE(resolved_at, NOW()),
		    resolved_by = COALESCE(resolved_by, $2),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + alertColumns

	alert, err := scanAlert(r.db.QueryRow(ctx, query, alertID, resolvedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: alert %s", ErrNotFound, alertID)
		}
		r.logger.Error("failed to resolve alert", zap.Error(err), zap.String("alert_id", alertID))
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}

	return alert, nil
}

func scanAlert(row pgx.Row) (*model.Alert, error) {
	var alert model.Alert
	err := row.Scan(
		&alert.ID,
		&alert.UserID,
		&alert.Rule,
		&alert.EntityKey,
		&alert.Severity,
		&alert.Title,
		&alert.Message,
		&alert.Resolved,
		&alert.ResolvedAt,
		&alert.ResolvedBy,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}
