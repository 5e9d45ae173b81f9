package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// ErrAlreadyResolved is returned when logging a dose that is no longer pending
var ErrAlreadyResolved = errors.New("intake event already resolved")

// IntakeRepository is the intake ledger: scheduled doses and what became of them
type IntakeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewIntakeRepository creates a new IntakeRepository
func NewIntakeRepository(db *pgxpool.Pool, logger *zap.Logger) *IntakeRepository {
	return &IntakeRepository{
		db:     db,
		logger: logger,
	}
}

const intakeColumns = `
	id, user_id, medicine_id, scheduled_at, taken_at,
	status, created_at, updated_at`

// Schedule stores a new pending dose
func (r *IntakeRepository) Schedule(ctx context.Context, event *model.IntakeEvent) error {
	query := `
		INSERT INTO intake_events (
			id, user_id, medicine_id, scheduled_at, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		event.ID,
		event.UserID,
		event.MedicineID,
		event.ScheduledAt,
		model.IntakeStatusPending,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to schedule intake",
			zap.Error(err),
			zap.String("user_id", event.UserID),
			zap.String("medicine_id", event.MedicineID),
		)
		return fmt.Errorf("failed to schedule intake: %w", err)
	}

	event.Status = model.IntakeStatusPending
	return nil
}

// FindByWindow returns the patient's doses scheduled inside [start, end].
// Legacy rows without a scheduled time are returned too so callers can count them.
func (r *IntakeRepository) FindByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.IntakeEvent, error) {
	query := `SELECT ` + intakeColumns + `
		FROM intake_events
		WHERE user_id = $1
		  AND (scheduled_at BETWEEN $2 AND $3 OR scheduled_at IS NULL)
		ORDER BY scheduled_at ASC NULLS LAST
	`

	rows, err := r.db.Query(ctx, query, userID, start, end)
	if err != nil {
		r.logger.Error("failed to find intake events", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to find intake events: %w", err)
	}
	defer rows.Close()

	events := []model.IntakeEvent{}
	for rows.Next() {
		event, err := scanIntake(rows)
		if err != nil {
			r.logger.Error("failed to scan intake event", zap.Error(err))
			continue
		}
		events = append(events, *event)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating intake events", zap.Error(err))
		return nil, fmt.Errorf("error iterating intake events: %w", err)
	}

	return events, nil
}

// MarkTaken records a pending dose as taken and decrements the medicine stock
// in one transaction. Stock never drops below zero.
func (r *IntakeRepository) MarkTaken(ctx context.Context, eventID string, takenAt time.Time) (*model.IntakeEvent, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE intake_events
		SET status = $2, taken_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + intakeColumns

	event, err := scanIntake(tx.QueryRow(ctx, query, eventID, model.IntakeStatusTaken, takenAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyUnpending(ctx, tx, eventID)
		}
		r.logger.Error("failed to mark intake taken", zap.Error(err), zap.String("intake_id", eventID))
		return nil, fmt.Errorf("failed to mark intake taken: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE medicines SET stock = GREATEST(stock - 1, 0), updated_at = NOW() WHERE id = $1`,
		event.MedicineID,
	)
	if err != nil {
		r.logger.Error("failed to decrement stock",
			zap.Error(err),
			zap.String("medicine_id", event.MedicineID),
		)
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("failed to commit intake", zap.Error(err), zap.String("intake_id", eventID))
		return nil, fmt.Errorf("failed to commit intake: %w", err)
	}

	return event, nil
}

func (r *IntakeRepository) classifyUnpending(ctx context.Context, tx pgx.Tx, eventID string) error {
	var status model.IntakeStatus
	err := tx.QueryRow(ctx, `SELECT status FROM intake_events WHERE id = $1`, eventID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: intake event %s", ErrNotFound, eventID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up intake event: %w", err)
	}
	return fmt.Errorf("%w: intake event %s is %s", ErrAlreadyResolved, eventID, status)
}

// MarkOverdueMissed flips pending doses scheduled before cutoff to missed
func (r *IntakeRepository) MarkOverdueMissed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE intake_events
		SET status = 'missed', updated_at = NOW()
		WHERE status = 'pending' AND scheduled_at < $1
	`

	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("failed to mark overdue intakes missed", zap.Error(err), zap.Time("cutoff", cutoff))
		return 0, fmt.Errorf("failed to mark overdue intakes missed: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanIntake(row pgx.Row) (*model.IntakeEvent, error) {
	var event model.IntakeEvent
	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.MedicineID,
		&event.ScheduledAt,
		&event.TakenAt,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
