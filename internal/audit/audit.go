package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/juju/clock"
	"go.uber.org/zap"
)

// OperationType is the kind of change recorded
type OperationType string

const (
	OperationCreate  OperationType = "CREATE"
	OperationUpdate  OperationType = "UPDATE"
	OperationResolve OperationType = "RESOLVE"
)

// ResourceType is the kind of record that changed
type ResourceType string

const ResourceAlert ResourceType = "alert"

// SystemActor is recorded for changes made by the evaluation engine itself
const SystemActor = "system:alert-engine"

// Entry is one row of the audit trail
type Entry struct {
	UserID       string
	Actor        string
	Operation    OperationType
	ResourceType ResourceType
	ResourceID   string
	Details      map[string]string
	RecordedAt   time.Time
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Logger appends entries to the audit_logs table
type Logger struct {
	db     Execer
	clock  clock.Clock
	logger *zap.Logger
}

// NewLogger creates a new audit Logger
func NewLogger(db Execer, clk clock.Clock, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		clock:  clk,
		logger: logger,
	}
}

// Log writes an entry. A zero RecordedAt is stamped with the logger's clock.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = l.clock.Now()
	}

	query := `
		INSERT INTO audit_logs (
			user_id, actor, operation_type, resource_type,
			resource_id, details, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := l.db.Exec(ctx, query,
		entry.UserID,
		entry.Actor,
		entry.Operation,
		entry.ResourceType,
		entry.ResourceID,
		entry.Details,
		entry.RecordedAt,
	)
	if err != nil {
		l.logger.Error("failed to write audit entry",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
			zap.String("operation", string(entry.Operation)),
			zap.String("resource_id", entry.ResourceID),
		)
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	l.logger.Debug("audit entry written",
		zap.String("actor", entry.Actor),
		zap.String("operation", string(entry.Operation)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
	)
	return nil
}
