package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vcscsvcscs/medwatch/internal/audit"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/repository"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

// ErrValidation marks errors caused by invalid caller input
var ErrValidation = errors.New("validation failed")

// IntakeReader reads the intake ledger
type IntakeReader interface {
	FindByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.IntakeEvent, error)
}

// IntakeStore schedules and resolves doses
type IntakeStore interface {
	IntakeReader
	Schedule(ctx context.Context, event *model.IntakeEvent) error
	MarkTaken(ctx context.Context, eventID string, takenAt time.Time) (*model.IntakeEvent, error)
	MarkOverdueMissed(ctx context.Context, cutoff time.Time) (int64, error)
}

// StockReader reads current medicine stock
type StockReader interface {
	FindActiveByUserID(ctx context.Context, userID string) ([]model.Medicine, error)
}

// MedicineStore manages medicine records
type MedicineStore interface {
	StockReader
	Create(ctx context.Context, med *model.Medicine) error
	FindByUserID(ctx context.Context, userID string) ([]model.Medicine, error)
	FindByID(ctx context.Context, medicineID string) (*model.Medicine, error)
	Update(ctx context.Context, med *model.Medicine) error
	Deactivate(ctx context.Context, medicineID string) error
}

// HealthReadingReader reads health readings
type HealthReadingReader interface {
	FindByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.HealthReading, error)
}

// HealthReadingStore stores and reads health readings
type HealthReadingStore interface {
	HealthReadingReader
	Save(ctx context.Context, reading *model.HealthReading) error
}

// AlertWindowReader reads alerts raised inside a time window
type AlertWindowReader interface {
	ListByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.Alert, error)
}

// AlertStore persists alerts
type AlertStore interface {
	AlertWindowReader
	ListUnresolved(ctx context.Context, userID string) ([]model.Alert, error)
	ListByUser(ctx context.Context, userID string, unresolvedOnly bool) ([]model.Alert, error)
	FindByID(ctx context.Context, alertID string) (*model.Alert, error)
	Upsert(ctx context.Context, alert *model.Alert) (bool, error)
	Resolve(ctx context.Context, alertID, resolvedBy string) (*model.Alert, error)
}

// PatientLister lists patients the batch job evaluates
type PatientLister interface {
	ListActivePatients(ctx context.Context, since time.Time) ([]string, error)
}

// ReportStore stores report metadata
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.Report) error
	GetReportByID(ctx context.Context, reportID string) (*model.Report, error)
	GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error)
}

// AuditLogger records audit entries
type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// persistenceError marks a storage failure as ErrPersistenceUnavailable while
// keeping not-found and validation errors distinguishable
func persistenceError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAlreadyResolved) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, engine.ErrPersistenceUnavailable, err)
}
