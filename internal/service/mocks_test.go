package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vcscsvcscs/medwatch/internal/audit"
	"github.com/vcscsvcscs/medwatch/internal/events"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

// MockIntakeStore is a mock implementation of IntakeStore
type MockIntakeStore struct {
	mock.Mock
}

func (m *MockIntakeStore) FindByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.IntakeEvent, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IntakeEvent), args.Error(1)
}

func (m *MockIntakeStore) Schedule(ctx context.Context, event *model.IntakeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockIntakeStore) MarkTaken(ctx context.Context, eventID string, takenAt time.Time) (*model.IntakeEvent, error) {
	args := m.Called(ctx, eventID, takenAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IntakeEvent), args.Error(1)
}

func (m *MockIntakeStore) MarkOverdueMissed(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockMedicineStore is a mock implementation of MedicineStore
type MockMedicineStore struct {
	mock.Mock
}

func (m *MockMedicineStore) FindActiveByUserID(ctx context.Context, userID string) ([]model.Medicine, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Medicine), args.Error(1)
}

func (m *MockMedicineStore) Create(ctx context.Context, med *model.Medicine) error {
	args := m.Called(ctx, med)
	return args.Error(0)
}

func (m *MockMedicineStore) FindByUserID(ctx context.Context, userID string) ([]model.Medicine, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Medicine), args.Error(1)
}

func (m *MockMedicineStore) FindByID(ctx context.Context, medicineID string) (*model.Medicine, error) {
	args := m.Called(ctx, medicineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Medicine), args.Error(1)
}

func (m *MockMedicineStore) Update(ctx context.Context, med *model.Medicine) error {
	args := m.Called(ctx, med)
	return args.Error(0)
}

func (m *MockMedicineStore) Deactivate(ctx context.Context, medicineID string) error {
	args := m.Called(ctx, medicineID)
	return args.Error(0)
}

// MockHealthReadingStore is a mock implementation of HealthReadingStore
type MockHealthReadingStore struct {
	mock.Mock
}

func (m *MockHealthReadingStore) FindByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.HealthReading, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthReading), args.Error(1)
}

func (m *MockHealthReadingStore) Save(ctx context.Context, reading *model.HealthReading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

// MockAlertReader is a mock implementation of AlertWindowReader
type MockAlertReader struct {
	mock.Mock
}

func (m *MockAlertReader) ListByWindow(ctx context.Context, userID string, start, end time.Time) ([]model.Alert, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

// MockReportStore is a mock implementation of ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report *model.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportStore) GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, trigger events.Trigger) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}

// MockAuditLogger is a mock implementation of AuditLogger
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Log(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
