package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/events"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// MedicationService handles medicine management and intake logging
type MedicationService struct {
	medicines MedicineStore
	intakes   IntakeStore
	publisher events.Publisher
	stock     engine.StockPolicy
	clock     clock.Clock
	logger    *zap.Logger
}

// NewMedicationService creates a new MedicationService
func NewMedicationService(
	medicines MedicineStore,
	intakes IntakeStore,
	publisher events.Publisher,
	stock engine.StockPolicy,
	clk clock.Clock,
	logger *zap.Logger,
) *MedicationService {
	return &MedicationService{
		medicines: medicines,
		intakes:   intakes,
		publisher: publisher,
		stock:     stock,
		clock:     clk,
		logger:    logger,
	}
}

func validateMedicine(med *model.Medicine) error {
	if strings.TrimSpace(med.Name) == "" {
		return fmt.Errorf("%w: medicine name is required", ErrValidation)
	}
	if strings.TrimSpace(med.Dosage) == "" {
		return fmt.Errorf("%w: medicine dosage is required", ErrValidation)
	}
	if strings.TrimSpace(med.Frequency) == "" {
		return fmt.Errorf("%w: medicine frequency is required", ErrValidation)
	}
	if med.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	if med.LowStockThreshold != nil && *med.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold cannot be negative", ErrValidation)
	}
	return nil
}

// AddMedicine adds a new medicine for a user
func (s *MedicationService) AddMedicine(ctx context.Context, userID string, med *model.Medicine) error {
	if err := engine.ValidatePatientID(userID); err != nil {
		return err
	}
	if err := validateMedicine(med); err != nil {
		return err
	}

	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	med.UserID = userID
	med.Active = true

	if err := s.medicines.Create(ctx, med); err != nil {
		s.logger.Error("failed to add medicine",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("medicine_name", med.Name),
		)
		return persistenceError("add medicine", err)
	}

	s.logger.Info("medicine added successfully",
		zap.String("medicine_id", med.ID),
		zap.String("user_id", userID),
		zap.String("name", med.Name),
	)

	s.publish(ctx, userID, events.ReasonMedicineChanged)
	return nil
}

// ListMedicines retrieves all medicines of a user
func (s *MedicationService) ListMedicines(ctx context.Context, userID string) ([]model.Medicine, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}

	medicines, err := s.medicines.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list medicines", zap.Error(err), zap.String("user_id", userID))
		return nil, persistenceError("list medicines", err)
	}

	return medicines, nil
}

// UpdateMedicine replaces the editable fields of a medicine. Owner and id are preserved.
func (s *MedicationService) UpdateMedicine(ctx context.Context, medicineID string, updates *model.Medicine) error {
	if medicineID == "" {
		return fmt.Errorf("%w: medicine ID is required", ErrValidation)
	}
	if err := validateMedicine(updates); err != nil {
		return err
	}

	existing, err := s.medicines.FindByID(ctx, medicineID)
	if err != nil {
		s.logger.Error("failed to find medicine for update", zap.Error(err), zap.String("medicine_id", medicineID))
		return persistenceError("find medicine", err)
	}

	updates.ID = existing.ID
	updates.UserID = existing.UserID
	updates.CreatedAt = existing.CreatedAt

	if err := s.medicines.Update(ctx, updates); err != nil {
		s.logger.Error("failed to update medicine", zap.Error(err), zap.String("medicine_id", medicineID))
		return persistenceError("update medicine", err)
	}

	s.logger.Info("medicine updated successfully",
		zap.String("medicine_id", medicineID),
		zap.Int("stock", updates.Stock),
	)

	s.publish(ctx, existing.UserID, events.ReasonMedicineChanged)
	return nil
}

// DeactivateMedicine soft-deletes a medicine
func (s *MedicationService) DeactivateMedicine(ctx context.Context, medicineID string) error {
	if medicineID == "" {
		return fmt.Errorf("%w: medicine ID is required", ErrValidation)
	}

	if err := s.medicines.Deactivate(ctx, medicineID); err != nil {
		s.logger.Error("failed to deactivate medicine", zap.Error(err), zap.String("medicine_id", medicineID))
		return persistenceError("deactivate medicine", err)
	}

	s.logger.Info("medicine deactivated", zap.String("medicine_id", medicineID))
	return nil
}

// LowStock returns the active medicines of a user at or below their threshold
func (s *MedicationService) LowStock(ctx context.Context, userID string) ([]model.Medicine, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}

	medicines, err := s.medicines.FindActiveByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to read stock", zap.Error(err), zap.String("user_id", userID))
		return nil, persistenceError("read stock", err)
	}

	return engine.FlagLowStock(medicines, s.stock), nil
}

// ScheduleDose records a pending dose of one of the user's medicines
func (s *MedicationService) ScheduleDose(ctx context.Context, userID, medicineID string, scheduledAt time.Time) (*model.IntakeEvent, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}
	if scheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", engine.ErrIncompleteRecord)
	}

	med, err := s.medicines.FindByID(ctx, medicineID)
	if err != nil {
		s.logger.Error("failed to find medicine for dose", zap.Error(err), zap.String("medicine_id", medicineID))
		return nil, persistenceError("find medicine", err)
	}
	if med.UserID != userID {
		return nil, fmt.Errorf("%w: medicine %s does not belong to user", ErrValidation, medicineID)
	}

	event := &model.IntakeEvent{
		ID:          uuid.New().String(),
		UserID:      userID,
		MedicineID:  medicineID,
		ScheduledAt: &scheduledAt,
		Status:      model.IntakeStatusPending,
	}
	if err := s.intakes.Schedule(ctx, event); err != nil {
		s.logger.Error("failed to schedule dose", zap.Error(err), zap.String("medicine_id", medicineID))
		return nil, persistenceError("schedule dose", err)
	}

	s.logger.Info("dose scheduled",
		zap.String("intake_id", event.ID),
		zap.String("medicine_id", medicineID),
		zap.Time("scheduled_at", scheduledAt),
	)

	return event, nil
}

// LogIntake marks a pending dose as taken and decrements the stock of its medicine.
// A zero takenAt means now.
func (s *MedicationService) LogIntake(ctx context.Context, eventID string, takenAt time.Time) (*model.IntakeEvent, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: intake ID is required", ErrValidation)
	}
	if takenAt.IsZero() {
		takenAt = s.clock.Now()
	}

	event, err := s.intakes.MarkTaken(ctx, eventID, takenAt)
	if err != nil {
		s.logger.Error("failed to log intake", zap.Error(err), zap.String("intake_id", eventID))
		return nil, persistenceError("log intake", err)
	}

	s.logger.Info("intake logged",
		zap.String("intake_id", event.ID),
		zap.String("medicine_id", event.MedicineID),
	)

	s.publish(ctx, event.UserID, events.ReasonIntakeLogged)
	return event, nil
}

func (s *MedicationService) publish(ctx context.Context, userID string, reason events.Reason) {
	publishTrigger(ctx, s.publisher, s.clock, s.logger, userID, reason)
}

// publishTrigger asks for a re-evaluation. Delivery failures are logged only;
// the batch job evaluates the patient anyway.
func publishTrigger(ctx context.Context, publisher events.Publisher, clk clock.Clock, logger *zap.Logger, userID string, reason events.Reason) {
	if publisher == nil {
		return
	}
	err := publisher.Publish(ctx, events.Trigger{
		UserID:     userID,
		Reason:     reason,
		OccurredAt: clk.Now(),
	})
	if err != nil {
		logger.Warn("failed to publish evaluation trigger",
			zap.String("user_id", userID),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
	}
}
