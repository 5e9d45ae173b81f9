package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/events"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// plausibleBounds rejects values that are measurement or typing errors, not vitals
var plausibleBounds = map[engine.VitalField]engine.Range{
	engine.FieldSystolic:   {Min: 40, Max: 300},
	engine.FieldDiastolic:  {Min: 20, Max: 200},
	engine.FieldBloodSugar: {Min: 10, Max: 1000},
	engine.FieldHeartRate:  {Min: 20, Max: 300},
}

// HealthDataService handles health reading logging
type HealthDataService struct {
	repo      HealthReadingStore
	publisher events.Publisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewHealthDataService creates a new HealthDataService
func NewHealthDataService(repo HealthReadingStore, publisher events.Publisher, clk clock.Clock, logger *zap.Logger) *HealthDataService {
	return &HealthDataService{
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// LogReading stores a health reading. Readings without any vital are rejected.
func (s *HealthDataService) LogReading(ctx context.Context, userID string, reading *model.HealthReading) error {
	if err := engine.ValidatePatientID(userID); err != nil {
		return err
	}
	if !reading.HasVitals() {
		return fmt.Errorf("%w: reading has no vital values", engine.ErrIncompleteRecord)
	}
	if err := checkPlausible(reading); err != nil {
		return err
	}

	if reading.ID == "" {
		reading.ID = uuid.New().String()
	}
	reading.UserID = userID
	if reading.MeasuredAt.IsZero() {
		reading.MeasuredAt = s.clock.Now()
	}

	if err := s.repo.Save(ctx, reading); err != nil {
		s.logger.Error("failed to log health reading", zap.Error(err), zap.String("user_id", userID))
		return persistenceError("log health reading", err)
	}

	s.logger.Info("health reading logged",
		zap.String("reading_id", reading.ID),
		zap.String("user_id", userID),
	)

	publishTrigger(ctx, s.publisher, s.clock, s.logger, userID, events.ReasonReadingLogged)
	return nil
}

// GetReadings returns the readings of a user measured in [start, end]
func (s *HealthDataService) GetReadings(ctx context.Context, userID string, start, end time.Time) ([]model.HealthReading, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}
	window, err := engine.NewWindow(start, end, 0)
	if err != nil {
		return nil, err
	}

	readings, err := s.repo.FindByWindow(ctx, userID, window.Start, window.End)
	if err != nil {
		s.logger.Error("failed to get health readings", zap.Error(err), zap.String("user_id", userID))
		return nil, persistenceError("get health readings", err)
	}

	return readings, nil
}

func checkPlausible(reading *model.HealthReading) error {
	values := map[engine.VitalField]*float64{
		engine.FieldSystolic:   reading.Systolic,
		engine.FieldDiastolic:  reading.Diastolic,
		engine.FieldBloodSugar: reading.BloodSugar,
		engine.FieldHeartRate:  reading.HeartRate,
	}
	for field, value := range values {
		if value == nil {
			continue
		}
		bounds := plausibleBounds[field]
		if *value < bounds.Min || *value > bounds.Max {
			return fmt.Errorf("%w: %s %.1f outside plausible range %.0f-%.0f",
				ErrValidation, field.Label(), *value, bounds.Min, bounds.Max)
		}
	}
	return nil
}
