package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vcscsvcscs/medwatch/internal/engine"
)

// Reason tells why a patient needs to be re-evaluated
type Reason string

const (
	ReasonIntakeLogged    Reason = "intake-logged"
	ReasonReadingLogged   Reason = "reading-logged"
	ReasonMedicineChanged Reason = "medicine-changed"
	ReasonManual          Reason = "manual"
)

// Trigger asks the alert engine to evaluate one patient
type Trigger struct {
	UserID     string    `json:"userId"`
	Reason     Reason    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Handler processes a decoded trigger
type Handler func(ctx context.Context, trigger Trigger) error

// Publisher emits evaluation triggers
type Publisher interface {
	Publish(ctx context.Context, trigger Trigger) error
	Close() error
}

// Consumer delivers evaluation triggers to a handler until the context is cancelled
type Consumer interface {
	Run(ctx context.Context, handle Handler) error
	Close() error
}

// Encode serializes a trigger for the wire
func Encode(trigger Trigger) ([]byte, error) {
	if err := engine.ValidatePatientID(trigger.UserID); err != nil {
		return nil, err
	}
	data, err := json.Marshal(trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger: %w", err)
	}
	return data, nil
}

// Decode parses a trigger and rejects ones without a usable patient id
func Decode(data []byte) (Trigger, error) {
	var trigger Trigger
	if err := json.Unmarshal(data, &trigger); err != nil {
		return Trigger{}, fmt.Errorf("failed to decode trigger: %w", err)
	}
	if err := engine.ValidatePatientID(trigger.UserID); err != nil {
		return Trigger{}, err
	}
	return trigger, nil
}

// NopPublisher drops triggers. Used when no transport is configured.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(ctx context.Context, trigger Trigger) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }
