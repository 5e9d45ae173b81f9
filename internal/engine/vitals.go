package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/vcscsvcscs/medwatch/pkg/model"
)

// VitalField names a vital sign on a health reading
type VitalField string

const (
	FieldSystolic   VitalField = "systolic"
	FieldDiastolic  VitalField = "diastolic"
	FieldBloodSugar VitalField = "blood_sugar"
	FieldHeartRate  VitalField = "heart_rate"
)

// evaluationOrder keeps violations deterministic per reading
var evaluationOrder = []VitalField{FieldSystolic, FieldDiastolic, FieldBloodSugar, FieldHeartRate}

// Label returns a human readable name for the field
func (f VitalField) Label() string {
	switch f {
	case FieldSystolic:
		return "Systolic blood pressure"
	case FieldDiastolic:
		return "Diastolic blood pressure"
	case FieldBloodSugar:
		return "Blood sugar"
	case FieldHeartRate:
		return "Heart rate"
	default:
		return string(f)
	}
}

// Unit returns the measurement unit of the field
func (f VitalField) Unit() string {
	switch f {
	case FieldSystolic, FieldDiastolic:
		return "mmHg"
	case FieldBloodSugar:
		return "mg/dL"
	case FieldHeartRate:
		return "bpm"
	default:
		return ""
	}
}

// Range is an inclusive normal range
type Range struct {
	Min float64
	Max float64
}

// EscalationPolicy maps the relative distance past a range edge to a severity.
// Distances up to Medium are medium, up to High are high, anything further is Beyond.
type EscalationPolicy struct {
	Medium float64
	High   float64
	Beyond model.Severity
}

// Classify returns the severity for a relative deviation
func (p EscalationPolicy) Classify(deviation float64) model.Severity {
	switch {
	case deviation <= p.Medium:
		return model.SeverityMedium
	case deviation <= p.High:
		return model.SeverityHigh
	case p.Beyond != "":
		return p.Beyond
	default:
		return model.SeverityHigh
	}
}

// VitalConfig holds the normal ranges and the escalation policy
type VitalConfig struct {
	Ranges     map[VitalField]Range
	Escalation EscalationPolicy
}

// DefaultVitalConfig returns the stock adult ranges with 10%/20% escalation bands
func DefaultVitalConfig() VitalConfig {
	return VitalConfig{
		Ranges: map[VitalField]Range{
			FieldSystolic:   {Min: 90, Max: 140},
			FieldDiastolic:  {Min: 60, Max: 90},
			FieldBloodSugar: {Min: 70, Max: 140},
			FieldHeartRate:  {Min: 60, Max: 100},
		},
		Escalation: EscalationPolicy{
			Medium: 0.10,
			High:   0.20,
			Beyond: model.SeverityHigh,
		},
	}
}

// Direction tells which edge of the range a value crossed
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// VitalViolation is one out-of-range field on one reading
type VitalViolation struct {
	ReadingID  string
	UserID     string
	Field      VitalField
	Value      float64
	Range      Range
	Direction  Direction
	Deviation  float64
	Severity   model.Severity
	MeasuredAt time.Time
}

// EntityKey identifies the (reading, field) pair an alert is raised for
func (v VitalViolation) EntityKey() string {
	return fmt.Sprintf("%s:%s", v.ReadingID, v.Field)
}

// EvaluateVitals compares every present field of every reading against its range.
// Readings without any vital sign are skipped; the number skipped is returned.
func EvaluateVitals(readings []model.HealthReading, cfg VitalConfig) ([]VitalViolation, int) {
	violations := []VitalViolation{}
	skipped := 0

	for _, reading := range readings {
		if !reading.HasVitals() {
			skipped++
			continue
		}

		for _, field := range evaluationOrder {
			value := fieldValue(reading, field)
			if value == nil {
				continue
			}
			rng, ok := cfg.Ranges[field]
			if !ok {
				continue
			}

			var direction Direction
			var deviation float64
			switch {
			case *value > rng.Max:
				direction = DirectionAbove
				deviation = relativeDistance(*value, rng.Max)
			case *value < rng.Min:
				direction = DirectionBelow
				deviation = relativeDistance(*value, rng.Min)
			default:
				continue
			}

			violations = append(violations, VitalViolation{
				ReadingID:  reading.ID,
				UserID:     reading.UserID,
				Field:      field,
				Value:      *value,
				Range:      rng,
				Direction:  direction,
				Deviation:  deviation,
				Severity:   cfg.Escalation.Classify(deviation),
				MeasuredAt: reading.MeasuredAt,
			})
		}
	}

	return violations, skipped
}

func fieldValue(r model.HealthReading, field VitalField) *float64 {
	switch field {
	case FieldSystolic:
		return r.Systolic
	case FieldDiastolic:
		return r.Diastolic
	case FieldBloodSugar:
		return r.BloodSugar
	case FieldHeartRate:
		return r.HeartRate
	default:
		return nil
	}
}

// relativeDistance is |value-edge| as a fraction of the edge. A zero edge yields the absolute distance.
func relativeDistance(value, edge float64) float64 {
	if edge == 0 {
		return math.Abs(value)
	}
	return math.Abs(value-edge) / math.Abs(edge)
}
