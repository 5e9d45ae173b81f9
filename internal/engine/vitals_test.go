package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

func floatPtr(f float64) *float64 {
	return &f
}

func reading(id string, systolic, diastolic, sugar *float64) model.HealthReading {
	return model.HealthReading{
		ID:         id,
		UserID:     "patient-1",
		MeasuredAt: time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC),
		Systolic:   systolic,
		Diastolic:  diastolic,
		BloodSugar: sugar,
	}
}

func TestEvaluateVitals_EscalationBands(t *testing.T) {
	cfg := DefaultVitalConfig()

	tests := []struct {
		name     string
		systolic float64
		want     model.Severity
	}{
		{name: "about 7 percent over is medium", systolic: 150, want: model.SeverityMedium},
		{name: "exactly 10 percent over is medium", systolic: 154, want: model.SeverityMedium},
		{name: "between bands is high", systolic: 160, want: model.SeverityHigh},
		{name: "beyond both bands is high", systolic: 175, want: model.SeverityHigh},
		{name: "below range is measured from the lower edge", systolic: 85, want: model.SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, skipped := EvaluateVitals([]model.HealthReading{reading("r1", floatPtr(tt.systolic), nil, nil)}, cfg)

			assert.Equal(t, 0, skipped)
			require.Len(t, violations, 1)
			assert.Equal(t, FieldSystolic, violations[0].Field)
			assert.Equal(t, tt.want, violations[0].Severity)
		})
	}
}

func TestEvaluateVitals_BeyondSeverityIsConfigurable(t *testing.T) {
	cfg := DefaultVitalConfig()
	cfg.Escalation.Beyond = model.SeverityCritical

	violations, _ := EvaluateVitals([]model.HealthReading{reading("r1", floatPtr(175), nil, nil)}, cfg)

	require.Len(t, violations, 1)
	assert.Equal(t, model.SeverityCritical, violations[0].Severity)
}

func TestEvaluateVitals_FieldsAreIndependent(t *testing.T) {
	cfg := DefaultVitalConfig()
	readings := []model.HealthReading{
		reading("r1", floatPtr(150), floatPtr(95), floatPtr(100)),
		reading("r2", floatPtr(120), floatPtr(80), floatPtr(60)),
		reading("r3", floatPtr(140), floatPtr(90), floatPtr(70)),
	}

	violations, skipped := EvaluateVitals(readings, cfg)

	assert.Equal(t, 0, skipped)
	require.Len(t, violations, 3)
	assert.Equal(t, "r1:systolic", violations[0].EntityKey())
	assert.Equal(t, "r1:diastolic", violations[1].EntityKey())
	assert.Equal(t, "r2:blood_sugar", violations[2].EntityKey())
	assert.Equal(t, DirectionBelow, violations[2].Direction)
}

func TestEvaluateVitals_SkipsReadingsWithoutVitals(t *testing.T) {
	readings := []model.HealthReading{
		reading("empty", nil, nil, nil),
		reading("ok", floatPtr(120), nil, nil),
	}

	violations, skipped := EvaluateVitals(readings, DefaultVitalConfig())

	assert.Empty(t, violations)
	assert.Equal(t, 1, skipped)
}

func TestEvaluateVitals_HeartRate(t *testing.T) {
	r := model.HealthReading{ID: "hr", UserID: "patient-1", HeartRate: floatPtr(130)}

	violations, _ := EvaluateVitals([]model.HealthReading{r}, DefaultVitalConfig())

	require.Len(t, violations, 1)
	assert.Equal(t, FieldHeartRate, violations[0].Field)
	assert.Equal(t, model.SeverityHigh, violations[0].Severity)
}
