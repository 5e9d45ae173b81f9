package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

var alertNow = time.Date(2026, 3, 8, 6, 0, 0, 0, time.UTC)

func trailingSummary(taken, scheduled int) *AdherenceSummary {
	return &AdherenceSummary{
		Window:         WindowForDays(alertNow, 7, time.UTC),
		TotalScheduled: scheduled,
		TotalTaken:     taken,
		AdherenceRate:  percentage(taken, scheduled),
	}
}

// applyAlerts stores generated alerts the way the alert repository does:
// keyed replacement, ids assigned on insert
func applyAlerts(existing, changed []model.Alert) []model.Alert {
	byKey := make(map[AlertKey]model.Alert, len(existing))
	for _, a := range existing {
		byKey[KeyOf(a)] = a
	}
	for _, a := range changed {
		if a.ID == "" {
			a.ID = fmt.Sprintf("%s/%s/%s", a.UserID, a.Rule, a.EntityKey)
		}
		byKey[KeyOf(a)] = a
	}
	return lo.Values(byKey)
}

func TestGenerateAlerts_AdherenceEscalationUpdatesInPlace(t *testing.T) {
	policy := DefaultAlertPolicy()

	// Arrange: 65% over the trailing week
	first := GenerateAlerts(AlertInput{
		UserID:    "patient-1",
		Adherence: trailingSummary(13, 20),
		Now:       alertNow,
	}, policy)

	require.Len(t, first, 1)
	assert.Equal(t, model.AlertRuleAdherence, first[0].Rule)
	assert.Equal(t, model.SeverityHigh, first[0].Severity)
	assert.Empty(t, first[0].ID)

	stored := applyAlerts(nil, first)

	// Act: the rate recovers to 72%
	later := alertNow.Add(24 * time.Hour)
	second := GenerateAlerts(AlertInput{
		UserID:    "patient-1",
		Adherence: trailingSummary(18, 25),
		Existing:  stored,
		Now:       later,
	}, policy)

	// Assert
	require.Len(t, second, 1)
	assert.Equal(t, stored[0].ID, second[0].ID)
	assert.Equal(t, model.SeverityMedium, second[0].Severity)
	assert.Equal(t, alertNow, second[0].CreatedAt)
	assert.Equal(t, later, second[0].UpdatedAt)
	assert.Len(t, applyAlerts(stored, second), 1)
}

func TestGenerateAlerts_AdherenceBands(t *testing.T) {
	tests := []struct {
		name      string
		taken     int
		scheduled int
		want      []model.Severity
	}{
		{name: "below 70 percent", taken: 6, scheduled: 10, want: []model.Severity{model.SeverityHigh}},
		{name: "between 70 and 85 percent", taken: 8, scheduled: 10, want: []model.Severity{model.SeverityMedium}},
		{name: "exactly 85 percent", taken: 17, scheduled: 20, want: nil},
		{name: "no doses scheduled", taken: 0, scheduled: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := GenerateAlerts(AlertInput{
				UserID:    "patient-1",
				Adherence: trailingSummary(tt.taken, tt.scheduled),
				Now:       alertNow,
			}, DefaultAlertPolicy())

			severities := lo.Map(alerts, func(a model.Alert, _ int) model.Severity { return a.Severity })
			if tt.want == nil {
				assert.Empty(t, severities)
			} else {
				assert.Equal(t, tt.want, severities)
			}
		})
	}
}

func TestGenerateAlerts_LowStock(t *testing.T) {
	meds := []model.Medicine{
		{ID: "m1", Name: "Metformin", Stock: 3, Active: true},
		{ID: "m2", Name: "Lisinopril", Stock: 0, Active: true},
	}

	alerts := GenerateAlerts(AlertInput{UserID: "patient-1", LowStock: meds, Now: alertNow}, DefaultAlertPolicy())

	require.Len(t, alerts, 2)
	assert.Equal(t, "m1", alerts[0].EntityKey)
	assert.Equal(t, model.SeverityMedium, alerts[0].Severity)
	assert.Equal(t, "m2", alerts[1].EntityKey)
	assert.Equal(t, model.SeverityHigh, alerts[1].Severity)
	assert.Contains(t, alerts[1].Title, "Out of stock")
}

func TestGenerateAlerts_DistinctReadingsProduceDistinctAlerts(t *testing.T) {
	violations, _ := EvaluateVitals([]model.HealthReading{
		reading("r1", floatPtr(150), nil, nil),
		reading("r2", floatPtr(150), nil, nil),
	}, DefaultVitalConfig())

	alerts := GenerateAlerts(AlertInput{UserID: "patient-1", Violations: violations, Now: alertNow}, DefaultAlertPolicy())

	require.Len(t, alerts, 2)
	assert.NotEqual(t, KeyOf(alerts[0]), KeyOf(alerts[1]))
	assert.Equal(t, model.SeverityMedium, alerts[0].Severity)
}

func TestGenerateAlerts_DisabledRulesProduceNothing(t *testing.T) {
	policy := DefaultAlertPolicy()
	policy.Rules = RuleToggles{}
	violations, _ := EvaluateVitals([]model.HealthReading{reading("r1", floatPtr(175), nil, nil)}, DefaultVitalConfig())

	alerts := GenerateAlerts(AlertInput{
		UserID:     "patient-1",
		Adherence:  trailingSummary(1, 10),
		LowStock:   []model.Medicine{{ID: "m1", Name: "Aspirin", Stock: 0, Active: true}},
		Violations: violations,
		Now:        alertNow,
	}, policy)

	assert.Empty(t, alerts)
}

func TestGenerateAlerts_ResolvedAlertsDoNotSuppressNewOnes(t *testing.T) {
	resolvedAt := alertNow.Add(-time.Hour)
	existing := []model.Alert{{
		ID:         "old",
		UserID:     "patient-1",
		Rule:       model.AlertRuleLowStock,
		EntityKey:  "m1",
		Severity:   model.SeverityMedium,
		Resolved:   true,
		ResolvedAt: &resolvedAt,
	}}

	alerts := GenerateAlerts(AlertInput{
		UserID:   "patient-1",
		LowStock: []model.Medicine{{ID: "m1", Name: "Aspirin", Stock: 2, Active: true}},
		Existing: existing,
		Now:      alertNow,
	}, DefaultAlertPolicy())

	require.Len(t, alerts, 1)
	assert.Empty(t, alerts[0].ID)
}

func TestGenerateAlerts_ResolvedVitalReadingStaysClosed(t *testing.T) {
	violations, _ := EvaluateVitals([]model.HealthReading{
		reading("r1", floatPtr(175), nil, nil),
		reading("r2", floatPtr(150), nil, nil),
	}, DefaultVitalConfig())
	require.Len(t, violations, 2)

	resolvedAt := alertNow.Add(-time.Minute)
	resolved := []model.Alert{{
		ID:         "closed",
		UserID:     "patient-1",
		Rule:       model.AlertRuleVital,
		EntityKey:  violations[0].EntityKey(),
		Severity:   model.SeverityHigh,
		Resolved:   true,
		ResolvedAt: &resolvedAt,
	}, {
		ID:         "stock",
		UserID:     "patient-1",
		Rule:       model.AlertRuleLowStock,
		EntityKey:  "m1",
		Severity:   model.SeverityMedium,
		Resolved:   true,
		ResolvedAt: &resolvedAt,
	}}

	alerts := GenerateAlerts(AlertInput{
		UserID:     "patient-1",
		Violations: violations,
		LowStock:   []model.Medicine{{ID: "m1", Name: "Aspirin", Stock: 2, Active: true}},
		Resolved:   resolved,
		Now:        alertNow,
	}, DefaultAlertPolicy())

	keys := lo.Map(alerts, func(a model.Alert, _ int) string { return a.EntityKey })
	assert.ElementsMatch(t, []string{violations[1].EntityKey(), "m1"}, keys)
}

// Property: a second pass over unchanged inputs emits nothing
func TestProperty_GenerateAlertsIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("generateAlerts is idempotent once its output is stored", prop.ForAll(
		func(taken int, stock int, systolic float64) bool {
			violations, _ := EvaluateVitals([]model.HealthReading{reading("r1", floatPtr(systolic), nil, nil)}, DefaultVitalConfig())
			input := AlertInput{
				UserID:     "patient-1",
				Adherence:  trailingSummary(taken, 20),
				LowStock:   FlagLowStock([]model.Medicine{{ID: "m1", Name: "Aspirin", Stock: stock, Active: true}}, StockPolicy{DefaultThreshold: 7}),
				Violations: violations,
				Now:        alertNow,
			}

			first := GenerateAlerts(input, DefaultAlertPolicy())
			input.Existing = applyAlerts(nil, first)
			second := GenerateAlerts(input, DefaultAlertPolicy())

			return len(second) == 0 && len(applyAlerts(input.Existing, second)) == len(first)
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 15),
		gen.Float64Range(60, 220),
	))

	properties.TestingRun(t)
}
