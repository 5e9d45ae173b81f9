package service

import (
	"context"
	"sort"
	"time"

	"github.com/juju/clock"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// Report sections that can be missing from a partial report
const (
	SectionAdherence = "adherence"
	SectionTrends    = "trends"
	SectionAlerts    = "alerts"
)

// OverallAdherence is the headline adherence block of a report
type OverallAdherence struct {
	AdherenceRate  float64 `json:"adherenceRate"`
	TotalIntakes   int     `json:"totalIntakes"`
	TakenIntakes   int     `json:"takenIntakes"`
	MissedIntakes  int     `json:"missedIntakes"`
	PendingIntakes int     `json:"pendingIntakes"`
}

// BloodPressure pairs systolic and diastolic values of one reading
type BloodPressure struct {
	Systolic  *float64 `json:"systolic,omitempty"`
	Diastolic *float64 `json:"diastolic,omitempty"`
}

// Measurement is a single vital value
type Measurement struct {
	Value float64 `json:"value"`
}

// TrendPoint is one health reading in the vitals trend
type TrendPoint struct {
	MeasuredAt    time.Time      `json:"measuredAt"`
	BloodPressure *BloodPressure `json:"bloodPressure,omitempty"`
	BloodSugar    *Measurement   `json:"bloodSugar,omitempty"`
	HeartRate     *Measurement   `json:"heartRate,omitempty"`
}

// AdherenceReport is the dashboard payload for one patient and window
type AdherenceReport struct {
	UserID          string                  `json:"userId"`
	Window          engine.Window           `json:"window"`
	Overall         *OverallAdherence       `json:"overall,omitempty"`
	Daily           []engine.DailyAdherence `json:"daily,omitzero"`
	Streak          *engine.StreakStats     `json:"streak,omitempty"`
	Trends          []TrendPoint            `json:"trends,omitempty"`
	Alerts          []model.Alert           `json:"alerts,omitempty"`
	Incomplete      bool                    `json:"incomplete"`
	MissingSections []string                `json:"missingSections,omitempty"`
	SkippedRecords  int                     `json:"skippedRecords"`
	GeneratedAt     time.Time               `json:"generatedAt"`
}

func (r *AdherenceReport) markMissing(section string) {
	r.Incomplete = true
	r.MissingSections = append(r.MissingSections, section)
}

// ReportingService assembles adherence reports for dashboards
type ReportingService struct {
	intakes  IntakeReader
	readings HealthReadingReader
	alerts   AlertWindowReader
	opts     engine.AdherenceOptions
	maxSpan  time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// NewReportingService creates a new ReportingService
func NewReportingService(
	intakes IntakeReader,
	readings HealthReadingReader,
	alerts AlertWindowReader,
	opts engine.AdherenceOptions,
	maxSpan time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) *ReportingService {
	return &ReportingService{
		intakes:  intakes,
		readings: readings,
		alerts:   alerts,
		opts:     opts,
		maxSpan:  maxSpan,
		clock:    clk,
		logger:   logger,
	}
}

// BuildReport computes the adherence report of one patient over window.
// A failing reader leaves its section out and marks the report incomplete.
// Cancellation between reads aborts with the context error.
func (s *ReportingService) BuildReport(ctx context.Context, userID string, window engine.Window) (*AdherenceReport, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}

	window, err := engine.NewWindow(window.Start, window.End, s.maxSpan)
	if err != nil {
		return nil, err
	}

	s.logger.Info("building adherence report",
		zap.String("user_id", userID),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
	)

	report := &AdherenceReport{
		UserID: userID,
		Window: window,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.addAdherence(ctx, report, userID, window)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.addTrends(ctx, report, userID, window)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.addAlerts(ctx, report, userID, window)

	report.GeneratedAt = s.clock.Now()

	s.logger.Info("adherence report built",
		zap.String("user_id", userID),
		zap.Bool("incomplete", report.Incomplete),
		zap.Strings("missing_sections", report.MissingSections),
		zap.Int("skipped_records", report.SkippedRecords),
	)

	return report, nil
}

func (s *ReportingService) addAdherence(ctx context.Context, report *AdherenceReport, userID string, window engine.Window) {
	events, err := s.intakes.FindByWindow(ctx, userID, window.Start, window.End)
	if err != nil {
		s.logger.Error("failed to read intake ledger for report", zap.Error(err), zap.String("user_id", userID))
		report.markMissing(SectionAdherence)
		return
	}

	summary := engine.ComputeAdherence(events, window, s.opts)
	report.Overall = &OverallAdherence{
		AdherenceRate:  summary.AdherenceRate,
		TotalIntakes:   summary.TotalScheduled,
		TakenIntakes:   summary.TotalTaken,
		MissedIntakes:  summary.TotalMissed,
		PendingIntakes: summary.TotalPending,
	}
	report.Daily = summary.Daily
	report.Streak = &summary.Streak
	report.SkippedRecords += summary.SkippedRecords
}

func (s *ReportingService) addTrends(ctx context.Context, report *AdherenceReport, userID string, window engine.Window) {
	readings, err := s.readings.FindByWindow(ctx, userID, window.Start, window.End)
	if err != nil {
		s.logger.Error("failed to read health readings for report", zap.Error(err), zap.String("user_id", userID))
		report.markMissing(SectionTrends)
		return
	}

	withVitals := lo.Filter(readings, func(r model.HealthReading, _ int) bool {
		return r.HasVitals()
	})
	report.SkippedRecords += len(readings) - len(withVitals)
	if len(withVitals) == 0 {
		return
	}

	sort.SliceStable(withVitals, func(i, j int) bool {
		return withVitals[i].MeasuredAt.Before(withVitals[j].MeasuredAt)
	})
	report.Trends = lo.Map(withVitals, func(r model.HealthReading, _ int) TrendPoint {
		return toTrendPoint(r)
	})
}

func (s *ReportingService) addAlerts(ctx context.Context, report *AdherenceReport, userID string, window engine.Window) {
	alerts, err := s.alerts.ListByWindow(ctx, userID, window.Start, window.End)
	if err != nil {
		s.logger.Error("failed to read alerts for report", zap.Error(err), zap.String("user_id", userID))
		report.markMissing(SectionAlerts)
		return
	}
	if len(alerts) > 0 {
		report.Alerts = alerts
	}
}

func toTrendPoint(r model.HealthReading) TrendPoint {
	point := TrendPoint{MeasuredAt: r.MeasuredAt}
	if r.Systolic != nil || r.Diastolic != nil {
		point.BloodPressure = &BloodPressure{Systolic: r.Systolic, Diastolic: r.Diastolic}
	}
	if r.BloodSugar != nil {
		point.BloodSugar = &Measurement{Value: *r.BloodSugar}
	}
	if r.HeartRate != nil {
		point.HeartRate = &Measurement{Value: *r.HeartRate}
	}
	return point
}
