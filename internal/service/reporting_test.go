package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

func newReportingService(intakes *MockIntakeStore, readings *MockHealthReadingStore, alerts *MockAlertReader) *ReportingService {
	return NewReportingService(
		intakes,
		readings,
		alerts,
		engine.AdherenceOptions{Location: time.UTC},
		90*24*time.Hour,
		testclock.NewClock(testNow),
		zap.NewNop(),
	)
}

// streakEvents yields daily rates 100, 100, 50, 100 over four days
func streakEvents() []model.IntakeEvent {
	day := func(d, hour int) time.Time { return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC) }
	return []model.IntakeEvent{
		takenDose("a1", day(1, 8)), takenDose("a2", day(1, 20)),
		takenDose("b1", day(2, 8)), takenDose("b2", day(2, 20)),
		takenDose("c1", day(3, 8)), missedDose("c2", day(3, 20)),
		takenDose("d1", day(4, 8)), takenDose("d2", day(4, 20)),
	}
}

func TestReportingService_BuildReport_Success(t *testing.T) {
	// Arrange
	intakes := new(MockIntakeStore)
	readings := new(MockHealthReadingStore)
	alerts := new(MockAlertReader)
	service := newReportingService(intakes, readings, alerts)
	window := testWindow()

	late := window.Start.Add(48 * time.Hour)
	early := window.Start.Add(24 * time.Hour)
	intakes.On("FindByWindow", mock.Anything, testUserID, window.Start, window.End).Return(streakEvents(), nil)
	readings.On("FindByWindow", mock.Anything, testUserID, window.Start, window.End).Return([]model.HealthReading{
		{ID: "r2", UserID: testUserID, MeasuredAt: late, HeartRate: floatPtr(72)},
		{ID: "r1", UserID: testUserID, MeasuredAt: early, Systolic: floatPtr(150), Diastolic: floatPtr(85)},
		{ID: "r3", UserID: testUserID, MeasuredAt: late},
	}, nil)
	alerts.On("ListByWindow", mock.Anything, testUserID, window.Start, window.End).Return([]model.Alert{
		{ID: "alert-1", UserID: testUserID, Rule: model.AlertRuleVital, Severity: model.SeverityMedium},
	}, nil)

	// Act
	report, err := service.BuildReport(context.Background(), testUserID, window)

	// Assert
	require.NoError(t, err)
	assert.False(t, report.Incomplete)
	assert.Empty(t, report.MissingSections)
	require.NotNil(t, report.Overall)
	assert.Equal(t, 8, report.Overall.TotalIntakes)
	assert.Equal(t, 7, report.Overall.TakenIntakes)
	assert.InDelta(t, 87.5, report.Overall.AdherenceRate, 0.001)
	require.NotNil(t, report.Streak)
	assert.Equal(t, 1, report.Streak.Current)
	assert.Equal(t, 2, report.Streak.Longest)
	assert.Len(t, report.Daily, 4)

	require.Len(t, report.Trends, 2)
	assert.Equal(t, early, report.Trends[0].MeasuredAt)
	require.NotNil(t, report.Trends[0].BloodPressure)
	assert.Equal(t, 150.0, *report.Trends[0].BloodPressure.Systolic)
	require.NotNil(t, report.Trends[1].HeartRate)
	assert.Equal(t, 72.0, report.Trends[1].HeartRate.Value)
	assert.Equal(t, 1, report.SkippedRecords)

	assert.Len(t, report.Alerts, 1)
	assert.Equal(t, testNow, report.GeneratedAt)

	intakes.AssertExpectations(t)
	readings.AssertExpectations(t)
	alerts.AssertExpectations(t)
}

func TestReportingService_BuildReport_EmptyWindow(t *testing.T) {
	// Arrange
	intakes := new(MockIntakeStore)
	readings := new(MockHealthReadingStore)
	alerts := new(MockAlertReader)
	service := newReportingService(intakes, readings, alerts)

	intakes.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.IntakeEvent{}, nil)
	readings.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.HealthReading{}, nil)
	alerts.On("ListByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.Alert{}, nil)

	// Act
	report, err := service.BuildReport(context.Background(), testUserID, testWindow())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, report.Overall)
	assert.Equal(t, 0.0, report.Overall.AdherenceRate)
	assert.Equal(t, 0, report.Overall.TotalIntakes)
	assert.NotNil(t, report.Daily)
	assert.Empty(t, report.Daily)
	assert.Equal(t, 0, report.Streak.Current)
	assert.Equal(t, 0, report.Streak.Longest)
	assert.Nil(t, report.Trends)
	assert.Nil(t, report.Alerts)
	assert.False(t, report.Incomplete)
}

func TestReportingService_BuildReport_ReaderFailureMarksIncomplete(t *testing.T) {
	// Arrange
	intakes := new(MockIntakeStore)
	readings := new(MockHealthReadingStore)
	alerts := new(MockAlertReader)
	service := newReportingService(intakes, readings, alerts)

	intakes.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(streakEvents(), nil)
	readings.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	alerts.On("ListByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	// Act
	report, err := service.BuildReport(context.Background(), testUserID, testWindow())

	// Assert
	require.NoError(t, err)
	assert.True(t, report.Incomplete)
	assert.Equal(t, []string{SectionTrends, SectionAlerts}, report.MissingSections)
	require.NotNil(t, report.Overall)
	assert.Equal(t, 8, report.Overall.TotalIntakes)
}

func TestReportingService_BuildReport_IntakeFailureOmitsAdherence(t *testing.T) {
	intakes := new(MockIntakeStore)
	readings := new(MockHealthReadingStore)
	alerts := new(MockAlertReader)
	service := newReportingService(intakes, readings, alerts)

	intakes.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	readings.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.HealthReading{}, nil)
	alerts.On("ListByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.Alert{}, nil)

	report, err := service.BuildReport(context.Background(), testUserID, testWindow())

	require.NoError(t, err)
	assert.True(t, report.Incomplete)
	assert.Equal(t, []string{SectionAdherence}, report.MissingSections)
	assert.Nil(t, report.Overall)
	assert.Nil(t, report.Streak)

	body, err := json.Marshal(report)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.NotContains(t, fields, "overall")
	assert.NotContains(t, fields, "daily")
	assert.NotContains(t, fields, "streak")
}

func TestReportingService_BuildReport_EmptyDailySerializesAsList(t *testing.T) {
	intakes := new(MockIntakeStore)
	readings := new(MockHealthReadingStore)
	alerts := new(MockAlertReader)
	service := newReportingService(intakes, readings, alerts)

	intakes.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.IntakeEvent{}, nil)
	readings.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.HealthReading{}, nil)
	alerts.On("ListByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.Alert{}, nil)

	report, err := service.BuildReport(context.Background(), testUserID, testWindow())
	require.NoError(t, err)

	body, err := json.Marshal(report)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.JSONEq(t, `[]`, string(fields["daily"]))
}

func TestReportingService_BuildReport_CancelledContext(t *testing.T) {
	// Arrange
	intakes := new(MockIntakeStore)
	readings := new(MockHealthReadingStore)
	alerts := new(MockAlertReader)
	service := newReportingService(intakes, readings, alerts)

	ctx, cancel := context.WithCancel(context.Background())
	intakes.On("FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(streakEvents(), nil)

	// Act
	report, err := service.BuildReport(ctx, testUserID, testWindow())

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
	readings.AssertNotCalled(t, "FindByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	alerts.AssertNotCalled(t, "ListByWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReportingService_BuildReport_Validation(t *testing.T) {
	service := newReportingService(new(MockIntakeStore), new(MockHealthReadingStore), new(MockAlertReader))
	window := testWindow()

	tests := []struct {
		name    string
		userID  string
		window  engine.Window
		wantErr error
	}{
		{name: "placeholder patient", userID: "current-user", window: window, wantErr: engine.ErrInvalidPatient},
		{name: "empty patient", userID: "", window: window, wantErr: engine.ErrInvalidPatient},
		{name: "end before start", userID: testUserID, window: engine.Window{Start: window.End, End: window.Start}, wantErr: engine.ErrInvalidWindow},
		{name: "span too long", userID: testUserID, window: engine.Window{Start: window.End.AddDate(-1, 0, 0), End: window.End}, wantErr: engine.ErrInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.BuildReport(context.Background(), tt.userID, tt.window)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}
