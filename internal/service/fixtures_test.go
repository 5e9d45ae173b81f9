package service

import (
	"fmt"
	"time"

	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

const testUserID = "patient-1"

var testNow = time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

func testWindow() engine.Window {
	return engine.Window{Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)}
}

func takenDose(id string, scheduled time.Time) model.IntakeEvent {
	taken := scheduled.Add(10 * time.Minute)
	return model.IntakeEvent{
		ID:          id,
		UserID:      testUserID,
		MedicineID:  "med-1",
		ScheduledAt: &scheduled,
		TakenAt:     &taken,
		Status:      model.IntakeStatusTaken,
	}
}

func missedDose(id string, scheduled time.Time) model.IntakeEvent {
	return model.IntakeEvent{
		ID:          id,
		UserID:      testUserID,
		MedicineID:  "med-1",
		ScheduledAt: &scheduled,
		Status:      model.IntakeStatusMissed,
	}
}

// dosesWithRate spreads taken+missed doses over the 7 days before testNow
func dosesWithRate(taken, missed int) []model.IntakeEvent {
	var events []model.IntakeEvent
	total := taken + missed
	for i := 0; i < total; i++ {
		scheduled := testNow.Add(-time.Duration(i+1) * 6 * time.Hour)
		id := fmt.Sprintf("dose-%d", i)
		if i < taken {
			events = append(events, takenDose(id, scheduled))
		} else {
			events = append(events, missedDose(id, scheduled))
		}
	}
	return events
}
