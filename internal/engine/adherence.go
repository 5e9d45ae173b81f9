package engine

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

const dateLayout = "2006-01-02"

// AdherenceOptions tunes how intake events are bucketed and classified
type AdherenceOptions struct {
	// Location is the reporting timezone used for daily buckets. Nil means UTC.
	Location *time.Location
	// MissedGrace is how long after its scheduled time an unlogged dose stays pending.
	MissedGrace time.Duration
}

// DailyAdherence is the adherence of a single calendar day that had doses due
type DailyAdherence struct {
	Date          string  `json:"date"`
	Scheduled     int     `json:"scheduled"`
	Taken         int     `json:"taken"`
	AdherenceRate float64 `json:"adherenceRate"`
}

// StreakStats holds streaks of fully adherent dose-bearing days
type StreakStats struct {
	Current      int    `json:"currentStreak"`
	Longest      int    `json:"longestStreak"`
	LongestStart string `json:"longestStreakStart,omitempty"`
	LongestEnd   string `json:"longestStreakEnd,omitempty"`
}

// AdherenceSummary is derived on demand from the intake ledger of one window
type AdherenceSummary struct {
	Window         Window
	TotalScheduled int
	TotalTaken     int
	TotalMissed    int
	TotalPending   int
	// AdherenceRate is a percentage in [0, 100].
	AdherenceRate  float64
	Daily          []DailyAdherence
	Streak         StreakStats
	SkippedRecords int
}

// ComputeAdherence derives the overall rate, the daily series and streaks.
//
// Status is judged as of window.End. Pending doses are not yet due and do not
// count as scheduled. Events without a scheduled time, or scheduled outside the
// window, are excluded and counted in SkippedRecords.
func ComputeAdherence(events []model.IntakeEvent, window Window, opts AdherenceOptions) AdherenceSummary {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	summary := AdherenceSummary{
		Window: window,
		Daily:  []DailyAdherence{},
	}

	buckets := make(map[string]*DailyAdherence)
	for _, ev := range events {
		if ev.ScheduledAt == nil || !window.Contains(*ev.ScheduledAt) {
			summary.SkippedRecords++
			continue
		}

		status := ev.DerivedStatus(window.End, opts.MissedGrace)
		if status == model.IntakeStatusPending {
			summary.TotalPending++
			continue
		}

		day := ev.ScheduledAt.In(loc).Format(dateLayout)
		bucket, ok := buckets[day]
		if !ok {
			bucket = &DailyAdherence{Date: day}
			buckets[day] = bucket
		}

		bucket.Scheduled++
		summary.TotalScheduled++
		if status == model.IntakeStatusTaken {
			bucket.Taken++
			summary.TotalTaken++
		} else {
			summary.TotalMissed++
		}
	}

	summary.AdherenceRate = percentage(summary.TotalTaken, summary.TotalScheduled)

	days := lo.Keys(buckets)
	sort.Strings(days)
	for _, day := range days {
		bucket := buckets[day]
		bucket.AdherenceRate = percentage(bucket.Taken, bucket.Scheduled)
		summary.Daily = append(summary.Daily, *bucket)
	}

	summary.Streak = computeStreaks(summary.Daily)
	return summary
}

// computeStreaks walks an ascending daily series. Only fully adherent days count;
// days without doses never appear in the series, so they neither extend nor break a run.
func computeStreaks(daily []DailyAdherence) StreakStats {
	var stats StreakStats
	run, runStart := 0, 0
	for i, day := range daily {
		if day.Scheduled == 0 || day.Taken < day.Scheduled {
			run = 0
			continue
		}
		if run == 0 {
			runStart = i
		}
		run++
		// strictly greater keeps the earliest run on ties
		if run > stats.Longest {
			stats.Longest = run
			stats.LongestStart = daily[runStart].Date
			stats.LongestEnd = day.Date
		}
	}
	stats.Current = run
	return stats
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
