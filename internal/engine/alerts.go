package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/vcscsvcscs/medwatch/pkg/model"
)

// AlertKey deduplicates alerts: one unresolved alert per key
type AlertKey struct {
	UserID string
	Rule   model.AlertRule
	Entity string
}

// KeyOf returns the dedup key of an alert
func KeyOf(a model.Alert) AlertKey {
	return AlertKey{UserID: a.UserID, Rule: a.Rule, Entity: a.EntityKey}
}

// RuleToggles enables or disables each alert rule
type RuleToggles struct {
	Adherence bool
	LowStock  bool
	Vital     bool
}

// AlertPolicy configures the Alert Generator
type AlertPolicy struct {
	Rules RuleToggles
	// Adherence rates (percent) strictly below these bounds raise high / medium alerts.
	AdherenceHighBelow   float64
	AdherenceMediumBelow float64
	Stock                StockPolicy
}

// DefaultAlertPolicy enables every rule with the 70% / 85% adherence bands
func DefaultAlertPolicy() AlertPolicy {
	return AlertPolicy{
		Rules:                RuleToggles{Adherence: true, LowStock: true, Vital: true},
		AdherenceHighBelow:   70,
		AdherenceMediumBelow: 85,
		Stock:                StockPolicy{DefaultThreshold: DefaultLowStockThreshold},
	}
}

// AlertInput is everything one patient's alert pass looks at
type AlertInput struct {
	UserID string
	// Adherence over the trailing window. Nil skips the adherence rule.
	Adherence  *AdherenceSummary
	LowStock   []model.Medicine
	Violations []VitalViolation
	// Existing holds the patient's unresolved alerts.
	Existing []model.Alert
	// Resolved holds recently resolved alerts. A resolved vital alert closes its
	// reading for good, so the same reading never raises it again.
	Resolved []model.Alert
	Now      time.Time
}

// GenerateAlerts returns the alerts that are new or changed for this pass.
// Matching unresolved alerts are updated in place (severity, title, message,
// UpdatedAt) rather than duplicated; unchanged ones are not returned at all.
func GenerateAlerts(in AlertInput, policy AlertPolicy) []model.Alert {
	set := newAlertSet(in.UserID, in.Existing, in.Now)
	set.closeResolved(in.Resolved)

	if policy.Rules.Adherence && in.Adherence != nil {
		set.adherence(*in.Adherence, policy)
	}
	if policy.Rules.LowStock {
		for _, med := range in.LowStock {
			set.lowStock(med, policy.Stock)
		}
	}
	if policy.Rules.Vital {
		for _, v := range in.Violations {
			set.vital(v)
		}
	}

	return set.out
}

// alertSet indexes unresolved alerts by key and records what changed
type alertSet struct {
	userID string
	now    time.Time
	index  map[AlertKey]model.Alert
	pos    map[AlertKey]int
	closed map[AlertKey]struct{}
	out    []model.Alert
}

func newAlertSet(userID string, existing []model.Alert, now time.Time) *alertSet {
	s := &alertSet{
		userID: userID,
		now:    now,
		index:  make(map[AlertKey]model.Alert, len(existing)),
		pos:    make(map[AlertKey]int),
		closed: make(map[AlertKey]struct{}),
		out:    []model.Alert{},
	}
	for _, a := range existing {
		if a.Resolved || a.UserID != userID {
			continue
		}
		s.index[KeyOf(a)] = a
	}
	return s
}

// closeResolved marks resolved per-reading keys. Adherence and stock keys describe
// ongoing conditions and may be raised again after a resolution.
func (s *alertSet) closeResolved(resolved []model.Alert) {
	for _, a := range resolved {
		if !a.Resolved || a.UserID != s.userID || a.Rule != model.AlertRuleVital {
			continue
		}
		s.closed[KeyOf(a)] = struct{}{}
	}
}

func (s *alertSet) upsert(key AlertKey, severity model.Severity, title, message string) {
	alert, ok := s.index[key]
	if ok {
		if alert.Severity == severity && alert.Title == title && alert.Message == message {
			return
		}
		alert.Severity = severity
		alert.Title = title
		alert.Message = message
		alert.UpdatedAt = s.now
	} else {
		alert = model.Alert{
			UserID:    key.UserID,
			Rule:      key.Rule,
			EntityKey: key.Entity,
			Severity:  severity,
			Title:     title,
			Message:   message,
			CreatedAt: s.now,
			UpdatedAt: s.now,
		}
	}

	s.index[key] = alert
	if i, seen := s.pos[key]; seen {
		s.out[i] = alert
		return
	}
	s.pos[key] = len(s.out)
	s.out = append(s.out, alert)
}

func (s *alertSet) adherence(summary AdherenceSummary, policy AlertPolicy) {
	if summary.TotalScheduled == 0 {
		return
	}

	var severity model.Severity
	switch {
	case summary.AdherenceRate < policy.AdherenceHighBelow:
		severity = model.SeverityHigh
	case summary.AdherenceRate < policy.AdherenceMediumBelow:
		severity = model.SeverityMedium
	default:
		return
	}

	days := int(math.Round(summary.Window.Span().Hours() / 24))
	message := fmt.Sprintf("Adherence over the last %d days is %.0f%% (%d of %d doses taken).",
		days, summary.AdherenceRate, summary.TotalTaken, summary.TotalScheduled)

	s.upsert(AlertKey{UserID: s.userID, Rule: model.AlertRuleAdherence},
		severity, "Low medication adherence", message)
}

func (s *alertSet) lowStock(med model.Medicine, policy StockPolicy) {
	severity := model.SeverityMedium
	title := fmt.Sprintf("Low stock: %s", med.Name)
	if med.Stock <= 0 {
		severity = model.SeverityHigh
		title = fmt.Sprintf("Out of stock: %s", med.Name)
	}
	message := fmt.Sprintf("%s has %d doses left (reorder at %d).",
		med.Name, med.Stock, policy.ThresholdFor(med))

	s.upsert(AlertKey{UserID: s.userID, Rule: model.AlertRuleLowStock, Entity: med.ID},
		severity, title, message)
}

func (s *alertSet) vital(v VitalViolation) {
	title := fmt.Sprintf("%s %s normal range", v.Field.Label(), v.Direction)
	message := fmt.Sprintf("%s of %g %s measured %s is %s the normal range %g-%g (%.0f%% outside).",
		v.Field.Label(), v.Value, v.Field.Unit(),
		v.MeasuredAt.UTC().Format("2006-01-02 15:04 UTC"),
		v.Direction, v.Range.Min, v.Range.Max, v.Deviation*100)

	key := AlertKey{UserID: s.userID, Rule: model.AlertRuleVital, Entity: v.EntityKey()}
	if _, open := s.index[key]; !open {
		if _, done := s.closed[key]; done {
			return
		}
	}
	s.upsert(key, v.Severity, title, message)
}
