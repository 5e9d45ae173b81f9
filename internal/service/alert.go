package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/internal/audit"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/metrics"
	"github.com/vcscsvcscs/medwatch/pkg/model"
	"go.uber.org/zap"
)

// EvaluationConfig holds the policy applied by AlertService
type EvaluationConfig struct {
	Adherence         engine.AdherenceOptions
	AdherenceLookback time.Duration
	VitalsLookback    time.Duration
	Vitals            engine.VitalConfig
	Policy            engine.AlertPolicy
}

// AlertSources groups the readers and the store AlertService works on
type AlertSources struct {
	Intakes  IntakeReader
	Stock    StockReader
	Readings HealthReadingReader
	Alerts   AlertStore
}

// EvaluationResult summarizes one patient evaluation
type EvaluationResult struct {
	UserID         string                     `json:"userId"`
	Created        []model.Alert              `json:"created"`
	Updated        []model.Alert              `json:"updated"`
	RuleErrors     map[model.AlertRule]string `json:"ruleErrors,omitempty"`
	SkippedRecords int                        `json:"skippedRecords"`
	EvaluatedAt    time.Time                  `json:"evaluatedAt"`
}

func (r *EvaluationResult) ruleFailed(rule model.AlertRule, err error) {
	if r.RuleErrors == nil {
		r.RuleErrors = make(map[model.AlertRule]string)
	}
	r.RuleErrors[rule] = err.Error()
}

// AlertService evaluates alert rules for patients and manages alert records
type AlertService struct {
	sources AlertSources
	cfg     EvaluationConfig
	audit   AuditLogger
	metrics *metrics.Collector
	locks   *kmutex.Kmutex
	clock   clock.Clock
	logger  *zap.Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(
	sources AlertSources,
	cfg EvaluationConfig,
	auditLogger AuditLogger,
	collector *metrics.Collector,
	clk clock.Clock,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		sources: sources,
		cfg:     cfg,
		audit:   auditLogger,
		metrics: collector,
		locks:   kmutex.New(),
		clock:   clk,
		logger:  logger,
	}
}

// EvaluatePatient runs every enabled rule for one patient and persists the
// resulting alerts. Evaluations of the same patient never overlap.
// A rule whose input cannot be read is skipped and reported in RuleErrors.
func (s *AlertService) EvaluatePatient(ctx context.Context, userID string) (*EvaluationResult, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	start := s.clock.Now()
	result, err := s.evaluate(ctx, userID, start)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "failed"
	case len(result.RuleErrors) > 0:
		outcome = "partial"
	}
	s.metrics.ObserveEvaluation(outcome, s.clock.Now().Sub(start))

	return result, err
}

func (s *AlertService) evaluate(ctx context.Context, userID string, now time.Time) (*EvaluationResult, error) {
	result := &EvaluationResult{
		UserID:      userID,
		Created:     []model.Alert{},
		Updated:     []model.Alert{},
		EvaluatedAt: now,
	}

	existing, err := s.sources.Alerts.ListUnresolved(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list unresolved alerts", zap.Error(err), zap.String("user_id", userID))
		return nil, persistenceError("list unresolved alerts", err)
	}

	input := engine.AlertInput{
		UserID:   userID,
		Existing: existing,
		Now:      now,
	}
	rules := s.cfg.Policy.Rules

	if rules.Adherence {
		summary, err := s.adherenceInput(ctx, userID, now)
		if err != nil {
			s.ruleFailed(result, model.AlertRuleAdherence, userID, err)
		} else {
			input.Adherence = summary
			result.SkippedRecords += summary.SkippedRecords
			s.metrics.RecordsSkipped("intake", summary.SkippedRecords)
		}
	}

	if rules.LowStock {
		medicines, err := s.sources.Stock.FindActiveByUserID(ctx, userID)
		if err != nil {
			s.ruleFailed(result, model.AlertRuleLowStock, userID, err)
		} else {
			input.LowStock = engine.FlagLowStock(medicines, s.cfg.Policy.Stock)
		}
	}

	if rules.Vital {
		since := now.Add(-s.cfg.VitalsLookback)
		readings, err := s.sources.Readings.FindByWindow(ctx, userID, since, now)
		var recent []model.Alert
		if err == nil {
			// Alerts for readings in the lookback are created and resolved inside it
			recent, err = s.sources.Alerts.ListByWindow(ctx, userID, since, now)
		}
		if err != nil {
			s.ruleFailed(result, model.AlertRuleVital, userID, err)
		} else {
			violations, skipped := engine.EvaluateVitals(readings, s.cfg.Vitals)
			input.Violations = violations
			input.Resolved = lo.Filter(recent, func(a model.Alert, _ int) bool { return a.Resolved })
			result.SkippedRecords += skipped
			s.metrics.RecordsSkipped("reading", skipped)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, alert := range engine.GenerateAlerts(input, s.cfg.Policy) {
		if err := s.persist(ctx, result, alert); err != nil {
			return result, err
		}
	}

	s.logger.Info("patient evaluated",
		zap.String("user_id", userID),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("rule_errors", len(result.RuleErrors)),
		zap.Int("skipped_records", result.SkippedRecords),
	)

	return result, nil
}

func (s *AlertService) adherenceInput(ctx context.Context, userID string, now time.Time) (*engine.AdherenceSummary, error) {
	window, err := engine.NewWindow(now.Add(-s.cfg.AdherenceLookback), now, 0)
	if err != nil {
		return nil, err
	}
	events, err := s.sources.Intakes.FindByWindow(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	summary := engine.ComputeAdherence(events, window, s.cfg.Adherence)
	return &summary, nil
}

func (s *AlertService) ruleFailed(result *EvaluationResult, rule model.AlertRule, userID string, err error) {
	s.logger.Warn("alert rule skipped",
		zap.String("user_id", userID),
		zap.String("rule", string(rule)),
		zap.Error(err),
	)
	result.ruleFailed(rule, persistenceError("read input of rule "+string(rule), err))
	s.metrics.RuleFailed(string(rule))
}

func (s *AlertService) persist(ctx context.Context, result *EvaluationResult, alert model.Alert) error {
	inserted, err := s.sources.Alerts.Upsert(ctx, &alert)
	if err != nil {
		s.logger.Error("failed to persist alert",
			zap.Error(err),
			zap.String("user_id", alert.UserID),
			zap.String("rule", string(alert.Rule)),
			zap.String("entity_key", alert.EntityKey),
		)
		return persistenceError("persist alert", err)
	}

	operation := audit.OperationUpdate
	if inserted {
		operation = audit.OperationCreate
		result.Created = append(result.Created, alert)
	} else {
		result.Updated = append(result.Updated, alert)
	}
	s.metrics.AlertEmitted(string(alert.Rule), string(alert.Severity), inserted)

	s.recordAudit(ctx, audit.Entry{
		UserID:       alert.UserID,
		Actor:        audit.SystemActor,
		Operation:    operation,
		ResourceType: audit.ResourceAlert,
		ResourceID:   alert.ID,
		Details: map[string]string{
			"rule":     string(alert.Rule),
			"severity": string(alert.Severity),
		},
	})
	return nil
}

// recordAudit never fails the caller; a lost audit row is logged by the audit logger
func (s *AlertService) recordAudit(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit entry",
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err),
		)
	}
}

// ListAlerts returns the alerts of a patient, newest first
func (s *AlertService) ListAlerts(ctx context.Context, userID string, unresolvedOnly bool) ([]model.Alert, error) {
	if err := engine.ValidatePatientID(userID); err != nil {
		return nil, err
	}

	alerts, err := s.sources.Alerts.ListByUser(ctx, userID, unresolvedOnly)
	if err != nil {
		s.logger.Error("failed to list alerts", zap.Error(err), zap.String("user_id", userID))
		return nil, persistenceError("list alerts", err)
	}

	return alerts, nil
}

// ResolveAlert marks an alert resolved by actor. Resolving twice keeps the first resolution.
func (s *AlertService) ResolveAlert(ctx context.Context, alertID, actor string) (*model.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert ID is required", ErrValidation)
	}
	if actor == "" {
		return nil, fmt.Errorf("%w: resolving actor is required", ErrValidation)
	}

	alert, err := s.sources.Alerts.Resolve(ctx, alertID, actor)
	if err != nil {
		s.logger.Error("failed to resolve alert", zap.Error(err), zap.String("alert_id", alertID))
		return nil, persistenceError("resolve alert", err)
	}

	s.recordAudit(ctx, audit.Entry{
		UserID:       alert.UserID,
		Actor:        actor,
		Operation:    audit.OperationResolve,
		ResourceType: audit.ResourceAlert,
		ResourceID:   alert.ID,
	})

	s.logger.Info("alert resolved",
		zap.String("alert_id", alert.ID),
		zap.String("resolved_by", actor),
	)

	return alert, nil
}

// IsValidationError reports whether err was caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, engine.ErrInvalidPatient) ||
		errors.Is(err, engine.ErrInvalidWindow) ||
		errors.Is(err, engine.ErrIncompleteRecord) ||
		errors.Is(err, ErrValidation)
}
