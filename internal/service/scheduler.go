package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"github.com/vcscsvcscs/medwatch/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PatientEvaluator evaluates the alert rules of one patient
type PatientEvaluator interface {
	EvaluatePatient(ctx context.Context, userID string) (*EvaluationResult, error)
}

// OverdueMarker flips overdue pending doses to missed
type OverdueMarker interface {
	MarkOverdueMissed(ctx context.Context, cutoff time.Time) (int64, error)
}

// SchedulerConfig controls the periodic batch evaluation
type SchedulerConfig struct {
	Interval         time.Duration
	Workers          int
	ActivityLookback time.Duration
	MissedGrace      time.Duration
}

// BatchResult summarizes one batch run
type BatchResult struct {
	Patients          int   `json:"patients"`
	Evaluated         int   `json:"evaluated"`
	Failed            int   `json:"failed"`
	DosesMarkedMissed int64 `json:"dosesMarkedMissed"`
}

// Scheduler evaluates every active patient on a fixed interval
type Scheduler struct {
	patients  PatientLister
	intakes   OverdueMarker
	evaluator PatientEvaluator
	cfg       SchedulerConfig
	metrics   *metrics.Collector
	clock     clock.Clock
	logger    *zap.Logger
}

// NewScheduler creates a new Scheduler
func NewScheduler(
	patients PatientLister,
	intakes OverdueMarker,
	evaluator PatientEvaluator,
	cfg SchedulerConfig,
	collector *metrics.Collector,
	clk clock.Clock,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Scheduler{
		patients:  patients,
		intakes:   intakes,
		evaluator: evaluator,
		cfg:       cfg,
		metrics:   collector,
		clock:     clk,
		logger:    logger,
	}
}

// RunOnce marks overdue doses missed and evaluates all active patients in parallel.
// One patient's failure is logged and does not stop the batch.
func (s *Scheduler) RunOnce(ctx context.Context) (*BatchResult, error) {
	now := s.clock.Now()
	result := &BatchResult{}

	missed, err := s.intakes.MarkOverdueMissed(ctx, now.Add(-s.cfg.MissedGrace))
	if err != nil {
		s.logger.Error("failed to mark overdue doses missed", zap.Error(err))
	} else {
		result.DosesMarkedMissed = missed
		s.metrics.DosesMarkedMissed(missed)
	}

	ids, err := s.patients.ListActivePatients(ctx, now.Add(-s.cfg.ActivityLookback))
	if err != nil {
		s.logger.Error("failed to list active patients", zap.Error(err))
		return nil, persistenceError("list active patients", err)
	}
	result.Patients = len(ids)

	var evaluated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, userID := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := s.evaluator.EvaluatePatient(gctx, userID); err != nil {
				failed.Add(1)
				s.logger.Error("patient evaluation failed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
				return nil
			}
			evaluated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result.Evaluated = int(evaluated.Load())
	result.Failed = int(failed.Load())

	s.logger.Info("batch evaluation finished",
		zap.Int("patients", result.Patients),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("failed", result.Failed),
		zap.Int64("doses_marked_missed", result.DosesMarkedMissed),
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// Run executes a batch immediately and then once per interval until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", zap.Duration("interval", s.cfg.Interval), zap.Int("workers", s.cfg.Workers))

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("batch evaluation failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-s.clock.After(s.cfg.Interval):
		}
	}
}
