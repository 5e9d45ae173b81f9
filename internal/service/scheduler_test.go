package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/metrics"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type stubPatients struct {
	ids   []string
	err   error
	since time.Time
}

func (s *stubPatients) ListActivePatients(ctx context.Context, since time.Time) ([]string, error) {
	s.since = since
	return s.ids, s.err
}

type stubOverdue struct {
	marked int64
	err    error
	cutoff time.Time
}

func (s *stubOverdue) MarkOverdueMissed(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.marked, s.err
}

type recordingEvaluator struct {
	mu       sync.Mutex
	seen     []string
	failFor  map[string]bool
	calls    chan string
	inflight atomic.Int32
	peak     atomic.Int32
}

func (r *recordingEvaluator) EvaluatePatient(ctx context.Context, userID string) (*EvaluationResult, error) {
	current := r.inflight.Add(1)
	defer r.inflight.Add(-1)
	for {
		seen := r.peak.Load()
		if current <= seen || r.peak.CompareAndSwap(seen, current) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.seen = append(r.seen, userID)
	r.mu.Unlock()
	if r.calls != nil {
		r.calls <- userID
	}
	if r.failFor[userID] {
		return nil, engine.ErrPersistenceUnavailable
	}
	return &EvaluationResult{UserID: userID}, nil
}

func TestScheduler_RunOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	patients := &stubPatients{ids: []string{"p1", "p2", "p3", "p4", "p5"}}
	overdue := &stubOverdue{marked: 4}
	evaluator := &recordingEvaluator{failFor: map[string]bool{"p3": true}}
	cfg := SchedulerConfig{
		Interval:         time.Hour,
		Workers:          2,
		ActivityLookback: 30 * 24 * time.Hour,
		MissedGrace:      2 * time.Hour,
	}
	scheduler := NewScheduler(patients, overdue, evaluator, cfg, metrics.NewCollector(), testclock.NewClock(testNow), zap.NewNop())

	// Act
	result, err := scheduler.RunOnce(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 5, result.Patients)
	assert.Equal(t, 4, result.Evaluated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int64(4), result.DosesMarkedMissed)
	assert.ElementsMatch(t, patients.ids, evaluator.seen)
	assert.LessOrEqual(t, evaluator.peak.Load(), int32(2))
	assert.Equal(t, testNow.Add(-2*time.Hour), overdue.cutoff)
	assert.Equal(t, testNow.Add(-30*24*time.Hour), patients.since)
}

func TestScheduler_RunOnceContinuesWhenMarkingFails(t *testing.T) {
	patients := &stubPatients{ids: []string{"p1"}}
	overdue := &stubOverdue{err: errors.New("db down")}
	evaluator := &recordingEvaluator{}
	scheduler := NewScheduler(patients, overdue, evaluator, SchedulerConfig{Workers: 1}, metrics.NewCollector(), testclock.NewClock(testNow), zap.NewNop())

	result, err := scheduler.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)
	assert.Zero(t, result.DosesMarkedMissed)
}

func TestScheduler_RunOnceFailsWithoutPatientList(t *testing.T) {
	patients := &stubPatients{err: errors.New("db down")}
	scheduler := NewScheduler(patients, &stubOverdue{}, &recordingEvaluator{}, SchedulerConfig{Workers: 1}, metrics.NewCollector(), testclock.NewClock(testNow), zap.NewNop())

	result, err := scheduler.RunOnce(context.Background())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, engine.ErrPersistenceUnavailable)
}

func TestScheduler_RunRepeatsOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	clk := testclock.NewClock(testNow)
	evaluator := &recordingEvaluator{calls: make(chan string, 4)}
	scheduler := NewScheduler(
		&stubPatients{ids: []string{"p1"}},
		&stubOverdue{},
		evaluator,
		SchedulerConfig{Interval: time.Hour, Workers: 1},
		metrics.NewCollector(),
		clk,
		zap.NewNop(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// Act
	go func() { done <- scheduler.Run(ctx) }()

	// Assert
	waitForCall(t, evaluator.calls)
	require.NoError(t, clk.WaitAdvance(time.Hour, time.Second, 1))
	waitForCall(t, evaluator.calls)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func waitForCall(t *testing.T, calls <-chan string) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected an evaluation")
	}
}
