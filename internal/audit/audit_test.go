package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

type recordingExecer struct {
	args []any
	err  error
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	r.args = arguments
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

func TestLogger_StampsMissingTime(t *testing.T) {
	db := &recordingExecer{}
	logger := NewLogger(db, testclock.NewClock(testNow), zap.NewNop())

	err := logger.Log(context.Background(), Entry{
		UserID:       "patient-1",
		Actor:        SystemActor,
		Operation:    OperationCreate,
		ResourceType: ResourceAlert,
		ResourceID:   "alert-1",
	})

	require.NoError(t, err)
	require.Len(t, db.args, 7)
	assert.Equal(t, testNow, db.args[6])
	assert.Equal(t, OperationCreate, db.args[2])
}

func TestLogger_KeepsGivenTime(t *testing.T) {
	db := &recordingExecer{}
	logger := NewLogger(db, testclock.NewClock(testNow), zap.NewNop())
	at := testNow.Add(-time.Hour)

	err := logger.Log(context.Background(), Entry{UserID: "patient-1", Operation: OperationUpdate, RecordedAt: at})

	require.NoError(t, err)
	assert.Equal(t, at, db.args[6])
}

func TestLogger_WrapsExecError(t *testing.T) {
	cause := errors.New("connection reset")
	logger := NewLogger(&recordingExecer{err: cause}, testclock.NewClock(testNow), zap.NewNop())

	err := logger.Log(context.Background(), Entry{UserID: "patient-1", Operation: OperationResolve})

	assert.ErrorIs(t, err, cause)
}

func TestLogger_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("medwatch_audit"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `CREATE TABLE audit_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id VARCHAR(255) NOT NULL,
		actor VARCHAR(255) NOT NULL,
		operation_type VARCHAR(50) NOT NULL,
		resource_type VARCHAR(100) NOT NULL,
		resource_id VARCHAR(255),
		details JSONB,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	require.NoError(t, err)

	userID := uuid.New().String()
	logger := NewLogger(pool, testclock.NewClock(testNow), zap.NewNop())
	err = logger.Log(ctx, Entry{
		UserID:       userID,
		Actor:        SystemActor,
		Operation:    OperationCreate,
		ResourceType: ResourceAlert,
		ResourceID:   "alert-1",
		Details:      map[string]string{"severity": "high"},
	})
	require.NoError(t, err)

	var (
		actor    string
		severity string
		recorded time.Time
	)
	err = pool.QueryRow(ctx,
		`SELECT actor, details->>'severity', recorded_at FROM audit_logs WHERE user_id = $1`, userID,
	).Scan(&actor, &severity, &recorded)
	require.NoError(t, err)

	assert.Equal(t, SystemActor, actor)
	assert.Equal(t, "high", severity)
	assert.True(t, testNow.Equal(recorded))
}
