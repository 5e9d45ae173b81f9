package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"
	"github.com/vcscsvcscs/medwatch/internal/audit"
	"github.com/vcscsvcscs/medwatch/internal/config"
	"github.com/vcscsvcscs/medwatch/internal/events"
	"github.com/vcscsvcscs/medwatch/internal/handler"
	"github.com/vcscsvcscs/medwatch/internal/metrics"
	"github.com/vcscsvcscs/medwatch/internal/pdf"
	"github.com/vcscsvcscs/medwatch/internal/repository"
	"github.com/vcscsvcscs/medwatch/internal/security"
	"github.com/vcscsvcscs/medwatch/internal/service"
	"github.com/vcscsvcscs/medwatch/internal/storage"
	"go.uber.org/zap"
)

// app holds the wired services shared by the serve and evaluate commands
type app struct {
	pool      *pgxpool.Pool
	metrics   *metrics.Collector
	publisher events.Publisher
	consumer  events.Consumer
	alerts    *service.AlertService
	scheduler *service.Scheduler
	api       *handler.APIHandler
	logger    *zap.Logger
}

func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.Database.MaxConns
	if cfg.Database.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Successfully connected to database")
	return pool, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	pool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Field and report encryption are optional
	var cipher repository.FieldCipher
	var sealer service.Sealer
	if cfg.Security.EncryptionKey != "" {
		encryptor, err := security.NewEncryptorFromBase64(cfg.Security.EncryptionKey)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to initialize encryption: %w", err)
		}
		cipher = encryptor
		sealer = encryptor
	}

	blobs, err := storage.New(ctx, cfg.Storage.Options(), logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize report storage: %w", err)
	}

	publisher, consumer, err := events.Open(ctx, cfg.Trigger, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize trigger transport: %w", err)
	}

	clk := clock.WallClock
	collector := metrics.NewCollector()
	location := cfg.Engine.Location()

	// Initialize repositories
	medicationRepo := repository.NewMedicationRepository(pool, logger)
	intakeRepo := repository.NewIntakeRepository(pool, logger)
	healthDataRepo := repository.NewHealthDataRepository(pool, cipher, logger)
	alertRepo := repository.NewAlertRepository(pool, logger)
	patientRepo := repository.NewPatientRepository(pool, logger)
	reportRepo := repository.NewReportRepository(pool, logger)
	auditLogger := audit.NewLogger(pool, clk, logger)

	// Initialize services
	alertService := service.NewAlertService(
		service.AlertSources{
			Intakes:  intakeRepo,
			Stock:    medicationRepo,
			Readings: healthDataRepo,
			Alerts:   alertRepo,
		},
		service.EvaluationConfig{
			Adherence:         cfg.Engine.AdherenceOptions(),
			AdherenceLookback: cfg.Engine.AdherenceLookback,
			VitalsLookback:    cfg.Engine.VitalsLookback,
			Vitals:            cfg.Engine.VitalConfig(),
			Policy:            cfg.Engine.AlertPolicy(),
		},
		auditLogger,
		collector,
		clk,
		logger,
	)
	scheduler := service.NewScheduler(
		patientRepo,
		intakeRepo,
		alertService,
		service.SchedulerConfig{
			Interval:         cfg.Engine.ScheduleInterval,
			Workers:          cfg.Engine.Workers,
			ActivityLookback: cfg.Engine.ActivityLookback,
			MissedGrace:      cfg.Engine.MissedGrace,
		},
		collector,
		clk,
		logger,
	)
	medicationService := service.NewMedicationService(medicationRepo, intakeRepo, publisher, cfg.Engine.StockPolicy(), clk, logger)
	healthDataService := service.NewHealthDataService(healthDataRepo, publisher, clk, logger)
	reportingService := service.NewReportingService(
		intakeRepo,
		healthDataRepo,
		alertRepo,
		cfg.Engine.AdherenceOptions(),
		cfg.Engine.MaxWindowSpan,
		clk,
		logger,
	)
	reportService := service.NewReportService(
		reportingService,
		medicationRepo,
		reportRepo,
		blobs,
		pdf.NewPDFGenerator(logger),
		sealer,
		location,
		logger,
	)

	// Initialize handlers
	apiHandler := handler.NewAPIHandler(
		handler.NewAlertHandler(alertService, logger),
		handler.NewMedicationHandler(medicationService, logger),
		handler.NewHealthHandler(healthDataService, location, clk, logger),
		handler.NewReportHandler(reportingService, reportService, location, clk, logger),
		pool,
		version,
		logger,
	)

	return &app{
		pool:      pool,
		metrics:   collector,
		publisher: publisher,
		consumer:  consumer,
		alerts:    alertService,
		scheduler: scheduler,
		api:       apiHandler,
		logger:    logger,
	}, nil
}

// handleTrigger re-evaluates the patient named by a trigger
func (a *app) handleTrigger(ctx context.Context, trigger events.Trigger) error {
	result, err := a.alerts.EvaluatePatient(ctx, trigger.UserID)
	if err != nil {
		return err
	}
	a.logger.Debug("trigger handled",
		zap.String("user_id", trigger.UserID),
		zap.String("reason", string(trigger.Reason)),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
	)
	return nil
}

// Close releases the transport and the database pool
func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("failed to close trigger publisher", zap.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("failed to close trigger consumer", zap.Error(err))
		}
	}
	a.pool.Close()
}
