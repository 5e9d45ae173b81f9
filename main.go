package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vcscsvcscs/medwatch/internal/config"
	"github.com/vcscsvcscs/medwatch/internal/repository"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "medwatch",
		Short:        "Medication adherence reporting and alerting engine",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a configuration file (default ./medwatch.yaml)")

	root.AddCommand(
		newServeCommand(&configFile),
		newEvaluateCommand(&configFile),
		newMigrateCommand(&configFile),
	)
	return root
}

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the batch scheduler and the trigger consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func newEvaluateCommand(configFile *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate alert rules once, for one patient or for every active patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var result any
			if userID != "" {
				result, err = a.alerts.EvaluatePatient(ctx, userID)
			} else {
				result, err = a.scheduler.RunOnce(ctx)
			}
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "evaluate a single patient")
	return cmd
}

func newMigrateCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			pool, err := connectDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			return repository.Migrate(ctx, pool, logger)
		},
	}
}

// bootstrap loads the configuration and builds the logger for it
func bootstrap(configFile string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Provider),
		zap.String("trigger_transport", cfg.Trigger.Transport),
	)
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level
	zapConfig.Encoding = cfg.Logging.Format

	return zapConfig.Build()
}
