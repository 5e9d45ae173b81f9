package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

func TestLoad_Defaults(t *testing.T) {
	// Arrange
	t.Setenv("DATABASE_URL", "postgres://localhost/medwatch")

	// Act
	cfg, err := Load("")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Provider)
	assert.Equal(t, "none", cfg.Trigger.Transport)
	assert.Equal(t, 7, cfg.Engine.LowStockThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Engine.ScheduleInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Engine.AdherenceLookback)
	assert.True(t, cfg.Engine.Rules.Adherence)
	assert.True(t, cfg.Engine.Rules.LowStock)
	assert.True(t, cfg.Engine.Rules.Vital)
	assert.Equal(t, 140.0, cfg.Engine.Vitals.Systolic.Max)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	// Arrange
	t.Setenv("DATABASE_URL", "postgres://localhost/medwatch")
	t.Setenv("PORT", "9090")
	t.Setenv("MEDWATCH_ENGINE_WORKERS", "12")
	t.Setenv("MEDWATCH_ENGINE_ESCALATION_BEYOND", "critical")
	t.Setenv("TRIGGER_TRANSPORT", "kafka")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	// Act
	cfg, err := Load("")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 12, cfg.Engine.Workers)
	assert.Equal(t, "critical", cfg.Engine.Escalation.Beyond)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Trigger.Kafka.Brokers)
}

func TestLoad_ConfigFile(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, "medwatch.yaml")
	content := `
database:
  url: postgres://db/medwatch
engine:
  timezone: Europe/Budapest
  lowstockthreshold: 3
  rules:
    vital: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DATABASE_URL", "")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/medwatch", cfg.Database.URL)
	assert.Equal(t, "Europe/Budapest", cfg.Engine.Timezone)
	assert.Equal(t, 3, cfg.Engine.LowStockThreshold)
	assert.False(t, cfg.Engine.Rules.Vital)
	assert.True(t, cfg.Engine.Rules.Adherence)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")

	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", Environment: "development"},
		Database: DatabaseConfig{URL: "postgres://localhost/medwatch", MaxConns: 5},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Storage:  StorageConfig{Provider: "memory"},
		Engine: EngineConfig{
			Timezone:             "UTC",
			AdherenceLookback:    7 * 24 * time.Hour,
			VitalsLookback:       7 * 24 * time.Hour,
			ActivityLookback:     30 * 24 * time.Hour,
			LowStockThreshold:    7,
			AdherenceHighBelow:   70,
			AdherenceMediumBelow: 85,
			Vitals: VitalsConfig{
				Systolic:   RangeConfig{Min: 90, Max: 140},
				Diastolic:  RangeConfig{Min: 60, Max: 90},
				BloodSugar: RangeConfig{Min: 70, Max: 140},
				HeartRate:  RangeConfig{Min: 60, Max: 100},
			},
			Escalation:       EscalationConfig{Medium: 0.1, High: 0.2, Beyond: "high"},
			ScheduleInterval: time.Hour,
			Workers:          2,
		},
		Trigger: TriggerConfig{Transport: "none"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown environment", mutate: func(c *Config) { c.Server.Environment = "qa" }, wantErr: true},
		{name: "inverted vital range", mutate: func(c *Config) { c.Engine.Vitals.Systolic.Max = 80 }, wantErr: true},
		{name: "medium band below high band", mutate: func(c *Config) { c.Engine.AdherenceMediumBelow = 60 }, wantErr: true},
		{name: "unknown beyond severity", mutate: func(c *Config) { c.Engine.Escalation.Beyond = "severe" }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Engine.Workers = 0 }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Engine.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "azure without credentials", mutate: func(c *Config) { c.Storage.Provider = "azure" }, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.Provider = "s3" }, wantErr: true},
		{name: "s3 with bucket", mutate: func(c *Config) {
			c.Storage.Provider = "s3"
			c.Storage.S3.Bucket = "reports"
		}},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Trigger.Transport = "kafka" }, wantErr: true},
		{name: "sqs without queue", mutate: func(c *Config) { c.Trigger.Transport = "sqs" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineConfig_Policies(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.Escalation.Beyond = "critical"
	cfg.Engine.Rules = RulesConfig{Adherence: true, LowStock: false, Vital: true}

	vitals := cfg.Engine.VitalConfig()
	assert.Equal(t, engine.Range{Min: 90, Max: 140}, vitals.Ranges[engine.FieldSystolic])
	assert.Equal(t, engine.Range{Min: 60, Max: 100}, vitals.Ranges[engine.FieldHeartRate])
	assert.Equal(t, model.SeverityCritical, vitals.Escalation.Beyond)

	policy := cfg.Engine.AlertPolicy()
	assert.True(t, policy.Rules.Adherence)
	assert.False(t, policy.Rules.LowStock)
	assert.Equal(t, 70.0, policy.AdherenceHighBelow)
	assert.Equal(t, 7, policy.Stock.DefaultThreshold)

	assert.Equal(t, time.UTC, cfg.Engine.AdherenceOptions().Location)
}
