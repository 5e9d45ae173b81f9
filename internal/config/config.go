package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/vcscsvcscs/medwatch/internal/engine"
	"github.com/vcscsvcscs/medwatch/internal/storage"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

var validate = validator.New()

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Storage  StorageConfig
	Engine   EngineConfig
	Trigger  TriggerConfig
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string `validate:"required"`
	Environment     string `validate:"oneof=development staging production test"`
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string `validate:"required"`
	MaxConns        int32  `validate:"gte=1"`
	ConnMaxLifetime time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// StorageConfig selects where exported reports are kept
type StorageConfig struct {
	Provider string `validate:"oneof=azure s3 memory"`
	Azure    AzureStorageConfig
	S3       S3StorageConfig
}

// AzureStorageConfig holds Azure Blob Storage configuration
type AzureStorageConfig struct {
	AccountName     string
	AccountKey      string
	ReportContainer string
}

// S3StorageConfig holds S3 configuration. Endpoint is only set for S3 compatible stores.
type S3StorageConfig struct {
	Bucket   string
	Region   string
	Endpoint string
}

// EngineConfig holds the adherence and alerting policy
type EngineConfig struct {
	Timezone          string        `validate:"required"`
	MaxWindowSpan     time.Duration `validate:"gte=0"`
	MissedGrace       time.Duration `validate:"gte=0"`
	AdherenceLookback time.Duration `validate:"gt=0"`
	VitalsLookback    time.Duration `validate:"gt=0"`
	ActivityLookback  time.Duration `validate:"gt=0"`
	LowStockThreshold int           `validate:"gte=0"`

	AdherenceHighBelow   float64 `validate:"gte=0,lte=100"`
	AdherenceMediumBelow float64 `validate:"gtefield=AdherenceHighBelow,lte=100"`

	Rules      RulesConfig
	Vitals     VitalsConfig
	Escalation EscalationConfig

	ScheduleInterval time.Duration `validate:"gt=0"`
	Workers          int           `validate:"gte=1"`
}

// RulesConfig switches individual alert rules on or off
type RulesConfig struct {
	Adherence bool
	LowStock  bool
	Vital     bool
}

// RangeConfig is an inclusive normal range
type RangeConfig struct {
	Min float64 `validate:"gte=0"`
	Max float64 `validate:"gtfield=Min"`
}

// VitalsConfig holds the normal range per vital sign
type VitalsConfig struct {
	Systolic   RangeConfig
	Diastolic  RangeConfig
	BloodSugar RangeConfig
	HeartRate  RangeConfig
}

// EscalationConfig maps relative deviation to severity
type EscalationConfig struct {
	Medium float64 `validate:"gt=0"`
	High   float64 `validate:"gtefield=Medium"`
	Beyond string  `validate:"oneof=medium high critical"`
}

// TriggerConfig selects the transport that carries evaluation triggers
type TriggerConfig struct {
	Transport string `validate:"oneof=none kafka sqs"`
	Kafka     KafkaConfig
	SQS       SQSConfig
}

// KafkaConfig holds Kafka producer and consumer configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// SQSConfig holds SQS queue configuration
type SQSConfig struct {
	QueueURL        string
	Region          string
	Endpoint        string
	WaitTimeSeconds int32 `validate:"gte=0,lte=20"`
}

// SecurityConfig holds encryption settings
type SecurityConfig struct {
	// EncryptionKey is a base64 encoded 32-byte AES key. Empty disables encryption at rest.
	EncryptionKey string
}

// Load reads configuration from environment variables and an optional config file
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("medwatch")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("MEDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.corsorigins", []string{"*"})

	// Database defaults
	v.SetDefault("database.maxconns", 25)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Storage defaults
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.azure.reportcontainer", "health-reports")

	// Engine defaults
	v.SetDefault("engine.timezone", "UTC")
	v.SetDefault("engine.maxwindowspan", 366*24*time.Hour)
	v.SetDefault("engine.missedgrace", 2*time.Hour)
	v.SetDefault("engine.adherencelookback", 7*24*time.Hour)
	v.SetDefault("engine.vitalslookback", 7*24*time.Hour)
	v.SetDefault("engine.activitylookback", 30*24*time.Hour)
	v.SetDefault("engine.lowstockthreshold", engine.DefaultLowStockThreshold)
	v.SetDefault("engine.adherencehighbelow", 70.0)
	v.SetDefault("engine.adherencemediumbelow", 85.0)
	v.SetDefault("engine.rules.adherence", true)
	v.SetDefault("engine.rules.lowstock", true)
	v.SetDefault("engine.rules.vital", true)
	v.SetDefault("engine.vitals.systolic.min", 90.0)
	v.SetDefault("engine.vitals.systolic.max", 140.0)
	v.SetDefault("engine.vitals.diastolic.min", 60.0)
	v.SetDefault("engine.vitals.diastolic.max", 90.0)
	v.SetDefault("engine.vitals.bloodsugar.min", 70.0)
	v.SetDefault("engine.vitals.bloodsugar.max", 140.0)
	v.SetDefault("engine.vitals.heartrate.min", 60.0)
	v.SetDefault("engine.vitals.heartrate.max", 100.0)
	v.SetDefault("engine.escalation.medium", 0.10)
	v.SetDefault("engine.escalation.high", 0.20)
	v.SetDefault("engine.escalation.beyond", "high")
	v.SetDefault("engine.scheduleinterval", 24*time.Hour)
	v.SetDefault("engine.workers", 4)

	// Trigger defaults
	v.SetDefault("trigger.transport", "none")
	v.SetDefault("trigger.kafka.topic", "medwatch.evaluations")
	v.SetDefault("trigger.kafka.groupid", "medwatch-alert-engine")
	v.SetDefault("trigger.sqs.waittimeseconds", 20)

	v.SetDefault("security.encryptionkey", "")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")

	// Storage
	v.BindEnv("storage.provider", "STORAGE_PROVIDER")
	v.BindEnv("storage.azure.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("storage.azure.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.region", "AWS_REGION")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")

	// Triggers
	v.BindEnv("trigger.transport", "TRIGGER_TRANSPORT")
	v.BindEnv("trigger.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("trigger.sqs.queueurl", "SQS_QUEUE_URL")
	v.BindEnv("trigger.sqs.region", "AWS_REGION")
	v.BindEnv("trigger.sqs.endpoint", "SQS_ENDPOINT")

	// Security
	v.BindEnv("security.encryptionkey", "ENCRYPTION_KEY")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("engine.timezone: %w", err)
	}

	switch c.Storage.Provider {
	case "azure":
		if c.Storage.Azure.AccountName == "" || c.Storage.Azure.AccountKey == "" {
			return fmt.Errorf("azure storage credentials are required (account name + key)")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required")
		}
	}

	switch c.Trigger.Transport {
	case "kafka":
		if len(c.Trigger.Kafka.Brokers) == 0 || c.Trigger.Kafka.Topic == "" {
			return fmt.Errorf("trigger.kafka.brokers and trigger.kafka.topic are required")
		}
	case "sqs":
		if c.Trigger.SQS.QueueURL == "" {
			return fmt.Errorf("trigger.sqs.queueurl is required")
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Location returns the reporting time zone
func (e EngineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AdherenceOptions builds the calculator options
func (e EngineConfig) AdherenceOptions() engine.AdherenceOptions {
	return engine.AdherenceOptions{
		Location:    e.Location(),
		MissedGrace: e.MissedGrace,
	}
}

// StockPolicy builds the stock monitor policy
func (e EngineConfig) StockPolicy() engine.StockPolicy {
	return engine.StockPolicy{DefaultThreshold: e.LowStockThreshold}
}

// VitalConfig builds the vital evaluator configuration
func (e EngineConfig) VitalConfig() engine.VitalConfig {
	return engine.VitalConfig{
		Ranges: map[engine.VitalField]engine.Range{
			engine.FieldSystolic:   e.Vitals.Systolic.toRange(),
			engine.FieldDiastolic:  e.Vitals.Diastolic.toRange(),
			engine.FieldBloodSugar: e.Vitals.BloodSugar.toRange(),
			engine.FieldHeartRate:  e.Vitals.HeartRate.toRange(),
		},
		Escalation: engine.EscalationPolicy{
			Medium: e.Escalation.Medium,
			High:   e.Escalation.High,
			Beyond: model.Severity(e.Escalation.Beyond),
		},
	}
}

// AlertPolicy builds the alert generator policy
func (e EngineConfig) AlertPolicy() engine.AlertPolicy {
	return engine.AlertPolicy{
		Rules: engine.RuleToggles{
			Adherence: e.Rules.Adherence,
			LowStock:  e.Rules.LowStock,
			Vital:     e.Rules.Vital,
		},
		AdherenceHighBelow:   e.AdherenceHighBelow,
		AdherenceMediumBelow: e.AdherenceMediumBelow,
		Stock:                e.StockPolicy(),
	}
}

func (r RangeConfig) toRange() engine.Range {
	return engine.Range{Min: r.Min, Max: r.Max}
}

// Options converts the storage section for storage.New
func (s StorageConfig) Options() storage.Options {
	return storage.Options{
		Provider:         storage.Provider(s.Provider),
		AzureAccountName: s.Azure.AccountName,
		AzureAccountKey:  s.Azure.AccountKey,
		AzureContainer:   s.Azure.ReportContainer,
		S3Bucket:         s.S3.Bucket,
		S3Region:         s.S3.Region,
		S3Endpoint:       s.S3.Endpoint,
	}
}
