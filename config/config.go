package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"socialbets/database"

	"github.com/spf13/viper"
)

// Zero-vote policies applied when a bet reaches its resolve date without any votes
const (
	ZeroVotePolicyCancel = "cancel"
	ZeroVotePolicyHold   = "hold"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Kafka configuration for the credit ledger
	KafkaBrokers []string
	LedgerTopic  string

	// Redis configuration for the resolver roster cache
	RedisAddr             string
	RosterCacheTTLSeconds int

	// Sweeper configuration
	CloseSweepIntervalSeconds     int
	ResolveSweepIntervalSeconds   int
	ReconcileSweepIntervalSeconds int
	ReconcileBatchSize            int

	// Resolution configuration
	ZeroVotePolicy string // "cancel" or "hold"

	// Notification dispatch
	NotificationWorkers int

	// Operator endpoints
	OpsHTTPAddr string
	OpsGRPCAddr string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging configuration
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// newViper builds a viper instance bound to the environment with all defaults registered
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("NATS_SERVERS", "nats://nats:4222")
	v.SetDefault("KAFKA_BROKERS", "kafka:9092")
	v.SetDefault("LEDGER_TOPIC", "credit-ledger.transfers")
	v.SetDefault("REDIS_ADDR", "redis:6379")
	v.SetDefault("ROSTER_CACHE_TTL_SECONDS", 300)
	v.SetDefault("CLOSE_SWEEP_INTERVAL_SECONDS", 30)
	v.SetDefault("RESOLVE_SWEEP_INTERVAL_SECONDS", 60)
	v.SetDefault("RECONCILE_SWEEP_INTERVAL_SECONDS", 300)
	v.SetDefault("RECONCILE_BATCH_SIZE", 50)
	v.SetDefault("ZERO_VOTE_POLICY", ZeroVotePolicyCancel)
	v.SetDefault("NOTIFICATION_WORKERS", 16)
	v.SetDefault("OPS_HTTP_ADDR", ":8081")
	v.SetDefault("OPS_GRPC_ADDR", ":9091")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "socialbets")
	v.SetDefault("OTEL_EXPORTER_TYPE", "none")
	v.SetDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317")
	v.SetDefault("OTEL_EXPORT_INTERVAL_MILLIS", 15000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 14)
	v.SetDefault("ENVIRONMENT", "development")

	return v
}

// load loads configuration from environment variables and an optional config file
func load() (*Config, error) {
	v := newViper()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	config := &Config{
		DatabaseURL:  v.GetString("DATABASE_URL"),
		DatabaseName: v.GetString("DATABASE_NAME"),

		NATSServers: v.GetString("NATS_SERVERS"),

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		LedgerTopic:  v.GetString("LEDGER_TOPIC"),

		RedisAddr:             v.GetString("REDIS_ADDR"),
		RosterCacheTTLSeconds: v.GetInt("ROSTER_CACHE_TTL_SECONDS"),

		CloseSweepIntervalSeconds:     v.GetInt("CLOSE_SWEEP_INTERVAL_SECONDS"),
		ResolveSweepIntervalSeconds:   v.GetInt("RESOLVE_SWEEP_INTERVAL_SECONDS"),
		ReconcileSweepIntervalSeconds: v.GetInt("RECONCILE_SWEEP_INTERVAL_SECONDS"),
		ReconcileBatchSize:            v.GetInt("RECONCILE_BATCH_SIZE"),

		ZeroVotePolicy: strings.ToLower(v.GetString("ZERO_VOTE_POLICY")),

		NotificationWorkers: v.GetInt("NOTIFICATION_WORKERS"),

		OpsHTTPAddr: v.GetString("OPS_HTTP_ADDR"),
		OpsGRPCAddr: v.GetString("OPS_GRPC_ADDR"),

		OTelEnabled:              v.GetBool("OTEL_ENABLED"),
		OTelServiceName:          v.GetString("OTEL_SERVICE_NAME"),
		OTelExporterType:         v.GetString("OTEL_EXPORTER_TYPE"),
		OTelOTLPEndpoint:         v.GetString("OTEL_OTLP_ENDPOINT"),
		OTelExportIntervalMillis: v.GetInt("OTEL_EXPORT_INTERVAL_MILLIS"),

		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFile:       v.GetString("LOG_FILE"),
		LogMaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		LogMaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		LogMaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),

		Environment: v.GetString("ENVIRONMENT"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks required settings and enumerated values
func (c *Config) validate() error {
	if c.ZeroVotePolicy != ZeroVotePolicyCancel && c.ZeroVotePolicy != ZeroVotePolicyHold {
		return fmt.Errorf("ZERO_VOTE_POLICY must be %q or %q, got %q", ZeroVotePolicyCancel, ZeroVotePolicyHold, c.ZeroVotePolicy)
	}

	if c.Environment != "test" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if c.ReconcileBatchSize <= 0 {
			return fmt.Errorf("RECONCILE_BATCH_SIZE must be positive")
		}
	}

	return nil
}

// splitList splits a comma-separated value, dropping empty entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		ZeroVotePolicy:        ZeroVotePolicyCancel,
		RosterCacheTTLSeconds: 60,
		ReconcileBatchSize:    10,
		NotificationWorkers:   2,
		OTelExporterType:      "none",
		LogLevel:              "debug",
	}
}
