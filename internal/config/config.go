package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/utafrali/reviewregistry/internal/registry"
	pkgconfig "github.com/utafrali/reviewregistry/pkg/config"
	"github.com/utafrali/reviewregistry/pkg/database"
	"github.com/utafrali/reviewregistry/pkg/httpclient"
	"github.com/utafrali/reviewregistry/pkg/tracing"
)

// ServiceName is reported in logs, metrics and traces.
const ServiceName = "review-registry"

// Adapter names.
const (
	AdapterMemory   = "memory"
	AdapterRedis    = "redis"
	AdapterRemote   = "remote"
	AdapterPostgres = "postgres"
	AdapterKafka    = "kafka"
)

// Config holds all configuration for the review registry.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"REGISTRY_HTTP_PORT" envDefault:"8010"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Registry
	BootstrapPrincipal    string        `env:"REGISTRY_BOOTSTRAP_PRINCIPAL"`
	MaxReviewsPerBusiness uint64        `env:"REGISTRY_MAX_REVIEWS_PER_BUSINESS" envDefault:"10000"`
	ReviewFee             uint64        `env:"REGISTRY_REVIEW_FEE" envDefault:"10"`
	FeeAuthorityOnly      bool          `env:"REGISTRY_FEE_AUTHORITY_ONLY" envDefault:"false"`
	OracleTimeout         time.Duration `env:"REGISTRY_ORACLE_TIMEOUT" envDefault:"2s"`
	// SeedBusinesses registers business ids in the memory directory.
	SeedBusinesses []uint64 `env:"REGISTRY_SEED_BUSINESSES" envSeparator:","`

	// Adapters
	TokenOracle    string `env:"TOKEN_ORACLE" envDefault:"memory"`
	BusinessOracle string `env:"BUSINESS_ORACLE" envDefault:"memory"`
	FeeLedger      string `env:"FEE_LEDGER" envDefault:"memory"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"registry"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD"`
	PostgresDB       string        `env:"BUSINESS_DB_NAME" envDefault:"businesses"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresMinConns int32         `env:"POSTGRES_MIN_CONNS" envDefault:"1"`
	RunMigrations    bool          `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"false"`
	SlowQuery        time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"review-registry"`
	TokenProjection    bool          `env:"TOKEN_PROJECTION_ENABLED" envDefault:"false"`
	ReviewEvents       bool          `env:"REVIEW_EVENTS_ENABLED" envDefault:"false"`
	IdempotencyTTL     time.Duration `env:"KAFKA_IDEMPOTENCY_TTL" envDefault:"24h"`
	FeeQueueSize       int           `env:"FEE_LEDGER_QUEUE_SIZE" envDefault:"1024"`

	// Remote token oracle
	PurchaseServiceURL     string        `env:"PURCHASE_SERVICE_URL" envDefault:"http://localhost:8005"`
	PurchaseServiceTimeout time.Duration `env:"PURCHASE_SERVICE_TIMEOUT" envDefault:"3s"`
	PurchaseServiceRetries int           `env:"PURCHASE_SERVICE_RETRIES" envDefault:"2"`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	ServiceVersion string  `env:"SERVICE_VERSION" envDefault:"dev"`

	// Caller authentication; empty means X-Principal is trusted.
	JWTSecret string `env:"JWT_SECRET"`

	// Write rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Comma-separated CIDRs allowed to reach /debug/pprof. Empty disables it.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from .env (when present) and the environment.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load registry config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if strings.TrimSpace(c.BootstrapPrincipal) == "" {
		errs = append(errs, errors.New("REGISTRY_BOOTSTRAP_PRINCIPAL is required"))
	}
	if !oneOf(c.TokenOracle, AdapterMemory, AdapterRedis, AdapterRemote) {
		errs = append(errs, fmt.Errorf("invalid TOKEN_ORACLE %q", c.TokenOracle))
	}
	if !oneOf(c.BusinessOracle, AdapterMemory, AdapterPostgres) {
		errs = append(errs, fmt.Errorf("invalid BUSINESS_ORACLE %q", c.BusinessOracle))
	}
	if !oneOf(c.FeeLedger, AdapterMemory, AdapterKafka) {
		errs = append(errs, fmt.Errorf("invalid FEE_LEDGER %q", c.FeeLedger))
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTelSampleRate))
	}
	if c.OracleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid REGISTRY_ORACLE_TIMEOUT: %v", c.OracleTimeout))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst))
	}
	if c.BusinessOracle == AdapterPostgres && (c.PostgresPort < 1 || c.PostgresPort > 65535) {
		errs = append(errs, fmt.Errorf("invalid Postgres port: %d", c.PostgresPort))
	}
	if c.TokenOracle == AdapterRedis && (c.RedisPort < 1 || c.RedisPort > 65535) {
		errs = append(errs, fmt.Errorf("invalid Redis port: %d", c.RedisPort))
	}
	if c.UsesKafka() && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when Kafka is used"))
	}
	if c.TokenProjection && c.TokenOracle == AdapterRemote {
		errs = append(errs, errors.New("token projection needs TOKEN_ORACLE=memory or redis"))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// UsesKafka reports whether any component talks to Kafka.
func (c *Config) UsesKafka() bool {
	return c.FeeLedger == AdapterKafka || c.TokenProjection || c.ReviewEvents
}

// RegistryOptions returns the registry options derived from c.
func (c *Config) RegistryOptions() []registry.Option {
	return []registry.Option{
		registry.WithMaxReviewsPerBusiness(c.MaxReviewsPerBusiness),
		registry.WithReviewFee(c.ReviewFee),
		registry.WithFeeAuthorityOnly(c.FeeAuthorityOnly),
		registry.WithOracleTimeout(c.OracleTimeout),
	}
}

// Postgres returns the pool configuration for the business directory.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.PostgresMaxConns
	pg.MinConns = c.PostgresMinConns
	return pg
}

// Redis returns the Redis connection configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// PurchaseClient returns the HTTP client configuration for the purchase service.
func (c *Config) PurchaseClient() httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = c.PurchaseServiceTimeout
	hc.MaxRetries = c.PurchaseServiceRetries
	return hc
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTelEndpoint,
		SampleRate:     c.OTelSampleRate,
		Enabled:        c.OTelEnabled,
	}
}
