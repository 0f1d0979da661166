package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"remoteassist/pkg/logger"

	"github.com/joho/godotenv"
)

var (
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:@/]+:[^@]+@`)
)

type Config struct {
	DatabaseURL      string
	DatabaseName     string
	MongoConnTimeout time.Duration

	Port               string
	CORSAllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	IdempotencyTTL    time.Duration
	MaxRequestSize    int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Kafka *KafkaConfig

	Log *logger.Logger
}

// Load reads the service configuration from the environment, with a .env
// file in the working directory filling in anything unset. Invalid server
// settings are fatal; store settings are only checked by StoreProblem.
func Load(serviceName string) *Config {
	dotenvErr := godotenv.Load()

	cfg := &Config{
		DatabaseURL:        envString(EnvDatabaseURL, ""),
		DatabaseName:       envString(EnvDatabaseName, ""),
		MongoConnTimeout:   envDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		Port:               envString(EnvPort, DefaultPort),
		CORSAllowedOrigins: envList(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins),
		RateLimitRequests:  envInt(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:    envDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		RequestTimeout:     envDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL:     envDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize:     envInt(EnvMaxRequestSize, DefaultMaxRequestSize),
		ReadTimeout:        envDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:       envDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:        envDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout:    envDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
		RedisAddr:          envString(EnvRedisAddr, ""),
		RedisPassword:      envString(EnvRedisPassword, ""),
		RedisDB:            envInt(EnvRedisDB, DefaultRedisDB),
		Kafka:              loadKafkaConfig(),
		Log: logger.New(logger.Config{
			Level:     envString(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
	}

	if dotenvErr != nil {
		cfg.Log.Debug("No .env file found; using process environment")
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()
	return cfg
}

// StoreConfigured reports whether both store settings are present.
func (cfg *Config) StoreConfigured() bool {
	return cfg.DatabaseURL != "" && cfg.DatabaseName != ""
}

// StoreProblem explains why the booking store cannot be used with this
// configuration. It is not part of Validate: a missing or malformed store
// setting leaves the API running with storage errors.
func (cfg *Config) StoreProblem() error {
	var problems []error
	switch {
	case cfg.DatabaseURL == "":
		problems = append(problems, errors.New("DatabaseURL is not set"))
	case !mongoURIRegex.MatchString(cfg.DatabaseURL):
		problems = append(problems, fmt.Errorf("DatabaseURL must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.DatabaseURL)))
	}
	if cfg.DatabaseName == "" {
		problems = append(problems, errors.New("DatabaseName is not set"))
	}

	if len(problems) > 0 {
		return fmt.Errorf("booking store misconfigured: %w", errors.Join(problems...))
	}
	return nil
}

func (cfg *Config) RedisConfigured() bool {
	return cfg.RedisAddr != ""
}

func (cfg *Config) Addr() string {
	return ":" + cfg.Port
}

// Validate reports every invalid server setting at once.
func (cfg *Config) Validate() error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		fail("Port must be between 1 and 65535, got: %s", cfg.Port)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			fail("%s must be positive, got: %s", d.name, d.value)
		}
	}

	if cfg.RateLimitRequests <= 0 {
		fail("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests)
	}
	if cfg.MaxRequestSize <= 0 {
		fail("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		fail("CORSAllowedOrigins cannot be empty")
	}
	if cfg.RedisDB < 0 {
		fail("RedisDB cannot be negative, got: %d", cfg.RedisDB)
	}
	if cfg.Kafka.Enabled() {
		for _, p := range cfg.Kafka.problems() {
			fail("%s", p)
		}
	}

	return errors.Join(problems...)
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded",
		slog.Group("mongo",
			"url", redactMongoURI(cfg.DatabaseURL),
			"database", cfg.DatabaseName,
			"conn_timeout", cfg.MongoConnTimeout,
		),
		slog.Group("http",
			"port", cfg.Port,
			"cors_allowed_origins", cfg.CORSAllowedOrigins,
			"rate_limit", fmt.Sprintf("%d/%s", cfg.RateLimitRequests, cfg.RateLimitWindow),
			"request_timeout", cfg.RequestTimeout,
			"max_request_size", cfg.MaxRequestSize,
			"read_timeout", cfg.ReadTimeout,
			"write_timeout", cfg.WriteTimeout,
			"idle_timeout", cfg.IdleTimeout,
			"shutdown_timeout", cfg.ShutdownTimeout,
		),
		slog.Group("idempotency",
			"ttl", cfg.IdempotencyTTL,
			"redis_addr", cfg.RedisAddr,
		),
	)

	if err := cfg.StoreProblem(); err != nil {
		cfg.Log.Warn("Booking store unusable; booking operations will fail until it is fixed", "error", err)
	}
	if cfg.Kafka.Enabled() {
		cfg.Log.Info("Booking events will be published to Kafka",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
			"dlq_topic", cfg.Kafka.DLQTopic,
			"required_acks", cfg.Kafka.RequiredAcks,
			"compression", cfg.Kafka.Compression,
			"async", cfg.Kafka.Async,
		)
	} else {
		cfg.Log.Info("Kafka brokers not set; booking events disabled")
	}
}

func redactMongoURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}
