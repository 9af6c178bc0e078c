package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the server.
type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration
	AdminToken     string
	Log            LogConfig
	Store          StoreConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	Metrics        MetricsConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type StoreConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	Migrate      bool
	Seed         bool
}

// RedisConfig is optional; an empty Addr disables commit idempotency.
type RedisConfig struct {
	Addr           string
	IdempotencyTTL time.Duration
}

// KafkaConfig is optional; no brokers disables event publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MetricsConfig controls telemetry export settings.
type MetricsConfig struct {
	Enabled      bool
	OtlpEndpoint string
	ServiceName  string
	OtlpInsecure bool
}

// LoadDotEnv reads KEY=value pairs from the given files into the environment.
// Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		HTTPAddr:       envOrDefault(envHTTPAddr, defaultHTTPAddr),
		GRPCAddr:       envOrDefault(envGRPCAddr, defaultGRPCAddr),
		RequestTimeout: durationEnvOrDefault(envRequestTimeout, defaultRequestTimeout),
		AdminToken:     envOrDefault(envAdminToken, ""),
		Log: LogConfig{
			Level:  envOrDefault(envLogLevel, defaultLogLevel),
			Format: envOrDefault(envLogFormat, defaultLogFormat),
		},
		Store: StoreConfig{
			Driver:       envOrDefault(envStoreDriver, defaultStoreDriver),
			DSN:          envOrDefault(envStoreDSN, defaultStoreDSN),
			MaxOpenConns: intEnvOrDefault(envStoreMaxOpen, defaultStoreMaxOpen),
			MaxIdleConns: intEnvOrDefault(envStoreMaxIdle, defaultStoreMaxIdle),
			Migrate:      boolEnvOrDefault(envStoreMigrate, true),
			Seed:         boolEnvOrDefault(envStoreSeed, false),
		},
		Redis: RedisConfig{
			Addr:           envOrDefault(envRedisAddr, ""),
			IdempotencyTTL: durationEnvOrDefault(envIdempotentTTL, defaultIdempotentTTL),
		},
		Kafka: KafkaConfig{
			Brokers: listEnv(envKafkaBrokers),
			Topic:   envOrDefault(envKafkaTopic, defaultKafkaTopic),
		},
		Metrics: MetricsConfig{
			Enabled:      boolEnvOrDefault(envMetricsOn, true),
			OtlpEndpoint: envOrDefault(envOtelEndpoint, ""),
			ServiceName:  envOrDefault(envOtelService, defaultServiceName),
			OtlpInsecure: boolEnvOrDefault(envOtelInsecure, true),
		},
	}
}
