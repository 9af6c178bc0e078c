package config

import "time"

const (
	envHTTPAddr       = "HTTP_ADDR"
	envGRPCAddr       = "GRPC_ADDR"
	envRequestTimeout = "REQUEST_TIMEOUT"
	envAdminToken     = "ADMIN_TOKEN"
	envLogLevel       = "LOG_LEVEL"
	envLogFormat      = "LOG_FORMAT"

	envStoreDriver   = "STORE_DRIVER"
	envStoreDSN      = "STORE_DSN"
	envStoreMaxOpen  = "STORE_MAX_OPEN_CONNS"
	envStoreMaxIdle  = "STORE_MAX_IDLE_CONNS"
	envStoreMigrate  = "STORE_MIGRATE"
	envStoreSeed     = "STORE_SEED"
	envRedisAddr     = "REDIS_ADDR"
	envIdempotentTTL = "IDEMPOTENCY_TTL"
	envKafkaBrokers  = "KAFKA_BROKERS"
	envKafkaTopic    = "KAFKA_TOPIC"

	envMetricsOn    = "METRICS_ENABLED"
	envOtelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService  = "OTEL_SERVICE_NAME"
	envOtelInsecure = "OTEL_EXPORTER_OTLP_INSECURE"

	defaultHTTPAddr       = ":8080"
	defaultGRPCAddr       = ":50051"
	defaultRequestTimeout = 5 * time.Second
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"

	defaultStoreDriver = "mysql"
	// clientFoundRows makes MySQL report matched rather than changed rows, so a no-op
	// update still counts as one affected row.
	defaultStoreDSN      = "root:root@tcp(localhost:3306)/gamestock?parseTime=true&clientFoundRows=true"
	defaultStoreMaxOpen  = 50
	defaultStoreMaxIdle  = 25
	defaultIdempotentTTL = 24 * time.Hour
	defaultKafkaTopic    = "purchases.committed"
	defaultServiceName   = "game-stock"
)
