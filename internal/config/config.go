package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64
	// TimeZone names the pizzeria's local zone. Default dates and days to expiry count in it.
	TimeZone string

	Log  LogConfig
	Otel OtelConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBSQLitePath      string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Store     StoreConfig
	Archive   ArchiveConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Metrics   MetricsPushConfig
}

// LogConfig selects the zap encoder and level. Sampling keeps the first SamplingInitial
// entries per message each second, then every SamplingThereafter-th.
type LogConfig struct {
	Level              string
	Format             string
	SamplingInitial    int
	SamplingThereafter int
}

// OtelConfig points the trace and metric exporters at an OTLP collector.
type OtelConfig struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

// StoreConfig tunes the ledger document store and its change fan-out.
type StoreConfig struct {
	WriteTimeout  time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
}

// RateLimitConfig throttles mutating requests per client and serializes bulk operations
// across replicas. Both need Redis.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MutationRate  float64
	MutationBurst int
	BulkLockTTL   time.Duration
}

// SchedulerConfig drives the background ledger jobs. A zero interval disables that job.
type SchedulerConfig struct {
	Enabled           bool
	TickInterval      time.Duration
	IntegrityInterval time.Duration
	ArchiveInterval   time.Duration
	MetricsInterval   time.Duration
	JobTimeout        time.Duration
}

// MetricsPushConfig ships ledger gauges to a Prometheus remote_write endpoint or a
// Pushgateway. An empty exporter disables pushing.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

// ArchiveConfig selects where exported ledger documents are kept.
type ArchiveConfig struct {
	Driver      string
	Dir         string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	Prefix      string
}

const (
	ArchiveDriverFS   = "fs"
	ArchiveDriverS3   = "s3"
	ArchiveDriverNone = "none"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "pizzaledger"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		TimeZone:          strings.TrimSpace(getenv("LEDGER_TZ", "UTC")),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "sqlite")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pizzaledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:      getenv("DATABASE_SQLITE_PATH", "pizzaledger.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Store: StoreConfig{
			WriteTimeout:  time.Duration(getenvInt("STORE_WRITE_TIMEOUT_SECONDS", 10)) * time.Second,
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),
			RedisChannel:  getenv("STORE_CHANGE_CHANNEL", "pizzaledger:changes"),
		},
		Archive: ArchiveConfig{
			Driver:      normalizeArchiveDriver(getenv("ARCHIVE_DRIVER", ArchiveDriverFS)),
			Dir:         getenv("ARCHIVE_DIR", "exports"),
			S3Bucket:    strings.TrimSpace(getenv("ARCHIVE_S3_BUCKET", "")),
			S3Region:    strings.TrimSpace(getenv("ARCHIVE_S3_REGION", "us-east-1")),
			S3Endpoint:  strings.TrimSpace(getenv("ARCHIVE_S3_ENDPOINT", "")),
			S3PathStyle: getenvBool("ARCHIVE_S3_PATH_STYLE", false),
			Prefix:      strings.Trim(getenv("ARCHIVE_PREFIX", "exports"), "/"),
		},
	}
	cfg.Environment = getenv("DEPLOYMENT_ENV", cfg.Environment)
	cfg.AppVersion = getenv("SERVICE_VERSION", cfg.AppVersion)
	cfg.Log = LogConfig{
		Level:              strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		Format:             strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		SamplingInitial:    getenvInt("LOG_SAMPLING_INITIAL", 100),
		SamplingThereafter: getenvInt("LOG_SAMPLING_THEREAFTER", 100),
	}
	otlpProtocol := getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	if tracesProtocol := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); tracesProtocol != "" {
		otlpProtocol = tracesProtocol
	}
	cfg.Otel = OtelConfig{
		Enabled:       getenvBool("OTEL_ENABLED", false),
		Endpoint:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
		Protocol:      strings.ToLower(strings.TrimSpace(otlpProtocol)),
		SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 1),
	}
	cfg.Scheduler = SchedulerConfig{
		Enabled:           getenvBool("SCHEDULER_ENABLED", true),
		TickInterval:      time.Duration(getenvInt("SCHEDULER_TICK_SECONDS", 60)) * time.Second,
		IntegrityInterval: time.Duration(getenvInt("SCHEDULER_INTEGRITY_INTERVAL_SECONDS", 3600)) * time.Second,
		ArchiveInterval:   time.Duration(getenvInt("SCHEDULER_ARCHIVE_INTERVAL_SECONDS", 0)) * time.Second,
		MetricsInterval:   time.Duration(getenvInt("SCHEDULER_METRICS_INTERVAL_SECONDS", 300)) * time.Second,
		JobTimeout:        time.Duration(getenvInt("SCHEDULER_JOB_TIMEOUT_SECONDS", 120)) * time.Second,
	}
	cfg.Metrics = MetricsPushConfig{
		Exporter:  strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
		Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
		AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
	}
	cfg.RateLimit = RateLimitConfig{
		Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
		RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", cfg.Store.RedisAddr)),
		RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", cfg.Store.RedisPassword)),
		RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", cfg.Store.RedisDB),
		MutationRate:  getenvFloat("RATE_LIMIT_MUTATION_RATE", 10),
		MutationBurst: getenvInt("RATE_LIMIT_MUTATION_BURST", 20),
		BulkLockTTL:   time.Duration(getenvInt("RATE_LIMIT_BULK_LOCK_TTL_SECONDS", 60)) * time.Second,
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// LoadLocation resolves TimeZone. An empty zone means UTC.
func LoadLocation(cfg Config) (*time.Location, error) {
	name := strings.TrimSpace(cfg.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_TZ %q: %w", name, err)
	}
	return loc, nil
}

func normalizeArchiveDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ArchiveDriverS3:
		return ArchiveDriverS3
	case ArchiveDriverNone, "off", "disabled":
		return ArchiveDriverNone
	default:
		return ArchiveDriverFS
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
