package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

const maxBatchSize = 1000

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Key/value substrate for the VIN cache and history.
	StorageBackend    string
	StoragePath       string
	DatabaseURL       string
	StorageQuotaBytes int

	// vPIC decoding and the lookup stack.
	VINAPIURL      string
	VINAPITimeout  time.Duration
	VINCacheTTL    time.Duration
	VINCacheSize   int
	VINHistorySize int

	// Batch decode worker. Disabled when KafkaBrokers is empty.
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// KafkaEnabled reports whether the batch worker and event publishing are configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	apiTimeout, err := parseDuration("VIN_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("VIN_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("VIN_CACHE_SIZE", 50)
	if err != nil {
		return nil, err
	}
	historySize, err := parsePositiveInt("VIN_HISTORY_SIZE", 10)
	if err != nil {
		return nil, err
	}
	batchSize, err := parsePositiveInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	if batchSize > maxBatchSize {
		return nil, fmt.Errorf("invalid BATCH_SIZE: must be at most %d", maxBatchSize)
	}
	quota, err := parsePositiveInt("STORAGE_QUOTA_BYTES", 5*1024*1024)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StorageBackend:    strings.ToLower(EnvOrDefault("STORAGE_BACKEND", BackendSQLite)),
		StoragePath:       EnvOrDefault("STORAGE_PATH", "webtools.db"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		StorageQuotaBytes: quota,

		VINAPIURL:      strings.TrimRight(EnvOrDefault("VIN_API_URL", "https://vpic.nhtsa.dot.gov/api/vehicles"), "/"),
		VINAPITimeout:  apiTimeout,
		VINCacheTTL:    cacheTTL,
		VINCacheSize:   cacheSize,
		VINHistorySize: historySize,

		KafkaBrokers:       ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSourceTopic:   EnvOrDefault("KAFKA_SOURCE_TOPIC", "vin-decode-requests"),
		KafkaSinkTopic:     EnvOrDefault("KAFKA_SINK_TOPIC", "vin-lookups"),
		KafkaGroupID:       EnvOrDefault("KAFKA_GROUP_ID", "webtools"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("STORAGE_BACKEND is postgres but DATABASE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == BackendSQLite && cfg.StoragePath == "" {
		return nil, errors.New("STORAGE_PATH is required for the sqlite backend")
	}
	if cfg.KafkaEnabled() {
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

// EnvOrDefault returns the environment variable value or def when unset or empty.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
