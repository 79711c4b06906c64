package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MySQLSource addresses one billing platform database server.
type MySQLSource struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Enabled reports whether the platform is configured at all.
func (s MySQLSource) Enabled() bool {
	return s.Host != ""
}

// Config holds all configuration for the application.
type Config struct {
	Port         string
	DatabaseURL  string
	RedisURL     string
	WarehouseURL string
	NumWorkers   int

	SAM MySQLSource
	MCB MySQLSource

	BroadcastConfigURL string
	ReportsDir         string
	ReportSchedule     string
	CacheTTL           time.Duration
	SourceRateLimit    int

	NotifyWebhookURL    string
	NotifyWebhookSecret string
	KafkaBrokers        []string
	KafkaTopic          string
}

// Load reads the server configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := LoadCLI()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadCLI reads the same variables as Load but leaves DATABASE_URL optional,
// since one-shot runs only persist reports on request.
func LoadCLI() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		WarehouseURL: getEnv("WAREHOUSE_URL", ""),
		NumWorkers:   getEnvInt("NUM_WORKERS", 4),

		SAM: loadMySQL("SAM"),
		MCB: loadMySQL("MCB"),

		BroadcastConfigURL: getEnv("BROADCAST_CONFIG_URL", "broadcast_config.csv"),
		ReportsDir:         getEnv("REPORTS_DIR", "reports"),
		ReportSchedule:     getEnv("REPORT_SCHEDULE", "0 6 * * 1"),
		CacheTTL:           getEnvDuration("CACHE_TTL", 6*time.Hour),
		SourceRateLimit:    getEnvInt("SOURCE_RATE_LIMIT", 10),

		NotifyWebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookSecret: getEnv("NOTIFY_WEBHOOK_SECRET", ""),
		KafkaBrokers:        getEnvList("KAFKA_BROKERS"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "broadcast-reports"),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("NUM_WORKERS must be positive, got %d", cfg.NumWorkers)
	}

	return cfg, nil
}

func loadMySQL(prefix string) MySQLSource {
	return MySQLSource{
		Host:     getEnv(prefix+"_HOST", ""),
		Port:     getEnvInt(prefix+"_PORT", 3306),
		User:     getEnv(prefix+"_USER", ""),
		Password: getEnv(prefix+"_PASS", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
