package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reports")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.ReportSchedule != "0 6 * * 1" {
		t.Errorf("unexpected schedule: %s", cfg.ReportSchedule)
	}
	if cfg.CacheTTL != 6*time.Hour {
		t.Errorf("unexpected cache ttl: %v", cfg.CacheTTL)
	}
	if cfg.SAM.Enabled() {
		t.Error("expected SAM to be disabled without a host")
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("expected no brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reports")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("SAM_HOST", "sam.internal")
	t.Setenv("SAM_PORT", "3307")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("NUM_WORKERS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.SAM.Enabled() || cfg.SAM.Port != 3307 {
		t.Errorf("unexpected SAM source: %+v", cfg.SAM)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("unexpected cache ttl: %v", cfg.CacheTTL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.NumWorkers != 4 {
		t.Errorf("expected fallback worker count, got %d", cfg.NumWorkers)
	}
}

func TestLoad_RequiresStores(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	if _, err := Load(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestLoadCLI_DatabaseOptional(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := LoadCLI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("expected no database, got %q", cfg.DatabaseURL)
	}

	t.Setenv("REDIS_URL", "")
	if _, err := LoadCLI(); err == nil {
		t.Error("expected error without REDIS_URL")
	}
}
