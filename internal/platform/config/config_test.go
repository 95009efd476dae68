package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.ServiceName != "votingdao" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
	if cfg.StorageDriver != StorageMemory || cfg.EventBus != EventBusMemory {
		t.Fatalf("unexpected driver defaults: storage=%q bus=%q", cfg.StorageDriver, cfg.EventBus)
	}
	if cfg.OutboxBatchSize != 100 || cfg.OutboxPollInterval != 2*time.Second {
		t.Fatalf("unexpected outbox defaults: %+v", cfg)
	}
	if cfg.IdempotencyTTL != 168*time.Hour {
		t.Fatalf("expected 7 day idempotency ttl, got %s", cfg.IdempotencyTTL)
	}
	if !cfg.EnableEmbeddedRelay {
		t.Fatalf("expected embedded relay enabled by default")
	}
}

func TestLoadNormalizesDrivers(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", " SQLite ")
	t.Setenv("SQLITE_PATH", "/tmp/votes.db")
	t.Setenv("EVENT_BUS", "Redis")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != StorageSQLite || cfg.EventBus != EventBusRedis {
		t.Fatalf("expected normalized drivers, got storage=%q bus=%q", cfg.StorageDriver, cfg.EventBus)
	}
	if cfg.OutboxPollInterval != 500*time.Millisecond {
		t.Fatalf("expected 500ms poll interval, got %s", cfg.OutboxPollInterval)
	}
}

func TestLoadRequiresPostgresDSN(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Fatalf("expected POSTGRES_DSN error, got %v", err)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	if _, err := Load(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("IDEMPOTENCY_TTL", "forever")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for malformed duration")
	}
}

func TestValidateRejectsNonPositiveBatch(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.OutboxBatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected batch size validation error")
	}
}
