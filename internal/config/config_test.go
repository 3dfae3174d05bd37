package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_ADDR", "HTTP_READ_TIMEOUT_SEC", "HTTP_WRITE_TIMEOUT_SEC", "HTTP_SHUTDOWN_TIMEOUT_SEC",
		"DATABASE_URL",
		"AUTH_BOOTSTRAP_EMAIL", "AUTH_BOOTSTRAP_PASSWORD", "AUTH_BOOTSTRAP_NAME",
		"AUTH_BCRYPT_COST", "AUTH_SESSION_TTL_SEC", "AUTH_USER_STATE_FILE",
		"FRONTEND_DIST_DIR", "POST_STATE_FILE", "MIGRATIONS_DIR", "MIGRATION_STATE_FILE", "AUDIT_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ReadTimeout != 10*time.Second || cfg.HTTP.WriteTimeout != 15*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg.HTTP)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("expected empty database URL, got %q", cfg.DatabaseURL)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Fatalf("expected default bcrypt cost 10, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Fatalf("expected default session TTL 24h, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.MigrationsDir != "./migrations" {
		t.Fatalf("unexpected migrations dir: %q", cfg.MigrationsDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/blog")
	t.Setenv("AUTH_BCRYPT_COST", "12")
	t.Setenv("AUTH_SESSION_TTL_SEC", "3600")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("expected :9999, got %q", cfg.HTTP.Addr)
	}
	if cfg.DatabaseURL != "postgres://localhost/blog" {
		t.Fatalf("unexpected database URL: %q", cfg.DatabaseURL)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Fatalf("expected cost 12, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.SessionTTL != time.Hour {
		t.Fatalf("expected TTL 1h, got %s", cfg.Auth.SessionTTL)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_SESSION_TTL_SEC", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Fatalf("expected fallback TTL, got %s", cfg.Auth.SessionTTL)
	}
}

func TestLoadRejectsBadBcryptCost(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range bcrypt cost")
	}
}
