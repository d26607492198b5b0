package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://tasks.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_PORT", "")
	t.Setenv("JWT_TTL_HOURS", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("AUTO_MIGRATE", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.AppPort != "5000" {
		t.Fatalf("AppPort = %q, want 5000", cfg.AppPort)
	}
	if cfg.JWTTTL != 7*24*time.Hour {
		t.Fatalf("JWTTTL = %v, want 168h", cfg.JWTTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.AutoMigrate {
		t.Fatalf("AutoMigrate should default to true")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_PORT", "8081")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("AUTH_RATE_LIMIT", "not-a-number")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.AppPort != "8081" {
		t.Fatalf("AppPort = %q", cfg.AppPort)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("JWTTTL = %v", cfg.JWTTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.AuthRateLimit != 10 {
		t.Fatalf("AuthRateLimit = %d, want default 10", cfg.AuthRateLimit)
	}
	if cfg.AutoMigrate {
		t.Fatalf("AutoMigrate should be disabled")
	}
}

func TestFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "sqlite://tasks.db")
	t.Setenv("JWT_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is missing")
	}
}
