package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DB_DRIVER", "DB_DSN", "HTTP_ADDRESS", "GRPC_ADDRESS", "JWT_SECRET", "SESSION_TTL",
		"REDIS_ADDR", "REDIS_DB", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ORIGINS", "TRUSTED_PROXIES"} {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestLoadWithDefaults_Succeeds(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.GRPC.Address != ":50051" || cfg.HTTP.Address != ":8080" || cfg.Database.DSN != "app.db" || cfg.Auth.JWTSecret == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour || cfg.RateLimit.Burst != 10 || cfg.RateLimit.RPS != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins: %v", cfg.HTTP.CORSOrigins)
	}
	if len(cfg.HTTP.TrustedProxies) != 0 {
		t.Fatalf("no proxy should be trusted by default: %v", cfg.HTTP.TrustedProxies)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DSN", "test.db")
	t.Setenv("GRPC_ADDRESS", ":1234")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is not set")
	}
	t.Setenv("JWT_SECRET", "x")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with secret set: %v", err)
	}
	if strings.Contains(cfg.String(), "x}") || !strings.Contains(cfg.String(), "masked") {
		t.Fatalf("secret should be masked: %s", cfg)
	}
}

func TestLoad_ParsesTypedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Auth.SessionTTL != 90*time.Minute || cfg.Redis.DB != 2 || len(cfg.HTTP.CORSOrigins) != 2 {
		t.Fatalf("typed values not parsed: %+v", cfg)
	}

	t.Setenv("RATE_LIMIT_BURST", "many")
	if _, err := LoadWithDefaults(); err == nil {
		t.Fatalf("expected error for invalid integer")
	}
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("DB_DRIVER", "mysql")
	if _, err := LoadWithDefaults(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7")
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if len(cfg.HTTP.TrustedProxies) != 2 || cfg.HTTP.TrustedProxies[1] != "192.0.2.7" {
		t.Fatalf("trusted proxies: %v", cfg.HTTP.TrustedProxies)
	}
	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	if _, err := LoadWithDefaults(); err == nil {
		t.Fatalf("expected error for invalid proxy entry")
	}
}
