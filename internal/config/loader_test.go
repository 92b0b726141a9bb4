package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/example/growth-crm/internal/logging"
)

var allKeys = []string{
	"CRM_HTTP_PORT",
	"CRM_SQLITE_DSN",
	"CRM_API_KEY_HASH",
	"CRM_TIMEZONE",
	"CRM_SCHEDULE_HORIZON",
	"CRM_PIPELINE_CONFIG",
	"CRM_DISPATCH_SCHEDULE",
	"CRM_RATE_LIMIT",
	"CRM_LOG_LEVEL",
	"CRM_LOG_FORMAT",
}

func unsetAll(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		// Register restoration first so Unsetenv does not leak across tests.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unsetAll(t)

		const hash = "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
		t.Setenv("CRM_API_KEY_HASH", hash)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "growth-crm.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.APIKeyHash != hash {
			t.Fatalf("expected api key hash to be %q, got %q", hash, cfg.APIKeyHash)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC, got %v", cfg.Location)
		}
		if cfg.ScheduleHorizon != 720*time.Hour {
			t.Fatalf("expected 720h horizon, got %s", cfg.ScheduleHorizon)
		}
		if cfg.DispatchSchedule != "@every 1m" {
			t.Fatalf("unexpected dispatch schedule %q", cfg.DispatchSchedule)
		}
		if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != logging.FormatJSON {
			t.Fatalf("unexpected log settings %v %v", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.Addr() != ":8080" {
			t.Fatalf("unexpected addr %q", cfg.Addr())
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		unsetAll(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "required environment variables are not set: CRM_API_KEY_HASH"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		unsetAll(t)
		t.Setenv("CRM_API_KEY_HASH", "hash")
		t.Setenv("CRM_HTTP_PORT", "http")
		t.Setenv("CRM_TIMEZONE", "Mars/Olympus")
		t.Setenv("CRM_DISPATCH_SCHEDULE", "whenever")
		t.Setenv("CRM_LOG_FORMAT", "xml")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "environment variables have invalid values: CRM_HTTP_PORT, CRM_TIMEZONE, CRM_DISPATCH_SCHEDULE, CRM_LOG_FORMAT"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration and location fields", func(t *testing.T) {
		unsetAll(t)
		t.Setenv("CRM_API_KEY_HASH", "hash")
		t.Setenv("CRM_HTTP_PORT", "9090")
		t.Setenv("CRM_SQLITE_DSN", "/tmp/crm.db")
		t.Setenv("CRM_TIMEZONE", "Asia/Tokyo")
		t.Setenv("CRM_SCHEDULE_HORIZON", "168h")
		t.Setenv("CRM_PIPELINE_CONFIG", "/etc/crm/pipeline.yaml")
		t.Setenv("CRM_DISPATCH_SCHEDULE", "*/5 * * * *")
		t.Setenv("CRM_LOG_LEVEL", "debug")
		t.Setenv("CRM_LOG_FORMAT", "text")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.ScheduleHorizon != 168*time.Hour {
			t.Fatalf("expected horizon 168h, got %s", cfg.ScheduleHorizon)
		}
		if cfg.Location.String() != "Asia/Tokyo" {
			t.Fatalf("expected Asia/Tokyo, got %v", cfg.Location)
		}
		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "/tmp/crm.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.PipelineConfig != "/etc/crm/pipeline.yaml" || cfg.DispatchSchedule != "*/5 * * * *" {
			t.Fatalf("unexpected pipeline/dispatch settings %+v", cfg)
		}
		opts := cfg.LoggingOptions()
		if opts.Level != slog.LevelDebug || opts.Format != logging.FormatText {
			t.Fatalf("unexpected logging options %+v", opts)
		}
	})
}

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	env := map[string]string{"CRM_API_KEY_HASH": "hash", "CRM_HTTP_PORT": "70000"}
	if _, err := LoadFrom(func(key string) string { return env[key] }); err == nil {
		t.Fatalf("expected out of range port to be rejected")
	}

	env = map[string]string{"CRM_API_KEY_HASH": "hash", "CRM_RATE_LIMIT": "20"}
	cfg, err := LoadFrom(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.RateLimit != 20 {
		t.Fatalf("expected rate limit 20, got %d", cfg.RateLimit)
	}

	env["CRM_RATE_LIMIT"] = "-1"
	if _, err := LoadFrom(func(key string) string { return env[key] }); err == nil {
		t.Fatalf("expected negative rate limit to be rejected")
	}
}
