package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/dispatch"
	"github.com/example/growth-crm/internal/logging"
	"github.com/example/growth-crm/internal/recurrence"
)

// Config captures environment driven configuration values for the CRM service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	APIKeyHash       string
	Location         *time.Location
	ScheduleHorizon  time.Duration
	PipelineConfig   string
	DispatchSchedule string
	// RateLimit caps authenticated requests per second; zero disables it.
	RateLimit        int
	LogLevel         slog.Level
	LogFormat        logging.Format
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Every missing or malformed key is
// collected so a single error names all of them.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with an explicit variable source.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "growth-crm.db",
		Location:         time.UTC,
		ScheduleHorizon:  recurrence.DefaultHorizon,
		DispatchSchedule: dispatch.DefaultSpec,
		LogLevel:         slog.LevelInfo,
		LogFormat:        logging.FormatJSON,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)
	value := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if portValue := value("CRM_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CRM_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := value("CRM_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if hash := value("CRM_API_KEY_HASH"); hash == "" {
		missing = append(missing, "CRM_API_KEY_HASH")
	} else {
		cfg.APIKeyHash = hash
	}

	if tz := value("CRM_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "CRM_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if horizonValue := value("CRM_SCHEDULE_HORIZON"); horizonValue != "" {
		horizon, err := time.ParseDuration(horizonValue)
		if err != nil || horizon <= 0 {
			invalid = append(invalid, "CRM_SCHEDULE_HORIZON")
		} else {
			cfg.ScheduleHorizon = horizon
		}
	}

	cfg.PipelineConfig = value("CRM_PIPELINE_CONFIG")

	if spec := value("CRM_DISPATCH_SCHEDULE"); spec != "" {
		if _, err := dispatch.ParseSpec(spec); err != nil {
			invalid = append(invalid, "CRM_DISPATCH_SCHEDULE")
		} else {
			cfg.DispatchSchedule = spec
		}
	}

	if rateValue := value("CRM_RATE_LIMIT"); rateValue != "" {
		limit, err := strconv.Atoi(rateValue)
		if err != nil || limit < 0 {
			invalid = append(invalid, "CRM_RATE_LIMIT")
		} else {
			cfg.RateLimit = limit
		}
	}

	if levelValue := value("CRM_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "CRM_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if formatValue := value("CRM_LOG_FORMAT"); formatValue != "" {
		format, err := logging.ParseFormat(formatValue)
		if err != nil {
			invalid = append(invalid, "CRM_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// LoggingOptions converts the log settings for logging.New.
func (c Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.LogLevel, Format: c.LogFormat}
}
