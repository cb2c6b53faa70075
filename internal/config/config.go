package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Engine    EngineConfig
	Alert     AlertConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// EngineConfig holds valuation engine settings
type EngineConfig struct {
	DefaultScale       int32 // fractional digits for average cost when an asset sets none
	CryptoScale        int32 // minimum fractional digits for crypto assets
	PerformanceDays    int   // default performance window of a summary
	PerformanceWorkers int   // concurrent recomputed days
}

// AlertConfig holds alert evaluation settings
type AlertConfig struct {
	DefaultPercentWindow  time.Duration
	DefaultDrawdownWindow time.Duration
	Cooldown              time.Duration
}

// SchedulerConfig holds cron specs (with seconds field) for background jobs.
// An empty spec disables the job.
type SchedulerConfig struct {
	Enabled        bool
	SnapshotSpec   string
	AlertSweepSpec string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var errs []string
	intVar := func(key string, def int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(getEnv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("%s: must be positive", key))
			return def
		}
		return v
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/valuation_engine.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnv("LOG_PRETTY", "false") == "true",
		},
		Engine: EngineConfig{
			DefaultScale:       int32(intVar("ENGINE_DEFAULT_SCALE", 8)),
			CryptoScale:        int32(intVar("ENGINE_CRYPTO_SCALE", 8)),
			PerformanceDays:    intVar("ENGINE_PERFORMANCE_DAYS", 30),
			PerformanceWorkers: intVar("ENGINE_PERFORMANCE_WORKERS", 4),
		},
		Alert: AlertConfig{
			DefaultPercentWindow:  durationVar("ALERT_DEFAULT_PERCENT_WINDOW", 60*time.Minute),
			DefaultDrawdownWindow: durationVar("ALERT_DEFAULT_DRAWDOWN_WINDOW", 720*time.Hour),
			Cooldown:              durationVar("ALERT_COOLDOWN", time.Hour),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getEnv("SCHEDULER_ENABLED", "true") == "true",
			SnapshotSpec:   getEnv("SCHEDULER_SNAPSHOT_SPEC", "0 15 0 * * *"),
			AlertSweepSpec: getEnv("SCHEDULER_ALERT_SWEEP_SPEC", "0 */5 * * * *"),
		},
	}

	if config.Engine.DefaultScale < 0 || config.Engine.CryptoScale < 0 {
		errs = append(errs, "ENGINE_DEFAULT_SCALE and ENGINE_CRYPTO_SCALE must not be negative")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
