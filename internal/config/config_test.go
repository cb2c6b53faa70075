package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "localhost:5001", cfg.Server.Addr)
		assert.Equal(t, int32(8), cfg.Engine.DefaultScale)
		assert.Equal(t, 30, cfg.Engine.PerformanceDays)
		assert.Equal(t, time.Hour, cfg.Alert.DefaultPercentWindow)
		assert.Equal(t, 720*time.Hour, cfg.Alert.DefaultDrawdownWindow)
		assert.True(t, cfg.Scheduler.Enabled)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "8080")
		t.Setenv("SERVER_HOST", "0.0.0.0")
		t.Setenv("ENGINE_PERFORMANCE_DAYS", "90")
		t.Setenv("ALERT_COOLDOWN", "15m")
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
		t.Setenv("SCHEDULER_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
		assert.Equal(t, 90, cfg.Engine.PerformanceDays)
		assert.Equal(t, 15*time.Minute, cfg.Alert.Cooldown)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
		assert.False(t, cfg.Scheduler.Enabled)
	})

	t.Run("invalid values are reported together", func(t *testing.T) {
		t.Setenv("ENGINE_PERFORMANCE_DAYS", "many")
		t.Setenv("ALERT_COOLDOWN", "-1m")
		t.Setenv("ENGINE_DEFAULT_SCALE", "-2")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ENGINE_PERFORMANCE_DAYS")
		assert.Contains(t, err.Error(), "ALERT_COOLDOWN: must be positive")
		assert.Contains(t, err.Error(), "must not be negative")
	})
}
