package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	for _, key := range []string{"PORT", "DATABASE_URL", "STORAGE", "CONTEXT_TIMEOUT", "REDIS_URL",
		"RATE_LIMIT_PER_MINUTE", "CORS_ALLOWED_ORIGINS", "METRICS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 5*time.Second, cfg.ContextTimeout)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.True(t, cfg.MetricsEnabled)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Contains(t, cfg.DBUrl, "postgres://")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE", "Memory")
	t.Setenv("CONTEXT_TIMEOUT", "750ms")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 750*time.Millisecond, cfg.ContextTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CONTEXT_TIMEOUT", "soon"},
		{"CONTEXT_TIMEOUT", "-1s"},
		{"RATE_LIMIT_PER_MINUTE", "many"},
		{"RATE_LIMIT_PER_MINUTE", "0"},
		{"METRICS_ENABLED", "maybe"},
		{"STORAGE", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("GO_ENV", "production")
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	logger := NewLogger()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
}

func TestNewLogger_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "production", "").Info("started", "port", "8080")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "started", rec["msg"])
	assert.Equal(t, "8080", rec["port"])
}

func TestNewLogger_DevelopmentIsText(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "development", "debug")
	logger.Debug("seeded", "users", 2)

	assert.Contains(t, buf.String(), "msg=seeded")
	assert.Contains(t, buf.String(), "users=2")
}
