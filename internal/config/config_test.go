package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"camvid-backend/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("FAL_KEY", "test-key")
	t.Setenv("GRIDDB_WEBAPI_URL", "https://cloud.griddb.test/api/v2")
	t.Setenv("GRIDDB_USERNAME", "admin")
	t.Setenv("GRIDDB_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	assert.NoError(t, err)

	assert.Equal(t, "test-key", cfg.FalAPIKey)
	assert.Equal(t, "https://queue.fal.run", cfg.FalQueueBaseURL)
	assert.Equal(t, "https://rest.alpha.fal.ai", cfg.FalRestBaseURL)
	assert.Equal(t, "fal-ai/kling-video/v2.1/pro/image-to-video", cfg.FalModelID)
	assert.Equal(t, "camvidai", cfg.GridDBContainer)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 150, cfg.MaxPolls)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoad_FalAPIKeyFallback(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FAL_KEY", "")
	t.Setenv("FAL_API_KEY", "fallback-key")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "fallback-key", cfg.FalAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_POLL_INTERVAL", "500ms")
	t.Setenv("GENERATION_MAX_POLLS", "20")
	t.Setenv("GRIDDB_CONTAINER", "othervids")
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 20, cfg.MaxPolls)
	assert.Equal(t, "othervids", cfg.GridDBContainer)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr string
	}{
		{"fal key", "FAL_KEY", "FAL_KEY or FAL_API_KEY is required"},
		{"griddb url", "GRIDDB_WEBAPI_URL", "GRIDDB_WEBAPI_URL is required"},
		{"griddb username", "GRIDDB_USERNAME", "GRIDDB_USERNAME is required"},
		{"griddb password", "GRIDDB_PASSWORD", "GRIDDB_PASSWORD is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := config.Load()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_POLL_INTERVAL", "not-a-duration")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestWebhookCallbackURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BASE_URL", "https://camvid.example.com")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "https://camvid.example.com/api/v1/webhooks/fal", cfg.WebhookCallbackURL())
}
