package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Fal job API
	FalAPIKey       string
	FalQueueBaseURL string
	FalRestBaseURL  string
	FalModelID      string
	FalWebhookToken string

	// GridDB Web API
	GridDBWebAPIURL string
	GridDBUsername  string
	GridDBPassword  string
	GridDBContainer string

	// Generation polling
	PollInterval time.Duration
	MaxPolls     int

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	cfg := &Config{
		FalAPIKey:       getEnv("FAL_KEY", getEnv("FAL_API_KEY", "")),
		FalQueueBaseURL: getEnv("FAL_QUEUE_BASE_URL", "https://queue.fal.run"),
		FalRestBaseURL:  getEnv("FAL_REST_BASE_URL", "https://rest.alpha.fal.ai"),
		FalModelID:      getEnv("FAL_MODEL_ID", "fal-ai/kling-video/v2.1/pro/image-to-video"),
		FalWebhookToken: getEnv("FAL_WEBHOOK_TOKEN", ""),

		GridDBWebAPIURL: getEnv("GRIDDB_WEBAPI_URL", ""),
		GridDBUsername:  getEnv("GRIDDB_USERNAME", ""),
		GridDBPassword:  getEnv("GRIDDB_PASSWORD", ""),
		GridDBContainer: getEnv("GRIDDB_CONTAINER", "camvidai"),

		PollInterval: getEnvDuration("GENERATION_POLL_INTERVAL", 2*time.Second),
		MaxPolls:     getEnvInt("GENERATION_MAX_POLLS", 150),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.FalAPIKey == "" {
		return fmt.Errorf("FAL_KEY or FAL_API_KEY is required")
	}
	if c.GridDBWebAPIURL == "" {
		return fmt.Errorf("GRIDDB_WEBAPI_URL is required")
	}
	if c.GridDBUsername == "" {
		return fmt.Errorf("GRIDDB_USERNAME is required")
	}
	if c.GridDBPassword == "" {
		return fmt.Errorf("GRIDDB_PASSWORD is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("GENERATION_POLL_INTERVAL must be positive")
	}
	if c.MaxPolls <= 0 {
		return fmt.Errorf("GENERATION_MAX_POLLS must be positive")
	}
	return nil
}

// WebhookCallbackURL is the publicly reachable URL the job API calls back on.
func (c *Config) WebhookCallbackURL() string {
	return c.BaseURL + "/api/v1/webhooks/fal"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
