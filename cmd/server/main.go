package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"camvid-backend/internal/config"
	"camvid-backend/internal/fal"
	"camvid-backend/internal/generation"
	"camvid-backend/internal/griddb"
	"camvid-backend/internal/handlers"
	"camvid-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	falClient := fal.NewClient(cfg.FalQueueBaseURL, cfg.FalRestBaseURL, cfg.FalAPIKey, cfg.FalModelID)

	storeClient := griddb.NewClient(griddb.Config{
		WebAPIURL: cfg.GridDBWebAPIURL,
		Username:  cfg.GridDBUsername,
		Password:  cfg.GridDBPassword,
		Container: cfg.GridDBContainer,
	})

	recordService := services.NewRecordService(storeClient, logger)

	// Provision the record container up front. A failure here is not fatal:
	// the service retries lazily before the first write.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := recordService.EnsureReady(ctx); err != nil {
		logger.Warn().Err(err).Msg("record container not ready; will retry on first save")
	} else {
		logger.Info().Str("container", storeClient.Container()).Msg("record container ready")
	}
	cancel()

	manager := generation.NewManager(falClient, recordService, logger, cfg.PollInterval, cfg.MaxPolls)

	// Sweep finished attempts out of the registry periodically.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 10m", func() {
		if n := manager.EvictFinished(30 * time.Minute); n > 0 {
			logger.Info().Int("evicted", n).Msg("evicted finished generation attempts")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule attempt sweeper")
	}
	sweeper.Start()
	defer sweeper.Stop()

	webhookURL := cfg.WebhookCallbackURL()

	uploadsHandler := handlers.NewUploadsHandler(falClient)
	generationsHandler := handlers.NewGenerationsHandler(manager, webhookURL)
	jobsHandler := handlers.NewJobsHandler(falClient, webhookURL)
	recordsHandler := handlers.NewRecordsHandler(recordService)
	webhookHandler := handlers.NewWebhookHandler(cfg.FalWebhookToken, logger)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api/v1")

	api.POST("/uploads", uploadsHandler.Upload)

	api.POST("/generations", generationsHandler.Start)
	api.GET("/generations/:generation_id", generationsHandler.Get)
	api.DELETE("/generations/:generation_id", generationsHandler.Cancel)

	api.POST("/jobs", jobsHandler.Submit)
	api.GET("/jobs/:request_id", jobsHandler.GetStatus)

	api.POST("/records", recordsHandler.Save)
	api.GET("/records", recordsHandler.List)

	api.POST("/webhooks/fal", webhookHandler.HandleWebhook)

	logger.Info().Str("port", cfg.Port).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
