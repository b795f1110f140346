package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"camvid-backend/internal/models"
)

// WebhookHandler is a fire-and-forget sink for job API callbacks. Polling
// remains the authoritative completion signal; the payload is only logged.
type WebhookHandler struct {
	token  string
	logger zerolog.Logger
}

func NewWebhookHandler(token string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		token:  token,
		logger: logger,
	}
}

type webhookEvent struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

// HandleWebhook godoc
// @Summary     Job API webhook endpoint
// @Description Receives completion callbacks from the generation provider. Verified with a shared token when one is configured.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Success     200 {object} map[string]string
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /webhooks/fal [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	if h.token != "" {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token != h.token {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid authorization token"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read request body",
			Message: err.Error(),
		})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse event",
			Message: err.Error(),
		})
		return
	}

	h.logger.Info().
		Str("request_id", event.RequestID).
		Str("status", event.Status).
		Str("error", event.Error).
		Msg("received job webhook")

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
