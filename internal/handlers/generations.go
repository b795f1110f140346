package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"camvid-backend/internal/generation"
	"camvid-backend/internal/models"
)

type GenerationsHandler struct {
	manager    *generation.Manager
	webhookURL string
}

func NewGenerationsHandler(manager *generation.Manager, webhookURL string) *GenerationsHandler {
	return &GenerationsHandler{
		manager:    manager,
		webhookURL: webhookURL,
	}
}

// Start godoc
// @Summary     Start a generation attempt
// @Description Uploads the captured image, submits the video generation job, and polls it to completion in the background.
// @Tags        generations
// @Accept      multipart/form-data
// @Produce     json
// @Param       image formData file true "Captured image"
// @Param       prompt formData string true "Generation prompt"
// @Param       duration formData string false "Requested output length in seconds (5 or 10)"
// @Param       aspect_ratio formData string false "Requested output framing (16:9, 9:16, 1:1)"
// @Param       cfg_scale formData number false "Prompt-adherence strength"
// @Success     202 {object} models.GenerationStartedResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /generations [post]
func (h *GenerationsHandler) Start(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no image provided"})
		return
	}

	prompt := c.PostForm("prompt")
	if strings.TrimSpace(prompt) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "prompt is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to open image",
			Message: err.Error(),
		})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read image",
			Message: err.Error(),
		})
		return
	}

	opts := generation.Options{
		Duration:    c.PostForm("duration"),
		AspectRatio: c.PostForm("aspect_ratio"),
		WebhookURL:  h.webhookURL,
	}
	if raw := c.PostForm("cfg_scale"); raw != "" {
		if scale, err := strconv.ParseFloat(raw, 64); err == nil {
			opts.CFGScale = scale
		}
	}

	contentType := fileHeader.Header.Get("Content-Type")
	id := h.manager.Begin(image, contentType, prompt, opts)

	c.JSON(http.StatusAccepted, models.GenerationStartedResponse{
		GenerationID: id.String(),
		State:        string(generation.StateUploading),
	})
}

// Get godoc
// @Summary     Get a generation attempt
// @Description Returns the current state, status label, and result or failure of an attempt, plus the persistence outcome.
// @Tags        generations
// @Produce     json
// @Param       generation_id path string true "Generation ID (UUID)"
// @Success     200 {object} models.GenerationStatusResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /generations/{generation_id} [get]
func (h *GenerationsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("generation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid generation id"})
		return
	}

	snap, ok := h.manager.Snapshot(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "generation not found"})
		return
	}

	c.JSON(http.StatusOK, models.GenerationStatusResponse{
		GenerationID: snap.ID.String(),
		State:        string(snap.State),
		Status:       snap.StatusLabel,
		Prompt:       snap.Prompt,
		ImageURL:     snap.ImageURL,
		RequestID:    snap.RequestID,
		VideoURL:     snap.VideoURL,
		Error:        snap.FailureReason,
		Polls:        snap.Polls,
		RecordID:     snap.RecordID,
		PersistState: snap.PersistState,
		PersistError: snap.PersistError,
		CreatedAt:    snap.CreatedAt,
	})
}

// Cancel godoc
// @Summary     Cancel a generation attempt
// @Description Stops polling an attempt. The remote job keeps running on the provider's side.
// @Tags        generations
// @Produce     json
// @Param       generation_id path string true "Generation ID (UUID)"
// @Success     200 {object} map[string]string
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /generations/{generation_id} [delete]
func (h *GenerationsHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("generation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid generation id"})
		return
	}

	if !h.manager.Cancel(id) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "generation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
