package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"camvid-backend/internal/fal"
	"camvid-backend/internal/models"
)

// JobsHandler exposes the job API directly: submit a generation job for an
// already-uploaded image and poll its status, leaving the scheduling to the
// caller.
type JobsHandler struct {
	falClient  *fal.Client
	webhookURL string
}

func NewJobsHandler(falClient *fal.Client, webhookURL string) *JobsHandler {
	return &JobsHandler{
		falClient:  falClient,
		webhookURL: webhookURL,
	}
}

// Submit godoc
// @Summary     Submit a generation job
// @Description Submits an image-to-video job for an uploaded image and returns the request id for polling.
// @Tags        jobs
// @Accept      json
// @Produce     json
// @Param       request body models.SubmitJobRequest true "Job parameters"
// @Success     200 {object} models.SubmitJobResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /jobs [post]
func (h *JobsHandler) Submit(c *gin.Context) {
	var req models.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	if req.Prompt == "" || req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "missing required fields: prompt and image_url",
		})
		return
	}

	requestID, err := h.falClient.Submit(c.Request.Context(), fal.GenerateRequest{
		Prompt:      req.Prompt,
		ImageURL:    req.ImageURL,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		CFGScale:    req.CFGScale,
	}, h.webhookURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to generate video",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SubmitJobResponse{
		Success:   true,
		RequestID: requestID,
	})
}

// GetStatus godoc
// @Summary     Poll a generation job
// @Description Returns the remote job status; once completed, the response carries the generated video URL.
// @Tags        jobs
// @Produce     json
// @Param       request_id path string true "Job request id"
// @Success     200 {object} models.JobStatusResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /jobs/{request_id} [get]
func (h *JobsHandler) GetStatus(c *gin.Context) {
	requestID := c.Param("request_id")

	snapshot, err := h.falClient.FetchStatus(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to fetch result",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.JobStatusResponse{
		RequestID: snapshot.RequestID,
		Status:    string(snapshot.Status),
		VideoURL:  snapshot.VideoURL,
		Error:     snapshot.Error,
	})
}
