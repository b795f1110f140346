package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"camvid-backend/internal/griddb"
	"camvid-backend/internal/models"
	"camvid-backend/internal/services"
)

type RecordsHandler struct {
	records *services.RecordService
}

func NewRecordsHandler(records *services.RecordService) *RecordsHandler {
	return &RecordsHandler{
		records: records,
	}
}

// Save godoc
// @Summary     Persist a generation record
// @Description Stores the image URL, prompt, and generated video URL of a completed generation.
// @Tags        records
// @Accept      json
// @Produce     json
// @Param       request body models.SaveRecordRequest true "Record fields"
// @Success     200 {object} models.SaveRecordResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /records [post]
func (h *RecordsHandler) Save(c *gin.Context) {
	var req models.SaveRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	if req.ImageURL == "" || req.Prompt == "" || req.GeneratedVideoURL == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "missing required fields: you need to provide an image, a prompt, and a generated video URL",
		})
		return
	}

	id, err := h.records.SaveGeneration(c.Request.Context(), req.ImageURL, req.Prompt, req.GeneratedVideoURL)
	if err != nil {
		respondStoreError(c, err, "failed to save record")
		return
	}

	c.JSON(http.StatusOK, models.SaveRecordResponse{
		Success: true,
		Message: "record saved successfully",
		ID:      id,
	})
}

// List godoc
// @Summary     List generation records
// @Description Returns persisted records, optionally filtered to one id, newest first.
// @Tags        records
// @Produce     json
// @Param       id query int false "Record id"
// @Param       limit query int false "Maximum records to return" default(10)
// @Success     200 {object} models.RecordsResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /records [get]
func (h *RecordsHandler) List(c *gin.Context) {
	var idFilter *int
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid id"})
			return
		}
		idFilter = &id
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := h.records.ListRecords(c.Request.Context(), idFilter, limit)
	if err != nil {
		respondStoreError(c, err, "failed to retrieve records")
		return
	}

	c.JSON(http.StatusOK, models.RecordsResponse{
		Success: true,
		Data:    records,
	})
}

func respondStoreError(c *gin.Context, err error, fallback string) {
	var storeErr *griddb.StoreError
	if errors.As(err, &storeErr) {
		status := storeErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, models.ErrorResponse{
			Error:   "GridDB operation failed",
			Message: storeErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   fallback,
		Message: err.Error(),
	})
}
