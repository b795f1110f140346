package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"camvid-backend/internal/fal"
	"camvid-backend/internal/models"
)

type UploadsHandler struct {
	falClient *fal.Client
}

func NewUploadsHandler(falClient *fal.Client) *UploadsHandler {
	return &UploadsHandler{
		falClient: falClient,
	}
}

// Upload godoc
// @Summary     Upload a captured image
// @Description Uploads a still image to the generation provider's storage and returns its public URL.
// @Tags        uploads
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "Captured image"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /uploads [post]
func (h *UploadsHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no file provided"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to open file",
			Message: err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read file",
			Message: err.Error(),
		})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.falClient.Upload(c.Request.Context(), data, contentType, fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to upload image",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		Success:  true,
		URL:      url,
		FileName: fileHeader.Filename,
	})
}
