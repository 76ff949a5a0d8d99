package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/transport/httpresp"
)

type presignUploadRequest struct {
	FileName string `json:"fileName" binding:"required"`
}

func (h *Handler) presignUpload(c *gin.Context) {
	if h.files == nil {
		c.JSON(http.StatusServiceUnavailable, httpresp.NewErrorResponse("file storage is not configured"))
		return
	}
	var req presignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	url, key, err := h.files.PresignUpload(c.Request.Context(), authUserID(c), req.FileName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "key": key})
}

func (h *Handler) presignDownload(c *gin.Context) {
	if h.files == nil {
		c.JSON(http.StatusServiceUnavailable, httpresp.NewErrorResponse("file storage is not configured"))
		return
	}
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("key is required"))
		return
	}
	url, err := h.files.PresignDownload(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewURLResponse(url))
}
