package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/repository"
)

const (
	uploadURLExpiry   = 10 * time.Minute
	downloadURLExpiry = time.Hour
)

type uploadURLRequest struct {
	RecordingID string `json:"recordingId" binding:"required"`
	FileExt     string `json:"fileExt"`
}

// UploadURL hands the client a presigned PUT URL; the audio bytes never pass
// through this server.
func (h HandlerSet) UploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	objectKey := h.store.ObjectKeyForRecording(req.RecordingID, req.FileExt)
	uploadURL, err := h.store.PresignUpload(c.Request.Context(), objectKey, uploadURLExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recordingId": req.RecordingID,
		"objectKey":   objectKey,
		"uploadUrl":   uploadURL,
	})
}

func (h HandlerSet) DownloadURL(c *gin.Context) {
	recordingID := c.Param("recordingID")

	objectKey := h.store.ObjectKeyForRecording(recordingID, "")
	if rec, err := h.recordings.Get(c.Request.Context(), recordingID); err == nil {
		objectKey = rec.ObjectKey
	} else if !errors.Is(err, repository.ErrRecordingNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	downloadURL, err := h.store.PresignDownload(c.Request.Context(), objectKey, downloadURLExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recordingId": recordingID,
		"objectKey":   objectKey,
		"downloadUrl": downloadURL,
	})
}
