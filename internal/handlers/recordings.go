package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/models"
	"echolog/api/internal/repository"
	"echolog/api/internal/service"
)

type createRecordingRequest struct {
	DeviceID    string `json:"deviceId" binding:"required"`
	RecordingID string `json:"recordingId" binding:"required"`
	StartAt     int64  `json:"startAt" binding:"required"`
	EndAt       int64  `json:"endAt" binding:"required"`
	Timezone    string `json:"timezone"`
	FileExt     string `json:"fileExt"`
}

type recordingResponse struct {
	DeviceID     string `json:"deviceId"`
	RecordingID  string `json:"recordingId"`
	StartAt      int64  `json:"startAt"`
	EndAt        int64  `json:"endAt"`
	Timezone     string `json:"timezone"`
	ObjectKey    string `json:"objectKey"`
	Status       string `json:"status"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func toRecordingResponse(rec models.Recording) recordingResponse {
	return recordingResponse{
		DeviceID:     rec.DeviceID,
		RecordingID:  rec.RecordingID,
		StartAt:      rec.StartAt,
		EndAt:        rec.EndAt,
		Timezone:     rec.Timezone,
		ObjectKey:    rec.ObjectKey,
		Status:       string(rec.Status),
		ErrorCode:    rec.ErrorCode,
		ErrorMessage: rec.ErrorMessage,
	}
}

func (h HandlerSet) CreateRecording(c *gin.Context) {
	var req createRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.recordings.Create(c.Request.Context(), service.RecordingInput{
		DeviceID:    req.DeviceID,
		RecordingID: req.RecordingID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Timezone:    req.Timezone,
		FileExt:     req.FileExt,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toRecordingResponse(rec))
}

func (h HandlerSet) DeleteRecording(c *gin.Context) {
	if err := h.recordings.Delete(c.Request.Context(), c.Param("recordingID")); err != nil {
		if errors.Is(err, repository.ErrRecordingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) GetRecording(c *gin.Context) {
	rec, err := h.recordings.Get(c.Request.Context(), c.Param("recordingID"))
	if err != nil {
		if errors.Is(err, repository.ErrRecordingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toRecordingResponse(rec))
}
