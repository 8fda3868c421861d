package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/repository"
)

type startTranscribeRequest struct {
	RecordingID string `json:"recordingId" binding:"required"`
}

// StartTranscribe is quota-gated; the unit is consumed only after the job
// was accepted by the transcription engine.
func (h HandlerSet) StartTranscribe(c *gin.Context) {
	var req startTranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := h.transcribe.Start(c.Request.Context(), req.RecordingID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.consumeUnit(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recordingId": req.RecordingID,
		"taskId":      taskID,
		"status":      "transcribing",
	})
}

func (h HandlerSet) QueryTranscribe(c *gin.Context) {
	status, err := h.transcribe.Query(c.Request.Context(), c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":  status.TaskID,
		"status":  status.Status,
		"message": status.Message,
	})
}

type waitAndSaveRequest struct {
	RecordingID string `json:"recordingId" binding:"required"`
	TaskID      string `json:"taskId" binding:"required"`
}

func (h HandlerSet) WaitAndSaveTranscript(c *gin.Context) {
	var req waitAndSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.transcribe.WaitAndSave(c.Request.Context(), req.RecordingID, req.TaskID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recordingId":   req.RecordingID,
		"segmentsSaved": saved,
		"status":        "analyzing",
	})
}

type segmentResponse struct {
	SegmentIndex int    `json:"segmentIndex"`
	StartMS      int    `json:"startMs"`
	EndMS        int    `json:"endMs"`
	Text         string `json:"text"`
}

func (h HandlerSet) ListTranscript(c *gin.Context) {
	recordingID := c.Param("recordingID")

	segments, err := h.transcribe.ListSegments(c.Request.Context(), recordingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]segmentResponse, 0, len(segments))
	for _, seg := range segments {
		items = append(items, segmentResponse{
			SegmentIndex: seg.SegmentIndex,
			StartMS:      seg.StartMS,
			EndMS:        seg.EndMS,
			Text:         seg.Text,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"recordingId": recordingID,
		"segments":    items,
	})
}
