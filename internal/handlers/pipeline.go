package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/repository"
)

type pipelineRequest struct {
	RecordingID string `json:"recordingId" binding:"required"`
	Question    string `json:"question"`
}

// PipelineFullTest runs transcription, analysis and an optional question over
// a single recording in one synchronous call. It exists for device bring-up
// and demos, where waiting minutes for the async flow is impractical. One
// quota unit covers the whole run, charged only if everything succeeded.
func (h HandlerSet) PipelineFullTest(c *gin.Context) {
	var req pipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	taskID, err := h.transcribe.Start(ctx, req.RecordingID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	segmentsSaved, err := h.transcribe.WaitAndSave(ctx, req.RecordingID, taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	analysis, err := h.analysis.Analyze(ctx, req.RecordingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.recordings.MarkReady(ctx, req.RecordingID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := gin.H{
		"recordingId":   req.RecordingID,
		"taskId":        taskID,
		"segmentsSaved": segmentsSaved,
		"analysis":      toAnalysisResponse(analysis),
		"status":        "ready",
	}

	if req.Question != "" {
		answer, citations, err := h.qa.Answer(ctx, []string{req.RecordingID}, req.Question)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		result["answer"] = answer
		result["availableCitations"] = citations
	}

	if err := h.consumeUnit(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
