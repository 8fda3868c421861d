package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/service"
)

type qaRequest struct {
	RecordingIDs []string `json:"recordingIds" binding:"required"`
	Question     string   `json:"question" binding:"required"`
}

// QA is quota-gated; a unit is consumed only when an answer was produced.
func (h HandlerSet) QA(c *gin.Context) {
	var req qaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, citations, err := h.qa.Answer(c.Request.Context(), req.RecordingIDs, req.Question)
	if err != nil {
		if errors.Is(err, service.ErrNoTranscripts) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no_transcripts_found"})
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
		"answer":             answer,
		"availableCitations": citations,
	})
}
