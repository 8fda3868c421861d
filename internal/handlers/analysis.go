package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/models"
	"echolog/api/internal/repository"
)

type analysisResponse struct {
	RecordingID string          `json:"recordingId"`
	Version     string          `json:"version"`
	Summary     string          `json:"summary"`
	People      json.RawMessage `json:"people"`
	Issues      json.RawMessage `json:"issues"`
	Suggestions json.RawMessage `json:"suggestions"`
}

func toAnalysisResponse(a models.Analysis) analysisResponse {
	return analysisResponse{
		RecordingID: a.RecordingID,
		Version:     a.Version,
		Summary:     a.Summary,
		People:      rawOrNull(a.People),
		Issues:      rawOrNull(a.Issues),
		Suggestions: rawOrNull(a.Suggestions),
	}
}

// rawOrNull keeps stored JSON fragments as-is in the response body.
func rawOrNull(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

func (h HandlerSet) GetAnalysis(c *gin.Context) {
	analysis, err := h.analysis.Get(c.Request.Context(), c.Param("recordingID"))
	if err != nil {
		if errors.Is(err, repository.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toAnalysisResponse(analysis))
}
