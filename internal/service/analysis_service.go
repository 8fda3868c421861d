package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"echolog/api/internal/ids"
	"echolog/api/internal/llm"
	"echolog/api/internal/models"
	"echolog/api/internal/repository"
)

const analysisVersion = "v1"

const analysisSchemaHint = `
Respond with strict JSON (no markdown fences), fields:
{
  "summary": "string",
  "people": [{"name": "string", "evidence": [{"segment_index": 0}]}],
  "issues": [{"title": "string", "detail": "string", "evidence": [{"segment_index": 0}]}],
  "suggestions": [{"title": "string", "detail": "string"}]
}`

type AnalysisService struct {
	analyses    *repository.AnalysisRepository
	transcripts *repository.TranscriptRepository
	completions llm.Client
	log         zerolog.Logger
}

func NewAnalysisService(
	analyses *repository.AnalysisRepository,
	transcripts *repository.TranscriptRepository,
	completions llm.Client,
	log zerolog.Logger,
) *AnalysisService {
	return &AnalysisService{
		analyses:    analyses,
		transcripts: transcripts,
		completions: completions,
		log:         log,
	}
}

type analysisPayload struct {
	Summary     string          `json:"summary"`
	People      json.RawMessage `json:"people"`
	Issues      json.RawMessage `json:"issues"`
	Suggestions json.RawMessage `json:"suggestions"`
}

// Analyze runs the transcript through the completion model and stores the
// structured result, replacing any previous analysis of the same version.
func (s *AnalysisService) Analyze(ctx context.Context, recordingID string) (models.Analysis, error) {
	segments, err := s.transcripts.ListByRecording(ctx, recordingID)
	if err != nil {
		return models.Analysis{}, err
	}
	if len(segments) == 0 {
		return models.Analysis{}, fmt.Errorf("no transcript segments for recording %s", recordingID)
	}

	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%d] %s\n", seg.SegmentIndex, seg.Text)
	}

	prompt := "You are a rigorous conversation analyst. Below is a transcribed conversation, one line per numbered segment:\n" +
		b.String() +
		"\nTask: summarize the main content, extract the people mentioned (omit when unsure), point out communication missteps, and suggest improvements. Cite segment numbers as evidence." +
		analysisSchemaHint

	text, err := s.completions.Complete(ctx, "You are a helpful assistant.", prompt)
	if err != nil {
		return models.Analysis{}, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		// Model went off-script; keep the raw text as the summary.
		s.log.Warn().Err(err).Str("recording_id", recordingID).Msg("analysis response not valid json")
		payload = analysisPayload{Summary: text}
	}

	analysis := models.Analysis{
		ID:          ids.New(),
		RecordingID: recordingID,
		Version:     analysisVersion,
		Summary:     payload.Summary,
		People:      string(payload.People),
		Issues:      string(payload.Issues),
		Suggestions: string(payload.Suggestions),
	}

	if err := s.analyses.Upsert(ctx, analysis); err != nil {
		return models.Analysis{}, err
	}
	return analysis, nil
}

func (s *AnalysisService) Get(ctx context.Context, recordingID string) (models.Analysis, error) {
	return s.analyses.GetByRecording(ctx, recordingID, analysisVersion)
}
