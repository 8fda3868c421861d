package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"echolog/api/internal/llm"
	"echolog/api/internal/repository"
)

var ErrNoTranscripts = errors.New("no transcript segments found for the requested recordings")

type Citation struct {
	RecordingID  string `json:"recordingId"`
	SegmentIndex int    `json:"segmentIndex"`
	StartMS      int    `json:"startMs"`
	EndMS        int    `json:"endMs"`
}

type QAService struct {
	recordings  *repository.RecordingRepository
	transcripts *repository.TranscriptRepository
	completions llm.Client
	log         zerolog.Logger
}

func NewQAService(
	recordings *repository.RecordingRepository,
	transcripts *repository.TranscriptRepository,
	completions llm.Client,
	log zerolog.Logger,
) *QAService {
	return &QAService{
		recordings:  recordings,
		transcripts: transcripts,
		completions: completions,
		log:         log,
	}
}

// Answer merges the transcripts of the requested recordings and asks the
// completion model the user's question, grounded in those segments. Unknown
// recording ids are skipped.
func (s *QAService) Answer(ctx context.Context, recordingIDs []string, question string) (string, []Citation, error) {
	var merged strings.Builder
	var citations []Citation

	for _, rid := range recordingIDs {
		if _, err := s.recordings.GetByRecordingID(ctx, rid); err != nil {
			if errors.Is(err, repository.ErrRecordingNotFound) {
				continue
			}
			return "", nil, err
		}

		segments, err := s.transcripts.ListByRecording(ctx, rid)
		if err != nil {
			return "", nil, err
		}
		for _, seg := range segments {
			fmt.Fprintf(&merged, "[%s#%d] %s\n", rid, seg.SegmentIndex, seg.Text)
			citations = append(citations, Citation{
				RecordingID:  rid,
				SegmentIndex: seg.SegmentIndex,
				StartMS:      seg.StartMS,
				EndMS:        seg.EndMS,
			})
		}
	}

	if len(citations) == 0 {
		return "", nil, ErrNoTranscripts
	}

	prompt := "You are a rigorous companion assistant. Below are the user's transcribed conversation segments (format: [recording#segment] text):\n" +
		merged.String() +
		"\nUser question: " + question +
		"\n\nAnswer strictly from the provided segments, do not invent content. When the question concerns people met or inappropriate remarks, list the supporting segment numbers as evidence. Give the answer first, then the cited segment numbers."

	answer, err := s.completions.Complete(ctx, "You are a helpful assistant.", prompt)
	if err != nil {
		return "", nil, err
	}
	return answer, citations, nil
}
