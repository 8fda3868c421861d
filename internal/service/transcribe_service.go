package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"echolog/api/internal/asr"
	"echolog/api/internal/ids"
	"echolog/api/internal/models"
	"echolog/api/internal/repository"
	"echolog/api/internal/storage"
)

const taskCacheTTL = 24 * time.Hour

type TranscribeService struct {
	recordings  *repository.RecordingRepository
	transcripts *repository.TranscriptRepository
	store       *storage.ObjectStore
	engine      asr.Client
	cache       *redis.Client
	model       string
	log         zerolog.Logger
}

func NewTranscribeService(
	recordings *repository.RecordingRepository,
	transcripts *repository.TranscriptRepository,
	store *storage.ObjectStore,
	engine asr.Client,
	cache *redis.Client,
	model string,
	log zerolog.Logger,
) *TranscribeService {
	return &TranscribeService{
		recordings:  recordings,
		transcripts: transcripts,
		store:       store,
		engine:      engine,
		cache:       cache,
		model:       model,
		log:         log,
	}
}

// Start submits the recording's audio to the transcription engine and moves
// the recording into `transcribing`. The pending task id is cached so a
// later poll (or the stale-job sweeper) can find it again.
func (s *TranscribeService) Start(ctx context.Context, recordingID string) (string, error) {
	rec, err := s.recordings.GetByRecordingID(ctx, recordingID)
	if err != nil {
		return "", err
	}

	downloadURL, err := s.store.PresignDownload(ctx, rec.ObjectKey, time.Hour)
	if err != nil {
		return "", err
	}

	taskID, err := s.engine.Submit(ctx, []string{downloadURL})
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, taskCacheKey(recordingID), taskID, taskCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("recording_id", recordingID).Msg("cache task id failed")
	}

	if err := s.recordings.UpdateStatus(ctx, recordingID, models.RecordingStatusTranscribing); err != nil {
		return "", err
	}
	return taskID, nil
}

func (s *TranscribeService) Query(ctx context.Context, taskID string) (asr.TaskStatus, error) {
	return s.engine.Fetch(ctx, taskID)
}

// TaskForRecording returns the cached pending task id, if any.
func (s *TranscribeService) TaskForRecording(ctx context.Context, recordingID string) (string, error) {
	taskID, err := s.cache.Get(ctx, taskCacheKey(recordingID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return taskID, err
}

// WaitAndSave blocks for the task result, replaces the stored transcript and
// moves the recording into `analyzing`. An empty or failed transcription
// marks the recording failed.
func (s *TranscribeService) WaitAndSave(ctx context.Context, recordingID string, taskID string) (int, error) {
	if _, err := s.recordings.GetByRecordingID(ctx, recordingID); err != nil {
		return 0, err
	}

	segments, err := s.engine.Wait(ctx, taskID)
	if err != nil {
		if markErr := s.recordings.MarkFailed(ctx, recordingID, "ASR_ERROR", err.Error()); markErr != nil {
			s.log.Error().Err(markErr).Str("recording_id", recordingID).Msg("mark failed")
		}
		return 0, err
	}
	if len(segments) == 0 {
		if markErr := s.recordings.MarkFailed(ctx, recordingID, "ASR_EMPTY", "transcription returned no segments"); markErr != nil {
			s.log.Error().Err(markErr).Str("recording_id", recordingID).Msg("mark failed")
		}
		return 0, fmt.Errorf("transcription returned no segments")
	}

	rows := make([]models.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		rows = append(rows, models.TranscriptSegment{
			ID:           ids.New(),
			RecordingID:  recordingID,
			SegmentIndex: seg.Index,
			StartMS:      seg.StartMS,
			EndMS:        seg.EndMS,
			Text:         seg.Text,
			ASRModel:     s.model,
		})
	}

	if err := s.transcripts.ReplaceSegments(ctx, recordingID, rows); err != nil {
		return 0, err
	}

	if err := s.recordings.UpdateStatus(ctx, recordingID, models.RecordingStatusAnalyzing); err != nil {
		return 0, err
	}

	s.cache.Del(ctx, taskCacheKey(recordingID))
	return len(rows), nil
}

func (s *TranscribeService) ListSegments(ctx context.Context, recordingID string) ([]models.TranscriptSegment, error) {
	return s.transcripts.ListByRecording(ctx, recordingID)
}

func taskCacheKey(recordingID string) string {
	return "asr:task:" + recordingID
}
