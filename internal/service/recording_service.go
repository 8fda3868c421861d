package service

import (
	"context"

	"github.com/rs/zerolog"

	"echolog/api/internal/ids"
	"echolog/api/internal/models"
	"echolog/api/internal/repository"
	"echolog/api/internal/storage"
)

type RecordingService struct {
	recordings *repository.RecordingRepository
	store      *storage.ObjectStore
	log        zerolog.Logger
}

func NewRecordingService(recordings *repository.RecordingRepository, store *storage.ObjectStore, log zerolog.Logger) *RecordingService {
	return &RecordingService{
		recordings: recordings,
		store:      store,
		log:        log,
	}
}

type RecordingInput struct {
	DeviceID    string
	RecordingID string
	StartAt     int64
	EndAt       int64
	Timezone    string
	FileExt     string
}

// Create registers a recording. Devices retry with the same recording_id, so
// creation is idempotent and returns the existing row on repeat.
func (s *RecordingService) Create(ctx context.Context, input RecordingInput) (models.Recording, error) {
	tz := input.Timezone
	if tz == "" {
		tz = "Asia/Shanghai"
	}

	rec := models.Recording{
		ID:          ids.New(),
		RecordingID: input.RecordingID,
		DeviceID:    input.DeviceID,
		StartAt:     input.StartAt,
		EndAt:       input.EndAt,
		Timezone:    tz,
		ObjectKey:   s.store.ObjectKeyForRecording(input.RecordingID, input.FileExt),
		Status:      models.RecordingStatusUploaded,
	}

	return s.recordings.Upsert(ctx, rec)
}

func (s *RecordingService) Get(ctx context.Context, recordingID string) (models.Recording, error) {
	return s.recordings.GetByRecordingID(ctx, recordingID)
}

// MarkReady is the terminal transition once transcript and analysis exist.
func (s *RecordingService) MarkReady(ctx context.Context, recordingID string) error {
	return s.recordings.UpdateStatus(ctx, recordingID, models.RecordingStatusReady)
}

// Delete removes the recording, its derived rows and the stored audio. A
// missing audio object is not an error.
func (s *RecordingService) Delete(ctx context.Context, recordingID string) error {
	rec, err := s.recordings.GetByRecordingID(ctx, recordingID)
	if err != nil {
		return err
	}

	if err := s.recordings.Delete(ctx, recordingID); err != nil {
		return err
	}

	if err := s.store.RemoveObject(ctx, rec.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("recording_id", recordingID).Msg("remove audio object failed")
	}
	return nil
}
