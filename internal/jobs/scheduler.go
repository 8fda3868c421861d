package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"echolog/api/internal/repository"
	"echolog/api/internal/service"
)

const (
	pollStream   = "asr:poll"
	stuckAfter   = 10 * time.Minute
	stuckBatch   = 50
	sweepTimeout = 30 * time.Second
)

// Scheduler periodically re-enqueues recordings stuck in `transcribing`,
// usually because the client that started the job went away before polling.
type Scheduler struct {
	cron       *cron.Cron
	queue      *redis.Client
	recordings *repository.RecordingRepository
	transcribe *service.TranscribeService
	log        zerolog.Logger
}

func NewScheduler(
	queue *redis.Client,
	recordings *repository.RecordingRepository,
	transcribe *service.TranscribeService,
	log zerolog.Logger,
) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:       c,
		queue:      queue,
		recordings: recordings,
		transcribe: transcribe,
		log:        log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 */5 * * * *", s.sweepStuck); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) sweepStuck() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := time.Now().Add(-stuckAfter)
	stuck, err := s.recordings.ListStuck(ctx, cutoff, stuckBatch)
	if err != nil {
		s.log.Error().Err(err).Msg("list stuck recordings failed")
		return
	}

	for _, rec := range stuck {
		taskID, err := s.transcribe.TaskForRecording(ctx, rec.RecordingID)
		if err != nil {
			s.log.Error().Err(err).Str("recording_id", rec.RecordingID).Msg("lookup pending task failed")
			continue
		}
		if taskID == "" {
			// Task id expired from cache; nothing left to poll.
			if err := s.recordings.MarkFailed(ctx, rec.RecordingID, "ASR_LOST", "pending task id expired"); err != nil {
				s.log.Error().Err(err).Str("recording_id", rec.RecordingID).Msg("mark lost recording failed")
			}
			continue
		}

		if err := s.enqueuePoll(ctx, rec.RecordingID, taskID); err != nil {
			s.log.Error().Err(err).Str("recording_id", rec.RecordingID).Msg("enqueue poll failed")
		}
	}
}

func (s *Scheduler) enqueuePoll(ctx context.Context, recordingID, taskID string) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: pollStream,
		Values: map[string]any{
			"type":         "poll",
			"recording_id": recordingID,
			"task_id":      taskID,
		},
	}).Result()
	return err
}
