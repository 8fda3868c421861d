package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"echolog/api/internal/models"
)

type TranscriptRepository struct {
	pool *pgxpool.Pool
}

func NewTranscriptRepository(pool *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{pool: pool}
}

// ReplaceSegments swaps out the full transcript for a recording in one
// transaction, so a re-transcription never leaves mixed results behind.
func (r *TranscriptRepository) ReplaceSegments(ctx context.Context, recordingID string, segments []models.TranscriptSegment) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM transcript_segments WHERE recording_id = $1`, recordingID,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, seg := range segments {
			batch.Queue(`
				INSERT INTO transcript_segments (
					id, recording_id, segment_index, start_ms, end_ms, text, asr_model, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			`,
				seg.ID,
				recordingID,
				seg.SegmentIndex,
				seg.StartMS,
				seg.EndMS,
				seg.Text,
				seg.ASRModel,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *TranscriptRepository) ListByRecording(ctx context.Context, recordingID string) ([]models.TranscriptSegment, error) {
	const query = `
		SELECT id, recording_id, segment_index, start_ms, end_ms, text, asr_model, created_at
		FROM transcript_segments
		WHERE recording_id = $1
		ORDER BY segment_index
	`

	rows, err := r.pool.Query(ctx, query, recordingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []models.TranscriptSegment
	for rows.Next() {
		var seg models.TranscriptSegment
		if err := rows.Scan(
			&seg.ID,
			&seg.RecordingID,
			&seg.SegmentIndex,
			&seg.StartMS,
			&seg.EndMS,
			&seg.Text,
			&seg.ASRModel,
			&seg.CreatedAt,
		); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
