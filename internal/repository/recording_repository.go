package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"echolog/api/internal/models"
)

var ErrRecordingNotFound = errors.New("recording not found")

type RecordingRepository struct {
	pool *pgxpool.Pool
}

func NewRecordingRepository(pool *pgxpool.Pool) *RecordingRepository {
	return &RecordingRepository{pool: pool}
}

// Upsert inserts the recording or returns the existing row for the same
// recording_id, making registration idempotent for device retries.
func (r *RecordingRepository) Upsert(ctx context.Context, rec models.Recording) (models.Recording, error) {
	const query = `
		INSERT INTO recordings (
			id, recording_id, device_id, start_at, end_at, timezone, object_key, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)
		ON CONFLICT (recording_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.RecordingID,
		rec.DeviceID,
		rec.StartAt,
		rec.EndAt,
		rec.Timezone,
		rec.ObjectKey,
		rec.Status,
	)
	if err != nil {
		return models.Recording{}, err
	}
	return r.GetByRecordingID(ctx, rec.RecordingID)
}

func (r *RecordingRepository) GetByRecordingID(ctx context.Context, recordingID string) (models.Recording, error) {
	const query = `
		SELECT id, recording_id, device_id, start_at, end_at, timezone, object_key,
		       status, error_code, error_message, retry_count, created_at
		FROM recordings WHERE recording_id = $1
	`

	row := r.pool.QueryRow(ctx, query, recordingID)
	var rec models.Recording
	if err := row.Scan(
		&rec.ID,
		&rec.RecordingID,
		&rec.DeviceID,
		&rec.StartAt,
		&rec.EndAt,
		&rec.Timezone,
		&rec.ObjectKey,
		&rec.Status,
		&rec.ErrorCode,
		&rec.ErrorMessage,
		&rec.RetryCount,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Recording{}, ErrRecordingNotFound
		}
		return models.Recording{}, err
	}
	return rec, nil
}

func (r *RecordingRepository) UpdateStatus(ctx context.Context, recordingID string, status models.RecordingStatus) error {
	const query = `UPDATE recordings SET status = $2 WHERE recording_id = $1`
	cmd, err := r.pool.Exec(ctx, query, recordingID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordingNotFound
	}
	return nil
}

func (r *RecordingRepository) MarkFailed(ctx context.Context, recordingID string, code string, message string) error {
	const query = `
		UPDATE recordings
		SET status = 'failed', error_code = $2, error_message = $3, retry_count = retry_count + 1
		WHERE recording_id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, recordingID, code, message)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordingNotFound
	}
	return nil
}

// Delete removes the recording row. Transcript segments and analyses go with
// it via ON DELETE CASCADE.
func (r *RecordingRepository) Delete(ctx context.Context, recordingID string) error {
	const query = `DELETE FROM recordings WHERE recording_id = $1`
	cmd, err := r.pool.Exec(ctx, query, recordingID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordingNotFound
	}
	return nil
}

// ListStuck returns recordings that have sat in `transcribing` since before
// the cutoff; the scheduler enqueues them for a re-poll.
func (r *RecordingRepository) ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]models.Recording, error) {
	const query = `
		SELECT id, recording_id, device_id, start_at, end_at, timezone, object_key,
		       status, error_code, error_message, retry_count, created_at
		FROM recordings
		WHERE status = 'transcribing' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(
			&rec.ID,
			&rec.RecordingID,
			&rec.DeviceID,
			&rec.StartAt,
			&rec.EndAt,
			&rec.Timezone,
			&rec.ObjectKey,
			&rec.Status,
			&rec.ErrorCode,
			&rec.ErrorMessage,
			&rec.RetryCount,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
