package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"echolog/api/internal/models"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

type AnalysisRepository struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

func (r *AnalysisRepository) Upsert(ctx context.Context, analysis models.Analysis) error {
	const query = `
		INSERT INTO analyses (
			id, recording_id, version, summary, people, issues, suggestions, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
		ON CONFLICT (recording_id, version)
		DO UPDATE SET
			summary = EXCLUDED.summary,
			people = EXCLUDED.people,
			issues = EXCLUDED.issues,
			suggestions = EXCLUDED.suggestions,
			created_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		analysis.ID,
		analysis.RecordingID,
		analysis.Version,
		analysis.Summary,
		analysis.People,
		analysis.Issues,
		analysis.Suggestions,
	)
	return err
}

func (r *AnalysisRepository) GetByRecording(ctx context.Context, recordingID string, version string) (models.Analysis, error) {
	const query = `
		SELECT id, recording_id, version, summary, people, issues, suggestions, created_at
		FROM analyses
		WHERE recording_id = $1 AND version = $2
	`

	row := r.pool.QueryRow(ctx, query, recordingID, version)
	var analysis models.Analysis
	if err := row.Scan(
		&analysis.ID,
		&analysis.RecordingID,
		&analysis.Version,
		&analysis.Summary,
		&analysis.People,
		&analysis.Issues,
		&analysis.Suggestions,
		&analysis.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Analysis{}, ErrAnalysisNotFound
		}
		return models.Analysis{}, err
	}
	return analysis, nil
}
