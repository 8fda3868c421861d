package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash BYTEA NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		balance       INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS guest_allowance (
		guest_id   TEXT PRIMARY KEY,
		used_count INTEGER NOT NULL DEFAULT 0 CHECK (used_count >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS recordings (
		id            TEXT PRIMARY KEY,
		recording_id  TEXT NOT NULL UNIQUE,
		device_id     TEXT NOT NULL,
		start_at      BIGINT NOT NULL,
		end_at        BIGINT NOT NULL,
		timezone      TEXT NOT NULL DEFAULT 'Asia/Shanghai',
		object_key    TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'uploaded',
		error_code    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		retry_count   INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recordings_device ON recordings (device_id)`,
	`CREATE TABLE IF NOT EXISTS transcript_segments (
		id            TEXT PRIMARY KEY,
		recording_id  TEXT NOT NULL REFERENCES recordings (recording_id) ON DELETE CASCADE,
		segment_index INTEGER NOT NULL,
		start_ms      INTEGER NOT NULL DEFAULT 0,
		end_ms        INTEGER NOT NULL DEFAULT 0,
		text          TEXT NOT NULL,
		asr_model     TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (recording_id, segment_index)
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id           TEXT PRIMARY KEY,
		recording_id TEXT NOT NULL REFERENCES recordings (recording_id) ON DELETE CASCADE,
		version      TEXT NOT NULL DEFAULT 'v1',
		summary      TEXT NOT NULL DEFAULT '',
		people       TEXT NOT NULL DEFAULT '',
		issues       TEXT NOT NULL DEFAULT '',
		suggestions  TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (recording_id, version)
	)`,
}

// EnsureSchema creates missing tables at startup. Statements are idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
