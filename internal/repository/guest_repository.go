package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"echolog/api/internal/models"
)

var ErrGuestNotFound = errors.New("guest not found")

type GuestRepository struct {
	pool *pgxpool.Pool
}

func NewGuestRepository(pool *pgxpool.Pool) *GuestRepository {
	return &GuestRepository{pool: pool}
}

// Ensure creates the allowance row for guestID if it does not exist yet.
// Safe to call concurrently for the same guest.
func (r *GuestRepository) Ensure(ctx context.Context, guestID string) error {
	const query = `
		INSERT INTO guest_allowance (guest_id, used_count, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		ON CONFLICT (guest_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, guestID)
	return err
}

func (r *GuestRepository) GetByID(ctx context.Context, guestID string) (models.GuestAllowance, error) {
	const query = `
		SELECT guest_id, used_count, created_at, updated_at
		FROM guest_allowance WHERE guest_id = $1
	`

	row := r.pool.QueryRow(ctx, query, guestID)
	var allowance models.GuestAllowance
	if err := row.Scan(
		&allowance.GuestID,
		&allowance.UsedCount,
		&allowance.CreatedAt,
		&allowance.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.GuestAllowance{}, ErrGuestNotFound
		}
		return models.GuestAllowance{}, err
	}
	return allowance, nil
}

// ConsumeUsage atomically increments used_count while it is still under
// quota. Two concurrent calls can never push the count past the quota, and
// a guest with no row is a no-op. Returns whether a unit was charged.
func (r *GuestRepository) ConsumeUsage(ctx context.Context, guestID string, quota int) (bool, error) {
	const query = `
		UPDATE guest_allowance
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE guest_id = $1 AND used_count < $2
	`
	cmd, err := r.pool.Exec(ctx, query, guestID, quota)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
