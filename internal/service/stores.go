package service

import (
	"context"

	"echolog/api/internal/models"
)

// Store interfaces are satisfied by the pgx repositories; tests substitute
// in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	ConsumeBalance(ctx context.Context, id string) (bool, error)
	AddBalance(ctx context.Context, id string, amount int) (int, error)
	List(ctx context.Context) ([]models.User, error)
}

type GuestStore interface {
	Ensure(ctx context.Context, guestID string) error
	GetByID(ctx context.Context, guestID string) (models.GuestAllowance, error)
	ConsumeUsage(ctx context.Context, guestID string, quota int) (bool, error)
}
