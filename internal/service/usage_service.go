package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echolog/api/internal/models"
	"echolog/api/internal/repository"
)

var ErrInvalidTopUpAmount = errors.New("top-up amount must be a positive integer")

// UsageService is the quota ledger: it owns the remaining-allowance reads
// and the atomic consume/top-up mutations for guests and users.
type UsageService struct {
	users  UserStore
	guests GuestStore
	quota  int
	log    zerolog.Logger
}

func NewUsageService(users UserStore, guests GuestStore, guestFreeQuota int, log zerolog.Logger) *UsageService {
	return &UsageService{
		users:  users,
		guests: guests,
		quota:  guestFreeQuota,
		log:    log,
	}
}

func (s *UsageService) GuestFreeQuota() int {
	return s.quota
}

// EstablishGuest is the one bootstrap path allowed to mint a new allowance
// record. An empty guestID gets a fresh server-generated one.
func (s *UsageService) EstablishGuest(ctx context.Context, guestID string) (models.Identity, int, error) {
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		guestID = uuid.NewString()
	}

	if err := s.withRetry(func() error {
		return s.guests.Ensure(ctx, guestID)
	}); err != nil {
		return models.Identity{}, 0, err
	}

	remaining, err := s.RemainingForGuest(ctx, guestID)
	if err != nil {
		return models.Identity{}, 0, err
	}
	return models.GuestIdentity(guestID), remaining, nil
}

// RemainingForGuest derives remaining allowance from the configured quota.
// A guest with no record is virtual and has the full quota.
func (s *UsageService) RemainingForGuest(ctx context.Context, guestID string) (int, error) {
	allowance, err := s.guests.GetByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, repository.ErrGuestNotFound) {
			return s.quota, nil
		}
		return 0, err
	}

	remaining := s.quota - allowance.UsedCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// RemainingForUser returns the user's live snapshot and remaining count.
// Admins are never exhausted.
func (s *UsageService) RemainingForUser(ctx context.Context, userID string) (models.User, int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, 0, err
	}

	if user.IsAdmin() {
		return user, models.UnlimitedRemaining, nil
	}
	return user, user.Balance, nil
}

// ConsumeGuest charges one unit against the guest allowance. The store-side
// conditional update guarantees two concurrent consumptions cannot both pass
// the quota boundary. A guest with no record is a no-op.
func (s *UsageService) ConsumeGuest(ctx context.Context, guestID string) (bool, error) {
	var admitted bool
	err := s.withRetry(func() error {
		var err error
		admitted, err = s.guests.ConsumeUsage(ctx, guestID, s.quota)
		return err
	})
	if err != nil {
		return false, err
	}
	if !admitted {
		s.log.Debug().Str("guest_id", guestID).Msg("guest consume rejected")
	}
	return admitted, nil
}

// ConsumeUser charges one unit of balance. Admins and non-existent users are
// no-ops; admins still count as admitted.
func (s *UsageService) ConsumeUser(ctx context.Context, userID string) (bool, error) {
	var charged bool
	err := s.withRetry(func() error {
		var err error
		charged, err = s.users.ConsumeBalance(ctx, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	if charged {
		return true, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.IsAdmin() {
		return true, nil
	}
	return false, nil
}

// TopUp credits amount to the user's balance and returns the new value.
func (s *UsageService) TopUp(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidTopUpAmount
	}

	var balance int
	err := s.withRetry(func() error {
		var err error
		balance, err = s.users.AddBalance(ctx, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().Str("user_id", userID).Int("amount", amount).Int("balance", balance).Msg("balance topped up")
	return balance, nil
}

func (s *UsageService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// withRetry runs fn and retries exactly once on a transient store conflict.
// The ledger mutations are conditional single statements, so a retry can
// never double-consume.
func (s *UsageService) withRetry(fn func() error) error {
	err := fn()
	if err != nil && repository.IsTransient(err) {
		s.log.Warn().Err(err).Msg("transient store conflict, retrying once")
		err = fn()
	}
	return err
}
