package service

import (
	"context"
	"strings"
	"sync"

	"echolog/api/internal/models"
	"echolog/api/internal/repository"
)

// In-memory stores mirroring the conditional-update semantics of the pgx
// repositories, so the ledger invariants hold under the same rules.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]models.User{}}
}

func (s *memUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) ConsumeBalance(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.IsAdmin() || u.Balance <= 0 {
		return false, nil
	}
	u.Balance--
	s.users[id] = u
	return true, nil
}

func (s *memUserStore) AddBalance(_ context.Context, id string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	u.Balance += amount
	s.users[id] = u
	return u.Balance, nil
}

func (s *memUserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

type memGuestStore struct {
	mu      sync.Mutex
	records map[string]models.GuestAllowance
}

func newMemGuestStore() *memGuestStore {
	return &memGuestStore{records: map[string]models.GuestAllowance{}}
}

func (s *memGuestStore) Ensure(_ context.Context, guestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[guestID]; !ok {
		s.records[guestID] = models.GuestAllowance{GuestID: guestID}
	}
	return nil
}

func (s *memGuestStore) GetByID(_ context.Context, guestID string) (models.GuestAllowance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[guestID]
	if !ok {
		return models.GuestAllowance{}, repository.ErrGuestNotFound
	}
	return rec, nil
}

func (s *memGuestStore) ConsumeUsage(_ context.Context, guestID string, quota int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[guestID]
	if !ok || rec.UsedCount >= quota {
		return false, nil
	}
	rec.UsedCount++
	s.records[guestID] = rec
	return true, nil
}

// flakyGuestStore fails the first consume with a transient conflict.
type flakyGuestStore struct {
	*memGuestStore
	mu       sync.Mutex
	failures int
	failWith error
}

func (s *flakyGuestStore) ConsumeUsage(ctx context.Context, guestID string, quota int) (bool, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		err := s.failWith
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()
	return s.memGuestStore.ConsumeUsage(ctx, guestID, quota)
}
