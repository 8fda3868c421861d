package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echolog/api/internal/models"
)

const testQuota = 3

func newTestUsage(t *testing.T) (*UsageService, *memUserStore, *memGuestStore) {
	t.Helper()
	users := newMemUserStore()
	guests := newMemGuestStore()
	return NewUsageService(users, guests, testQuota, zerolog.Nop()), users, guests
}

func TestEstablishGuestMintsIdentity(t *testing.T) {
	usage, _, _ := newTestUsage(t)
	ctx := context.Background()

	ident, remaining, err := usage.EstablishGuest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.IdentityKindGuest, ident.Kind)
	assert.NotEmpty(t, ident.GuestID)
	assert.Equal(t, testQuota, remaining)
}

func TestEstablishGuestIsIdempotent(t *testing.T) {
	usage, _, _ := newTestUsage(t)
	ctx := context.Background()

	ident, _, err := usage.EstablishGuest(ctx, "device-1")
	require.NoError(t, err)

	ok, err := usage.ConsumeGuest(ctx, ident.GuestID)
	require.NoError(t, err)
	require.True(t, ok)

	// Re-establishing must not reset the spent allowance.
	_, remaining, err := usage.EstablishGuest(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, testQuota-1, remaining)
}

func TestGuestQuotaExhaustion(t *testing.T) {
	usage, _, _ := newTestUsage(t)
	ctx := context.Background()

	ident, _, err := usage.EstablishGuest(ctx, "device-2")
	require.NoError(t, err)

	for i := 0; i < testQuota; i++ {
		ok, err := usage.ConsumeGuest(ctx, ident.GuestID)
		require.NoError(t, err)
		assert.True(t, ok, "consume %d should be admitted", i+1)
	}

	ok, err := usage.ConsumeGuest(ctx, ident.GuestID)
	require.NoError(t, err)
	assert.False(t, ok, "consume past the quota must be rejected")

	remaining, err := usage.RemainingForGuest(ctx, ident.GuestID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestRemainingReadsDoNotConsume(t *testing.T) {
	usage, _, _ := newTestUsage(t)
	ctx := context.Background()

	ident, _, err := usage.EstablishGuest(ctx, "device-3")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		remaining, err := usage.RemainingForGuest(ctx, ident.GuestID)
		require.NoError(t, err)
		assert.Equal(t, testQuota, remaining)
	}
}

func TestUnknownGuestHasVirtualFullQuota(t *testing.T) {
	usage, _, _ := newTestUsage(t)

	remaining, err := usage.RemainingForGuest(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, testQuota, remaining)
}

func TestConcurrentGuestConsumption(t *testing.T) {
	usage, _, guests := newTestUsage(t)
	ctx := context.Background()

	ident, _, err := usage.EstablishGuest(ctx, "device-racy")
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	admitted := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := usage.ConsumeGuest(ctx, ident.GuestID)
			assert.NoError(t, err)
			admitted <- ok
		}()
	}
	wg.Wait()
	close(admitted)

	var count int
	for ok := range admitted {
		if ok {
			count++
		}
	}
	assert.Equal(t, testQuota, count, "exactly quota consumptions may be admitted")

	rec, err := guests.GetByID(ctx, ident.GuestID)
	require.NoError(t, err)
	assert.Equal(t, testQuota, rec.UsedCount)
}

func TestZeroBalanceUserRejected(t *testing.T) {
	usage, users, _ := newTestUsage(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, models.User{ID: "u1", Email: "a@b.c", Role: models.UserRoleUser, Balance: 0}))

	ok, err := usage.ConsumeUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "a fresh account has no free allowance")
}

func TestUserBalanceConsumeAndTopUp(t *testing.T) {
	usage, users, _ := newTestUsage(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, models.User{ID: "u2", Email: "b@b.c", Role: models.UserRoleUser}))

	balance, err := usage.TopUp(ctx, "u2", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	for i := 0; i < 2; i++ {
		ok, err := usage.ConsumeUser(ctx, "u2")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := usage.ConsumeUser(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, ok, "balance must never go below zero")

	_, remaining, err := usage.RemainingForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestTopUpRejectsNonPositiveAmounts(t *testing.T) {
	usage, users, _ := newTestUsage(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, models.User{ID: "u3", Email: "c@b.c", Role: models.UserRoleUser}))

	for _, amount := range []int{0, -1, -100} {
		_, err := usage.TopUp(ctx, "u3", amount)
		assert.ErrorIs(t, err, ErrInvalidTopUpAmount)
	}

	_, remaining, err := usage.RemainingForUser(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining, "a rejected top-up must not change the balance")
}

func TestAdminIsNeverCharged(t *testing.T) {
	usage, users, _ := newTestUsage(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, models.User{ID: "root", Email: "admin@local", Role: models.UserRoleAdmin, Balance: 0}))

	for i := 0; i < 100; i++ {
		ok, err := usage.ConsumeUser(ctx, "root")
		require.NoError(t, err)
		assert.True(t, ok, "admin consumption is always admitted")
	}

	admin, remaining, err := usage.RemainingForUser(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, 0, admin.Balance, "admin balance never moves")
	assert.Equal(t, models.UnlimitedRemaining, remaining)
}

func TestConsumeUserMissingAccount(t *testing.T) {
	usage, _, _ := newTestUsage(t)

	ok, err := usage.ConsumeUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeRetriesTransientConflictOnce(t *testing.T) {
	users := newMemUserStore()
	guests := &flakyGuestStore{
		memGuestStore: newMemGuestStore(),
		failures:      1,
		failWith:      &pgconn.PgError{Code: "40001"},
	}
	usage := NewUsageService(users, guests, testQuota, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, guests.Ensure(ctx, "device-retry"))

	ok, err := usage.ConsumeGuest(ctx, "device-retry")
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := guests.GetByID(ctx, "device-retry")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.UsedCount, "the retry must not double-consume")
}
