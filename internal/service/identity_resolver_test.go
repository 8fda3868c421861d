package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echolog/api/internal/models"
	"echolog/api/internal/security"
)

func newTestResolver(t *testing.T) (*IdentityResolver, *AuthService, *UsageService, *memUserStore) {
	t.Helper()
	users := newMemUserStore()
	guests := newMemGuestStore()
	auth := NewAuthService(users, testAuthConfig(), zerolog.Nop())
	usage := NewUsageService(users, guests, testQuota, zerolog.Nop())
	return NewIdentityResolver(auth, usage), auth, usage, users
}

func TestResolvePrefersSessionOverGuest(t *testing.T) {
	resolver, auth, usage, _ := newTestResolver(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "frank@example.com", "pw")
	require.NoError(t, err)
	_, err = usage.TopUp(ctx, user.ID, 5)
	require.NoError(t, err)

	token, err := auth.IssueSession(user)
	require.NoError(t, err)

	ident, remaining, ok := resolver.Resolve(ctx, token, "some-guest")
	require.True(t, ok)
	assert.Equal(t, models.IdentityKindUser, ident.Kind)
	assert.Equal(t, user.ID, ident.UserID)
	assert.Equal(t, 5, remaining)
}

func TestResolveGuestToken(t *testing.T) {
	resolver, _, usage, _ := newTestResolver(t)
	ctx := context.Background()

	gi, _, err := usage.EstablishGuest(ctx, "device-42")
	require.NoError(t, err)

	ident, remaining, ok := resolver.Resolve(ctx, "", gi.GuestID)
	require.True(t, ok)
	assert.Equal(t, models.IdentityKindGuest, ident.Kind)
	assert.Equal(t, "device-42", ident.GuestID)
	assert.Equal(t, testQuota, remaining)
}

func TestResolveExpiredSessionDegradesToGuest(t *testing.T) {
	resolver, _, _, _ := newTestResolver(t)
	ctx := context.Background()

	expired, err := security.GenerateSessionToken("test-secret", "u1", "x@y.z", "user", -time.Minute)
	require.NoError(t, err)

	ident, _, ok := resolver.Resolve(ctx, expired, "device-7")
	require.True(t, ok)
	assert.Equal(t, models.IdentityKindGuest, ident.Kind)
}

func TestResolveTamperedSessionDegradesToGuest(t *testing.T) {
	resolver, _, _, _ := newTestResolver(t)
	ctx := context.Background()

	forged, err := security.GenerateSessionToken("wrong-secret", "u1", "x@y.z", "admin", time.Hour)
	require.NoError(t, err)

	ident, _, ok := resolver.Resolve(ctx, forged, "device-8")
	require.True(t, ok)
	assert.Equal(t, models.IdentityKindGuest, ident.Kind)
}

func TestResolveVanishedUserDegradesToGuest(t *testing.T) {
	resolver, auth, _, _ := newTestResolver(t)
	ctx := context.Background()

	// Token for a user id that was never stored.
	token, err := auth.IssueSession(models.User{ID: "deleted", Email: "gone@example.com", Role: models.UserRoleUser})
	require.NoError(t, err)

	ident, _, ok := resolver.Resolve(ctx, token, "device-9")
	require.True(t, ok)
	assert.Equal(t, models.IdentityKindGuest, ident.Kind)
}

func TestResolveNothingIsUnauthenticated(t *testing.T) {
	resolver, _, _, _ := newTestResolver(t)

	_, _, ok := resolver.Resolve(context.Background(), "", "")
	assert.False(t, ok)
}

func TestResolveAdminSessionIsUnlimited(t *testing.T) {
	resolver, auth, _, _ := newTestResolver(t)
	ctx := context.Background()

	admin, err := auth.EnsureAdmin(ctx)
	require.NoError(t, err)

	token, err := auth.IssueSession(admin)
	require.NoError(t, err)

	ident, remaining, ok := resolver.Resolve(ctx, token, "")
	require.True(t, ok)
	assert.True(t, ident.IsAdmin())
	assert.Equal(t, models.UnlimitedRemaining, remaining)
}
