package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echolog/api/internal/config"
	"echolog/api/internal/models"
	"echolog/api/internal/repository"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:      "test-secret",
		SessionTTL:     time.Hour,
		AdminHandle:    "admin",
		AdminPassword:  "sup3r-s3cret",
		GuestFreeQuota: 3,
	}
}

func newTestAuth(t *testing.T) (*AuthService, *memUserStore) {
	t.Helper()
	users := newMemUserStore()
	return NewAuthService(users, testAuthConfig(), zerolog.Nop()), users
}

func TestRegisterAndAuthenticate(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "  Alice@Example.COM ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.Equal(t, 0, user.Balance)
	assert.NotContains(t, string(user.PasswordHash), "hunter22")

	got, err := auth.Authenticate(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "bob@example.com", "pw-one")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "BOB@example.com", "pw-two")
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestRegisterValidatesInput(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "", "pw")
	assert.Error(t, err)

	_, err = auth.Register(ctx, "carol@example.com", "")
	assert.Error(t, err)

	_, err = auth.Register(ctx, "not-an-email", "pw")
	assert.Error(t, err)
}

func TestAuthenticateDoesNotRevealAccountExistence(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "dave@example.com", "right-password")
	require.NoError(t, err)

	_, unknownErr := auth.Authenticate(ctx, "nobody@example.com", "whatever")
	_, wrongErr := auth.Authenticate(ctx, "dave@example.com", "wrong-password")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAdminLoginMaterializesAccount(t *testing.T) {
	auth, users := newTestAuth(t)
	ctx := context.Background()

	admin, err := auth.Authenticate(ctx, "Admin", "sup3r-s3cret")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)

	again, err := auth.Authenticate(ctx, "admin", "sup3r-s3cret")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID, "repeat admin logins reuse the same account")

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAdminHandleWithWrongPasswordFallsThrough(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, err := auth.Authenticate(context.Background(), "admin", "guess")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	auth, users := newTestAuth(t)
	ctx := context.Background()

	first, err := auth.EnsureAdmin(ctx)
	require.NoError(t, err)

	second, err := auth.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSessionRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)

	user := models.User{ID: "u9", Email: "eve@example.com", Role: models.UserRoleUser}
	token, err := auth.IssueSession(user)
	require.NoError(t, err)

	claims, ok := auth.VerifySession(token)
	require.True(t, ok)
	assert.Equal(t, "u9", claims.Subject)
	assert.Equal(t, "eve@example.com", claims.Email)
	assert.Equal(t, string(models.UserRoleUser), claims.Role)
}

func TestVerifySessionRejectsGarbage(t *testing.T) {
	auth, _ := newTestAuth(t)

	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		_, ok := auth.VerifySession(token)
		assert.False(t, ok)
	}
}
