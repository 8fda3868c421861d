package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"echolog/api/internal/config"
	"echolog/api/internal/ids"
	"echolog/api/internal/models"
	"echolog/api/internal/repository"
	"echolog/api/internal/security"
)

// ErrInvalidCredentials covers both unknown email and wrong password, so a
// failed login never reveals whether an account exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	users UserStore
	cfg   config.AuthConfig
	log   zerolog.Logger
}

func NewAuthService(users UserStore, cfg config.AuthConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Register creates a user account with zero balance. The password is stored
// as an argon2id hash only.
func (s *AuthService) Register(ctx context.Context, email string, password string) (models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, fmt.Errorf("email and password required")
	}
	if strings.Count(email, "@") != 1 {
		return models.User{}, fmt.Errorf("invalid email address")
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		Balance:      0,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Authenticate verifies a login. The configured administrator handle is
// checked first (case-insensitive); everything else goes through the normal
// email + password path.
func (s *AuthService) Authenticate(ctx context.Context, handle string, password string) (models.User, error) {
	handle = strings.TrimSpace(handle)

	if s.adminConfigured() && strings.EqualFold(handle, s.cfg.AdminHandle) && password == s.cfg.AdminPassword {
		return s.EnsureAdmin(ctx)
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(handle))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureAdmin materializes the configured administrator account once. It is
// called at startup and is safe to call again from the login path.
func (s *AuthService) EnsureAdmin(ctx context.Context) (models.User, error) {
	if !s.adminConfigured() {
		return models.User{}, fmt.Errorf("admin credentials not configured")
	}

	email := normalizeEmail(s.cfg.AdminHandle)
	admin, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	passwordHash, err := security.HashPassword(s.cfg.AdminPassword)
	if err != nil {
		return models.User{}, err
	}

	admin = models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleAdmin,
		Balance:      0, // admins are never charged
	}

	if err := s.users.Create(ctx, admin); err != nil {
		// Lost a concurrent create; the row is there now.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return s.users.FindByEmail(ctx, email)
		}
		return models.User{}, err
	}

	s.log.Info().Str("user_id", admin.ID).Msg("admin account created")
	return admin, nil
}

func (s *AuthService) adminConfigured() bool {
	return s.cfg.AdminHandle != "" && s.cfg.AdminPassword != ""
}

// IssueSession produces the signed, time-limited session token consumed by
// the identity resolver.
func (s *AuthService) IssueSession(user models.User) (string, error) {
	return security.GenerateSessionToken(
		s.cfg.JWTSecret,
		user.ID,
		user.Email,
		string(user.Role),
		s.cfg.SessionTTL,
	)
}

// VerifySession checks signature and expiry. Invalid tokens return ok=false
// and never an error; the caller degrades to the next identity path.
func (s *AuthService) VerifySession(token string) (*security.SessionClaims, bool) {
	claims, err := security.ParseSessionToken(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (s *AuthService) SessionTTL() int {
	return int(s.cfg.SessionTTL.Seconds())
}
